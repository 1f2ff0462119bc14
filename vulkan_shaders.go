// vulkan_shaders.go - embedded SPIR-V for the HDR tone-mapping compute
// kernel (§4.F). GLSL source is kept as a comment for reference; the
// binary below is a placeholder, the same way the upstream Voodoo
// Vulkan backend keeps one until the build pipeline to compile actual
// shaders is wired up (out of scope here, see DESIGN.md).
//
// To regenerate: glslc -fshader-stage=compute tonemap.comp -o tonemap.spv

package main

// Compute shader GLSL source (for reference)
//
// #version 450
// layout(local_size_x = 16, local_size_y = 16) in;
//
// layout(binding = 0, rgba16) uniform readonly image2D srcImage;
// layout(binding = 1, rgba8) uniform writeonly image2D dstImage;
//
// layout(push_constant) uniform PushConstants {
//     float exposure;
//     uint mode;
// } pc;
//
// const float PQ_M1 = 0.1593017578125;
// const float PQ_M2 = 78.84375;
// const float PQ_C1 = 0.8359375;
// const float PQ_C2 = 18.8515625;
// const float PQ_C3 = 18.6875;
//
// const mat3 REC2020_TO_REC709 = mat3(
//     1.6604910, -0.1245505, -0.0181508,
//    -0.5876411,  1.1328999, -0.1005789,
//    -0.0728499, -0.0083494,  1.1187297
// );
//
// float pqDecode(float x) {
//     x = clamp(x, 0.0, 1.0);
//     float p = pow(max(x, 0.0), 1.0 / PQ_M2);
//     float d = max(p - PQ_C1, 0.0);
//     float d2 = max(PQ_C2 - PQ_C3 * p, 1e-7);
//     return pow(max(d / d2, 0.0), 1.0 / PQ_M1) * 10000.0;
// }
//
// float srgbEncode(float x) {
//     return x <= 0.0031308 ? 12.92 * x : 1.055 * pow(max(x, 0.0), 1.0/2.4) - 0.055;
// }
//
// float normalizeFactor(uint mode) {
//     if (mode == 0u) return 100.0;
//     if (mode == 5u) return 200.0;
//     if (mode == 6u) return 120.0;
//     if (mode == 7u) return 400.0;
//     return 80.0; // ACES family
// }
//
// // toneCurve(mode, rgb) dispatches to the operator selected by
// // pc.mode - elided here, see vulkan_tonemap_math.go for the
// // reference implementation every operator is ported from.
// vec3 toneCurve(uint mode, vec3 x);
//
// void main() {
//     ivec2 p = ivec2(gl_GlobalInvocationID.xy);
//     ivec2 size = imageSize(srcImage);
//     if (p.x >= size.x || p.y >= size.y) return;
//
//     vec4 s = imageLoad(srcImage, p);
//     vec3 rgb = clamp(s.rgb, 0.0, 1.0);
//     rgb = vec3(pqDecode(rgb.r), pqDecode(rgb.g), pqDecode(rgb.b));
//     rgb = REC2020_TO_REC709 * rgb;
//     rgb /= normalizeFactor(pc.mode);
//     rgb *= pc.exposure;
//     rgb = toneCurve(pc.mode, rgb);
//     rgb = clamp(rgb, 0.0, 1.0);
//     vec3 out_ = vec3(srgbEncode(rgb.r), srgbEncode(rgb.g), srgbEncode(rgb.b));
//     imageStore(dstImage, p, vec4(out_, s.a));
// }

// TonemapComputeSPV is the compiled SPIR-V for the kernel above.
// Placeholder - real SPIR-V would be produced by glslc from the GLSL
// source documented here.
var TonemapComputeSPV = []byte{
	// SPIR-V magic number
	0x03, 0x02, 0x23, 0x07,
	// Version 1.0
	0x00, 0x00, 0x01, 0x00,
	// Generator magic
	0x00, 0x00, 0x00, 0x00,
	// Bound
	0x00, 0x00, 0x00, 0x00,
	// Schema
	0x00, 0x00, 0x00, 0x00,
}
