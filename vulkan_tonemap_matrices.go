// vulkan_tonemap_matrices.go - canonical color-primary matrices used
// by the HDR tone-mapping kernel (§4.F). Stored column-major per the
// glossary's convention; mat3x3.apply treats m[col*3+row].

package main

import "math"

// mat3x3 is a column-major 3x3 matrix: m[0..2] is column 0, etc.
type mat3x3 [9]float64

// rec2020ToRec709 converts Rec.2020 linear RGB to Rec.709 linear RGB
// (D65 white point), used in the PQ decode stage of the tone-map
// pipeline.
var rec2020ToRec709 = mat3x3{
	1.6604910, -0.1245505, -0.0181508,
	-0.5876411, 1.1328999, -0.1005789,
	-0.0728499, -0.0083494, 1.1187297,
}

// rec709ToRec2020 is the inverse of rec2020ToRec709, kept for the
// roundtrip test and any future encode-side symmetry.
var rec709ToRec2020 = mat3x3{
	0.6274040, 0.0690970, 0.0163916,
	0.3292820, 0.9195400, 0.0880132,
	0.0433136, 0.0113612, 0.8955953,
}

// ap0ToAP1 and ap1ToAP0 convert between the ACES archival (AP0) and
// working (AP1) primaries, used by the ACES-Full-RRT tone curve.
var ap0ToAP1 = mat3x3{
	1.4514393, -0.0765537, 0.0083161,
	-0.2365107, 1.1762296, -0.0060324,
	-0.2149285, -0.0996759, 0.9977164,
}

var ap1ToAP0 = mat3x3{
	0.6954522, 0.0447946, -0.0055525,
	0.1406786, 0.8596711, 0.0040252,
	0.1638732, 0.0955343, 1.0015273,
}

// ap1ToRec709 and rec709ToAP1 convert between the ACES working
// primaries and Rec.709, used to move in and out of AP1 for the
// Narkowicz/Hill/Day tone curves.
var ap1ToRec709 = mat3x3{
	1.7050509, -0.1302564, -0.0240033,
	-0.6217921, 1.1408047, -0.1289689,
	-0.0832588, -0.0105483, 1.1529723,
}

var rec709ToAP1 = mat3x3{
	0.6131178, 0.0701937, 0.0206156,
	0.3395134, 0.9163605, 0.1095698,
	0.0473886, 0.0134458, 0.8698145,
}

// apply multiplies the matrix by a column vector (r, g, b).
func (m mat3x3) apply(r, g, b float64) (float64, float64, float64) {
	return m[0]*r + m[3]*g + m[6]*b,
		m[1]*r + m[4]*g + m[7]*b,
		m[2]*r + m[5]*g + m[8]*b
}

// multiply computes m * other, both column-major.
func (m mat3x3) multiply(other mat3x3) mat3x3 {
	var out mat3x3
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m[k*3+row] * other[col*3+k]
			}
			out[col*3+row] = sum
		}
	}
	return out
}

// frobeniusErrorFromIdentity returns the Frobenius norm of the difference between
// m and the identity matrix, used by the roundtrip tests to bound
// matrix-pair inversion error.
func (m mat3x3) frobeniusErrorFromIdentity() float64 {
	identity := mat3x3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	var sum float64
	for i := range m {
		d := m[i] - identity[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
