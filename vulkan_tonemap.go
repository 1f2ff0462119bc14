//go:build !headless

// vulkan_tonemap.go - compute pipeline wiring for the HDR tone-mapping
// kernel (Component F, §4.F): descriptor set layout, pipeline layout
// with the push-constant block, pipeline creation, and dispatch.

package main

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// tonemapPushConstants mirrors the shader's push-constant block
// exactly: {exposure: f32, mode: u32}.
type tonemapPushConstants struct {
	Exposure float32
	Mode     uint32
}

const tonemapWorkgroupSize = 16

// runToneMap builds a one-shot descriptor set and compute pipeline
// binding src (read-only, rgba16) and dst (write-only, rgba8), and
// dispatches ⌈w/16⌉×⌈h/16⌉ workgroups, per §4.F.
func runToneMap(cc *computeContext, src, dst *importedImage, width, height int, exposure float32, mode uint32) error {
	layout, err := cc.createTonemapDescriptorSetLayout()
	if err != nil {
		return err
	}
	defer vk.DestroyDescriptorSetLayout(cc.device, layout, nil)

	pipelineLayout, err := cc.createTonemapPipelineLayout(layout)
	if err != nil {
		return err
	}
	defer vk.DestroyPipelineLayout(cc.device, pipelineLayout, nil)

	pipeline, err := cc.createTonemapPipeline(pipelineLayout)
	if err != nil {
		return err
	}
	defer vk.DestroyPipeline(cc.device, pipeline, nil)

	pool, set, err := cc.allocateTonemapDescriptorSet(layout, src.view, dst.view)
	if err != nil {
		return err
	}
	defer vk.DestroyDescriptorPool(cc.device, pool, nil)

	cmd, err := cc.beginOneShot()
	if err != nil {
		return err
	}

	// The kernel expects both images in GENERAL layout (§5): src
	// arrives as the blit's TRANSFER_DST_OPTIMAL destination, dst is
	// a fresh image still in UNDEFINED.
	barrier := func(img vk.Image, oldLayout vk.ImageLayout) vk.ImageMemoryBarrier {
		return vk.ImageMemoryBarrier{
			SType:     vk.StructureTypeImageMemoryBarrier,
			OldLayout: oldLayout,
			NewLayout: vk.ImageLayoutGeneral,
			Image:     img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
	}
	barriers := []vk.ImageMemoryBarrier{
		barrier(src.image, vk.ImageLayoutTransferDstOptimal),
		barrier(dst.image, vk.ImageLayoutUndefined),
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), 0, 0, nil, 0, nil,
		uint32(len(barriers)), barriers)

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointCompute, pipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)

	pc := tonemapPushConstants{Exposure: exposure, Mode: mode}
	vk.CmdPushConstants(cmd, pipelineLayout, vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0,
		uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))

	groupsX := uint32((width + tonemapWorkgroupSize - 1) / tonemapWorkgroupSize)
	groupsY := uint32((height + tonemapWorkgroupSize - 1) / tonemapWorkgroupSize)
	vk.CmdDispatch(cmd, groupsX, groupsY, 1)

	return cc.endOneShotAndWait(cmd)
}

func (cc *computeContext) createTonemapDescriptorSetLayout() (vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeStorageImage, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
		{Binding: 1, DescriptorType: vk.DescriptorTypeStorageImage, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(cc.device, &info, nil, &layout); res != vk.Success {
		return nil, fmt.Errorf("vkCreateDescriptorSetLayout failed: %d", res)
	}
	return layout, nil
}

func (cc *computeContext) createTonemapPipelineLayout(setLayout vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(tonemapPushConstants{})),
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushRange},
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(cc.device, &info, nil, &layout); res != vk.Success {
		return nil, fmt.Errorf("vkCreatePipelineLayout failed: %d", res)
	}
	return layout, nil
}

func (cc *computeContext) createTonemapPipeline(layout vk.PipelineLayout) (vk.Pipeline, error) {
	module, err := cc.createShaderModule(TonemapComputeSPV)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(cc.device, module, nil)

	stage := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageComputeBit,
		Module: module,
		PName:  safeCString("main"),
	}
	info := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage,
		Layout: layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(cc.device, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.ComputePipelineCreateInfo{info}, nil, pipelines); res != vk.Success {
		return nil, fmt.Errorf("vkCreateComputePipelines failed: %d", res)
	}
	return pipelines[0], nil
}

func (cc *computeContext) createShaderModule(code []byte) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(cc.device, &info, nil, &module); res != vk.Success {
		return nil, fmt.Errorf("vkCreateShaderModule failed: %d", res)
	}
	return module, nil
}

func (cc *computeContext) allocateTonemapDescriptorSet(layout vk.DescriptorSetLayout, src, dst vk.ImageView) (vk.DescriptorPool, vk.DescriptorSet, error) {
	poolSize := vk.DescriptorPoolSize{Type: vk.DescriptorTypeStorageImage, DescriptorCount: 2}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{poolSize},
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(cc.device, &poolInfo, nil, &pool); res != vk.Success {
		return nil, nil, fmt.Errorf("vkCreateDescriptorPool failed: %d", res)
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(cc.device, &allocInfo, sets); res != vk.Success {
		vk.DestroyDescriptorPool(cc.device, pool, nil)
		return nil, nil, fmt.Errorf("vkAllocateDescriptorSets failed: %d", res)
	}

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[0],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo:      []vk.DescriptorImageInfo{{ImageView: src, ImageLayout: vk.ImageLayoutGeneral}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[0],
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo:      []vk.DescriptorImageInfo{{ImageView: dst, ImageLayout: vk.ImageLayoutGeneral}},
		},
	}
	vk.UpdateDescriptorSets(cc.device, uint32(len(writes)), writes, 0, nil)

	return pool, sets[0], nil
}

// sliceUint32 reinterprets a little-endian SPIR-V byte blob as the
// uint32 words vkCreateShaderModule expects.
func sliceUint32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return out
}
