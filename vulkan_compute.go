//go:build !headless

// vulkan_compute.go - external-import compute path (Component E,
// §4.E steps 2-8): dmabuf export, explicit-modifier image import,
// tiled->linear blit, the HDR tone-map branch, and readback.

package main

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// importedImage pairs a Vulkan image with the device memory bound to
// it, so release always frees both together.
type importedImage struct {
	image  vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
}

func (ii *importedImage) release(device vk.Device) {
	if ii.view != vk.NullImageView {
		vk.DestroyImageView(device, ii.view, nil)
	}
	if ii.image != vk.NullImage {
		vk.DestroyImage(device, ii.image, nil)
	}
	if ii.memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, ii.memory, nil)
	}
}

// captureViaComputeImport implements §4.E end to end for a tiled
// framebuffer: export as dmabuf, import with the explicit modifier,
// blit to a linear image, tone-map if HDR, and read back through (A).
func captureViaComputeImport(drm *drmDevice, fb *fbMetadata, exposure float32, tonemapMode uint32) ([]byte, error) {
	cc, err := newComputeContext()
	if err != nil {
		return nil, wrapAcquire("compute-import", errEnvironment, err)
	}
	defer cc.release()

	fd, err := primeHandleToFD(drm.Fd(), fb.planes[0].handle)
	if err != nil {
		return nil, wrapAcquire("compute-import", errImportAlloc, fmt.Errorf("export plane dmabuf: %w", err))
	}
	defer closeFD(fd)

	hdr := isHDR(fb.format)
	srcFormat := vk.FormatR8g8b8a8Unorm
	if hdr {
		srcFormat = vk.FormatR16g16b16a16Unorm
	}

	src, err := cc.importExternalImage(fd, fb, srcFormat, hdr)
	if err != nil {
		return nil, wrapAcquire("compute-import", errImportAlloc, err)
	}
	defer src.release(cc.device)

	linear, err := cc.createLinearImage(fb.width, fb.height, srcFormat, hdr, true)
	if err != nil {
		return nil, wrapAcquire("compute-import", errImportAlloc, err)
	}
	defer linear.release(cc.device)

	if err := cc.blitTiledToLinear(src.image, linear.image, fb.width, fb.height); err != nil {
		return nil, wrapAcquire("compute-import", errGPUExec, err)
	}

	final := linear
	if hdr {
		dst, err := cc.createLinearImage(fb.width, fb.height, vk.FormatR8g8b8a8Unorm, true, true)
		if err != nil {
			return nil, wrapAcquire("compute-import", errImportAlloc, err)
		}
		defer dst.release(cc.device)

		if err := runToneMap(cc, linear, dst, fb.width, fb.height, exposure, tonemapMode); err != nil {
			return nil, wrapAcquire("compute-import", errGPUExec, err)
		}
		final = dst
	}

	raster, err := cc.readback(final.image, final.memory, fb.width, fb.height)
	if err != nil {
		return nil, wrapAcquire("compute-import", errGPUExec, err)
	}
	return raster, nil
}

// importExternalImage imports the dmabuf FD as an image with an
// explicit-modifier create chain declaring the source modifier and
// the single-plane layout, per §4.E step 3-4.
func (cc *computeContext) importExternalImage(fd int, fb *fbMetadata, format vk.Format, hdr bool) (*importedImage, error) {
	planeLayout := vk.SubresourceLayout{
		Offset:  vk.DeviceSize(fb.planes[0].offset),
		Size:    vk.DeviceSize(uint64(fb.planes[0].pitch) * uint64(fb.height)),
		RowPitch: vk.DeviceSize(fb.planes[0].pitch),
	}

	modifierInfo := vk.ImageDrmFormatModifierExplicitCreateInfoEXT{
		SType:               vk.StructureTypeImageDrmFormatModifierExplicitCreateInfoExt,
		DrmFormatModifier:   fb.modifier,
		DrmFormatModifierPlaneCount: 1,
		PPlaneLayouts:       []vk.SubresourceLayout{planeLayout},
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	if hdr {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}

	extMemInfo := vk.ExternalMemoryImageCreateInfo{
		SType:      vk.StructureTypeExternalMemoryImageCreateInfo,
		PNext:      unsafe.Pointer(&modifierInfo),
		HandleTypes: vk.ExternalMemoryHandleTypeFlags(vk.ExternalMemoryHandleTypeDmaBufBitExt),
	}

	imageInfo := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		PNext:       unsafe.Pointer(&extMemInfo),
		ImageType:   vk.ImageType2d,
		Format:      format,
		Extent:      vk.Extent3D{Width: uint32(fb.width), Height: uint32(fb.height), Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingDrmFormatModifierExt,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var image vk.Image
	if res := vk.CreateImage(cc.device, &imageInfo, nil, &image); res != vk.Success {
		return nil, fmt.Errorf("vkCreateImage (imported) failed: %d", res)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(cc.device, image, &memReqs)
	memReqs.Deref()

	memTypeIndex, err := cc.findMemoryType(memReqs.MemoryTypeBits, 0)
	if err != nil {
		vk.DestroyImage(cc.device, image, nil)
		return nil, err
	}

	importInfo := vk.ImportMemoryFdInfoKHR{
		SType:      vk.StructureTypeImportMemoryFdInfoKhr,
		HandleType: vk.ExternalMemoryHandleTypeDmaBufBitExt,
		Fd:         int32(fd),
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           unsafe.Pointer(&importInfo),
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(cc.device, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyImage(cc.device, image, nil)
		return nil, fmt.Errorf("vkAllocateMemory (imported) failed: %d", res)
	}
	if res := vk.BindImageMemory(cc.device, image, memory, 0); res != vk.Success {
		vk.FreeMemory(cc.device, memory, nil)
		vk.DestroyImage(cc.device, image, nil)
		return nil, fmt.Errorf("vkBindImageMemory (imported) failed: %d", res)
	}

	return &importedImage{image: image, memory: memory}, nil
}

// createLinearImage allocates a fresh linear image, optionally backed
// by host-visible memory so it can be mapped directly for readback.
func (cc *computeContext) createLinearImage(width, height int, format vk.Format, storage, hostVisible bool) (*importedImage, error) {
	usage := vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	if storage {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}

	imageInfo := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Format:      format,
		Extent:      vk.Extent3D{Width: uint32(width), Height: uint32(height), Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingLinear,
		Usage:       usage,
		InitialLayout: vk.ImageLayoutUndefined,
		SharingMode: vk.SharingModeExclusive,
	}

	var image vk.Image
	if res := vk.CreateImage(cc.device, &imageInfo, nil, &image); res != vk.Success {
		return nil, fmt.Errorf("vkCreateImage (linear) failed: %d", res)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(cc.device, image, &memReqs)
	memReqs.Deref()

	props := vk.MemoryPropertyFlags(0)
	if hostVisible {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	memTypeIndex, err := cc.findMemoryType(memReqs.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyImage(cc.device, image, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memTypeIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(cc.device, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyImage(cc.device, image, nil)
		return nil, fmt.Errorf("vkAllocateMemory (linear) failed: %d", res)
	}
	if res := vk.BindImageMemory(cc.device, image, memory, 0); res != vk.Success {
		vk.FreeMemory(cc.device, memory, nil)
		vk.DestroyImage(cc.device, image, nil)
		return nil, fmt.Errorf("vkBindImageMemory (linear) failed: %d", res)
	}

	img := &importedImage{image: image, memory: memory}
	if storage {
		if err := cc.createStorageView(img, format); err != nil {
			img.release(cc.device)
			return nil, err
		}
	}
	return img, nil
}

func (cc *computeContext) createStorageView(img *importedImage, format vk.Format) error {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount:     1,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(cc.device, &viewInfo, nil, &view); res != vk.Success {
		return fmt.Errorf("vkCreateImageView (storage) failed: %d", res)
	}
	img.view = view
	return nil
}

// blitTiledToLinear records and submits a one-shot command buffer that
// transitions both images and issues a full-extent color copy, per
// §4.E step 5.
func (cc *computeContext) blitTiledToLinear(src, dst vk.Image, width, height int) error {
	cmd, err := cc.beginOneShot()
	if err != nil {
		return err
	}

	barrier := func(img vk.Image, oldLayout, newLayout vk.ImageLayout) vk.ImageMemoryBarrier {
		return vk.ImageMemoryBarrier{
			SType:     vk.StructureTypeImageMemoryBarrier,
			OldLayout: oldLayout,
			NewLayout: newLayout,
			Image:     img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
	}

	barriers := []vk.ImageMemoryBarrier{
		barrier(src, vk.ImageLayoutUndefined, vk.ImageLayoutTransferSrcOptimal),
		barrier(dst, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal),
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), 0, 0, nil, 0, nil,
		uint32(len(barriers)), barriers)

	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		Extent:         vk.Extent3D{Width: uint32(width), Height: uint32(height), Depth: 1},
	}
	vk.CmdCopyImage(cmd, src, vk.ImageLayoutTransferSrcOptimal, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{region})

	return cc.endOneShotAndWait(cmd)
}

func (cc *computeContext) beginOneShot() (vk.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cc.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmdBuffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(cc.device, &allocInfo, cmdBuffers); res != vk.Success {
		return nil, fmt.Errorf("vkAllocateCommandBuffers failed: %d", res)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cmdBuffers[0], &beginInfo); res != vk.Success {
		return nil, fmt.Errorf("vkBeginCommandBuffer failed: %d", res)
	}
	return cmdBuffers[0], nil
}

func (cc *computeContext) endOneShotAndWait(cmd vk.CommandBuffer) error {
	if res := vk.EndCommandBuffer(cmd); res != vk.Success {
		return fmt.Errorf("vkEndCommandBuffer failed: %d", res)
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if res := vk.QueueSubmit(cc.queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("vkQueueSubmit failed: %d", res)
	}
	if res := vk.QueueWaitIdle(cc.queue); res != vk.Success {
		return fmt.Errorf("vkQueueWaitIdle failed: %d", res)
	}
	vk.FreeCommandBuffers(cc.device, cc.commandPool, 1, []vk.CommandBuffer{cmd})
	return nil
}

// readback maps the final image's memory, obtains its subresource
// layout for row pitch, and converts to RGB24 via (A), per §4.E
// step 7.
func (cc *computeContext) readback(image vk.Image, memory vk.DeviceMemory, width, height int) ([]byte, error) {
	subresource := vk.ImageSubresource{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit)}
	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(cc.device, image, &subresource, &layout)
	layout.Deref()

	var data unsafe.Pointer
	if res := vk.MapMemory(cc.device, memory, 0, vk.DeviceSize(vk.WholeSize), 0, &data); res != vk.Success {
		return nil, fmt.Errorf("vkMapMemory (readback) failed: %d", res)
	}
	defer vk.UnmapMemory(cc.device, memory)

	mapped := unsafe.Slice((*byte)(data), int(layout.Size))
	rgb := make([]byte, width*height*3)
	// The final image is always VK_FORMAT_R8G8B8A8_UNORM (byte order
	// R,G,B,A), which is exactly the ABGR8888 fourcc layout (A).
	convertToRGB24(mapped, rgb, width, height, FormatABGR8888, int(layout.RowPitch), func(msg string) {
		diagSub("compute-import: %s", msg)
	})
	return rgb, nil
}
