//go:build linux && !headless

// amdgpu_copy.go - DMA-engine copy path (Component D, §4.D). Used when
// the driver is the preferred accelerator and the framebuffer is
// linear, or when the compute-import path fails recoverably on a tiled
// one: the scanout is copied GPU-side into a CPU-mappable buffer
// via a single SDMA linear-copy packet, then handed to (A).

package main

import (
	"fmt"
)

// DMA engine copy packet opcodes (SDMA_OP_COPY / SDMA_SUBOP_COPY_LINEAR).
const (
	sdmaOpCopy         = 1
	sdmaSubopCopyLinear = 0
	sdmaIBSizeBytes    = 4096
	sdmaIBSizeDW       = sdmaIBSizeBytes / 4
	sdmaPacketDwords   = 7
)

// captureViaDMACopy implements §4.D end to end: import the source
// framebuffer BO, allocate a CPU-visible destination, build and submit
// the linear-copy IB, map the result, and convert to RGB24 via (A).
func captureViaDMACopy(drm *drmDevice, fb *fbMetadata) ([]byte, error) {
	dev, err := amdgpuOpenDevice(drm.Fd())
	if err != nil {
		return nil, wrapAcquire("dma-copy", errEnvironment, err)
	}
	defer dev.Close()

	src, err := importSourceBO(drm, dev, fb)
	if err != nil {
		return nil, wrapAcquire("dma-copy", errImportAlloc, err)
	}
	defer src.release(dev)

	rowPitch := fb.planes[0].pitch
	if rowPitch == 0 {
		return nil, wrapAcquire("dma-copy", errImportAlloc, fmt.Errorf("zero row pitch on plane 0"))
	}
	destSize := uint64(rowPitch) * uint64(fb.height)

	dst, err := dev.amdgpuAllocBuffer(destSize)
	if err != nil {
		return nil, wrapAcquire("dma-copy", errImportAlloc, fmt.Errorf("alloc destination: %w", err))
	}
	defer dst.release(dev)

	ib, err := dev.amdgpuAllocBuffer(sdmaIBSizeBytes)
	if err != nil {
		return nil, wrapAcquire("dma-copy", errImportAlloc, fmt.Errorf("alloc IB: %w", err))
	}
	defer ib.release(dev)

	ibMem, err := ib.cpuMap()
	if err != nil {
		return nil, wrapAcquire("dma-copy", errImportAlloc, fmt.Errorf("map IB: %w", err))
	}
	writeCopyPacket(ibMem, destSize, src.vaAddr, dst.vaAddr)
	if err := ib.cpuUnmap(); err != nil {
		return nil, wrapAcquire("dma-copy", errGPUExec, fmt.Errorf("unmap IB: %w", err))
	}

	if err := dev.submitCopyIB(ib, sdmaPacketDwords, []*amdgpuBuffer{src, dst, ib}); err != nil {
		return nil, wrapAcquire("dma-copy", errGPUExec, err)
	}

	dstMem, err := dst.cpuMap()
	if err != nil {
		return nil, wrapAcquire("dma-copy", errGPUExec, fmt.Errorf("map destination: %w", err))
	}
	defer dst.cpuUnmap()

	rgb := make([]byte, fb.width*fb.height*3)
	convertToRGB24(dstMem, rgb, fb.width, fb.height, fb.format, int(rowPitch), func(msg string) {
		diagSub("dma-copy: %s", msg)
	})
	return rgb, nil
}

// importSourceBO tries the flink-name import first, falling back to
// the dmabuf FD import on failure, per §4.D step 2. The dmabuf FD (if
// one was created) is closed immediately after the import call either
// way; ownership of it never transfers to the kernel import path.
func importSourceBO(drm *drmDevice, dev *amdgpuDevice, fb *fbMetadata) (*amdgpuBuffer, error) {
	handle := fb.planes[0].handle

	if name, err := flinkName(drm.Fd(), handle); err == nil {
		if buf, err := dev.amdgpuImportFlink(name); err == nil {
			return buf, nil
		}
		diagSub("flink import failed, falling back to dmabuf")
	} else {
		diagSub("GEM_FLINK failed, falling back to dmabuf: %v", err)
	}

	fd, err := primeHandleToFD(drm.Fd(), handle)
	if err != nil {
		return nil, fmt.Errorf("export source handle: %w", err)
	}
	defer closeFD(fd)

	buf, err := dev.amdgpuImportDmabuf(fd, 0)
	if err != nil {
		return nil, fmt.Errorf("import source dmabuf: %w", err)
	}
	return buf, nil
}

// writeCopyPacket encodes the 7-dword linear-copy packet described in
// §4.D step 5 into the start of an IB buffer.
func writeCopyPacket(ib []byte, byteCount uint64, srcVA, dstVA uint64) {
	words := [sdmaPacketDwords]uint32{
		(sdmaOpCopy & 0xFF) | ((sdmaSubopCopyLinear & 0xFF) << 8),
		uint32(byteCount - 1),
		0,
		uint32(srcVA),
		uint32(srcVA >> 32),
		uint32(dstVA),
		uint32(dstVA >> 32),
	}
	for i, w := range words {
		putLE32(ib[i*4:], w)
	}
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
