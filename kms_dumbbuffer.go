//go:build linux

// kms_dumbbuffer.go - dumb-buffer shadow capture, the last rung of the
// acquisition fallback ladder (§4.G step 4). Fails only if the dumb
// buffer itself can't be created or mapped: if the source framebuffer
// can't be CPU-mapped, a deterministic test pattern is substituted so
// the downstream pipeline still runs end to end.

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const dumbBufferBPP = 32

// captureViaDumbBufferShadow creates a CPU-mappable dumb buffer, tries
// to read the source scanout through its dmabuf FD, and falls back to
// a synthetic test pattern if the source isn't CPU-mappable.
func captureViaDumbBufferShadow(drm *drmDevice, fb *fbMetadata) ([]byte, error) {
	handle, pitch, size, err := createDumbBuffer(drm.Fd(), uint32(fb.width), uint32(fb.height), dumbBufferBPP)
	if err != nil {
		return nil, wrapAcquire("dumb-buffer", errImportAlloc, err)
	}
	defer destroyDumbBuffer(drm.Fd(), handle)

	offset, err := mapDumbBufferOffset(drm.Fd(), handle)
	if err != nil {
		return nil, wrapAcquire("dumb-buffer", errImportAlloc, err)
	}

	shadow, err := unix.Mmap(int(drm.Fd()), int64(offset), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, wrapAcquire("dumb-buffer", errImportAlloc, fmt.Errorf("mmap dumb buffer: %w", err))
	}
	defer unix.Munmap(shadow)

	format := fillShadow(drm, fb, shadow, int(pitch))

	rgb := make([]byte, fb.width*fb.height*3)
	convertToRGB24(shadow, rgb, fb.width, fb.height, format, int(pitch), func(msg string) {
		diagSub("dumb-buffer: %s", msg)
	})
	return rgb, nil
}

// fillShadow attempts to CPU-map the source scanout via its dmabuf FD
// and copy it (reducing ABGR16161616 to ARGB8888 inline); on any
// failure it fills a deterministic test pattern instead and returns
// the format the shadow buffer now holds.
func fillShadow(drm *drmDevice, fb *fbMetadata, shadow []byte, dstPitch int) PixelFormat {
	src, srcPitch, err := mapSourceForRead(drm, fb)
	if err != nil {
		diagf("dumb-buffer: source not CPU-mappable (%v), using test pattern", err)
		fillTestPattern(shadow, fb.width, fb.height, dstPitch)
		return FormatARGB8888
	}
	defer unix.Munmap(src)

	if isHDR(fb.format) {
		reduceHDRToARGB8888(src, shadow, fb.width, fb.height, srcPitch, dstPitch)
		return FormatARGB8888
	}
	copyRows(src, shadow, fb.height, srcPitch, dstPitch)
	return fb.format
}

func mapSourceForRead(drm *drmDevice, fb *fbMetadata) ([]byte, int, error) {
	fd, err := primeHandleToFD(drm.Fd(), fb.planes[0].handle)
	if err != nil {
		return nil, 0, err
	}
	defer closeFD(fd)

	pitch := int(fb.planes[0].pitch)
	size := pitch * fb.height
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, 0, fmt.Errorf("mmap source dmabuf: %w", err)
	}
	return mem, pitch, nil
}

func copyRows(src, dst []byte, height, srcPitch, dstPitch int) {
	rowLen := srcPitch
	if dstPitch < rowLen {
		rowLen = dstPitch
	}
	for y := 0; y < height; y++ {
		copy(dst[y*dstPitch:y*dstPitch+rowLen], src[y*srcPitch:y*srcPitch+rowLen])
	}
}

// reduceHDRToARGB8888 truncates each 16-bit ABGR16161616 channel to
// its high byte while copying into a 32bpp ARGB8888 shadow buffer.
func reduceHDRToARGB8888(src, dst []byte, width, height, srcPitch, dstPitch int) {
	for y := 0; y < height; y++ {
		srcRow := src[y*srcPitch:]
		dstRow := dst[y*dstPitch:]
		for x := 0; x < width; x++ {
			s := srcRow[x*8 : x*8+8]
			d := dstRow[x*4 : x*4+4]
			// ABGR16161616 channel order: R,G,B,A each little-endian u16.
			d[2] = s[1] // R high byte
			d[1] = s[3] // G high byte
			d[0] = s[5] // B high byte
			d[3] = s[7] // A high byte
		}
	}
}

// fillTestPattern writes the deterministic pattern from §4.G step 4:
// R = x*255/w, G = y*255/h, B = 128, A = 255, as ARGB8888.
func fillTestPattern(dst []byte, width, height, pitch int) {
	for y := 0; y < height; y++ {
		row := dst[y*pitch:]
		g := byte(y * 255 / height)
		for x := 0; x < width; x++ {
			r := byte(x * 255 / width)
			p := row[x*4 : x*4+4]
			p[0], p[1], p[2], p[3] = 128, g, r, 255 // ARGB8888: B,G,R,A in memory
		}
	}
}
