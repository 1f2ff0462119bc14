// pixfmt.go - pixel format registry and RGB24 conversion

package main

import "fmt"

// PixelFormat identifies a wire pixel format as reported by a DRM
// framebuffer. Values mirror the low 32 bits of the corresponding
// DRM_FORMAT_* fourcc code; we never round-trip them through the
// kernel headers so only the handful we recognize are named here.
type PixelFormat uint32

const (
	FormatUnknown       PixelFormat = 0
	FormatXRGB8888      PixelFormat = 'X' | 'R'<<8 | '2'<<16 | '4'<<24
	FormatARGB8888      PixelFormat = 'A' | 'R'<<8 | '2'<<16 | '4'<<24
	FormatXBGR8888      PixelFormat = 'X' | 'B'<<8 | '2'<<16 | '4'<<24
	FormatABGR8888      PixelFormat = 'A' | 'B'<<8 | '2'<<16 | '4'<<24
	FormatRGB565        PixelFormat = 'R' | 'G'<<8 | '1'<<16 | '6'<<24
	FormatABGR16161616  PixelFormat = 'A' | 'B'<<8 | '4'<<16 | '8'<<24
)

func fourcc(a, b, c, d byte) PixelFormat {
	return PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// formatName returns the fourcc-style name used in --list output and
// capture summaries. Unknown codes print as a raw hex value.
func formatName(f PixelFormat) string {
	switch f {
	case FormatXRGB8888:
		return "XRGB8888"
	case FormatARGB8888:
		return "ARGB8888"
	case FormatXBGR8888:
		return "XBGR8888"
	case FormatABGR8888:
		return "ABGR8888"
	case FormatRGB565:
		return "RGB565"
	case FormatABGR16161616:
		return "ABGR16161616"
	default:
		return fmt.Sprintf("0x%08x", uint32(f))
	}
}

// bytesPerPixel returns the source stride unit for a format, or 0 if
// the format is not recognized.
func bytesPerPixel(f PixelFormat) int {
	switch f {
	case FormatXRGB8888, FormatARGB8888, FormatXBGR8888, FormatABGR8888:
		return 4
	case FormatRGB565:
		return 2
	case FormatABGR16161616:
		return 8
	default:
		return 0
	}
}

// isHDR reports whether a format carries PQ/Rec.2020 high dynamic
// range samples per §4.E step 6 of the capture contract.
func isHDR(f PixelFormat) bool {
	return f == FormatABGR16161616
}

// convertToRGB24 reads w*h pixels from src (row-major, stride bytes per
// row) in the given format and writes a tightly packed w*h*3 raster in
// R,G,B order to dst. dst must be at least w*h*3 bytes.
//
// Pure function: identical (src, w, h, format, stride) always produce
// identical output, and bytes beyond w*bytesPerPixel(format) in each
// source row are never read. Unrecognized formats zero-fill dst and
// report a diagnostic through diag (may be nil).
func convertToRGB24(src []byte, dst []byte, w, h int, format PixelFormat, stride int, diag func(string)) {
	bpp := bytesPerPixel(format)
	if bpp == 0 {
		for i := range dst[:w*h*3] {
			dst[i] = 0
		}
		if diag != nil {
			diag(fmt.Sprintf("unrecognized pixel format %s, emitting black frame", formatName(format)))
		}
		return
	}

	for y := 0; y < h; y++ {
		srcRow := src[y*stride : y*stride+w*bpp]
		dstRow := dst[y*w*3 : (y+1)*w*3]
		unpackRow(srcRow, dstRow, w, format)
	}
}

func unpackRow(srcRow, dstRow []byte, w int, format PixelFormat) {
	switch format {
	case FormatXRGB8888, FormatARGB8888:
		for x := 0; x < w; x++ {
			p := srcRow[x*4 : x*4+4]
			// LSB->MSB: B,G,R,(A/X)
			dstRow[x*3+0] = p[2]
			dstRow[x*3+1] = p[1]
			dstRow[x*3+2] = p[0]
		}
	case FormatXBGR8888, FormatABGR8888:
		for x := 0; x < w; x++ {
			p := srcRow[x*4 : x*4+4]
			// LSB->MSB: R,G,B,(A/X)
			dstRow[x*3+0] = p[0]
			dstRow[x*3+1] = p[1]
			dstRow[x*3+2] = p[2]
		}
	case FormatRGB565:
		for x := 0; x < w; x++ {
			word := uint16(srcRow[x*2]) | uint16(srcRow[x*2+1])<<8
			b5 := word & 0x1F
			g6 := (word >> 5) & 0x3F
			r5 := (word >> 11) & 0x1F
			dstRow[x*3+0] = byte((r5*255 + 15) / 31)
			dstRow[x*3+1] = byte((g6*255 + 31) / 63)
			dstRow[x*3+2] = byte((b5*255 + 15) / 31)
		}
	case FormatABGR16161616:
		for x := 0; x < w; x++ {
			p := srcRow[x*8 : x*8+8]
			// three 16-bit little-endian words (R,G,B) then alpha;
			// reduce to 8 bits by taking the high byte, no dithering.
			dstRow[x*3+0] = p[1]
			dstRow[x*3+1] = p[3]
			dstRow[x*3+2] = p[5]
		}
	}
}
