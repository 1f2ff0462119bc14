package main

import (
	"bytes"
	"testing"
)

func packLE32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestConvertARGB8888(t *testing.T) {
	// pixel 0x00RRGGBB -> output (RR, GG, BB)
	px := packLE32(0x00AABBCC)
	dst := make([]byte, 3)
	convertToRGB24(px, dst, 1, 1, FormatARGB8888, 4, nil)
	if got, want := dst, []byte{0xAA, 0xBB, 0xCC}; !bytes.Equal(got, want) {
		t.Fatalf("got %x want %x", got, want)
	}
}

func TestConvertABGR8888(t *testing.T) {
	// same numeric pixel -> output (BB, GG, RR)
	px := packLE32(0x00AABBCC)
	dst := make([]byte, 3)
	convertToRGB24(px, dst, 1, 1, FormatABGR8888, 4, nil)
	if got, want := dst, []byte{0xCC, 0xBB, 0xAA}; !bytes.Equal(got, want) {
		t.Fatalf("got %x want %x", got, want)
	}
}

func TestConvertABGR16161616(t *testing.T) {
	r, g, b, a := uint16(0x1234), uint16(0x5678), uint16(0x9ABC), uint16(0xDEF0)
	src := []byte{
		byte(r), byte(r >> 8),
		byte(g), byte(g >> 8),
		byte(b), byte(b >> 8),
		byte(a), byte(a >> 8),
	}
	dst := make([]byte, 3)
	convertToRGB24(src, dst, 1, 1, FormatABGR16161616, 8, nil)
	want := []byte{byte(r >> 8), byte(g >> 8), byte(b >> 8)}
	if !bytes.Equal(dst, want) {
		t.Fatalf("got %x want %x", dst, want)
	}
}

func TestConvertUnrecognizedFormatZeroFills(t *testing.T) {
	src := make([]byte, 16)
	for i := range src {
		src[i] = 0xFF
	}
	dst := make([]byte, 2*2*3)
	for i := range dst {
		dst[i] = 0xAA
	}
	var diagMsg string
	convertToRGB24(src, dst, 2, 2, FormatUnknown, 8, func(s string) { diagMsg = s })
	for _, b := range dst {
		if b != 0 {
			t.Fatalf("expected zero-filled raster, got %x", dst)
		}
	}
	if diagMsg == "" {
		t.Fatal("expected diagnostic for unrecognized format")
	}
}

func TestConvertIsPure(t *testing.T) {
	src := make([]byte, 8*4*4)
	for i := range src {
		src[i] = byte(i * 7)
	}
	dst1 := make([]byte, 8*4*3)
	dst2 := make([]byte, 8*4*3)
	convertToRGB24(src, dst1, 8, 4, FormatXRGB8888, 32, nil)
	convertToRGB24(src, dst2, 8, 4, FormatXRGB8888, 32, nil)
	if !bytes.Equal(dst1, dst2) {
		t.Fatal("convertToRGB24 is not pure")
	}
}

func TestConvertIgnoresStridePadding(t *testing.T) {
	w, h := 4, 2
	bpp := 4
	stride := w*bpp + 16 // extra padding bytes per row
	src := make([]byte, stride*h)
	for i := range src {
		src[i] = byte(i)
	}
	// corrupt the padding region of each row; output must be unaffected
	srcCopy := make([]byte, len(src))
	copy(srcCopy, src)
	for y := 0; y < h; y++ {
		for i := w * bpp; i < stride; i++ {
			srcCopy[y*stride+i] = 0xFF
		}
	}

	dst1 := make([]byte, w*h*3)
	dst2 := make([]byte, w*h*3)
	convertToRGB24(src, dst1, w, h, FormatXRGB8888, stride, nil)
	convertToRGB24(srcCopy, dst2, w, h, FormatXRGB8888, stride, nil)
	if !bytes.Equal(dst1, dst2) {
		t.Fatal("convertToRGB24 depends on trailing stride padding bytes")
	}
}

func TestFormatName(t *testing.T) {
	cases := map[PixelFormat]string{
		FormatXRGB8888:     "XRGB8888",
		FormatABGR16161616: "ABGR16161616",
	}
	for f, want := range cases {
		if got := formatName(f); got != want {
			t.Fatalf("formatName(%v) = %q, want %q", f, got, want)
		}
	}
}
