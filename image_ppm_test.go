package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestWritePPMHeader(t *testing.T) {
	raster := make([]byte, 2*2*3)
	for i := range raster {
		raster[i] = byte(i)
	}
	var buf bytes.Buffer
	if err := writePPM(&buf, 2, 2, raster); err != nil {
		t.Fatalf("writePPM: %v", err)
	}
	want := "P6\n2 2\n255\n"
	if got := buf.String()[:len(want)]; got != want {
		t.Fatalf("header = %q, want %q", got, want)
	}
	if !bytes.Equal(buf.Bytes()[len(want):], raster) {
		t.Fatal("raster bytes not written verbatim")
	}
}

func TestWritePPMRejectsMismatchedLength(t *testing.T) {
	var buf bytes.Buffer
	err := writePPM(&buf, 3, 3, make([]byte, 4))
	if err == nil {
		t.Fatal("expected error for mismatched raster length")
	}
	if !strings.Contains(err.Error(), "raster length") {
		t.Fatalf("unexpected error: %v", err)
	}
}
