package main

import "testing"

func TestParseHeaderLittleEndian(t *testing.T) {
	data := []byte{
		0x03, 0x02, 0x23, 0x07, // magic
		0x00, 0x00, 0x01, 0x00, // version 1.0
		0x0a, 0x00, 0x00, 0x00, // generator
		0x2a, 0x00, 0x00, 0x00, // bound
		0x00, 0x00, 0x00, 0x00, // schema
	}
	h, err := parseHeader(data)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	if h.magic != spirvMagic {
		t.Fatalf("magic = 0x%08x, want 0x%08x", h.magic, uint32(spirvMagic))
	}
	if h.bound != 42 {
		t.Fatalf("bound = %d, want 42", h.bound)
	}
}

func TestParseHeaderRejectsTooShort(t *testing.T) {
	if _, err := parseHeader([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	data := make([]byte, 20)
	if _, err := parseHeader(data); err == nil {
		t.Fatal("expected error for zeroed (bad) magic number")
	}
}

func TestParseHeaderAcceptsBigEndian(t *testing.T) {
	data := []byte{
		0x07, 0x23, 0x02, 0x03, // magic, big-endian
		0x00, 0x01, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x0a,
		0x00, 0x00, 0x00, 0x2a,
		0x00, 0x00, 0x00, 0x00,
	}
	h, err := parseHeader(data)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	if h.bound != 42 {
		t.Fatalf("bound = %d, want 42", h.bound)
	}
}
