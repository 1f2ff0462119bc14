package main

import "testing"

func TestRec2020Rec709Roundtrip(t *testing.T) {
	roundtrip := rec2020ToRec709.multiply(rec709ToRec2020)
	if err := roundtrip.frobeniusErrorFromIdentity(); err > 1e-4 {
		t.Fatalf("rec2020<->rec709 roundtrip error %g exceeds 1e-4", err)
	}
}

func TestAP0AP1Roundtrip(t *testing.T) {
	roundtrip := ap0ToAP1.multiply(ap1ToAP0)
	if err := roundtrip.frobeniusErrorFromIdentity(); err > 1e-4 {
		t.Fatalf("ap0<->ap1 roundtrip error %g exceeds 1e-4", err)
	}
}

func TestAP1Rec709Roundtrip(t *testing.T) {
	roundtrip := ap1ToRec709.multiply(rec709ToAP1)
	if err := roundtrip.frobeniusErrorFromIdentity(); err > 1e-4 {
		t.Fatalf("ap1<->rec709 roundtrip error %g exceeds 1e-4", err)
	}
}

func TestMat3x3ApplyIdentity(t *testing.T) {
	identity := mat3x3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	r, g, b := identity.apply(0.2, 0.5, 0.9)
	if r != 0.2 || g != 0.5 || b != 0.9 {
		t.Fatalf("identity.apply(0.2, 0.5, 0.9) = (%v, %v, %v)", r, g, b)
	}
}
