//go:build linux

package main

import "testing"

func TestPickLargestMaxArea(t *testing.T) {
	candidates := []*fbMetadata{
		{id: 10, width: 1920, height: 1080},
		{id: 11, width: 3840, height: 2160},
		{id: 12, width: 1280, height: 720},
	}
	got, err := pickLargest(candidates)
	if err != nil {
		t.Fatalf("pickLargest: %v", err)
	}
	if got.id != 11 {
		t.Fatalf("picked fb %d, want 11 (largest area)", got.id)
	}
}

func TestPickLargestFirstSeenTiebreak(t *testing.T) {
	candidates := []*fbMetadata{
		{id: 20, width: 1920, height: 1080},
		{id: 21, width: 1080, height: 1920}, // same area, later
	}
	got, err := pickLargest(candidates)
	if err != nil {
		t.Fatalf("pickLargest: %v", err)
	}
	if got.id != 20 {
		t.Fatalf("picked fb %d, want 20 (first-seen tiebreak)", got.id)
	}
}

func TestPickLargestNoCandidates(t *testing.T) {
	if _, err := pickLargest(nil); err == nil {
		t.Fatal("expected error when no framebuffers are active")
	}
}

func TestPickLargestSingleBoundCandidate(t *testing.T) {
	// listPlanes/pickPrimaryFB filter zero-fbID planes before this
	// point; pickLargest itself only ever sees already-bound planes.
	candidates := []*fbMetadata{
		{id: 30, width: 640, height: 480},
	}
	got, err := pickLargest(candidates)
	if err != nil {
		t.Fatalf("pickLargest: %v", err)
	}
	if got.id != 30 {
		t.Fatalf("picked fb %d, want 30", got.id)
	}
}
