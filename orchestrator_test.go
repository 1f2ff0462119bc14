//go:build linux

package main

import "testing"

func TestChooseStrategiesPreferredTiledTriesComputeOnly(t *testing.T) {
	tryCompute, tryDMA := chooseStrategies(true, true)
	if tryCompute != strategyAttempt {
		t.Fatal("preferred+tiled should attempt compute-import")
	}
	if tryDMA != strategySkip {
		t.Fatal("preferred+tiled should not unconditionally attempt DMA copy")
	}
}

func TestChooseStrategiesPreferredLinearTriesDMAOnly(t *testing.T) {
	tryCompute, tryDMA := chooseStrategies(true, false)
	if tryCompute != strategySkip {
		t.Fatal("preferred+linear should not attempt compute-import")
	}
	if tryDMA != strategyAttempt {
		t.Fatal("preferred+linear should attempt DMA copy")
	}
}

func TestChooseStrategiesNonPreferredSkipsBoth(t *testing.T) {
	tryCompute, tryDMA := chooseStrategies(false, true)
	if tryCompute != strategySkip || tryDMA != strategySkip {
		t.Fatal("non-preferred driver should go straight to the dumb-buffer shadow")
	}
	tryCompute, tryDMA = chooseStrategies(false, false)
	if tryCompute != strategySkip || tryDMA != strategySkip {
		t.Fatal("non-preferred driver should go straight to the dumb-buffer shadow")
	}
}

func TestModifierIsTiled(t *testing.T) {
	if modifierIsTiled(0) {
		t.Fatal("modifier 0 (linear) must not be classified as tiled")
	}
	if !modifierIsTiled(0x0100000000000001) {
		t.Fatal("any non-zero modifier must be classified as tiled")
	}
}
