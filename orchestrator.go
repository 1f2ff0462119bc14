//go:build linux

// orchestrator.go - acquisition orchestrator (Component G, §4.G): the
// fallback ladder from the fastest strategy (external-import compute)
// down to the dumb-buffer shadow.

package main

import "fmt"

// captureOptions carries the CLI-derived parameters a capture
// strategy needs beyond the device and framebuffer.
type captureOptions struct {
	exposure     float32
	tonemapMode  uint32
}

// modifierLinear marks a format modifier as the unmodified linear layout. A
// framebuffer with any other modifier (including DRM_FORMAT_MOD_INVALID)
// is treated as tiled for the purposes of §4.G step 2.
const modifierLinear = 0

func modifierIsTiled(modifier uint64) bool {
	return modifier != modifierLinear
}

// strategyResult is the outcome of one rung of the fallback ladder,
// used by chooseStrategies so the decision procedure itself is
// testable without a DRM device or a GPU.
type strategyResult int

const (
	strategySkip strategyResult = iota
	strategyAttempt
)

// chooseStrategies is the pure decision procedure behind
// acquireFramebuffer: given whether the driver is the preferred
// accelerator and whether the framebuffer is tiled, it reports whether
// (E) should be attempted and whether (D) should be attempted without
// a prior (E) failure. Retrying (D) after a recoverable (E) failure is
// decided by acquireFramebuffer itself. (A dumb-buffer shadow attempt
// is implicit: it runs when no attempted strategy succeeded and none
// failed with a non-recoverable error.)
func chooseStrategies(preferred, tiled bool) (tryCompute, tryDMAIfComputeFails strategyResult) {
	tryCompute = strategySkip
	if preferred && tiled {
		tryCompute = strategyAttempt
	}

	tryDMAIfComputeFails = strategySkip
	if preferred && !tiled {
		tryDMAIfComputeFails = strategyAttempt
	}
	return
}

// acquireFramebuffer runs §4.G's decision procedure and returns an
// RGB24 raster ready for (B).
func acquireFramebuffer(drm *drmDevice, fb *fbMetadata, opts captureOptions) ([]byte, error) {
	driver, err := drm.driverName()
	if err != nil {
		return nil, wrapAcquire("orchestrator", errDiscovery, fmt.Errorf("driver name: %w", err))
	}

	preferred := driver == preferredAccelerator
	tiled := modifierIsTiled(fb.modifier)
	tryCompute, tryDMAUnconditional := chooseStrategies(preferred, tiled)

	computeFailed := false
	if tryCompute == strategyAttempt {
		raster, err := captureViaComputeImport(drm, fb, opts.exposure, opts.tonemapMode)
		if err == nil {
			return raster, nil
		}
		if !strategyRecoverable(err) {
			return nil, err
		}
		diagf("compute-import path failed, falling back: %v", err)
		computeFailed = true
	}

	if computeFailed || tryDMAUnconditional == strategyAttempt {
		raster, err := captureViaDMACopy(drm, fb)
		if err == nil {
			return raster, nil
		}
		if !strategyRecoverable(err) {
			return nil, err
		}
		diagf("dma-copy path failed, falling back: %v", err)
	}

	diagf("falling back to dumb-buffer shadow")
	return captureViaDumbBufferShadow(drm, fb)
}
