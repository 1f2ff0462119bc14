//go:build headless

// vulkan_compute_headless.go - headless stand-in for the external-
// import compute path, mirroring the upstream Voodoo backend's
// headless build: no Vulkan loader is linked, so the orchestrator's
// fallback ladder always proceeds past (E) to (D) or the dumb-buffer
// shadow.

package main

import "fmt"

func captureViaComputeImport(drm *drmDevice, fb *fbMetadata, exposure float32, tonemapMode uint32) ([]byte, error) {
	return nil, wrapAcquire("compute-import", errImportAlloc, fmt.Errorf("built without Vulkan support"))
}
