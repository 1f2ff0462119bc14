//go:build linux && headless

// amdgpu_copy_headless.go - headless stand-in for the DMA-engine copy
// path, mirroring vulkan_compute_headless.go: no libdrm_amdgpu is
// linked, so the orchestrator's fallback ladder always proceeds past
// (D) to the dumb-buffer shadow.

package main

import "fmt"

func captureViaDMACopy(drm *drmDevice, fb *fbMetadata) ([]byte, error) {
	return nil, wrapAcquire("dma-copy", errImportAlloc, fmt.Errorf("built without libdrm_amdgpu support"))
}
