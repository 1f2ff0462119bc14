//go:build linux

// kms_driver.go - DRM device open and driver identification

package main

import (
	"fmt"
	"os"
	"unsafe"
)

const ioctlVersion = 0xc0406400

type drmVersion struct {
	Major, Minor, Patchlevel int32
	_pad                     int32
	NameLen                  uint64
	Name                     uintptr
	DateLen                  uint64
	Date                     uintptr
	DescLen                  uint64
	Desc                     uintptr
}

// preferredAccelerator is the driver name the orchestrator treats as
// capable of the DMA-engine copy path (§4.D, §4.G).
const preferredAccelerator = "amdgpu"

// drmDevice wraps an open DRM character device file descriptor.
type drmDevice struct {
	f *os.File
}

// openDRMDevice opens path read-write and enables universal planes.
// Failure to enable the capability is non-fatal (§4.C).
func openDRMDevice(path string) (*drmDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := setUniversalPlanesCap(f.Fd()); err != nil {
		diagSub("DRM_CLIENT_CAP_UNIVERSAL_PLANES failed: %v", err)
	}
	return &drmDevice{f: f}, nil
}

func (d *drmDevice) Close() error {
	return d.f.Close()
}

func (d *drmDevice) Fd() uintptr { return d.f.Fd() }

// driverName returns the DRM driver's short name (e.g. "amdgpu",
// "i915", "vkms").
func (d *drmDevice) driverName() (string, error) {
	var v drmVersion
	if err := ioctl(d.Fd(), ioctlVersion, unsafe.Pointer(&v)); err != nil {
		return "", fmt.Errorf("VERSION (count): %w", err)
	}
	if v.NameLen == 0 {
		return "", fmt.Errorf("VERSION: empty driver name")
	}

	name := make([]byte, v.NameLen)
	v2 := drmVersion{NameLen: v.NameLen, Name: uintptr(unsafe.Pointer(&name[0]))}
	if err := ioctl(d.Fd(), ioctlVersion, unsafe.Pointer(&v2)); err != nil {
		return "", fmt.Errorf("VERSION (name): %w", err)
	}
	return string(name), nil
}
