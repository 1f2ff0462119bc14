//go:build linux

// kms_ioctl.go - raw DRM ioctl encodings and structs for mode-setting
// queries. Mirrors other_examples' helix-style direct ioctl bindings
// rather than cgo-wrapping libdrm: everything needed here (capability
// set, plane/resource/FB2 query, dumb-buffer lifecycle, PRIME
// handle<->FD conversion) is a single ioctl with no userspace state of
// its own, so a raw unix.Syscall call is the idiomatic Go way to reach
// it without linking libdrm for queries alone.

package main

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DRM ioctl numbers, computed as
//
//	_IOWR(type, nr, size) = 0xC0000000 | (size << 16) | (type << 8) | nr
//	_IOW(type, nr, size)  = 0x40000000 | (size << 16) | (type << 8) | nr
//
// against the corresponding kernel uapi struct sizes on 64-bit Linux.
const (
	ioctlSetClientCap         = 0x4010640d
	ioctlModeGetPlaneResources = 0xc01064b5
	ioctlModeGetPlane         = 0xc02064b6
	ioctlModeGetFB            = 0xc01c64ad
	ioctlModeGetFB2           = 0xc06864ce
	ioctlModeCreateDumb       = 0xc02064b2
	ioctlModeMapDumb          = 0xc01064b3
	ioctlModeDestroyDumb      = 0xc00464b4
	ioctlPrimeHandleToFD      = 0xc00c642d
	ioctlPrimeFDToHandle      = 0xc00c642e
	ioctlGEMFlink             = 0xc008640a
)

const drmClientCapUniversalPlanes = 2

const maxFBPlanes = 4

type drmSetClientCap struct {
	Capability uint64
	Value      uint64
}

type drmModeGetPlaneRes struct {
	PlaneIDPtr  uint64
	CountPlanes uint32
	_pad        uint32
}

type drmModeGetPlane struct {
	PlaneID         uint32
	CrtcID          uint32
	FbID            uint32
	PossibleCrtcs   uint32
	GammaSize       uint32
	CountFormatTypes uint32
	_pad            uint32
	FormatTypePtr   uint64
}

type drmModeFBCmd struct {
	FbID   uint32
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint32
	Depth  uint32
	Handle uint32
}

type drmModeFBCmd2 struct {
	FbID        uint32
	Width       uint32
	Height      uint32
	PixelFormat uint32
	Flags       uint32
	Handles     [maxFBPlanes]uint32
	Pitches     [maxFBPlanes]uint32
	Offsets     [maxFBPlanes]uint32
	Modifier    [maxFBPlanes]uint64
}

type drmModeCreateDumb struct {
	Height uint32
	Width  uint32
	Bpp    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

type drmModeMapDumb struct {
	Handle uint32
	_pad   uint32
	Offset uint64
}

type drmModeDestroyDumb struct {
	Handle uint32
}

type drmPrimeHandle struct {
	Handle uint32
	Flags  uint32
	FD     int32
}

type drmGEMFlink struct {
	Handle uint32
	Name   uint32
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// setUniversalPlanesCap enables DRM_CLIENT_CAP_UNIVERSAL_PLANES; non
// fatal per §4.C, the caller just logs and continues.
func setUniversalPlanesCap(fd uintptr) error {
	cap := drmSetClientCap{Capability: drmClientCapUniversalPlanes, Value: 1}
	return ioctl(fd, ioctlSetClientCap, unsafe.Pointer(&cap))
}

// listPlaneIDs enumerates all plane object IDs known to the device.
func listPlaneIDs(fd uintptr) ([]uint32, error) {
	var res drmModeGetPlaneRes
	if err := ioctl(fd, ioctlModeGetPlaneResources, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("GETPLANERESOURCES (count): %w", err)
	}
	if res.CountPlanes == 0 {
		return nil, nil
	}

	ids := make([]uint32, res.CountPlanes)
	res2 := drmModeGetPlaneRes{
		PlaneIDPtr:  uint64(uintptr(unsafe.Pointer(&ids[0]))),
		CountPlanes: res.CountPlanes,
	}
	if err := ioctl(fd, ioctlModeGetPlaneResources, unsafe.Pointer(&res2)); err != nil {
		return nil, fmt.Errorf("GETPLANERESOURCES (fill): %w", err)
	}
	return ids[:res2.CountPlanes], nil
}

// getPlaneFB returns the framebuffer id currently bound to a plane, or
// 0 if the plane is unbound.
func getPlaneFB(fd uintptr, planeID uint32) (uint32, error) {
	gp := drmModeGetPlane{PlaneID: planeID}
	if err := ioctl(fd, ioctlModeGetPlane, unsafe.Pointer(&gp)); err != nil {
		return 0, fmt.Errorf("GETPLANE(%d): %w", planeID, err)
	}
	return gp.FbID, nil
}

// fbMetadata is the per-plane layout and format of a framebuffer, as
// returned by the FB2 query.
type fbMetadata struct {
	id       uint32
	width    int
	height   int
	format   PixelFormat
	modifier uint64
	planes   [maxFBPlanes]planeLayout
	numPlanes int
}

type planeLayout struct {
	handle uint32
	pitch  uint32
	offset uint32
}

// getFB2 fetches full framebuffer metadata including the format
// modifier and per-plane layout. This is the only query capture can
// use: the legacy FB1 query (getFB1Listing) doesn't carry pixel format
// or modifier at all.
func getFB2(fd uintptr, fbID uint32) (*fbMetadata, error) {
	cmd := drmModeFBCmd2{FbID: fbID}
	if err := ioctl(fd, ioctlModeGetFB2, unsafe.Pointer(&cmd)); err != nil {
		return nil, fmt.Errorf("GETFB2(%d): %w", fbID, err)
	}

	meta := &fbMetadata{
		id:       fbID,
		width:    int(cmd.Width),
		height:   int(cmd.Height),
		format:   PixelFormat(cmd.PixelFormat),
		modifier: cmd.Modifier[0],
	}
	n := 0
	for i := 0; i < maxFBPlanes; i++ {
		if cmd.Handles[i] == 0 {
			continue
		}
		meta.planes[n] = planeLayout{handle: cmd.Handles[i], pitch: cmd.Pitches[i], offset: cmd.Offsets[i]}
		n++
	}
	meta.numPlanes = n

	if meta.numPlanes == 0 || meta.planes[0].handle == 0 {
		return nil, fmt.Errorf("GETFB2(%d): plane-0 handle is zero", fbID)
	}
	if meta.width <= 0 || meta.height <= 0 {
		return nil, fmt.Errorf("GETFB2(%d): non-positive dimensions %dx%d", fbID, meta.width, meta.height)
	}
	return meta, nil
}

// getFB1Listing performs the legacy, format-less framebuffer query.
// Accepted only for a read-only listing per §4.C; capture must use
// getFB2 because pixel format is essential to convertToRGB24.
func getFB1Listing(fd uintptr, fbID uint32) (width, height int, err error) {
	cmd := drmModeFBCmd{FbID: fbID}
	if err := ioctl(fd, ioctlModeGetFB, unsafe.Pointer(&cmd)); err != nil {
		return 0, 0, fmt.Errorf("GETFB(%d): %w", fbID, err)
	}
	return int(cmd.Width), int(cmd.Height), nil
}

// primeHandleToFD converts a GEM handle to a dmabuf file descriptor.
func primeHandleToFD(fd uintptr, handle uint32) (int, error) {
	req := drmPrimeHandle{Handle: handle}
	if err := ioctl(fd, ioctlPrimeHandleToFD, unsafe.Pointer(&req)); err != nil {
		return -1, fmt.Errorf("PRIME_HANDLE_TO_FD: %w", err)
	}
	return int(req.FD), nil
}

// flinkName converts a local GEM handle into a global flink name, the
// legacy cross-process import mechanism §4.D step 2 tries before
// falling back to dmabuf.
func flinkName(fd uintptr, handle uint32) (uint32, error) {
	req := drmGEMFlink{Handle: handle}
	if err := ioctl(fd, ioctlGEMFlink, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("GEM_FLINK: %w", err)
	}
	return req.Name, nil
}

// createDumbBuffer allocates a CPU-mappable dumb buffer of the given
// dimensions and bits-per-pixel.
func createDumbBuffer(fd uintptr, width, height, bpp uint32) (handle uint32, pitch uint32, size uint64, err error) {
	req := drmModeCreateDumb{Width: width, Height: height, Bpp: bpp}
	if err := ioctl(fd, ioctlModeCreateDumb, unsafe.Pointer(&req)); err != nil {
		return 0, 0, 0, fmt.Errorf("CREATE_DUMB: %w", err)
	}
	return req.Handle, req.Pitch, req.Size, nil
}

// mapDumbBufferOffset returns the mmap offset for a dumb buffer handle.
func mapDumbBufferOffset(fd uintptr, handle uint32) (uint64, error) {
	req := drmModeMapDumb{Handle: handle}
	if err := ioctl(fd, ioctlModeMapDumb, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("MAP_DUMB: %w", err)
	}
	return req.Offset, nil
}

// destroyDumbBuffer releases a dumb buffer handle.
func destroyDumbBuffer(fd uintptr, handle uint32) error {
	req := drmModeDestroyDumb{Handle: handle}
	if err := ioctl(fd, ioctlModeDestroyDumb, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("DESTROY_DUMB: %w", err)
	}
	return nil
}
