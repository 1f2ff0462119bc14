//go:build linux && !headless

// amdgpu_bindings.go - cgo shim over libdrm_amdgpu for the DMA-engine
// copy path (§4.D). Wraps the real installed library the same way
// audio_backend_alsa.go wraps libasound: static C helper functions do
// the multi-step setup, the Go side only marshals handles and errors.

package main

/*
#cgo LDFLAGS: -ldrm_amdgpu -ldrm
#cgo CFLAGS: -I/usr/include/libdrm
#include <amdgpu.h>
#include <amdgpu_drm.h>
#include <string.h>
#include <stdlib.h>

static int agInit(int fd, amdgpu_device_handle *dev, uint32_t *major, uint32_t *minor) {
    return amdgpu_device_initialize(fd, major, minor, dev);
}

static int agAllocBO(amdgpu_device_handle dev, uint64_t size, uint64_t alignment,
                      uint32_t heap, amdgpu_bo_handle *bo) {
    struct amdgpu_bo_alloc_request req;
    memset(&req, 0, sizeof(req));
    req.alloc_size = size;
    req.phys_alignment = alignment;
    req.preferred_heap = heap;
    return amdgpu_bo_alloc(dev, &req, bo);
}

static int agImportDmabuf(amdgpu_device_handle dev, int dmabuf_fd,
                           amdgpu_bo_handle *bo, uint64_t *alloc_size) {
    struct amdgpu_bo_import_result res;
    int r = amdgpu_bo_import(dev, amdgpu_bo_handle_type_dma_buf_fd, (uint32_t)dmabuf_fd, &res);
    if (r < 0) return r;
    *bo = res.buf_handle;
    *alloc_size = res.alloc_size;
    return 0;
}

static int agImportFlink(amdgpu_device_handle dev, uint32_t name,
                          amdgpu_bo_handle *bo, uint64_t *alloc_size) {
    struct amdgpu_bo_import_result res;
    int r = amdgpu_bo_import(dev, amdgpu_bo_handle_type_gem_flink_name, name, &res);
    if (r < 0) return r;
    *bo = res.buf_handle;
    *alloc_size = res.alloc_size;
    return 0;
}

static int agExportDmabuf(amdgpu_bo_handle bo, int *dmabuf_fd) {
    uint32_t handle;
    int r = amdgpu_bo_export(bo, amdgpu_bo_handle_type_dma_buf_fd, &handle);
    if (r < 0) return r;
    *dmabuf_fd = (int)handle;
    return 0;
}

static int agVAAlloc(amdgpu_device_handle dev, uint64_t size, uint64_t mapAlign,
                      amdgpu_va_handle *vah, uint64_t *vaAddr) {
    return amdgpu_va_range_alloc(dev, amdgpu_gpu_va_range_general, size, mapAlign,
                                  0, vaAddr, vah, 0);
}

static int agVAMap(amdgpu_bo_handle bo, uint64_t addr, uint64_t offset, uint64_t size, int map) {
    uint64_t flags = AMDGPU_VM_PAGE_READABLE | AMDGPU_VM_PAGE_WRITEABLE;
    return amdgpu_bo_va_op(bo, offset, size, addr, flags, map ? AMDGPU_VA_OP_MAP : AMDGPU_VA_OP_UNMAP);
}

static int agVAFree(amdgpu_va_handle vah) {
    return amdgpu_va_range_free(vah);
}

static int agCtxCreate(amdgpu_device_handle dev, amdgpu_context_handle *ctx) {
    return amdgpu_cs_ctx_create(dev, ctx);
}

static int agCtxFree(amdgpu_context_handle ctx) {
    return amdgpu_cs_ctx_free(ctx);
}

static int agSubmitIB(amdgpu_device_handle dev, amdgpu_context_handle ctx,
                       amdgpu_bo_handle ib_bo, uint64_t ib_va, uint32_t ib_size_dw,
                       amdgpu_bo_handle *resources, uint32_t num_resources,
                       uint64_t *fenceSeqNo) {
    amdgpu_bo_list_handle list;
    uint8_t priority = 8;
    int r = amdgpu_bo_list_create(dev, num_resources, resources, &priority, &list);
    if (r < 0) return r;

    struct amdgpu_cs_ib_info ib;
    memset(&ib, 0, sizeof(ib));
    ib.ib_mc_address = ib_va;
    ib.size = ib_size_dw;

    struct amdgpu_cs_request req;
    memset(&req, 0, sizeof(req));
    req.ip_type = AMDGPU_HW_IP_DMA;
    req.ring = 0;
    req.resources = list;
    req.number_of_ibs = 1;
    req.ibs = &ib;

    r = amdgpu_cs_submit(ctx, 0, &req, 1);
    amdgpu_bo_list_destroy(list);
    if (r < 0) return r;
    *fenceSeqNo = req.seq_no;
    return 0;
}

static int agWaitFence(amdgpu_device_handle dev, amdgpu_context_handle ctx, uint64_t seqNo) {
    struct amdgpu_cs_fence fence;
    memset(&fence, 0, sizeof(fence));
    fence.context = ctx;
    fence.ip_type = AMDGPU_HW_IP_DMA;
    fence.ring = 0;
    fence.fence = seqNo;

    uint32_t expired = 0;
    int r = amdgpu_cs_query_fence_status(&fence, AMDGPU_TIMEOUT_INFINITE, 0, &expired);
    if (r < 0) return r;
    return expired ? 0 : -1;
}

static int agCPUMap(amdgpu_bo_handle bo, void **cpu) {
    return amdgpu_bo_cpu_map(bo, cpu);
}

static int agCPUUnmap(amdgpu_bo_handle bo) {
    return amdgpu_bo_cpu_unmap(bo);
}

static void agFreeBO(amdgpu_bo_handle bo) {
    if (bo != NULL) amdgpu_bo_free(bo);
}

static void agDeinit(amdgpu_device_handle dev) {
    if (dev != NULL) amdgpu_device_deinitialize(dev);
}

static const char *agStrerror(int err) {
    return strerror(err < 0 ? -err : err);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// amdgpuHeapGTT mirrors AMDGPU_GEM_DOMAIN_GTT, the host-visible heap
// the destination copy buffer is allocated from so the CPU can map it
// for readback without a second transfer.
const amdgpuHeapGTT = 2

func agErr(prefix string, code status) error {
	return fmt.Errorf("%s: %s", prefix, C.GoString(C.agStrerror(C.int(code))))
}

// amdgpuDevice wraps an initialized libdrm_amdgpu device handle bound
// to an already-open DRM fd.
type amdgpuDevice struct {
	handle     C.amdgpu_device_handle
	ctx        C.amdgpu_context_handle
	majorMinor [2]uint32
}

func amdgpuOpenDevice(drmFd uintptr) (*amdgpuDevice, error) {
	var dev C.amdgpu_device_handle
	var major, minor C.uint32_t
	if r := status(C.agInit(C.int(drmFd), &dev, &major, &minor)); !r.ok() {
		return nil, agErr("amdgpu_device_initialize", r)
	}

	var ctx C.amdgpu_context_handle
	if r := status(C.agCtxCreate(dev, &ctx)); !r.ok() {
		C.agDeinit(dev)
		return nil, agErr("amdgpu_cs_ctx_create", r)
	}

	return &amdgpuDevice{
		handle:     dev,
		ctx:        ctx,
		majorMinor: [2]uint32{uint32(major), uint32(minor)},
	}, nil
}

func (d *amdgpuDevice) Close() {
	C.agCtxFree(d.ctx)
	C.agDeinit(d.handle)
}

// amdgpuBuffer is a GPU buffer object with its bound virtual address,
// tracked together so release always happens in reverse-bind order.
type amdgpuBuffer struct {
	bo     C.amdgpu_bo_handle
	va     C.amdgpu_va_handle
	vaAddr uint64
	size   uint64
	owned  bool // false for imported buffers: freeing the BO is ours, the dmabuf FD is the caller's
}

// amdgpuImportDmabuf imports a dmabuf FD (exported from the KMS plane
// handle) as a GPU buffer object and binds it a virtual address. The
// caller still owns and must close fd; this call does not take the FD
// per the resolved Open Question in DESIGN.md.
func (d *amdgpuDevice) amdgpuImportDmabuf(fd int, size uint64) (*amdgpuBuffer, error) {
	var bo C.amdgpu_bo_handle
	var allocSize C.uint64_t
	if r := status(C.agImportDmabuf(d.handle, C.int(fd), &bo, &allocSize)); !r.ok() {
		return nil, agErr("amdgpu_bo_import", r)
	}

	buf, err := d.bindVA(bo, uint64(allocSize))
	if err != nil {
		C.agFreeBO(bo)
		return nil, err
	}
	return buf, nil
}

// amdgpuImportFlink imports a BO by its legacy GEM flink name. This is
// the preferred import path per §4.D step 2; the caller falls back to
// amdgpuImportDmabuf on failure.
func (d *amdgpuDevice) amdgpuImportFlink(name uint32) (*amdgpuBuffer, error) {
	var bo C.amdgpu_bo_handle
	var allocSize C.uint64_t
	if r := status(C.agImportFlink(d.handle, C.uint32_t(name), &bo, &allocSize)); !r.ok() {
		return nil, agErr("amdgpu_bo_import(flink)", r)
	}

	buf, err := d.bindVA(bo, uint64(allocSize))
	if err != nil {
		C.agFreeBO(bo)
		return nil, err
	}
	return buf, nil
}

// amdgpuAllocBuffer allocates a fresh, host-visible (GTT) buffer to
// hold the DMA-engine copy's destination, and binds it a VA.
func (d *amdgpuDevice) amdgpuAllocBuffer(size uint64) (*amdgpuBuffer, error) {
	var bo C.amdgpu_bo_handle
	if r := status(C.agAllocBO(d.handle, C.uint64_t(size), 4096, amdgpuHeapGTT, &bo)); !r.ok() {
		return nil, agErr("amdgpu_bo_alloc", r)
	}

	buf, err := d.bindVA(bo, size)
	if err != nil {
		C.agFreeBO(bo)
		return nil, err
	}
	buf.owned = true
	return buf, nil
}

func (d *amdgpuDevice) bindVA(bo C.amdgpu_bo_handle, size uint64) (*amdgpuBuffer, error) {
	var vah C.amdgpu_va_handle
	var vaAddr C.uint64_t
	if r := status(C.agVAAlloc(d.handle, C.uint64_t(size), 4096, &vah, &vaAddr)); !r.ok() {
		return nil, agErr("amdgpu_va_range_alloc", r)
	}
	if r := status(C.agVAMap(bo, vaAddr, 0, C.uint64_t(size), 1)); !r.ok() {
		C.agVAFree(vah)
		return nil, agErr("amdgpu_bo_va_op(map)", r)
	}
	return &amdgpuBuffer{bo: bo, va: vah, vaAddr: uint64(vaAddr), size: size}, nil
}

// release unmaps and frees the buffer in strict reverse-acquisition
// order: VA unmap, VA range free, BO free. Safe to call once per
// buffer; every acquisition failure path above calls this or its
// manual equivalent before returning.
func (b *amdgpuBuffer) release(d *amdgpuDevice) {
	C.agVAMap(b.bo, C.uint64_t(b.vaAddr), 0, C.uint64_t(b.size), 0)
	C.agVAFree(b.va)
	C.agFreeBO(b.bo)
}

// cpuMap maps the buffer for CPU access and returns a Go slice backed
// by the mapped memory. The slice is only valid until cpuUnmap.
func (b *amdgpuBuffer) cpuMap() ([]byte, error) {
	var cpu unsafe.Pointer
	if r := status(C.agCPUMap(b.bo, &cpu)); !r.ok() {
		return nil, agErr("amdgpu_bo_cpu_map", r)
	}
	return unsafe.Slice((*byte)(cpu), b.size), nil
}

func (b *amdgpuBuffer) cpuUnmap() error {
	if r := status(C.agCPUUnmap(b.bo)); !r.ok() {
		return agErr("amdgpu_bo_cpu_unmap", r)
	}
	return nil
}

// submitCopyIB submits a single-IB command buffer on the DMA ring and
// blocks until the fence signals (AMDGPU_TIMEOUT_INFINITE), per §4.D
// step 6. resources lists every BO the IB references, for the kernel's
// implicit-sync bookkeeping.
func (d *amdgpuDevice) submitCopyIB(ib *amdgpuBuffer, ibSizeDW uint32, resources []*amdgpuBuffer) error {
	cResources := make([]C.amdgpu_bo_handle, len(resources))
	for i, r := range resources {
		cResources[i] = r.bo
	}

	var seqNo C.uint64_t
	var resPtr *C.amdgpu_bo_handle
	if len(cResources) > 0 {
		resPtr = &cResources[0]
	}
	if r := status(C.agSubmitIB(d.handle, d.ctx, ib.bo, C.uint64_t(ib.vaAddr), C.uint32_t(ibSizeDW),
		resPtr, C.uint32_t(len(cResources)), &seqNo)); !r.ok() {
		return agErr("amdgpu_cs_submit", r)
	}
	if r := status(C.agWaitFence(d.handle, d.ctx, seqNo)); !r.ok() {
		return agErr("amdgpu_cs_query_fence_status", r)
	}
	return nil
}
