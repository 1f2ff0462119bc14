//go:build !headless

// vulkan_instance.go - Vulkan instance, physical device selection, and
// logical device creation for the external-import compute path
// (§4.E step 1).

package main

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
)

var (
	vulkanLoaderOnce sync.Once
	vulkanLoaderErr  error
)

func ensureVulkanLoader() error {
	vulkanLoaderOnce.Do(func() {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			vulkanLoaderErr = fmt.Errorf("load vulkan library: %w", err)
			return
		}
		vulkanLoaderErr = vk.Init()
	})
	return vulkanLoaderErr
}

// computeContext holds the Vulkan objects shared by every capture
// through the external-import path: one instance, one device, one
// queue capable of graphics, transfer, and compute, and a command
// pool on that queue family.
type computeContext struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32
	commandPool    vk.CommandPool
}

const (
	extExternalMemoryCapabilities = "VK_KHR_external_memory_capabilities"
	extGetPhysicalDeviceProps2    = "VK_KHR_get_physical_device_properties2"
	extExternalMemory             = "VK_KHR_external_memory"
	extExternalMemoryFd           = "VK_KHR_external_memory_fd"
	extExternalMemoryDmaBuf       = "VK_EXT_external_memory_dma_buf"
	extImageDrmFormatModifier     = "VK_EXT_image_drm_format_modifier"
)

// newComputeContext performs §4.E step 1: instance with the two
// capability-query extensions, physical device selection requiring
// external-memory + external-memory-fd + dmabuf-external-memory +
// image-format-modifier, a queue family with graphics, transfer, and
// compute bits (stricter than graphics-or-transfer alone - see
// DESIGN.md), logical device with those four device extensions, and a
// command pool.
func newComputeContext() (*computeContext, error) {
	if err := ensureVulkanLoader(); err != nil {
		return nil, err
	}

	cc := &computeContext{}
	if err := cc.createInstance(); err != nil {
		return nil, err
	}
	if err := cc.selectPhysicalDevice(); err != nil {
		cc.destroyInstance()
		return nil, err
	}
	if err := cc.createDevice(); err != nil {
		cc.destroyInstance()
		return nil, err
	}
	if err := cc.createCommandPool(); err != nil {
		cc.destroyDevice()
		cc.destroyInstance()
		return nil, err
	}
	return cc, nil
}

func (cc *computeContext) createInstance() error {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeCString("kmsshot"),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        safeCString("kmsshot-compute"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}

	extensions := []string{extExternalMemoryCapabilities, extGetPhysicalDeviceProps2}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: cStringSlice(extensions),
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return fmt.Errorf("vkCreateInstance failed: %d", res)
	}
	cc.instance = instance
	vk.InitInstance(instance)
	return nil
}

// selectPhysicalDevice picks the first device exposing all four
// required extensions and a queue family with graphics, transfer, and
// compute bits all set.
func (cc *computeContext) selectPhysicalDevice() error {
	var deviceCount uint32
	vk.EnumeratePhysicalDevices(cc.instance, &deviceCount, nil)
	if deviceCount == 0 {
		return fmt.Errorf("no Vulkan-capable GPUs found")
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	vk.EnumeratePhysicalDevices(cc.instance, &deviceCount, devices)

	for _, device := range devices {
		if !deviceSupportsExtensions(device, extExternalMemory, extExternalMemoryFd,
			extExternalMemoryDmaBuf, extImageDrmFormatModifier) {
			continue
		}

		var queueFamilyCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
		queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

		required := vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueTransferBit) | vk.QueueFlags(vk.QueueComputeBit)
		for i, qf := range queueFamilies {
			qf.Deref()
			if qf.QueueFlags&required == required {
				cc.physicalDevice = device
				cc.queueFamily = uint32(i)
				return nil
			}
		}
	}
	return fmt.Errorf("no GPU exposes external-memory/dmabuf/modifier with a graphics+transfer+compute queue")
}

func deviceSupportsExtensions(device vk.PhysicalDevice, names ...string) bool {
	var count uint32
	vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)
	props := make([]vk.ExtensionProperties, count)
	vk.EnumerateDeviceExtensionProperties(device, "", &count, props)

	available := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		available[vk.ToString(props[i].ExtensionName[:])] = true
	}
	for _, n := range names {
		if !available[n] {
			return false
		}
	}
	return true
}

func (cc *computeContext) createDevice() error {
	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: cc.queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}

	extensions := []string{extExternalMemory, extExternalMemoryFd, extExternalMemoryDmaBuf, extImageDrmFormatModifier}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueInfo},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: cStringSlice(extensions),
	}

	var device vk.Device
	if res := vk.CreateDevice(cc.physicalDevice, &deviceInfo, nil, &device); res != vk.Success {
		return fmt.Errorf("vkCreateDevice failed: %d", res)
	}
	cc.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, cc.queueFamily, 0, &queue)
	cc.queue = queue
	return nil
}

func (cc *computeContext) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: cc.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(cc.device, &poolInfo, nil, &pool); res != vk.Success {
		return fmt.Errorf("vkCreateCommandPool failed: %d", res)
	}
	cc.commandPool = pool
	return nil
}

// findMemoryType mirrors the teacher's Voodoo backend helper of the
// same name: first memory type whose bit is set in typeFilter and
// whose property flags are a superset of properties.
func (cc *computeContext) findMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(cc.physicalDevice, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memProps.MemoryTypes[i].PropertyFlags&properties) == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no suitable memory type for filter 0x%x", typeFilter)
}

func (cc *computeContext) destroyCommandPool() {
	if cc.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(cc.device, cc.commandPool, nil)
	}
}

func (cc *computeContext) destroyDevice() {
	if cc.device != nil {
		vk.DestroyDevice(cc.device, nil)
	}
}

func (cc *computeContext) destroyInstance() {
	if cc.instance != nil {
		vk.DestroyInstance(cc.instance, nil)
	}
}

// release tears down the context in strict reverse-acquisition order.
func (cc *computeContext) release() {
	vk.DeviceWaitIdle(cc.device)
	cc.destroyCommandPool()
	cc.destroyDevice()
	cc.destroyInstance()
}

func safeCString(s string) string {
	return s + "\x00"
}

func cStringSlice(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = safeCString(n)
	}
	return out
}
