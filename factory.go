package vkd3d

import (
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
)

// DebugInterface is ID3D12Debug, the D3D12GetDebugInterface factory
// result (spec.md §6): a handle applications query before CreateDevice to
// ask for validation to be enabled. This layer has no separate debug-only
// Vulkan path — enabling it just means CreateDevice will later request
// the VK_EXT_debug_utils instance extension, the same thing the
// VKD3D_CONFIG vk_debug flag does. No validation layer is enabled.
type DebugInterface struct{}

var debugLayerEnabled bool

// EnableDebugLayer implements ID3D12Debug::EnableDebugLayer. Calling it
// before CreateDevice has the same effect as setting vk_debug in
// VKD3D_CONFIG; calling it after CreateDevice has already run has no
// effect on that device.
func (*DebugInterface) EnableDebugLayer() { debugLayerEnabled = true }

// D3D12GetDebugInterface implements the factory entry point of the same
// name (spec.md §6).
func D3D12GetDebugInterface() (*DebugInterface, error) {
	return &DebugInterface{}, nil
}

// DeviceExt is ID3D12DeviceExt (spec.md §6's vendor-extension list):
// Vulkan-handle introspection for interop scenarios that need the raw
// vk.Instance/vk.Device/vk.Queue this layer created underneath a Device.
// NVX cuBIN import and CUDA texture object exposure are out of scope —
// no example in this module's dependency pack exercises CUDA interop,
// so they are left as the documented non-goal rather than stubbed out.
type DeviceExt struct {
	d *Device
}

// Ext returns d's vendor-extension interface.
func (d *Device) Ext() *DeviceExt { return &DeviceExt{d: d} }

// VkInstance exposes the instance handle backing this device.
func (e *DeviceExt) VkInstance() vk.Instance { return e.d.instance }

// VkDevice exposes the logical device handle backing this device.
func (e *DeviceExt) VkDevice() vk.Device { return e.d.handle }

// VkPhysicalDevice exposes the physical device this Device opened.
func (e *DeviceExt) VkPhysicalDevice() vk.PhysicalDevice { return e.d.physicalDevice }

// VkQueue exposes the raw Vulkan queue handle backing cq, letting a
// caller borrow a command buffer across API boundaries the way
// ID3D12DXVKInteropDevice's cross-API interop calls do (spec.md §6).
func (cq *CommandQueue) VkQueue(d *Device) vk.Queue {
	switch cq.kind {
	case QueueCompute:
		return d.computeQueue
	case QueueCopy:
		return d.transferQueue
	default:
		return d.graphicsQueue
	}
}

// D3D12GetInterface implements the factory entry point of the same name
// (spec.md §6): a COM-style QueryInterface substitute. This layer exposes
// exactly one queryable extension interface (DeviceExt); any other
// request returns core.ErrNoInterface, matching D3D12's E_NOINTERFACE for
// an unrecognized IID.
func D3D12GetInterface(d *Device, want string) (any, error) {
	if want == "DeviceExt" {
		return d.Ext(), nil
	}
	return nil, core.ErrNoInterface
}
