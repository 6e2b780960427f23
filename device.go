// Package vkd3d is the public surface of the translation layer: a
// D3D12-shaped API (Device, CommandQueue, GraphicsCommandList,
// RootSignature, PipelineState, Resource, DescriptorHeap, Fence,
// CommandSignature) whose methods are implemented entirely in terms of
// the internal/* packages, every call ultimately landing on
// github.com/goki/vulkan (spec.md §6's "Public API" surface, §9's
// "D3D12's COM vtables become a trait/interface" design note — modeled
// here as concrete Go types rather than an interface hierarchy, since
// there is exactly one backing implementation).
package vkd3d

import (
	"fmt"
	"runtime"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/fenceworker"
	"github.com/vkd3d-go/vkd3d/internal/indirect"
	"github.com/vkd3d-go/vkd3d/internal/pipeline"
	"github.com/vkd3d-go/vkd3d/internal/present"
	"github.com/vkd3d-go/vkd3d/internal/resource"
	"github.com/vkd3d-go/vkd3d/internal/telemetry"
)

// fenceWorkerPollInterval bounds how long the device's shared fence
// worker sleeps between sweeps while batches are outstanding but none
// have yet signaled (internal/fenceworker.New's pollInterval).
const fenceWorkerPollInterval = 2 * time.Millisecond

// DeviceOptions mirrors the handful of D3D12CreateDevice/factory inputs
// this module actually needs. AppName and EnableSurface feed the
// optional DXGI swap-chain peripheral; the rest is resolved from
// core.Config() (VKD3D_CONFIG) at creation time.
type DeviceOptions struct {
	AppName       string
	EnableSurface bool
	WindowWidth   int
	WindowHeight  int
}

// Device is the root object every other public type is created from,
// the entity behind ID3D12Device. It owns the Vulkan instance/device,
// the resource manager (§4.2-4.3), the pipeline cache (§4.5), one
// fenceworker.Worker shared by every CommandQueue it creates (§4.9), and
// the sticky device-removed state (§5, §7).
type Device struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	handle         vk.Device

	graphicsQueueFamily uint32
	presentQueueFamily  uint32
	computeQueueFamily  uint32
	transferQueueFamily uint32

	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	computeQueue  vk.Queue
	transferQueue vk.Queue

	window  *present.Window
	surface vk.Surface

	hasPushDescriptors  bool
	conditionalRendering bool
	indirectCaps        indirect.Capabilities

	Resources     *resource.Manager
	PipelineCache *pipeline.Cache
	FenceWorker   *fenceworker.Worker
	Profiler      *telemetry.Profiler

	removed core.DeviceRemovedReason

	nextQueueID uint64
	nextHeapID  uint32
}

// CreateDevice implements the D3D12CreateDevice factory entry point
// (spec.md §6): it creates a Vulkan instance, picks a physical device,
// opens a logical device with the extensions spec.md §6 requires
// (VK_KHR_swapchain when EnableSurface, VK_KHR_timeline_semaphore,
// VK_KHR_push_descriptor, VK_EXT_descriptor_indexing,
// VK_KHR_buffer_device_address, VK_KHR_synchronization2, probing
// VK_KHR_dynamic_rendering, VK_EXT_device_generated_commands and
// VK_EXT_conditional_rendering as optional), and wires up the
// resource manager, pipeline cache, and fence worker every other public
// constructor depends on. Grounded on the teacher's
// VulkanRenderer.Initialize/DeviceCreate (engine/renderer/vulkan/backend.go,
// engine/renderer/vulkan/device.go) generalized off a single hardcoded
// VulkanContext onto this package's Device and onto a config-driven
// window/surface that the caller may omit entirely for a headless
// (compute-only) device.
func CreateDevice(opts DeviceOptions) (*Device, error) {
	runtime.LockOSThread()

	cfg := core.Config()

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vk.Init failed: %w", core.ErrFail)
	}

	d := &Device{nextQueueID: 1}

	var win *present.Window
	requiredExt := []string{}
	if opts.EnableSurface {
		w, err := present.NewWindow(opts.AppName, opts.WindowWidth, opts.WindowHeight)
		if err != nil {
			return nil, err
		}
		win = w
		requiredExt = append(requiredExt, "VK_KHR_surface")
	}
	if cfg.Flags.VkDebug || debugLayerEnabled {
		requiredExt = append(requiredExt, vk.ExtDebugUtilsExtensionName)
	}

	appInfo := vk.ApplicationInfo{
		SType:         vk.StructureTypeApplicationInfo,
		ApiVersion:    vk.MakeVersion(1, 1, 0),
		PEngineName:   safeString("vkd3d-go"),
		PApplicationName: safeString(opts.AppName),
	}
	instInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(requiredExt)),
		PpEnabledExtensionNames: safeStrings(requiredExt),
	}
	if res := vk.CreateInstance(&instInfo, nil, &d.instance); res != vk.Success {
		return nil, fmt.Errorf("vkCreateInstance failed: %w", core.ErrFail)
	}
	if err := vk.InitInstance(d.instance); err != nil {
		return nil, fmt.Errorf("vkInitInstance failed: %w", core.ErrFail)
	}

	if win != nil {
		surface, err := win.CreateSurface(d.instance)
		if err != nil {
			return nil, err
		}
		d.surface = surface
		d.window = win
	}

	if err := d.selectPhysicalDevice(opts); err != nil {
		return nil, err
	}
	if err := d.createLogicalDevice(cfg.Flags.SingleQueue); err != nil {
		return nil, err
	}

	d.Resources = resource.NewManager(d.handle, d.physicalDevice, d.hasConditionalRendering(), cfg.Flags.UploadHVV && !cfg.Flags.NoUploadHVV)

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.physicalDevice, &props)
	props.Deref()
	cache, err := pipeline.NewCache(d.handle, cfg.File.PipelineCachePath, props.VendorID, props.DeviceID, props.DriverVersion)
	if err != nil {
		return nil, err
	}
	d.PipelineCache = cache

	d.Profiler = telemetry.NewProfilerFromEnv(time.Now())
	d.FenceWorker = fenceworker.New(fenceWorkerPollInterval, d.Profiler)

	core.WatchConfig()
	core.Subscribe(core.EventDeviceRemoved, func(code core.EventCode, data any) bool {
		if reason, ok := data.(error); ok {
			d.removed.Set(reason)
		}
		return false
	})

	return d, nil
}

// IndirectCapabilities reports which optional ExecuteIndirect-related
// Vulkan extensions were enabled on this device, the input
// indirect.Select uses to pick a translation strategy (spec.md §4.10).
func (d *Device) IndirectCapabilities() indirect.Capabilities { return d.indirectCaps }

// hasConditionalRendering reports whether VK_EXT_conditional_rendering
// was enabled on this device; resource.Manager consults it to decide
// whether committed buffers get the conditional-rendering usage bit
// (spec.md §4.3). Extension probing happens once in createLogicalDevice.
func (d *Device) hasConditionalRendering() bool { return d.conditionalRendering }

// GetDeviceRemovedReason implements ID3D12Device::GetDeviceRemovedReason
// (spec.md §7): once device loss has been reported, every subsequent call
// of this method returns the same stored HRESULT-shaped error. Other
// methods, on the device or on the objects it created, do not consult
// the stored state and keep attempting their operations.
func (d *Device) GetDeviceRemovedReason() error {
	return d.removed.Reason()
}

// MarkDeviceRemoved records reason as the sticky device-removed state
// and fires core.EventDeviceRemoved so subscribed listeners observe it
// without polling. Safe to call more than once; only the first call's
// reason sticks and only that call fires the event (spec.md §5).
func (d *Device) MarkDeviceRemoved(reason error) {
	if d.removed.Reason() != nil {
		return
	}
	d.removed.Set(reason)
	core.Fire(core.EventDeviceRemoved, d.removed.Reason())
}

// Shutdown tears the device down: every CommandQueue must already be
// drained by the caller (spec.md §4.8's "on device teardown, the
// submission thread drains" contract is per-queue, enforced by
// CommandQueue.Close, not here) before the fence worker and Vulkan
// device/instance handles are destroyed.
func (d *Device) Shutdown() error {
	if d.FenceWorker != nil {
		d.FenceWorker.Shutdown()
	}
	if err := d.Profiler.Flush(); err != nil {
		core.LogWarn("telemetry: failed to flush profile: %s", err)
	}
	if d.PipelineCache != nil {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(d.physicalDevice, &props)
		props.Deref()
		if err := d.PipelineCache.Persist(d.handle, props.VendorID, props.DeviceID, props.DriverVersion); err != nil {
			core.LogWarn("pipeline cache: failed to persist: %s", err)
		}
		d.PipelineCache.Destroy(d.handle)
	}
	if d.window != nil {
		d.window.Destroy(d.instance)
	}
	if d.handle != vk.NullDevice {
		vk.DestroyDevice(d.handle, nil)
	}
	if d.instance != vk.NullInstance {
		vk.DestroyInstance(d.instance, nil)
	}
	return nil
}

func safeString(s string) string { return s + "\x00" }

func safeStrings(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = safeString(s)
	}
	return out
}
