// Package resource implements spec.md §4.3: buffers and images wrapping a
// single Vulkan allocation, counted Map/Unmap, and the per-resource view
// cache. Memory-type selection and usage-flag translation follow the
// FindMemoryIndex / image-creation pattern in the example Vulkan
// renderer's context/image code, generalized from "one texture" to the
// full D3D12 heap-type and resource-flag space.
package resource

import (
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	vsync "github.com/vkd3d-go/vkd3d/internal/sync"
)

// Dimension is the D3D12 resource dimension.
type Dimension int

const (
	DimensionBuffer Dimension = iota
	DimensionTexture1D
	DimensionTexture2D
	DimensionTexture3D
)

// HeapType selects the memory-property mapping described in spec.md §4.3.
type HeapType int

const (
	HeapDefault HeapType = iota
	HeapUpload
	HeapReadback
	HeapGPUUpload
	HeapCustom
)

// CPUPageProperty mirrors D3D12_CPU_PAGE_PROPERTY for HeapCustom.
type CPUPageProperty int

const (
	CPUPageUnknown CPUPageProperty = iota
	CPUPageNotAvailable
	CPUPageWriteCombine
	CPUPageWriteBack
)

// HeapProperties mirrors D3D12_HEAP_PROPERTIES.
type HeapProperties struct {
	Type            HeapType
	CPUPage         CPUPageProperty
	MemoryPoolLocal bool
}

// Flags mirrors the subset of D3D12_RESOURCE_FLAGS that changes Vulkan
// usage-flag translation.
type Flags uint32

const FlagNone Flags = 0

const (
	FlagAllowRenderTarget Flags = 1 << iota
	FlagAllowDepthStencil
	FlagAllowUnorderedAccess
	FlagDenyShaderResource
	FlagAllowCrossAdapter
	FlagAllowSimultaneousAccess
	FlagRaytracingAccelStruct
)

// Desc mirrors D3D12_RESOURCE_DESC.
type Desc struct {
	Dimension        Dimension
	Format           vk.Format
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	SampleCount      uint32
	Flags            Flags
}

// ClearValue mirrors D3D12_CLEAR_VALUE, used only to seed the image's
// optimized-clear metadata; it never forces an actual clear.
type ClearValue struct {
	Format vk.Format
	Color  [4]float32
	Depth  float32
	Stencil uint32
}

// Resource is a buffer or image plus its backing Vulkan memory, per the
// Resource entity in spec.md §3. Manager.Destroy releases it; that call
// does not consult extRefs or intRefs, so the caller orders it after both
// the application and in-flight work are done with the resource.
type Resource struct {
	ID       core.ID
	Desc     Desc
	HeapProp HeapProperties

	Buffer vk.Buffer
	Image  vk.Image
	Memory vk.DeviceMemory

	MemoryOffset uint64
	MemorySize   uint64

	// VABase is the GPU-VA returned by GetGPUVirtualAddress, valid only
	// for buffers; it is the key under which the owning Manager's VA map
	// resolves derefs back to this resource.
	VABase uint64

	// Borrowed resources (vkd3d_acquire-style interop) never have their
	// Vulkan handle destroyed by Manager.Destroy.
	Borrowed bool

	extRefs vsync.U32
	intRefs vsync.U32

	mapMu    sync.Mutex
	mapCount int
	mapPtr   []byte

	views vsync.Ptr[ViewCache]
}

// GetGPUVirtualAddress returns the resource's GPU-VA. Only meaningful for
// buffers; images return 0.
func (r *Resource) GetGPUVirtualAddress() uint64 {
	if r.Desc.Dimension != DimensionBuffer {
		return 0
	}
	return r.VABase
}

// AddRef increments the external (application-held) refcount.
func (r *Resource) AddRef() uint32 { return r.extRefs.Add(1) }

// addInternalRef increments the internal refcount a queue submission
// holds while the resource is referenced by in-flight work.
func (r *Resource) addInternalRef() uint32 { return r.intRefs.Add(1) }

// viewCache lazily publishes and returns this resource's view cache,
// following spec.md §3's "published lazily under release/acquire
// ordering" rule via Ptr.PublishOnce.
func (r *Resource) viewCache() *ViewCache {
	if existing := r.views.Load(vsync.Acquire); existing != nil {
		return existing
	}
	return r.views.PublishOnce(newViewCache())
}

// ViewCache exposes this resource's view cache to callers outside the
// package (device-level CreateXxxView entry points), preserving the
// lazy-publish behavior of viewCache.
func (r *Resource) ViewCache() *ViewCache { return r.viewCache() }

// Map honors D3D12's counted-mapping semantics: the Nth Map call beyond
// the first is a no-op refcount bump, and only the Unmap that brings the
// count back to zero calls vkUnmapMemory.
func (r *Resource) Map(device vk.Device) ([]byte, error) {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()
	if r.mapCount == 0 {
		var ptr unsafe.Pointer
		if res := vk.MapMemory(device, r.Memory, vk.DeviceSize(r.MemoryOffset), vk.DeviceSize(r.MemorySize), 0, &ptr); res != vk.Success {
			return nil, core.ErrFail
		}
		r.mapPtr = unsafe.Slice((*byte)(ptr), int(r.MemorySize))
	}
	r.mapCount++
	return r.mapPtr, nil
}

// Unmap decrements the map refcount; the underlying vkUnmapMemory call
// happens only when the count returns to zero. Unmapping beyond zero is
// ignored, per spec.md §8's boundary behavior.
func (r *Resource) Unmap(device vk.Device) {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()
	if r.mapCount == 0 {
		return
	}
	r.mapCount--
	if r.mapCount == 0 {
		vk.UnmapMemory(device, r.Memory)
		r.mapPtr = nil
	}
}
