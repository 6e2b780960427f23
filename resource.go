package vkd3d

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/command"
	"github.com/vkd3d-go/vkd3d/internal/resource"
)

// Resource is ID3D12Resource (spec.md §3, §4.3): a buffer or image plus
// its dedicated Vulkan memory, owned by the device's resource.Manager.
type Resource struct {
	d     *Device
	inner *resource.Resource
}

// CreateCommittedResource implements ID3D12Device::CreateCommittedResource
// (spec.md §4.3): allocates a new buffer or image, binds dedicated
// device memory chosen from heapProps, and — for buffers — publishes its
// GPU-VA into the device's VA map so GraphicsCommandList can later
// resolve an indirect-argument or root-descriptor address back to it
// (command.go's resourceForVA).
func (d *Device) CreateCommittedResource(heapProps resource.HeapProperties, desc resource.Desc, initialState command.ResourceState, clear *resource.ClearValue) (*Resource, error) {
	r, err := d.Resources.CreateCommittedResource(heapProps, desc, uint32(initialState), clear)
	if err != nil {
		return nil, err
	}
	return &Resource{d: d, inner: r}, nil
}

// GetGPUVirtualAddress implements ID3D12Resource::GetGPUVirtualAddress.
func (r *Resource) GetGPUVirtualAddress() uint64 { return r.inner.GetGPUVirtualAddress() }

// AddRef implements IUnknown::AddRef's resource-specific refcount (spec.md
// §3's Resource entity); release happens through Destroy once both the
// application and every in-flight submission have dropped their ref.
func (r *Resource) AddRef() uint32 { return r.inner.AddRef() }

// Map implements ID3D12Resource::Map for the common "map the whole
// subresource 0" case; Map/Unmap nest via a per-resource refcount so the
// caller does not need to track whether it is the first mapper.
func (r *Resource) Map() ([]byte, error) { return r.inner.Map(r.d.handle) }

// Unmap implements ID3D12Resource::Unmap.
func (r *Resource) Unmap() { r.inner.Unmap(r.d.handle) }

// Destroy releases r's Vulkan handles and VA-map entry. The caller must
// ensure no in-flight submission still references r (spec.md §3's
// Resource invariant) — the queue/fence-worker layer, not this call,
// enforces that ordering.
func (r *Resource) Destroy() { r.d.Resources.Destroy(r.inner) }

// DescriptorHeap is ID3D12DescriptorHeap (spec.md §3): a flat,
// bitset-backed array of descriptor entries, one Vulkan view per slot.
type DescriptorHeap struct {
	inner *resource.DescriptorHeap
}

// CreateDescriptorHeap implements ID3D12Device::CreateDescriptorHeap.
// Every heap created on a device gets a unique ID assigned here so
// DecodeHandle can recover which heap an encoded {heap_id, index} handle
// belongs to (spec.md §3's descriptor-heap entity, §9's "bit-exact
// descriptor encoding" design note).
func (d *Device) CreateDescriptorHeap(kind resource.HeapKind, capacity int, shaderVisible bool) *DescriptorHeap {
	id := d.nextHeapID
	d.nextHeapID++
	return &DescriptorHeap{inner: resource.NewDescriptorHeap(id, kind, capacity, shaderVisible)}
}

// Allocate implements ID3D12DescriptorHeap's implicit free-list allocation
// (D3D12 leaves slot allocation to the application; this layer exposes it
// directly rather than requiring the caller to track its own bitmap).
func (h *DescriptorHeap) Allocate() (index int, handle uint64, ok bool) { return h.inner.Allocate() }

// Free releases index back to the heap.
func (h *DescriptorHeap) Free(index int) { h.inner.Free(index) }

// At returns the view installed at index, or nil.
func (h *DescriptorHeap) At(index int) *resource.View { return h.inner.At(index) }

// CreateConstantBufferView implements
// ID3D12Device::CreateConstantBufferView, writing the resulting View
// directly into heap at index (spec.md §3's descriptor-heap entity; no
// Vulkan object is created, the (buffer, offset, size) triple is bound
// directly as a push descriptor or a dynamic root descriptor).
func (d *Device) CreateConstantBufferView(heap *DescriptorHeap, index int, res *Resource, offset, size uint64) *resource.View {
	key := resource.ViewKey{Kind: resource.ViewCBV, Offset: offset, Size: size}
	v, _ := res.inner.ViewCache().GetOrCreate(key, func() (*resource.View, error) {
		return &resource.View{Kind: resource.ViewCBV, CBVBuffer: res.inner.Buffer, CBVOffset: offset, CBVSize: size}, nil
	})
	heap.inner.Write(index, v)
	return v
}

// CreateShaderResourceView implements
// ID3D12Device::CreateShaderResourceView for the two shapes spec.md §3's
// View entity covers: a typed buffer view (uniform/storage texel buffer)
// when res wraps a buffer, or a sampled image view when res wraps an
// image.
func (d *Device) CreateShaderResourceView(heap *DescriptorHeap, index int, res *Resource, format vk.Format) (*resource.View, error) {
	v, err := res.inner.ViewCache().GetOrCreate(resource.ViewKey{Kind: resource.ViewSRV, Format: format}, func() (*resource.View, error) {
		return d.buildTexelOrImageView(res.inner, format, resource.ViewSRV)
	})
	if err != nil {
		return nil, err
	}
	heap.inner.Write(index, v)
	return v, nil
}

// CreateUnorderedAccessView implements
// ID3D12Device::CreateUnorderedAccessView. counter, when non-nil, becomes
// the returned View's UAV counter buffer view (spec.md §3's View entity
// "optional UAV counter view" field); D3D12 stores the counter in the
// same allocation as the main UAV buffer, which this layer leaves to the
// caller to have arranged via offset.
func (d *Device) CreateUnorderedAccessView(heap *DescriptorHeap, index int, res *Resource, format vk.Format, counter *Resource, counterOffset uint64) (*resource.View, error) {
	v, err := res.inner.ViewCache().GetOrCreate(resource.ViewKey{Kind: resource.ViewUAV, Format: format}, func() (*resource.View, error) {
		view, err := d.buildTexelOrImageView(res.inner, format, resource.ViewUAV)
		if err != nil {
			return nil, err
		}
		if counter != nil {
			view.Counter = &resource.View{Kind: resource.ViewCBV, CBVBuffer: counter.inner.Buffer, CBVOffset: counterOffset, CBVSize: 4}
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	heap.inner.Write(index, v)
	return v, nil
}

// CreateRenderTargetView implements ID3D12Device::CreateRenderTargetView:
// res must wrap an image. Neither this call nor CreateCommittedResource's
// validation (format and width only) checks that, or checks the
// resource's FlagAllowRenderTarget flag.
func (d *Device) CreateRenderTargetView(heap *DescriptorHeap, index int, res *Resource, format vk.Format) (*resource.View, error) {
	v, err := res.inner.ViewCache().GetOrCreate(resource.ViewKey{Kind: resource.ViewRTV, Format: format}, func() (*resource.View, error) {
		return d.buildImageView(res.inner.Image, format, vk.ImageAspectFlags(vk.ImageAspectColorBit), resource.ViewRTV)
	})
	if err != nil {
		return nil, err
	}
	heap.inner.Write(index, v)
	return v, nil
}

// CreateDepthStencilView implements ID3D12Device::CreateDepthStencilView.
// hasStencil selects whether the image-view aspect mask includes
// VK_IMAGE_ASPECT_STENCIL_BIT alongside DEPTH, matching whichever of the
// combined depth/stencil formats format actually is.
func (d *Device) CreateDepthStencilView(heap *DescriptorHeap, index int, res *Resource, format vk.Format, hasStencil bool) (*resource.View, error) {
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if hasStencil {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	v, err := res.inner.ViewCache().GetOrCreate(resource.ViewKey{Kind: resource.ViewDSV, Format: format}, func() (*resource.View, error) {
		return d.buildImageView(res.inner.Image, format, aspect, resource.ViewDSV)
	})
	if err != nil {
		return nil, err
	}
	heap.inner.Write(index, v)
	return v, nil
}

// SamplerDesc mirrors D3D12_SAMPLER_DESC's filter/address-mode fields, the
// subset this layer's static- and dynamic-sampler paths both need.
type SamplerDesc struct {
	Filter       vk.Filter
	AddressU     vk.SamplerAddressMode
	AddressV     vk.SamplerAddressMode
	AddressW     vk.SamplerAddressMode
	MaxAnisotropy float32
}

// CreateSampler implements ID3D12Device::CreateSampler. Samplers are not
// resource-bound (spec.md §3's View entity lists Sampler alongside
// CBV/SRV/UAV but it owns no resource), so unlike the other CreateXxxView
// calls there is no per-resource view cache to consult.
func (d *Device) CreateSampler(heap *DescriptorHeap, index int, desc SamplerDesc) (*resource.View, error) {
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    desc.Filter,
		MinFilter:    desc.Filter,
		AddressModeU: desc.AddressU,
		AddressModeV: desc.AddressV,
		AddressModeW: desc.AddressW,
		MaxAnisotropy: desc.MaxAnisotropy,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(d.handle, &info, nil, &sampler); res != vk.Success {
		return nil, fmt.Errorf("vkCreateSampler failed: %w", core.ErrFail)
	}
	v := &resource.View{Kind: resource.ViewSampler, Sampler: sampler}
	heap.inner.Write(index, v)
	return v, nil
}

// PlaceAccelerationStructure implements place_acceleration_structure
// (spec.md §4.2): publishes a placeholder RTAS view at offset within
// res's backing buffer, logging rather than failing when the slot
// previously held an opacity micromap.
func (d *Device) PlaceAccelerationStructure(res *Resource, offset, size uint64, handle uint64) (*resource.View, error) {
	key := resource.ViewKey{Kind: resource.ViewAccelStructOrOMM, Offset: offset, Size: size}
	return res.inner.ViewCache().PlaceAccelerationStructure(key, func() (*resource.View, error) {
		return &resource.View{Kind: resource.ViewAccelStructOrOMM, AccelStruct: handle}, nil
	})
}

// PlaceMicromap implements place_micromap (spec.md §4.2), the opacity-
// micromap counterpart to PlaceAccelerationStructure.
func (d *Device) PlaceMicromap(res *Resource, offset, size uint64, handle uint64) (*resource.View, error) {
	key := resource.ViewKey{Kind: resource.ViewAccelStructOrOMM, Offset: offset, Size: size}
	return res.inner.ViewCache().PlaceMicromap(key, func() (*resource.View, error) {
		return &resource.View{Kind: resource.ViewAccelStructOrOMM, Micromap: handle}, nil
	})
}

// buildTexelOrImageView dispatches to a typed buffer view or a sampled/
// storage image view depending on which Vulkan handle res actually holds,
// the SRV/UAV-shared half of spec.md §4.3's view-creation algorithm.
func (d *Device) buildTexelOrImageView(r *resource.Resource, format vk.Format, kind resource.ViewKind) (*resource.View, error) {
	if r.Desc.Dimension == resource.DimensionBuffer {
		info := vk.BufferViewCreateInfo{
			SType:  vk.StructureTypeBufferViewCreateInfo,
			Buffer: r.Buffer,
			Format: format,
			Offset: 0,
			Range:  vk.DeviceSize(vk.WholeSize),
		}
		var bv vk.BufferView
		if res := vk.CreateBufferView(d.handle, &info, nil, &bv); res != vk.Success {
			return nil, fmt.Errorf("vkCreateBufferView failed: %w", core.ErrFail)
		}
		return &resource.View{Kind: kind, Format: format, BufferView: bv}, nil
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	return d.buildImageView(r.Image, format, aspect, kind)
}

// buildImageView is the shared vkCreateImageView call behind
// SRV/UAV/RTV/DSV image views, always covering the full mip/array range
// since per-subresource view description is outside this layer's scope
// (spec.md §1's non-goal list).
func (d *Device) buildImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, kind resource.ViewKind) (*resource.View, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     vk.MaxUint32,
			BaseArrayLayer: 0,
			LayerCount:     vk.MaxUint32,
		},
	}
	var iv vk.ImageView
	if res := vk.CreateImageView(d.handle, &info, nil, &iv); res != vk.Success {
		return nil, fmt.Errorf("vkCreateImageView failed: %w", core.ErrFail)
	}
	return &resource.View{Kind: kind, Format: format, ImageView: iv}, nil
}
