package vkd3d

import (
	"github.com/vkd3d-go/vkd3d/internal/rootsig"
)

// RootSignature is ID3D12RootSignature (spec.md §3, §4.4).
type RootSignature struct {
	desc  rootsig.Desc
	inner *rootsig.RootSignature
}

// CreateRootSignature implements ID3D12Device::CreateRootSignature,
// accepting the "pre-parsed descriptor" form spec.md §4.4's contract
// allows as an alternative to parsing a serialized blob. No entry point
// builds a root signature from a SerializedRootSignature; its Desc field
// is what gets passed here.
func (d *Device) CreateRootSignature(desc rootsig.Desc) (*RootSignature, error) {
	rs, err := rootsig.Build(d.handle, desc, d.hasPushDescriptors)
	if err != nil {
		return nil, err
	}
	return &RootSignature{desc: desc, inner: rs}, nil
}

// Destroy releases the pipeline layout, descriptor-set layouts, and
// immutable samplers this root signature owns.
func (rs *RootSignature) Destroy(d *Device) {
	rootsig.Destroy(d.handle, rs.inner)
}

// DescriptorMapping returns the position-stable descriptor_mapping[]
// spec.md §4.4 says a shader translator consumes to resolve a D3D12
// (register, space) to the Vulkan (set, binding) CreateRootSignature
// assigned it.
func (rs *RootSignature) DescriptorMapping() []rootsig.Mapping {
	return rs.inner.DescriptorMapping
}

// SerializedRootSignature stands in for the blob
// D3D12SerializeRootSignature produces. This module treats root-signature
// blobs as already D3D12-deserialized input (spec.md §1's non-goal: no
// D3D12 ABI reproduction), so it simply wraps the Desc rather than
// holding a DXBC-compatible byte layout.
type SerializedRootSignature struct {
	Desc rootsig.Desc
}

// SerializeRootSignature implements the D3D12SerializeRootSignature
// factory entry point (spec.md §6).
func SerializeRootSignature(desc rootsig.Desc) (*SerializedRootSignature, error) {
	if desc.TotalCost() > 64 {
		return nil, errRootSignatureTooLarge
	}
	return &SerializedRootSignature{Desc: desc}, nil
}
