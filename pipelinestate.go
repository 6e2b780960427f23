package vkd3d

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/pipeline"
)

// PipelineState is ID3D12PipelineState (spec.md §3, §4.5).
type PipelineState struct {
	state *pipeline.State
}

// CreateGraphicsPipelineState implements
// ID3D12Device::CreateGraphicsPipelineState, consulting the device's
// pipeline cache so two calls with an identical desc/hash reuse the
// already-compiled Vulkan pipeline (spec.md §3's Pipeline state entity,
// §4.5).
func (d *Device) CreateGraphicsPipelineState(rs *RootSignature, desc pipeline.GraphicsDesc, hash uint64) (*PipelineState, error) {
	if s, ok := d.PipelineCache.Lookup(hash); ok {
		return &PipelineState{state: s}, nil
	}
	s, err := pipeline.BuildGraphics(d.handle, rs.inner.PipelineLayout, desc)
	if err != nil {
		return nil, err
	}
	s.Hash = hash
	d.PipelineCache.Store(hash, s)
	return &PipelineState{state: s}, nil
}

// CreateComputePipelineState implements
// ID3D12Device::CreateComputePipelineState. baseSets extends the root
// signature's layout with an additional UAV-counter set when the shader
// uses UAV counters (spec.md §4.5's compute algorithm step).
func (d *Device) CreateComputePipelineState(rs *RootSignature, desc pipeline.ComputeDesc, baseSets []vk.DescriptorSetLayout, hash uint64) (*PipelineState, error) {
	if s, ok := d.PipelineCache.Lookup(hash); ok {
		return &PipelineState{state: s}, nil
	}
	s, err := pipeline.BuildCompute(d.handle, rs.inner.PipelineLayout, baseSets, desc)
	if err != nil {
		return nil, err
	}
	s.Hash = hash
	d.PipelineCache.Store(hash, s)
	return &PipelineState{state: s}, nil
}

// CreateMeshPipelineState implements the mesh-graphics PSO-stream path
// (spec.md §4.5): hasVSHSDSGS must be false, enforced by BuildMesh.
func (d *Device) CreateMeshPipelineState(rs *RootSignature, desc pipeline.MeshDesc, hasVSHSDSGS bool, hash uint64) (*PipelineState, error) {
	if s, ok := d.PipelineCache.Lookup(hash); ok {
		return &PipelineState{state: s}, nil
	}
	s, err := pipeline.BuildMesh(d.handle, rs.inner.PipelineLayout, desc, hasVSHSDSGS)
	if err != nil {
		return nil, err
	}
	s.Hash = hash
	d.PipelineCache.Store(hash, s)
	return &PipelineState{state: s}, nil
}

// Destroy releases the compiled Vulkan pipeline and its compatibility
// render pass. Never call this on a PipelineState still installed in
// the device's pipeline cache — the cache, not the application, owns
// its lifetime once CreateXxxPipelineState has stored it.
func (p *PipelineState) Destroy(d *Device) {
	pipeline.Destroy(d.handle, p.state)
}

// RenderPassCompatible implements spec.md §4.5's render-pass
// compatibility rule: two PSOs may share a render pass at bind time iff
// their DSV-presence/RT-count/format-list agree pairwise.
func (p *PipelineState) RenderPassCompatible(other *PipelineState) bool {
	return p.state.CompatKey.Compatible(other.state.CompatKey)
}

var errRootSignatureTooLarge = fmt.Errorf("root signature cost exceeds 64: %w", core.ErrInvalidArg)
