// Package pipeline builds Vulkan graphics/compute/mesh pipelines from a
// D3D12-shaped pipeline-state description (spec.md §3's Pipeline state
// entity, §4.5). Shader-stage creation and the fixed-function state
// structs below generalize the teacher's NewGraphicsPipeline
// (engine/renderer/vulkan/pipeline.go), which hardcodes one layout, into
// a data-driven builder that also handles compute and mesh pipelines and
// the "stream" PSO-description form.
package pipeline

import vk "github.com/goki/vulkan"

// InputElement mirrors D3D12_INPUT_ELEMENT_DESC.
type InputElement struct {
	SemanticName      string
	SemanticIndex     uint32
	Format            vk.Format
	InputSlot         uint32
	// AlignedByteOffset == AppendAligned means "compute the offset as the
	// previous element's offset + its format's byte size", mirroring
	// D3D12_APPEND_ALIGNED_ELEMENT.
	AlignedByteOffset uint32
	PerInstance       bool
}

// AppendAligned is the D3D12_APPEND_ALIGNED_ELEMENT sentinel.
const AppendAligned = 0xffffffff

// InputLayout mirrors D3D12_INPUT_LAYOUT_DESC.
type InputLayout struct {
	Elements []InputElement
}

// CullMode mirrors D3D12_CULL_MODE.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// FillMode mirrors D3D12_FILL_MODE.
type FillMode int

const (
	FillSolid FillMode = iota
	FillWireframe
)

// Rasterizer mirrors the subset of D3D12_RASTERIZER_DESC that changes
// Vulkan pipeline state.
type Rasterizer struct {
	Fill                  FillMode
	Cull                  CullMode
	FrontCounterClockwise bool
	DepthBiasEnable       bool
	DepthBiasConstant     float32
	DepthBiasClamp        float32
	DepthBiasSlope        float32
}

// DepthStencil mirrors the subset of D3D12_DEPTH_STENCIL_DESC that
// changes Vulkan pipeline state.
type DepthStencil struct {
	DepthEnable     bool
	DepthWriteMask  bool
	DepthFunc       vk.CompareOp
	StencilEnable   bool
}

// RenderTargetBlend mirrors D3D12_RENDER_TARGET_BLEND_DESC.
type RenderTargetBlend struct {
	BlendEnable  bool
	SrcBlend     vk.BlendFactor
	DstBlend     vk.BlendFactor
	BlendOp      vk.BlendOp
	SrcBlendAlpha vk.BlendFactor
	DstBlendAlpha vk.BlendFactor
	BlendOpAlpha vk.BlendOp
	WriteMask    vk.ColorComponentFlags
}

// Blend mirrors D3D12_BLEND_DESC: one entry per render target.
type Blend struct {
	RenderTarget [8]RenderTargetBlend
}

// Shader is a compiled shader module plus its entry point, the unit the
// builder turns into a vk.PipelineShaderStageCreateInfo.
type Shader struct {
	SPIRV []uint32
	Entry string
}

// GraphicsDesc mirrors D3D12_GRAPHICS_PIPELINE_STATE_DESC (both the
// classic and "stream" forms collapse to this once parsed).
type GraphicsDesc struct {
	VS, PS, GS, HS, DS *Shader
	InputLayout        InputLayout
	Rasterizer         Rasterizer
	DepthStencil       DepthStencil
	Blend              Blend
	Topology           vk.PrimitiveTopology
	RTVFormats         []vk.Format
	DSVFormat          vk.Format // vk.FormatUndefined if no depth/stencil
	SampleCount        uint32
}

// ComputeDesc mirrors D3D12_COMPUTE_PIPELINE_STATE_DESC.
type ComputeDesc struct {
	CS *Shader
	// UAVCounterMask has one bit set per UAV register (0-63) whose
	// shader uses an atomic counter (spec.md §4.5's compute algorithm
	// step); in a full shader-reflection pipeline this would be derived
	// from the DXBC, so it is taken as already-computed input here.
	UAVCounterMask uint64
}

// MeshDesc mirrors the mesh-shading pipeline subobjects: pure MS
// (+optional PS, +optional AS). VS/HS/DS/GS combinations are rejected by
// BuildMesh (spec.md §4.5's mesh-graphics algorithm step).
type MeshDesc struct {
	AS, MS, PS *Shader
	RTVFormats []vk.Format
	DSVFormat  vk.Format
}

// Kind distinguishes which of the three pipeline shapes a PipelineState
// holds, since all three share the render-pass-compatibility and cache
// machinery below.
type Kind int

const (
	KindGraphics Kind = iota
	KindCompute
	KindMesh
)

// State is the compiled Vulkan pipeline from spec.md §3's Pipeline
// state entity.
type State struct {
	Kind           Kind
	Handle         vk.Pipeline
	Layout         vk.PipelineLayout
	CompatRenderPass vk.RenderPass // graphics/mesh only
	UAVCounterSet    vk.DescriptorSetLayout // compute only, NullHandle if unused
	CompatKey        CompatKey
	Hash             uint64
}
