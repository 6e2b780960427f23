// Package rootsig translates a D3D12 root-signature description into
// Vulkan descriptor-set layouts, push-constant ranges, and a pipeline
// layout (spec.md §3's Root signature entity, §4.4's contract). Nothing
// here is grounded on the teacher repo directly — alaska-engine has no
// equivalent translation step — so the algorithm follows spec.md §4.4's
// four numbered steps, and the Vulkan object-creation calls follow the
// teacher's general "fill a CreateInfo struct, check vk.Success" idiom
// used throughout engine/renderer/vulkan.
package rootsig

import vk "github.com/goki/vulkan"

// ParameterType mirrors D3D12_ROOT_PARAMETER_TYPE.
type ParameterType int

const (
	ParamDescriptorTable ParameterType = iota
	ParamCBV
	ParamSRV
	ParamUAV
	Param32BitConstants
)

// Visibility mirrors D3D12_SHADER_VISIBILITY.
type Visibility int

const (
	VisAll Visibility = iota
	VisVertex
	VisHull
	VisDomain
	VisGeometry
	VisPixel
	VisAmplification
	VisMesh
)

func (v Visibility) stageFlags() vk.ShaderStageFlags {
	switch v {
	case VisVertex:
		return vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	case VisHull:
		return vk.ShaderStageFlags(vk.ShaderStageTessellationControlBit)
	case VisDomain:
		return vk.ShaderStageFlags(vk.ShaderStageTessellationEvaluationBit)
	case VisGeometry:
		return vk.ShaderStageFlags(vk.ShaderStageGeometryBit)
	case VisPixel:
		return vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	case VisAmplification:
		return vk.ShaderStageFlags(vk.ShaderStageTaskBitEXT)
	case VisMesh:
		return vk.ShaderStageFlags(vk.ShaderStageMeshBitEXT)
	default: // VisAll
		return vk.ShaderStageFlags(vk.ShaderStageAllGraphics) | vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
}

// StageFlags exposes the Vulkan stage mask for v to other packages.
func (v Visibility) StageFlags() vk.ShaderStageFlags { return v.stageFlags() }

// RangeType mirrors D3D12_DESCRIPTOR_RANGE_TYPE.
type RangeType int

const (
	RangeSRV RangeType = iota
	RangeUAV
	RangeCBV
	RangeSampler
)

// DescriptorRange is one range within a DESCRIPTOR_TABLE parameter.
type DescriptorRange struct {
	Type           RangeType
	BaseRegister   uint32
	NumDescriptors uint32
	OffsetInTable  uint32

	// vulkanBinding(s) are assigned during Build; SRV/UAV reserve two
	// consecutive bindings (buffer-view, image-view) per spec.md §4.4
	// step 1, all other range types reserve one.
	firstBinding uint32
}

// RootParameter is one entry in a root signature's Parameters[], tagged
// by Type the way spec.md §3 describes.
type RootParameter struct {
	Type       ParameterType
	Visibility Visibility

	// Table is populated when Type == ParamDescriptorTable.
	Table []DescriptorRange

	// Register/Space are populated for ParamCBV/SRV/UAV.
	Register uint32
	Space    uint32

	// Num32BitValues is populated for Param32BitConstants.
	Num32BitValues uint32
}

// cost implements spec.md §8's "Root-signature cost = Σ per-parameter
// cost (table:1, root-desc:2, 32BIT_CONSTANTS[n]:n)" rule.
func (p RootParameter) cost() int {
	switch p.Type {
	case ParamDescriptorTable:
		return 1
	case Param32BitConstants:
		return int(p.Num32BitValues)
	default: // CBV, SRV, UAV root descriptors
		return 2
	}
}

// StaticSampler mirrors D3D12_STATIC_SAMPLER_DESC; it becomes an
// immutable sampler on its own binding (spec.md §4.4 step 4).
type StaticSampler struct {
	Register   uint32
	Space      uint32
	Visibility Visibility
	Filter     vk.Filter
	AddressU   vk.SamplerAddressMode
	AddressV   vk.SamplerAddressMode
	AddressW   vk.SamplerAddressMode
}

// Desc is a full, already-deserialized root signature description — the
// "pre-parsed descriptor" alternative spec.md §4.4's contract allows.
type Desc struct {
	Parameters     []RootParameter
	StaticSamplers []StaticSampler
	// AllowInputAssembler etc. (D3D12_ROOT_SIGNATURE_FLAGS) do not affect
	// the Vulkan translation below and are not modeled.
}

// TotalCost sums every parameter's cost for the ≤ 64 validation in Build.
func (d Desc) TotalCost() int {
	total := 0
	for _, p := range d.Parameters {
		total += p.cost()
	}
	return total
}

// Mapping is one entry of the position-stable descriptor_mapping[]
// spec.md §4.4 requires for the shader translator: it tells the
// translator which Vulkan (set, binding) a given D3D12 (register, space)
// resolved to.
type Mapping struct {
	ParameterIndex int
	RangeIndex     int // -1 for a root CBV/SRV/UAV parameter
	Set            uint32
	Binding        uint32
	// ImageBinding is set alongside Binding for SRV/UAV ranges, which
	// reserve a second binding for the image-view half of the
	// buffer/texture polymorphism (spec.md §4.4 step 1).
	ImageBinding    uint32
	HasImageBinding bool
}

// RootSignature is the derived Vulkan state from spec.md §3's Root
// signature entity.
type RootSignature struct {
	PipelineLayout      vk.PipelineLayout
	PushSetLayout       vk.DescriptorSetLayout // may be NullHandle if unused
	MainSetLayout       vk.DescriptorSetLayout
	PushConstantRanges  []vk.PushConstantRange
	ImmutableSamplers   []vk.Sampler
	DescriptorMapping   []Mapping
	UsesPushDescriptors bool
}
