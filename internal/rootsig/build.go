package rootsig

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
)

// mainSetPlaceholder marks a Mapping's Set field as "the main set,
// wherever it ends up" while the builder is still walking parameters: the
// main set only lands at Vulkan set index 1 if a root CBV/SRV/UAV
// parameter later pushes something into the push-descriptor set, so its
// real index isn't known until every parameter has been processed.
const mainSetPlaceholder = ^uint32(0)

func descriptorTypeFor(rt RangeType) vk.DescriptorType {
	switch rt {
	case RangeCBV:
		return vk.DescriptorTypeUniformBuffer
	case RangeSampler:
		return vk.DescriptorTypeSampler
	case RangeUAV:
		return vk.DescriptorTypeStorageTexelBuffer
	default: // RangeSRV
		return vk.DescriptorTypeUniformTexelBuffer
	}
}

// builder accumulates descriptor-set-layout bindings for the push set
// and the main set while walking parameters in declaration order.
type builder struct {
	pushBindings []vk.DescriptorSetLayoutBinding
	mainBindings []vk.DescriptorSetLayoutBinding
	mapping      []Mapping
	samplers     []vk.Sampler
}

// Build implements spec.md §4.4's four-step algorithm: walk parameters,
// assign descriptor-set-layout bindings (two per SRV/UAV range), route
// root CBV/SRV/UAV descriptors to a push-descriptor set when available,
// collapse 32-bit constants into per-visibility push-constant ranges
// (one shared range when any parameter uses VisAll), and turn static
// samplers into immutable-sampler bindings. device and
// hasPushDescriptors are supplied by the caller (the root device object
// probes VK_KHR_push_descriptor once at device creation).
func Build(device vk.Device, desc Desc, hasPushDescriptors bool) (*RootSignature, error) {
	if total := desc.TotalCost(); total > 64 {
		return nil, fmt.Errorf("root signature cost %d exceeds 64: %w", total, core.ErrInvalidArg)
	}

	b := &builder{}
	anyVisAll := false
	for _, p := range desc.Parameters {
		if p.Visibility == VisAll {
			anyVisAll = true
		}
	}

	for pi, p := range desc.Parameters {
		switch p.Type {
		case ParamDescriptorTable:
			b.addTable(pi, p)
		case ParamCBV, ParamSRV, ParamUAV:
			b.addRootDescriptor(pi, p, hasPushDescriptors)
		case Param32BitConstants:
			// handled by collectPushConstantRanges below
		}
	}

	ranges := collectPushConstantRanges(desc.Parameters, anyVisAll)

	for _, s := range desc.StaticSamplers {
		sampler, err := createImmutableSampler(device, s)
		if err != nil {
			b.free(device)
			return nil, err
		}
		b.samplers = append(b.samplers, sampler)
		binding := uint32(len(b.mainBindings))
		b.mainBindings = append(b.mainBindings, vk.DescriptorSetLayoutBinding{
			Binding:         binding,
			DescriptorType:  vk.DescriptorTypeSampler,
			DescriptorCount: 1,
			StageFlags:      s.Visibility.stageFlags(),
			PImmutableSamplers: []vk.Sampler{sampler},
		})
	}

	pushLayout, err := createSetLayout(device, b.pushBindings)
	if err != nil {
		b.free(device)
		return nil, err
	}
	mainLayout, err := createSetLayout(device, b.mainBindings)
	if err != nil {
		vk.DestroyDescriptorSetLayout(device, pushLayout, nil)
		b.free(device)
		return nil, err
	}

	setLayouts := []vk.DescriptorSetLayout{}
	usesPush := len(b.pushBindings) > 0
	if usesPush {
		setLayouts = append(setLayouts, pushLayout)
	}
	setLayouts = append(setLayouts, mainLayout)

	// The main set sits at Vulkan set index 1 only when a push-descriptor
	// set precedes it; with no root descriptors routed to push bindings
	// (usesPush == false, the common table-only root signature) it is the
	// only set and binds at index 0.
	mainSet := uint32(0)
	if usesPush {
		mainSet = 1
	}
	for i := range b.mapping {
		if b.mapping[i].Set == mainSetPlaceholder {
			b.mapping[i].Set = mainSet
		}
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if len(ranges) > 0 {
		layoutInfo.PushConstantRangeCount = uint32(len(ranges))
		layoutInfo.PPushConstantRanges = ranges
	}

	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device, &layoutInfo, nil, &pipelineLayout); res != vk.Success {
		vk.DestroyDescriptorSetLayout(device, pushLayout, nil)
		vk.DestroyDescriptorSetLayout(device, mainLayout, nil)
		b.free(device)
		return nil, fmt.Errorf("vkCreatePipelineLayout failed: %w", core.ErrFail)
	}

	rs := &RootSignature{
		PipelineLayout:      pipelineLayout,
		MainSetLayout:       mainLayout,
		PushConstantRanges:  ranges,
		ImmutableSamplers:   b.samplers,
		DescriptorMapping:   b.mapping,
		UsesPushDescriptors: usesPush,
	}
	if usesPush {
		rs.PushSetLayout = pushLayout
	} else {
		vk.DestroyDescriptorSetLayout(device, pushLayout, nil)
	}
	return rs, nil
}

// addTable reserves one Vulkan binding per range (two for SRV/UAV,
// spec.md §4.4 step 1) on the main set and records the mapping entries.
func (b *builder) addTable(paramIndex int, p RootParameter) {
	for ri := range p.Table {
		r := &p.Table[ri]
		first := uint32(len(b.mainBindings))
		r.firstBinding = first
		b.mainBindings = append(b.mainBindings, vk.DescriptorSetLayoutBinding{
			Binding:         first,
			DescriptorType:  descriptorTypeFor(r.Type),
			DescriptorCount: r.NumDescriptors,
			StageFlags:      p.Visibility.stageFlags(),
		})
		m := Mapping{ParameterIndex: paramIndex, RangeIndex: ri, Set: mainSetPlaceholder, Binding: first}
		if r.Type == RangeSRV || r.Type == RangeUAV {
			imgType := vk.DescriptorTypeSampledImage
			if r.Type == RangeUAV {
				imgType = vk.DescriptorTypeStorageImage
			}
			second := uint32(len(b.mainBindings))
			b.mainBindings = append(b.mainBindings, vk.DescriptorSetLayoutBinding{
				Binding:         second,
				DescriptorType:  imgType,
				DescriptorCount: r.NumDescriptors,
				StageFlags:      p.Visibility.stageFlags(),
			})
			m.ImageBinding = second
			m.HasImageBinding = true
		}
		b.mapping = append(b.mapping, m)
	}
}

// addRootDescriptor implements spec.md §4.4 step 2: root CBV/SRV/UAV
// parameters go to the push-descriptor set when available, else fall
// back to an ordinary main-set binding.
func (b *builder) addRootDescriptor(paramIndex int, p RootParameter, hasPushDescriptors bool) {
	rt := RangeCBV
	switch p.Type {
	case ParamSRV:
		rt = RangeSRV
	case ParamUAV:
		rt = RangeUAV
	}
	binding := vk.DescriptorSetLayoutBinding{
		DescriptorType:  descriptorTypeFor(rt),
		DescriptorCount: 1,
		StageFlags:      p.Visibility.stageFlags(),
	}
	if hasPushDescriptors {
		binding.Binding = uint32(len(b.pushBindings))
		b.pushBindings = append(b.pushBindings, binding)
		b.mapping = append(b.mapping, Mapping{ParameterIndex: paramIndex, RangeIndex: -1, Set: 0, Binding: binding.Binding})
		return
	}
	binding.Binding = uint32(len(b.mainBindings))
	b.mainBindings = append(b.mainBindings, binding)
	b.mapping = append(b.mapping, Mapping{ParameterIndex: paramIndex, RangeIndex: -1, Set: mainSetPlaceholder, Binding: binding.Binding})
}

// collectPushConstantRanges implements spec.md §4.4 step 3: pack
// 32-bit-constants parameters into per-visibility push-constant ranges,
// collapsing to one ALL-stages range whenever any parameter requests
// VisAll, since Vulkan forbids a stage from appearing in two ranges.
func collectPushConstantRanges(params []RootParameter, collapse bool) []vk.PushConstantRange {
	var ranges []vk.PushConstantRange
	if collapse {
		var size uint32
		for _, p := range params {
			if p.Type == Param32BitConstants {
				size += p.Num32BitValues * 4
			}
		}
		if size == 0 {
			return nil
		}
		return []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageAllGraphics) | vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       size,
		}}
	}
	byStage := map[vk.ShaderStageFlags]uint32{}
	var order []vk.ShaderStageFlags
	for _, p := range params {
		if p.Type != Param32BitConstants {
			continue
		}
		flags := p.Visibility.stageFlags()
		if _, ok := byStage[flags]; !ok {
			order = append(order, flags)
		}
		byStage[flags] += p.Num32BitValues * 4
	}
	var offset uint32
	for _, flags := range order {
		size := byStage[flags]
		ranges = append(ranges, vk.PushConstantRange{StageFlags: flags, Offset: offset, Size: size})
		offset += size
	}
	return ranges
}

func createSetLayout(device vk.Device, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(device, &info, nil, &layout); res != vk.Success {
		return vk.DescriptorSetLayout(vk.NullHandle), fmt.Errorf("vkCreateDescriptorSetLayout failed: %w", core.ErrFail)
	}
	return layout, nil
}

func createImmutableSampler(device vk.Device, s StaticSampler) (vk.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    s.Filter,
		MinFilter:    s.Filter,
		AddressModeU: s.AddressU,
		AddressModeV: s.AddressV,
		AddressModeW: s.AddressW,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(device, &info, nil, &sampler); res != vk.Success {
		return vk.Sampler(vk.NullHandle), fmt.Errorf("vkCreateSampler failed: %w", core.ErrFail)
	}
	return sampler, nil
}

func (b *builder) free(device vk.Device) {
	for _, s := range b.samplers {
		vk.DestroySampler(device, s, nil)
	}
}

// Destroy releases every Vulkan object owned by rs.
func Destroy(device vk.Device, rs *RootSignature) {
	if rs == nil {
		return
	}
	vk.DestroyPipelineLayout(device, rs.PipelineLayout, nil)
	if rs.PushSetLayout != vk.DescriptorSetLayout(vk.NullHandle) {
		vk.DestroyDescriptorSetLayout(device, rs.PushSetLayout, nil)
	}
	vk.DestroyDescriptorSetLayout(device, rs.MainSetLayout, nil)
	for _, s := range rs.ImmutableSamplers {
		vk.DestroySampler(device, s, nil)
	}
}
