package pipeline

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
)

func shaderStage(device vk.Device, stage vk.ShaderStageFlagBits, s *Shader) (vk.PipelineShaderStageCreateInfo, vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(s.SPIRV) * 4),
		PCode:    s.SPIRV,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(device, &info, nil, &module); res != vk.Success {
		return vk.PipelineShaderStageCreateInfo{}, vk.ShaderModule(vk.NullHandle), fmt.Errorf("vkCreateShaderModule failed: %w", core.ErrFail)
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  s.Entry + "\x00",
	}, module, nil
}

func cullModeFlags(c CullMode) vk.CullModeFlags {
	switch c {
	case CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case CullBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	default:
		return vk.CullModeFlags(vk.CullModeNone)
	}
}

func colorBlendAttachment(b RenderTargetBlend) vk.PipelineColorBlendAttachmentState {
	mask := b.WriteMask
	if mask == 0 {
		mask = vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit)
	}
	return vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.Bool32(boolToUint32(b.BlendEnable)),
		SrcColorBlendFactor: b.SrcBlend,
		DstColorBlendFactor: b.DstBlend,
		ColorBlendOp:        b.BlendOp,
		SrcAlphaBlendFactor: b.SrcBlendAlpha,
		DstAlphaBlendFactor: b.DstBlendAlpha,
		AlphaBlendOp:        b.BlendOpAlpha,
		ColorWriteMask:      mask,
	}
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// buildCompatRenderPass synthesizes the "compatibility-only" render pass
// spec.md §4.5 describes: its sole purpose is compiling the pipeline,
// attachment list is [DSV?, RT0, ..., RTn], load/store ops are generic
// since the command list rebuilds the real pass at bind time.
func buildCompatRenderPass(device vk.Device, key CompatKey, rtFormats []vk.Format) (vk.RenderPass, error) {
	var attachments []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference
	for i, f := range rtFormats {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         f,
			Samples:        sampleCountBit(key.SampleCount),
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{Attachment: uint32(i), Layout: vk.ImageLayoutColorAttachmentOptimal})
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if key.DSVFormat != vk.FormatUndefined {
		idx := uint32(len(attachments))
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         key.DSVFormat,
			Samples:        sampleCountBit(key.SampleCount),
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		ref := vk.AttachmentReference{Attachment: idx, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
		subpass.PDepthStencilAttachment = &ref
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	var rp vk.RenderPass
	if res := vk.CreateRenderPass(device, &info, nil, &rp); res != vk.Success {
		return vk.RenderPass(vk.NullHandle), fmt.Errorf("vkCreateRenderPass failed: %w", core.ErrFail)
	}
	return rp, nil
}

func sampleCountBit(count uint32) vk.SampleCountFlagBits {
	switch count {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	default:
		return vk.SampleCount1Bit
	}
}

// BuildGraphics implements spec.md §4.5's graphics-pipeline algorithm:
// resolve APPEND_ALIGNED_ELEMENT input offsets, translate rasterizer /
// depth-stencil / blend state, synthesize the compatibility render pass,
// and compile the pipeline, generalizing the teacher's
// NewGraphicsPipeline to a data-driven stage list and render-target
// count instead of one hardcoded viewport/scissor/layout triple.
func BuildGraphics(device vk.Device, layout vk.PipelineLayout, desc GraphicsDesc) (*State, error) {
	var stages []vk.PipelineShaderStageCreateInfo
	var modules []vk.ShaderModule
	cleanup := func() {
		for _, m := range modules {
			vk.DestroyShaderModule(device, m, nil)
		}
	}
	add := func(bit vk.ShaderStageFlagBits, s *Shader) error {
		if s == nil {
			return nil
		}
		info, module, err := shaderStage(device, bit, s)
		if err != nil {
			return err
		}
		stages = append(stages, info)
		modules = append(modules, module)
		return nil
	}
	if err := add(vk.ShaderStageVertexBit, desc.VS); err != nil {
		cleanup()
		return nil, err
	}
	if err := add(vk.ShaderStageFragmentBit, desc.PS); err != nil {
		cleanup()
		return nil, err
	}
	if err := add(vk.ShaderStageGeometryBit, desc.GS); err != nil {
		cleanup()
		return nil, err
	}
	if err := add(vk.ShaderStageTessellationControlBit, desc.HS); err != nil {
		cleanup()
		return nil, err
	}
	if err := add(vk.ShaderStageTessellationEvaluationBit, desc.DS); err != nil {
		cleanup()
		return nil, err
	}

	elems := resolveOffsets(desc.InputLayout.Elements)
	bindingSet := map[uint32]bool{}
	var bindings []vk.VertexInputBindingDescription
	var attrs []vk.VertexInputAttributeDescription
	for i, e := range elems {
		if !bindingSet[e.InputSlot] {
			bindingSet[e.InputSlot] = true
			rate := vk.VertexInputRateVertex
			if e.PerInstance {
				rate = vk.VertexInputRateInstance
			}
			bindings = append(bindings, vk.VertexInputBindingDescription{Binding: e.InputSlot, InputRate: rate})
		}
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  e.InputSlot,
			Format:   e.Format,
			Offset:   e.AlignedByteOffset,
		})
	}
	// Strides are computed as the highest offset+size seen per slot.
	strideBySlot := map[uint32]uint32{}
	for _, e := range elems {
		end := e.AlignedByteOffset + formatByteSize(e.Format)
		if end > strideBySlot[e.InputSlot] {
			strideBySlot[e.InputSlot] = end
		}
	}
	for i := range bindings {
		bindings[i].Stride = strideBySlot[bindings[i].Binding]
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: desc.Topology,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    cullModeFlags(desc.Rasterizer.Cull),
		FrontFace:   vk.FrontFaceClockwise,
	}
	if desc.Rasterizer.Fill == FillWireframe {
		rasterizer.PolygonMode = vk.PolygonModeLine
	}
	if desc.Rasterizer.FrontCounterClockwise {
		rasterizer.FrontFace = vk.FrontFaceCounterClockwise
	}
	if desc.Rasterizer.DepthBiasEnable {
		rasterizer.DepthBiasEnable = vk.True
		rasterizer.DepthBiasConstantFactor = desc.Rasterizer.DepthBiasConstant
		rasterizer.DepthBiasClamp = desc.Rasterizer.DepthBiasClamp
		rasterizer.DepthBiasSlopeFactor = desc.Rasterizer.DepthBiasSlope
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: sampleCountBit(desc.SampleCount),
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if desc.DepthStencil.DepthEnable {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = desc.DepthStencil.DepthFunc
		if desc.DepthStencil.DepthWriteMask {
			depthStencil.DepthWriteEnable = vk.True
		}
	}
	if desc.DepthStencil.StencilEnable {
		depthStencil.StencilTestEnable = vk.True
	}

	var attachments []vk.PipelineColorBlendAttachmentState
	for i := range desc.RTVFormats {
		attachments = append(attachments, colorBlendAttachment(desc.Blend.RenderTarget[i]))
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
	}

	dynStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynStates)),
		PDynamicStates:    dynStates,
	}

	key := NewCompatKey(desc.RTVFormats, desc.DSVFormat, desc.SampleCount)
	rp, err := buildCompatRenderPass(device, key, desc.RTVFormats)
	if err != nil {
		cleanup()
		return nil, err
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          rp,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines); res != vk.Success {
		vk.DestroyRenderPass(device, rp, nil)
		cleanup()
		return nil, fmt.Errorf("vkCreateGraphicsPipelines failed: %w", core.ErrFail)
	}
	cleanup()

	return &State{Kind: KindGraphics, Handle: pipelines[0], Layout: layout, CompatRenderPass: rp, CompatKey: key}, nil
}

// BuildCompute implements spec.md §4.5's compute algorithm: when
// desc.UAVCounterMask is non-zero, append an extra descriptor-set layout
// of storage-texel-buffer bindings (one per set bit) and build a
// compound pipeline layout extending baseLayout's set list.
func BuildCompute(device vk.Device, baseLayout vk.PipelineLayout, baseSets []vk.DescriptorSetLayout, desc ComputeDesc) (*State, error) {
	if desc.CS == nil {
		return nil, fmt.Errorf("compute pipeline requires a compute shader: %w", core.ErrInvalidArg)
	}
	stageInfo, module, err := shaderStage(device, vk.ShaderStageComputeBit, desc.CS)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(device, module, nil)

	layout := baseLayout
	var uavSet vk.DescriptorSetLayout
	if desc.UAVCounterMask != 0 {
		var bindings []vk.DescriptorSetLayoutBinding
		binding := uint32(0)
		for bit := 0; bit < 64; bit++ {
			if desc.UAVCounterMask&(1<<uint(bit)) == 0 {
				continue
			}
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         binding,
				DescriptorType:  vk.DescriptorTypeStorageTexelBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			})
			binding++
		}
		layoutInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		if res := vk.CreateDescriptorSetLayout(device, &layoutInfo, nil, &uavSet); res != vk.Success {
			return nil, fmt.Errorf("vkCreateDescriptorSetLayout for UAV counters failed: %w", core.ErrFail)
		}
		sets := append(append([]vk.DescriptorSetLayout{}, baseSets...), uavSet)
		plInfo := vk.PipelineLayoutCreateInfo{
			SType:          vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount: uint32(len(sets)),
			PSetLayouts:    sets,
		}
		if res := vk.CreatePipelineLayout(device, &plInfo, nil, &layout); res != vk.Success {
			vk.DestroyDescriptorSetLayout(device, uavSet, nil)
			return nil, fmt.Errorf("vkCreatePipelineLayout failed: %w", core.ErrFail)
		}
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stageInfo,
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(device, vk.PipelineCache(vk.NullHandle), 1, []vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines); res != vk.Success {
		if layout != baseLayout {
			vk.DestroyPipelineLayout(device, layout, nil)
			vk.DestroyDescriptorSetLayout(device, uavSet, nil)
		}
		return nil, fmt.Errorf("vkCreateComputePipelines failed: %w", core.ErrFail)
	}

	return &State{Kind: KindCompute, Handle: pipelines[0], Layout: layout, UAVCounterSet: uavSet}, nil
}

// BuildMesh implements spec.md §4.5's mesh-graphics algorithm: reject
// pipelines that also specify VS/HS/DS/GS, ignore input-assembly state
// (mesh pipelines have no vertex/index input stage), allow AS+MS+PS.
func BuildMesh(device vk.Device, layout vk.PipelineLayout, desc MeshDesc, hasVSHSDSGS bool) (*State, error) {
	if hasVSHSDSGS {
		return nil, fmt.Errorf("mesh pipeline cannot combine with VS/HS/DS/GS: %w", core.ErrInvalidArg)
	}
	if desc.MS == nil {
		return nil, fmt.Errorf("mesh pipeline requires a mesh shader: %w", core.ErrInvalidArg)
	}
	var stages []vk.PipelineShaderStageCreateInfo
	var modules []vk.ShaderModule
	cleanup := func() {
		for _, m := range modules {
			vk.DestroyShaderModule(device, m, nil)
		}
	}
	add := func(bit vk.ShaderStageFlagBits, s *Shader) error {
		if s == nil {
			return nil
		}
		info, module, err := shaderStage(device, bit, s)
		if err != nil {
			return err
		}
		stages = append(stages, info)
		modules = append(modules, module)
		return nil
	}
	if err := add(vk.ShaderStageTaskBitEXT, desc.AS); err != nil {
		cleanup()
		return nil, err
	}
	if err := add(vk.ShaderStageMeshBitEXT, desc.MS); err != nil {
		cleanup()
		return nil, err
	}
	if err := add(vk.ShaderStageFragmentBit, desc.PS); err != nil {
		cleanup()
		return nil, err
	}

	key := NewCompatKey(desc.RTVFormats, desc.DSVFormat, 1)
	rp, err := buildCompatRenderPass(device, key, desc.RTVFormats)
	if err != nil {
		cleanup()
		return nil, err
	}

	viewportState := vk.PipelineViewportStateCreateInfo{SType: vk.StructureTypePipelineViewportStateCreateInfo, ViewportCount: 1, ScissorCount: 1}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{SType: vk.StructureTypePipelineRasterizationStateCreateInfo, PolygonMode: vk.PolygonModeFill, LineWidth: 1.0}
	multisample := vk.PipelineMultisampleStateCreateInfo{SType: vk.StructureTypePipelineMultisampleStateCreateInfo, RasterizationSamples: vk.SampleCount1Bit, MinSampleShading: 1.0}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{SType: vk.StructureTypePipelineDepthStencilStateCreateInfo}
	var colorAttachments []vk.PipelineColorBlendAttachmentState
	for range desc.RTVFormats {
		colorAttachments = append(colorAttachments, colorBlendAttachment(RenderTargetBlend{}))
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{SType: vk.StructureTypePipelineColorBlendStateCreateInfo, AttachmentCount: uint32(len(colorAttachments)), PAttachments: colorAttachments}
	dynStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{SType: vk.StructureTypePipelineDynamicStateCreateInfo, DynamicStateCount: uint32(len(dynStates)), PDynamicStates: dynStates}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          rp,
		BasePipelineIndex:   -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines); res != vk.Success {
		vk.DestroyRenderPass(device, rp, nil)
		cleanup()
		return nil, fmt.Errorf("vkCreateGraphicsPipelines (mesh) failed: %w", core.ErrFail)
	}
	cleanup()
	return &State{Kind: KindMesh, Handle: pipelines[0], Layout: layout, CompatRenderPass: rp, CompatKey: key}, nil
}

// Destroy releases every Vulkan object owned by s.
func Destroy(device vk.Device, s *State) {
	if s == nil {
		return
	}
	vk.DestroyPipeline(device, s.Handle, nil)
	if s.CompatRenderPass != vk.RenderPass(vk.NullHandle) {
		vk.DestroyRenderPass(device, s.CompatRenderPass, nil)
	}
	if s.UAVCounterSet != vk.DescriptorSetLayout(vk.NullHandle) {
		vk.DestroyDescriptorSetLayout(device, s.UAVCounterSet, nil)
	}
}
