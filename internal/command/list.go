package command

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/pipeline"
	"github.com/vkd3d-go/vkd3d/internal/resource"
	"github.com/vkd3d-go/vkd3d/internal/rootsig"
)

// rootBinding is the per-bind-point binding state SetGraphics/ComputeRoot*
// mutate, flushed lazily at the next draw/dispatch per spec.md §4.6.
type rootBinding struct {
	rs   *rootsig.RootSignature
	desc rootsig.Desc

	tableSet  map[int]vk.DescriptorSet
	rootCBV   map[int]rootDescriptorValue
	constants map[int][]uint32

	dirtyTables    map[int]bool
	dirtyRootDescs map[int]bool
	dirtyConstants map[int]bool
}

type rootDescriptorValue struct {
	res    *resource.Resource
	offset uint64
}

func newRootBinding() *rootBinding {
	return &rootBinding{
		tableSet:       map[int]vk.DescriptorSet{},
		rootCBV:        map[int]rootDescriptorValue{},
		constants:      map[int][]uint32{},
		dirtyTables:    map[int]bool{},
		dirtyRootDescs: map[int]bool{},
		dirtyConstants: map[int]bool{},
	}
}

// List is the GraphicsCommandList state machine from spec.md §4.6.
type List struct {
	device    vk.Device
	alloc     *Allocator
	cmd       vk.CommandBuffer
	state     ListState
	invalid   bool
	mainSet   vk.DescriptorSet
	inRenderPass bool

	tracked map[core.ID]trackedState

	graphics *rootBinding
	compute  *rootBinding
	boundPipeline *pipeline.State
}

// NewList allocates a command buffer from alloc and immediately Resets
// the list into the Recording state, matching D3D12's CreateCommandList
// contract (an initial PSO is bound immediately if provided, as in Reset).
func NewList(device vk.Device, alloc *Allocator, initialPSO *pipeline.State) (*List, error) {
	cmd, err := alloc.newCommandBuffer()
	if err != nil {
		return nil, err
	}
	l := &List{
		device:  device,
		alloc:   alloc,
		cmd:     cmd,
		state:   StateInitial,
		tracked: map[core.ID]trackedState{},
	}
	if err := l.Reset(alloc, initialPSO); err != nil {
		return nil, err
	}
	return l, nil
}

// Reset implements spec.md §4.6's Closed/Initial → Recording transition.
func (l *List) Reset(alloc *Allocator, initialPSO *pipeline.State) error {
	if l.state == StateRecording {
		l.invalid = true
		core.LogError("Reset called on a list that is already Recording")
		return fmt.Errorf("command list reset while recording: %w", core.ErrFail)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(l.cmd, &beginInfo); res != vk.Success {
		return fmt.Errorf("vkBeginCommandBuffer failed: %w", core.ErrFail)
	}
	l.state = StateRecording
	l.invalid = false
	l.inRenderPass = false
	l.tracked = map[core.ID]trackedState{}
	l.graphics = newRootBinding()
	l.compute = newRootBinding()
	l.boundPipeline = nil
	if initialPSO != nil {
		l.bindPipeline(initialPSO)
	}
	return nil
}

// Close implements spec.md §4.6's Recording → Closed transition.
func (l *List) Close() error {
	if l.state != StateRecording {
		core.LogError("Close called on a list that is not Recording")
		return fmt.Errorf("command list close while not recording: %w", core.ErrFail)
	}
	if l.inRenderPass {
		vk.CmdEndRenderPass(l.cmd)
		l.inRenderPass = false
	}
	if res := vk.EndCommandBuffer(l.cmd); res != vk.Success {
		return fmt.Errorf("vkEndCommandBuffer failed: %w", core.ErrFail)
	}
	l.state = StateClosed
	return nil
}

// MarkSubmitted is called by the queue once the list's command buffer
// has been handed to vkQueueSubmit.
func (l *List) MarkSubmitted() { l.state = StateSubmitted }

// CommandBuffer exposes the underlying Vulkan handle for the queue's
// ExecuteCommandLists batching.
func (l *List) CommandBuffer() vk.CommandBuffer { return l.cmd }

func (l *List) bindingFor(computeBindPoint bool) *rootBinding {
	if computeBindPoint {
		return l.compute
	}
	return l.graphics
}

// SetRootSignature records the root signature + its parsed description
// for the given bind point; both are needed to flush dirty bindings at
// draw/dispatch time since push-constant offsets depend on the
// parameter layout, not just the compiled Vulkan objects.
func (l *List) SetRootSignature(computeBindPoint bool, rs *rootsig.RootSignature, desc rootsig.Desc) {
	b := newRootBinding()
	b.rs = rs
	b.desc = desc
	if computeBindPoint {
		l.compute = b
	} else {
		l.graphics = b
	}
}

// SetRootDescriptorTable implements SetGraphics/ComputeRootDescriptorTable:
// mark the table's set dirty for the next flush.
func (l *List) SetRootDescriptorTable(computeBindPoint bool, paramIndex int, set vk.DescriptorSet) {
	b := l.bindingFor(computeBindPoint)
	b.tableSet[paramIndex] = set
	b.dirtyTables[paramIndex] = true
}

// SetRoot32BitConstants implements SetGraphics/ComputeRoot32BitConstants.
func (l *List) SetRoot32BitConstants(computeBindPoint bool, paramIndex int, values []uint32) {
	b := l.bindingFor(computeBindPoint)
	b.constants[paramIndex] = values
	b.dirtyConstants[paramIndex] = true
}

// SetRootDescriptor implements SetGraphics/ComputeRootConstantBufferView
// /ShaderResourceView/UnorderedAccessView: all three resolve to the same
// "root descriptor" binding shape at the Vulkan level (spec.md §4.4).
func (l *List) SetRootDescriptor(computeBindPoint bool, paramIndex int, res *resource.Resource, offset uint64) {
	b := l.bindingFor(computeBindPoint)
	b.rootCBV[paramIndex] = rootDescriptorValue{res: res, offset: offset}
	b.dirtyRootDescs[paramIndex] = true
}

// flushRootBindings implements spec.md §4.6's "dirty descriptors are
// flushed at the next draw/dispatch" rule: table slots via
// vkCmdBindDescriptorSets, root descriptors via vkCmdPushDescriptorSetKHR
// (or a main-set update when push descriptors aren't in use), and
// 32-bit constants via vkCmdPushConstants.
func (l *List) flushRootBindings(bindPoint vk.PipelineBindPoint, computeBindPoint bool) {
	b := l.bindingFor(computeBindPoint)
	if b.rs == nil {
		return
	}
	for paramIndex := range b.dirtyTables {
		m := findMapping(b.rs.DescriptorMapping, paramIndex)
		set := b.tableSet[paramIndex]
		vk.CmdBindDescriptorSets(l.cmd, bindPoint, b.rs.PipelineLayout, m.Set, 1, []vk.DescriptorSet{set}, 0, nil)
		delete(b.dirtyTables, paramIndex)
	}
	for paramIndex := range b.dirtyRootDescs {
		v := b.rootCBV[paramIndex]
		m := findMapping(b.rs.DescriptorMapping, paramIndex)
		bufInfo := vk.DescriptorBufferInfo{Buffer: v.res.Buffer, Offset: vk.DeviceSize(v.offset), Range: vk.DeviceSize(vk.WholeSize)}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstBinding:      m.Binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufInfo},
		}
		if b.rs.UsesPushDescriptors {
			vk.CmdPushDescriptorSetKHR(l.cmd, bindPoint, b.rs.PipelineLayout, m.Set, 1, []vk.WriteDescriptorSet{write})
		} else {
			write.DstSet = l.mainSet
			vk.UpdateDescriptorSets(l.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
			vk.CmdBindDescriptorSets(l.cmd, bindPoint, b.rs.PipelineLayout, m.Set, 1, []vk.DescriptorSet{l.mainSet}, 0, nil)
		}
		delete(b.dirtyRootDescs, paramIndex)
	}
	for paramIndex := range b.dirtyConstants {
		values := b.constants[paramIndex]
		off, stageFlags, ok := pushConstantLocation(b.desc, paramIndex)
		if !ok {
			core.LogWarn("no push-constant range resolved for root parameter %d", paramIndex)
			delete(b.dirtyConstants, paramIndex)
			continue
		}
		vk.CmdPushConstants(l.cmd, b.rs.PipelineLayout, stageFlags, off, uint32(len(values)*4), unsafe.Pointer(&values[0]))
		delete(b.dirtyConstants, paramIndex)
	}
}

func findMapping(mappings []rootsig.Mapping, paramIndex int) rootsig.Mapping {
	for _, m := range mappings {
		if m.ParameterIndex == paramIndex && m.RangeIndex <= 0 {
			return m
		}
	}
	return rootsig.Mapping{}
}

// pushConstantLocation recomputes the byte offset and stage flags for a
// given Param32BitConstants parameter using the same collapse/split rule
// rootsig.Build applies when constructing vk.PushConstantRanges, so the
// list doesn't need the already-built ranges threaded back through a
// parameter index it wasn't given.
func pushConstantLocation(desc rootsig.Desc, paramIndex int) (offset uint32, stageFlags vk.ShaderStageFlags, ok bool) {
	anyVisAll := false
	for _, p := range desc.Parameters {
		if p.Type == rootsig.Param32BitConstants && p.Visibility == rootsig.VisAll {
			anyVisAll = true
		}
	}
	if anyVisAll {
		if paramIndex < 0 || paramIndex >= len(desc.Parameters) || desc.Parameters[paramIndex].Type != rootsig.Param32BitConstants {
			return 0, 0, false
		}
		return 0, vk.ShaderStageFlags(vk.ShaderStageAllGraphics) | vk.ShaderStageFlags(vk.ShaderStageComputeBit), true
	}

	type group struct {
		stage  vk.ShaderStageFlags
		offset uint32
	}
	var groups []group
	offset = 0
	for i, p := range desc.Parameters {
		if p.Type != rootsig.Param32BitConstants {
			continue
		}
		stage := p.Visibility.StageFlags()
		var found *group
		for gi := range groups {
			if groups[gi].stage == stage {
				found = &groups[gi]
				break
			}
		}
		if found == nil {
			groups = append(groups, group{stage: stage, offset: offset})
			found = &groups[len(groups)-1]
		}
		if i == paramIndex {
			return found.offset, stage, true
		}
		offset += p.Num32BitValues * 4
	}
	return 0, 0, false
}

func (l *List) bindPipeline(p *pipeline.State) {
	bindPoint := vk.PipelineBindPointGraphics
	if p.Kind == pipeline.KindCompute {
		bindPoint = vk.PipelineBindPointCompute
	}
	vk.CmdBindPipeline(l.cmd, bindPoint, p.Handle)
	l.boundPipeline = p
}

// SetPipelineState implements ID3D12GraphicsCommandList::SetPipelineState.
func (l *List) SetPipelineState(p *pipeline.State) {
	l.bindPipeline(p)
}

// DrawInstanced implements ID3D12GraphicsCommandList::DrawInstanced,
// flushing dirty graphics root bindings first.
func (l *List) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	l.flushRootBindings(vk.PipelineBindPointGraphics, false)
	vk.CmdDraw(l.cmd, vertexCount, instanceCount, startVertex, startInstance)
}

// DrawIndexedInstanced implements
// ID3D12GraphicsCommandList::DrawIndexedInstanced.
func (l *List) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	l.flushRootBindings(vk.PipelineBindPointGraphics, false)
	vk.CmdDrawIndexed(l.cmd, indexCount, instanceCount, startIndex, baseVertex, startInstance)
}

// Dispatch implements ID3D12GraphicsCommandList::Dispatch.
func (l *List) Dispatch(x, y, z uint32) {
	l.flushRootBindings(vk.PipelineBindPointCompute, true)
	vk.CmdDispatch(l.cmd, x, y, z)
}

// OMSetRenderTargets implements spec.md §4.6's contract: end any open
// render pass, lazily create (or reuse) a framebuffer for the given
// attachment tuple, then immediately begin the new render pass against it.
func (l *List) OMSetRenderTargets(rp vk.RenderPass, width, height uint32, views []vk.ImageView, clearValues []vk.ClearValue) error {
	if l.inRenderPass {
		vk.CmdEndRenderPass(l.cmd)
		l.inRenderPass = false
	}
	fb, err := l.alloc.framebufferFor(rp, width, height, views)
	if err != nil {
		return err
	}
	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp,
		Framebuffer:     fb,
		RenderArea:      vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(l.cmd, &beginInfo, vk.SubpassContentsInline)
	l.inRenderPass = true
	return nil
}
