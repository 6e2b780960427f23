package vkd3d

import (
	"github.com/vkd3d-go/vkd3d/internal/command"
	"github.com/vkd3d-go/vkd3d/internal/pipeline"
	"github.com/vkd3d-go/vkd3d/internal/resource"
)

// CommandAllocator is ID3D12CommandAllocator (spec.md §3, §4.6): a
// thread-owned pool of Vulkan command buffers plus the transient objects
// (framebuffers) recorded work allocates, all reclaimed at Reset.
type CommandAllocator struct {
	alloc *command.Allocator
}

// CreateCommandAllocator implements ID3D12Device::CreateCommandAllocator.
// cq's Vulkan queue family backs the allocator's command pool, since a
// D3D12 allocator is bound to one list type (and therefore one queue)
// for its lifetime.
func (d *Device) CreateCommandAllocator(cq *CommandQueue) (*CommandAllocator, error) {
	a, err := command.NewAllocator(d.handle, cq.QueueFamily())
	if err != nil {
		return nil, err
	}
	return &CommandAllocator{alloc: a}, nil
}

// Reset implements ID3D12CommandAllocator::Reset: reclaims every command
// buffer and transient object (framebuffers) this allocator lent out.
// The caller must ensure none of them are still referenced by
// in-flight GPU work (spec.md §3's Command allocator invariant).
func (a *CommandAllocator) Reset() error { return a.alloc.Reset() }

// Destroy releases the underlying Vulkan command pool and everything it
// owns.
func (a *CommandAllocator) Destroy() { a.alloc.Destroy() }

// GraphicsCommandList is ID3D12GraphicsCommandList (spec.md §3, §4.6):
// the per-list recording state machine, producing either a primary
// Vulkan command buffer (for a real list) or deferred records (for a
// Bundle's Recorder, see bundle.go).
type GraphicsCommandList struct {
	d    *Device
	list *command.List
}

// CreateCommandList implements ID3D12Device::CreateCommandList1 (the
// allocator-less overload is covered by Reset below). initialPSO may be
// nil.
func (d *Device) CreateCommandList(alloc *CommandAllocator, initialPSO *PipelineState) (*GraphicsCommandList, error) {
	var pso *pipeline.State
	if initialPSO != nil {
		pso = initialPSO.state
	}
	l, err := command.NewList(d.handle, alloc.alloc, pso)
	if err != nil {
		return nil, err
	}
	return &GraphicsCommandList{d: d, list: l}, nil
}

// Reset implements ID3D12GraphicsCommandList::Reset (Closed/Initial →
// Recording).
func (l *GraphicsCommandList) Reset(alloc *CommandAllocator, initialPSO *PipelineState) error {
	var pso *pipeline.State
	if initialPSO != nil {
		pso = initialPSO.state
	}
	return l.list.Reset(alloc.alloc, pso)
}

// Close implements ID3D12GraphicsCommandList::Close (Recording → Closed).
func (l *GraphicsCommandList) Close() error { return l.list.Close() }

// SetPipelineState implements ID3D12GraphicsCommandList::SetPipelineState.
func (l *GraphicsCommandList) SetPipelineState(pso *PipelineState) {
	l.list.SetPipelineState(pso.state)
}

// SetGraphicsRootSignature/SetComputeRootSignature implement the two
// ID3D12GraphicsCommandList binding-point root-signature setters.
func (l *GraphicsCommandList) SetGraphicsRootSignature(rs *RootSignature) {
	l.list.SetRootSignature(false, rs.inner, rs.desc)
}
func (l *GraphicsCommandList) SetComputeRootSignature(rs *RootSignature) {
	l.list.SetRootSignature(true, rs.inner, rs.desc)
}

// SetGraphicsRoot32BitConstants/SetComputeRoot32BitConstants implement
// ID3D12GraphicsCommandList::SetXxxRoot32BitConstants.
func (l *GraphicsCommandList) SetGraphicsRoot32BitConstants(paramIndex int, values []uint32) {
	l.list.SetRoot32BitConstants(false, paramIndex, values)
}
func (l *GraphicsCommandList) SetComputeRoot32BitConstants(paramIndex int, values []uint32) {
	l.list.SetRoot32BitConstants(true, paramIndex, values)
}

// SetGraphicsRootConstantBufferView/SetComputeRootConstantBufferView
// implement the root-CBV setters (consumed via the push-descriptor set
// or the main set, per rootsig.Build's routing decision).
func (l *GraphicsCommandList) SetGraphicsRootConstantBufferView(paramIndex int, res *Resource, offset uint64) {
	l.list.SetRootDescriptor(false, paramIndex, res.inner, offset)
}
func (l *GraphicsCommandList) SetComputeRootConstantBufferView(paramIndex int, res *Resource, offset uint64) {
	l.list.SetRootDescriptor(true, paramIndex, res.inner, offset)
}

// ResourceBarrier implements ID3D12GraphicsCommandList::ResourceBarrier
// for the common single-transition case (spec.md §4.6).
func (l *GraphicsCommandList) ResourceBarrier(res *Resource, after command.ResourceState) error {
	return l.list.ResourceBarrier(res.inner, after)
}

// DrawInstanced/DrawIndexedInstanced/Dispatch implement the three draw
// entry points spec.md §4.6/§8 exercise directly.
func (l *GraphicsCommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	l.list.DrawInstanced(vertexCount, instanceCount, startVertex, startInstance)
}
func (l *GraphicsCommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	l.list.DrawIndexedInstanced(indexCount, instanceCount, startIndex, baseVertex, startInstance)
}
func (l *GraphicsCommandList) Dispatch(x, y, z uint32) { l.list.Dispatch(x, y, z) }

// resourceForVA resolves a GPU-VA argument (e.g. an indirect argument
// buffer address read from a root constant) back to the owning Resource,
// the operation spec.md §4.2 names deref(va) -> resource?.
func (d *Device) resourceForVA(va uint64) (*resource.Resource, bool) {
	return d.Resources.Deref(va)
}
