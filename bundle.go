package vkd3d

import "github.com/vkd3d-go/vkd3d/internal/command"

// Bundle is ID3D12GraphicsCommandList recorded with
// D3D12_COMMAND_LIST_TYPE_BUNDLE (spec.md §3, §4.7): a replayable linked
// list of commands captured through a BundleRecorder rather than issued
// directly against a Vulkan command buffer.
type Bundle struct {
	inner *command.Bundle
}

// CreateBundle implements the bundle half of
// ID3D12Device::CreateCommandList.
func (d *Device) CreateBundle() *Bundle {
	return &Bundle{inner: command.NewBundle()}
}

// BundleRecorder is the restricted recording surface a Bundle exposes:
// everything spec.md §4.7 lists as forbidden inside a bundle
// (ResourceBarrier, OMSetRenderTargets, viewport/scissor, ExecuteBundle,
// queries, predication, tile ops) is accepted but dropped with a logged
// warning rather than rejected, matching D3D12 bundle semantics.
type BundleRecorder struct {
	inner *command.Recorder
}

// Record begins (or restarts) recording into b, discarding any
// previously recorded commands.
func (b *Bundle) Record() *BundleRecorder {
	return &BundleRecorder{inner: command.NewRecorder(b.inner)}
}

func (r *BundleRecorder) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	r.inner.DrawInstanced(vertexCount, instanceCount, startVertex, startInstance)
}
func (r *BundleRecorder) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	r.inner.DrawIndexedInstanced(indexCount, instanceCount, startIndex, baseVertex, startInstance)
}
func (r *BundleRecorder) Dispatch(x, y, z uint32) { r.inner.Dispatch(x, y, z) }
func (r *BundleRecorder) SetPipelineState(pso *PipelineState) {
	r.inner.SetPipelineState(pso.state)
}
func (r *BundleRecorder) ResourceBarrier()         { r.inner.ResourceBarrier() }
func (r *BundleRecorder) OMSetRenderTargets()       { r.inner.OMSetRenderTargets() }
func (r *BundleRecorder) RSSetViewportsScissors()   { r.inner.RSSetViewportsScissors() }
func (r *BundleRecorder) ExecuteBundle()            { r.inner.ExecuteBundle() }
func (r *BundleRecorder) SetDescriptorHeaps()       { r.inner.SetDescriptorHeaps() }

// ExecuteBundle implements ID3D12GraphicsCommandList::ExecuteBundle:
// replays every command b captured against l (spec.md §4.6, idempotence
// property in §8).
func (l *GraphicsCommandList) ExecuteBundle(b *Bundle) error {
	return l.list.ExecuteBundle(b.inner)
}
