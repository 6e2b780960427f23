package vkd3d

import "github.com/vkd3d-go/vkd3d/internal/queue"

// Fence is ID3D12Fence (spec.md §3): a monotonic counter with pending
// (value, host-event) waiters, backed here by internal/queue.Fence's
// CPU-signaled implementation. A fence driven entirely by GPU
// Signal/Wait records never needs anything beyond that: the submission
// thread calls Fence.Signal once it observes the matching GPU batch
// complete (via the fence worker), so SetEventOnCompletion/Signal work
// identically whether the advance came from the application or the GPU.
type Fence struct {
	inner *queue.Fence
}

// CreateFence implements ID3D12Device::CreateFence.
func (d *Device) CreateFence(initialValue uint64) *Fence {
	return &Fence{inner: queue.NewFence(initialValue)}
}

// GetCompletedValue implements ID3D12Fence::GetCompletedValue.
func (f *Fence) GetCompletedValue() uint64 { return f.inner.GetCompletedValue() }

// SetEventOnCompletion implements ID3D12Fence::SetEventOnCompletion. If
// value has already been reached, event fires before this call returns
// (spec.md §5's "value less than current fence value fires immediately"
// rule); otherwise it fires exactly once, no earlier than when the GPU
// reaches value (spec.md §4.9's contract, §8's round-trip property).
func (f *Fence) SetEventOnCompletion(value uint64, event chan struct{}) {
	f.inner.SetEventOnCompletion(value, event)
}

// Signal implements ID3D12Fence::Signal(UINT64): the CPU-signaled path
// spec.md §3 describes as a fallback when the application writes a fence
// value directly rather than through GPU completion.
func (f *Fence) Signal(value uint64) { f.inner.Signal(value) }
