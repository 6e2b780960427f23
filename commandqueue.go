package vkd3d

import (
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/internal/command"
	"github.com/vkd3d-go/vkd3d/internal/queue"
)

// QueueKind mirrors D3D12_COMMAND_LIST_TYPE for the subset of queue roles
// this layer maps onto a distinct Vulkan queue family.
type QueueKind int

const (
	QueueDirect QueueKind = iota
	QueueCompute
	QueueCopy
)

// CommandQueue is ID3D12CommandQueue (spec.md §3, §4.8): a thin wrapper
// around internal/queue.Queue that resolves which Vulkan queue/family a
// given QueueKind submits through and hands the device's shared fence
// worker to every queue it creates.
type CommandQueue struct {
	kind   QueueKind
	family uint32
	q      *queue.Queue
}

// CreateCommandQueue implements ID3D12Device::CreateCommandQueue. Every
// queue shares the device's single fenceworker.Worker (spec.md §4.9
// allows one worker per device or per queue; this module picks per
// device, matching the "configurable" note) so GPU-completion polling
// stays centralized regardless of how many D3D12 queues the application
// opens.
func (d *Device) CreateCommandQueue(kind QueueKind, mailboxCapacity int) *CommandQueue {
	var vkQueue vk.Queue
	var family uint32
	switch kind {
	case QueueCompute:
		vkQueue, family = d.computeQueue, d.computeQueueFamily
	case QueueCopy:
		vkQueue, family = d.transferQueue, d.transferQueueFamily
	default:
		vkQueue, family = d.graphicsQueue, d.graphicsQueueFamily
	}

	id := d.nextQueueID
	d.nextQueueID++

	if mailboxCapacity <= 0 {
		mailboxCapacity = 64
	}
	q := queue.NewQueue(id, d.handle, vkQueue, d.FenceWorker, mailboxCapacity, d.Profiler)
	return &CommandQueue{kind: kind, family: family, q: q}
}

// QueueFamily reports the Vulkan queue family this queue submits
// through, consulted by CreateCommandAllocator so its command pool is
// created against the matching family.
func (cq *CommandQueue) QueueFamily() uint32 { return cq.family }

// ExecuteCommandLists implements ID3D12CommandQueue::ExecuteCommandLists
// (spec.md §4.8 step 3): every list must already be Closed.
func (cq *CommandQueue) ExecuteCommandLists(lists ...*GraphicsCommandList) error {
	internal := make([]*command.List, len(lists))
	for i, l := range lists {
		internal[i] = l.list
	}
	done := make(chan error, 1)
	cq.q.ExecuteCommandLists(queue.ExecuteCommandLists{Lists: internal, Done: done})
	return <-done
}

// Signal implements ID3D12CommandQueue::Signal.
func (cq *CommandQueue) Signal(f *Fence, value uint64) {
	cq.q.Signal(queue.SignalRecord{Fence: f.inner, Value: value})
}

// Wait implements ID3D12CommandQueue::Wait: a wait for a value f has not
// yet reached is legal and is resolved out-of-order by the submission
// thread against whichever queue eventually signals it (spec.md §4.8's
// ordering guarantees, §5, §8).
func (cq *CommandQueue) Wait(f *Fence, value uint64) {
	cq.q.Wait(queue.WaitRecord{Fence: f.inner, Value: value})
}

// Present implements IDXGISwapChain::Present's queue-serialized half: the
// vkQueuePresentKHR call itself, ordered with respect to the rendering
// work that produced imageIndex (spec.md §4.8, §6's DXGI collaborator).
func (cq *CommandQueue) Present(swapchain vk.Swapchain, imageIndex uint32) error {
	done := make(chan error, 1)
	cq.q.Present(queue.PresentRecord{Swapchain: swapchain, ImageIndex: imageIndex, Done: done})
	return <-done
}

// Close drains this queue's mailbox, waiting for every already-enqueued
// record to reach the GPU before returning (spec.md §4.8's teardown
// contract; does not wait for GPU completion — wait on a Fence for that).
func (cq *CommandQueue) Close() {
	cq.q.Shutdown()
}
