package queue

import (
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/internal/command"
)

// record is one of the five submission shapes spec.md §4.8 names.
type record interface{ isRecord() }

// ExecuteCommandLists batches one or more closed command lists.
type ExecuteCommandLists struct {
	Lists []*command.List
	Done  chan error // optional: receives the submission result, if non-nil
}

func (ExecuteCommandLists) isRecord() {}

// SparseBufferBind is one D3D12 UpdateTileMappings range, kept in our
// own domain terms rather than a raw Vulkan sparse-binding struct since
// the resource/heap layer (not this queue) owns how a tile range maps to
// a Vulkan memory binding.
type SparseBufferBind struct {
	Buffer       vk.Buffer
	Memory       vk.DeviceMemory
	ResourceByte uint64
	MemoryByte   uint64
	Size         uint64
}

// SparseBind mirrors ID3D12CommandQueue::UpdateTileMappings; the binding
// description itself is left to the resource/heap layer, this record
// only carries what the submission thread must serialize against other
// work on the queue.
type SparseBind struct {
	Binds []SparseBufferBind
	Done  chan error
}

func (SparseBind) isRecord() {}

// SignalRecord is ID3D12CommandQueue::Signal(fence, value): when no
// ExecuteCommandLists batch is outstanding on this queue the fence
// advances as soon as the submission thread reaches the record; otherwise
// it advances once the fence worker observes that batch complete.
type SignalRecord struct {
	Fence *Fence
	Value uint64
}

func (SignalRecord) isRecord() {}

// WaitRecord is ID3D12CommandQueue::Wait(fence, value): the submission
// thread blocks subsequent records on this queue until fence reaches
// value, which may not have been signaled yet (spec.md §5's "wait for a
// value not yet signaled is legal" rule).
type WaitRecord struct {
	Fence *Fence
	Value uint64
}

func (WaitRecord) isRecord() {}

// PresentRecord mirrors IDXGISwapChain::Present; swapchain/backbuffer
// acquisition happens on the API thread, only vkQueuePresentKHR itself
// is serialized through the submission thread so it stays ordered with
// respect to the rendering work that produced the backbuffer.
type PresentRecord struct {
	Swapchain   vk.Swapchain
	ImageIndex  uint32
	WaitOnBatch bool // carried on the record; the queue's present path does not read it
	Done        chan error
}

func (PresentRecord) isRecord() {}
