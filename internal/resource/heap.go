package resource

import (
	"github.com/vkd3d-go/vkd3d/internal/bitset"
)

// HeapKind is the D3D12_DESCRIPTOR_HEAP_TYPE this heap serves.
type HeapKind int

const (
	HeapCBVSRVUAV HeapKind = iota
	HeapSampler
	HeapRTV
	HeapDSV
)

// cpuOnly reports whether a heap of this kind never needs a shader-
// visible {heap_id, index} encoding, per spec.md §3's descriptor-heap
// entity description.
func (k HeapKind) cpuOnly() bool { return k == HeapRTV || k == HeapDSV }

// heapIDBits is reserved at the top of an encoded descriptor handle to
// tag it as {heap_id, index} rather than a flat pointer, satisfying
// spec.md §9's "bit-exact descriptor encoding" design note.
const heapIDBits = 12

// DescriptorHeap is the flat array of descriptor entries from spec.md
// §3. Slot allocation uses internal/bitset's growable bitmap, grounded on
// the example driver pack's generic bitmap allocator.
type DescriptorHeap struct {
	ID     uint32
	Kind   HeapKind
	Views  []*View
	alloc  bitset.Set[uint64]
	shaderVisible bool
}

// NewDescriptorHeap allocates a heap with capacity preallocated slots.
// shaderVisible mirrors D3D12_DESCRIPTOR_HEAP_FLAG_SHADER_VISIBLE; it is
// forced false for RTV/DSV heaps, which are always CPU-only.
func NewDescriptorHeap(id uint32, kind HeapKind, capacity int, shaderVisible bool) *DescriptorHeap {
	h := &DescriptorHeap{
		ID:            id,
		Kind:          kind,
		Views:         make([]*View, capacity),
		shaderVisible: shaderVisible && !kind.cpuOnly(),
	}
	h.alloc.Grow((capacity + 63) / 64)
	return h
}

// Allocate reserves a free slot and returns its encoded handle: the heap
// ID in the high heapIDBits and the slot index below it, matching
// spec.md §3's `{heap_id, index}` split.
func (h *DescriptorHeap) Allocate() (index int, handle uint64, ok bool) {
	index, ok = h.alloc.Search()
	if !ok {
		return 0, 0, false
	}
	h.alloc.Set(index)
	handle = (uint64(h.ID) << (64 - heapIDBits)) | uint64(index)
	return index, handle, true
}

// Free releases index back to the heap, clearing its view slot.
func (h *DescriptorHeap) Free(index int) {
	h.alloc.Unset(index)
	h.Views[index] = nil
}

// Write installs v at index, the operation behind every CreateXxxView
// call on a device (spec.md §3's descriptor-heap entity).
func (h *DescriptorHeap) Write(index int, v *View) {
	h.Views[index] = v
}

// At returns the view currently installed at index, or nil.
func (h *DescriptorHeap) At(index int) *View {
	if index < 0 || index >= len(h.Views) {
		return nil
	}
	return h.Views[index]
}

// DecodeHandle splits an encoded {heap_id, index} handle, the inverse of
// Allocate's packing.
func DecodeHandle(handle uint64) (heapID uint32, index uint64) {
	return uint32(handle >> (64 - heapIDBits)), handle &^ (^uint64(0) << (64 - heapIDBits))
}
