package resource

import "testing"

func TestDescriptorHeapAllocateEncodesHeapID(t *testing.T) {
	h := NewDescriptorHeap(3, HeapCBVSRVUAV, 16, true)
	idx, handle, ok := h.Allocate()
	if !ok {
		t.Fatalf("Allocate failed on empty heap")
	}
	if idx != 0 {
		t.Fatalf("first allocation index = %d, want 0", idx)
	}
	gotHeap, gotIdx := DecodeHandle(handle)
	if gotHeap != 3 || gotIdx != 0 {
		t.Fatalf("DecodeHandle(%x) = (%d, %d); want (3, 0)", handle, gotHeap, gotIdx)
	}
}

func TestDescriptorHeapFreeReclaims(t *testing.T) {
	h := NewDescriptorHeap(0, HeapSampler, 4, true)
	idx, _, _ := h.Allocate()
	v := &View{Kind: ViewSampler}
	h.Write(idx, v)
	if h.At(idx) != v {
		t.Fatalf("At(%d) did not return the written view", idx)
	}
	h.Free(idx)
	if h.At(idx) != nil {
		t.Fatalf("Free did not clear the view slot")
	}
	idx2, _, ok := h.Allocate()
	if !ok || idx2 != idx {
		t.Fatalf("Allocate after Free = %d, %v; want %d, true", idx2, ok, idx)
	}
}

func TestDescriptorHeapCPUOnlyKinds(t *testing.T) {
	h := NewDescriptorHeap(0, HeapRTV, 4, true)
	if h.shaderVisible {
		t.Fatalf("RTV heaps must never be shader-visible")
	}
}

func TestViewCacheGetOrCreatePublishesOnce(t *testing.T) {
	c := newViewCache()
	calls := 0
	key := ViewKey{Kind: ViewSRV, Format: 0}
	create := func() (*View, error) {
		calls++
		return &View{Kind: ViewSRV}, nil
	}
	v1, err := c.GetOrCreate(key, create)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := c.GetOrCreate(key, create)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != v2 {
		t.Fatalf("GetOrCreate returned different views for the same key")
	}
	if calls != 1 {
		t.Fatalf("create called %d times, want 1", calls)
	}
}

func TestViewCachePlaceConflictLogsNotFails(t *testing.T) {
	c := newViewCache()
	key := ViewKey{Kind: ViewAccelStructOrOMM}
	v, err := c.placeAccelOrOMM(key, ViewAccelStructOrOMM, func() (*View, error) {
		return &View{Kind: ViewAccelStructOrOMM}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Re-placing with a different "kind" (simulated via a distinct int)
	// must still succeed and return the same cached view, not fail.
	v2, err := c.placeAccelOrOMM(key, ViewKind(99), func() (*View, error) {
		t.Fatalf("create should not be called for an existing key")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != v2 {
		t.Fatalf("expected the same cached view back")
	}
}
