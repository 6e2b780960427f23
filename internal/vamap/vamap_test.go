package vamap

import (
	"sync"
	"testing"
)

func TestDerefLargeResourceBounds(t *testing.T) {
	m := New[string]()
	const base = uint64(0x1_0000_0000)
	const size = uint64(BlockSize)
	m.Insert("res", base, size)

	if v, ok := m.Deref(base); !ok || v != "res" {
		t.Fatalf("deref(base) = %v, %v; want res, true", v, ok)
	}
	if v, ok := m.Deref(base + size - 1); !ok || v != "res" {
		t.Fatalf("deref(base+size-1) = %v, %v; want res, true", v, ok)
	}
	if _, ok := m.Deref(base + size); ok {
		t.Fatalf("deref(base+size) should miss")
	}
}

func TestDerefLargeResourceSpansBlocks(t *testing.T) {
	m := New[string]()
	base := uint64(0)
	size := uint64(3 * BlockSize)
	m.Insert("big", base, size)

	for _, va := range []uint64{0, BlockSize, BlockSize + 10, 2*BlockSize + 1, size - 1} {
		if v, ok := m.Deref(va); !ok || v != "big" {
			t.Fatalf("deref(%d) = %v, %v; want big, true", va, v, ok)
		}
	}
	if _, ok := m.Deref(size); ok {
		t.Fatalf("deref(size) should miss, one past the end")
	}
}

func TestSmallAllocationFallback(t *testing.T) {
	m := New[int]()
	m.Insert(1, 100, 64)
	m.Insert(2, 200, 64)
	m.Insert(3, 50, 16)

	cases := []struct {
		va   uint64
		want int
		ok   bool
	}{
		{100, 1, true},
		{163, 1, true},
		{164, 0, false},
		{200, 2, true},
		{50, 3, true},
		{66, 0, false},
	}
	for _, c := range cases {
		got, ok := m.Deref(c.va)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("deref(%d) = %v, %v; want %v, %v", c.va, got, ok, c.want, c.ok)
		}
	}
}

func TestRemove(t *testing.T) {
	m := New[string]()
	m.Insert("a", 1000, 16)
	m.Insert("b", 0, BlockSize*2)
	m.Remove(1000, 16)
	m.Remove(0, BlockSize*2)

	if _, ok := m.Deref(1000); ok {
		t.Fatalf("small resource should be gone after Remove")
	}
	if _, ok := m.Deref(0); ok {
		t.Fatalf("large resource should be gone after Remove")
	}
}

// TestConcurrentDisjointInsertsAgreeWithSingleThreaded exercises the
// insert half of spec.md §8's disjoint-resources property: resources are
// inserted from concurrent goroutines, and once all inserts finish every
// Deref must return what a single-threaded insert sequence would.
func TestConcurrentDisjointInsertsAgreeWithSingleThreaded(t *testing.T) {
	m := New[int]()
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			base := uint64(i) * BlockSize * 2
			m.Insert(i, base, BlockSize)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		base := uint64(i) * BlockSize * 2
		v, ok := m.Deref(base)
		if !ok || v != i {
			t.Errorf("deref(%d) = %v, %v; want %d, true", base, v, ok, i)
		}
	}
}
