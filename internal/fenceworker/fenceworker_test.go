package fenceworker

import (
	"sync"
	"testing"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/internal/queue"
)

// fakeFence fabricates a distinct, comparable vk.Fence handle for tests
// without a real Vulkan device. Vulkan handles are opaque pointer types
// (confirmed by the teacher's own nil checks against vk.Fence values), so
// converting an arbitrary live Go pointer through unsafe.Pointer produces
// a legitimately distinct, nil-safe handle value purely for identity
// comparisons; it is never dereferenced or passed to a real Vulkan call.
func fakeFence() vk.Fence {
	return vk.Fence(unsafe.Pointer(new(int)))
}

// fakeSignaler lets a test flip a fence "signaled" without a real device.
type fakeSignaler struct {
	mu     sync.Mutex
	signal map[vk.Fence]bool
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{signal: make(map[vk.Fence]bool)}
}

func (f *fakeSignaler) poll(_ vk.Device, fence vk.Fence) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signal[fence]
}

func (f *fakeSignaler) markSignaled(fence vk.Fence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signal[fence] = true
}

func TestWorkerFiresSignalsOncePolledFenceCompletes(t *testing.T) {
	fs := newFakeSignaler()
	w := newWorker(fs.poll, time.Millisecond, nil)
	defer w.Shutdown()

	hostFence := queue.NewFence(0)
	batch := fakeFence()

	released := make(chan vk.Fence, 1)
	w.Await(vk.Device(nil), batch, []queue.PendingSignal{{Fence: hostFence, Value: 5}}, func(f vk.Fence) {
		released <- f
	})

	if hostFence.GetCompletedValue() != 0 {
		t.Fatalf("fence advanced before the batch completed")
	}

	fs.markSignaled(batch)

	deadline := time.After(time.Second)
	select {
	case got := <-released:
		if got != batch {
			t.Fatalf("release called with %v, want %v", got, batch)
		}
	case <-deadline:
		t.Fatalf("release was never called after the batch signaled")
	}

	if got := hostFence.GetCompletedValue(); got != 5 {
		t.Fatalf("fence completed value = %d, want 5", got)
	}
}

func TestWorkerKeepsUnsignaledBatchesPending(t *testing.T) {
	fs := newFakeSignaler()
	w := newWorker(fs.poll, time.Millisecond, nil)
	defer w.Shutdown()

	hostFence := queue.NewFence(0)
	batch := fakeFence()
	w.Await(vk.Device(nil), batch, []queue.PendingSignal{{Fence: hostFence, Value: 1}}, nil)

	time.Sleep(20 * time.Millisecond)
	if got := hostFence.GetCompletedValue(); got != 0 {
		t.Fatalf("fence completed value = %d, want 0 while unsignaled", got)
	}
}

func TestWorkerHandlesConcurrentAwaitDuringSweep(t *testing.T) {
	fs := newFakeSignaler()
	w := newWorker(fs.poll, time.Millisecond, nil)
	defer w.Shutdown()

	first := fakeFence()
	second := fakeFence()
	f1 := queue.NewFence(0)
	f2 := queue.NewFence(0)

	w.Await(vk.Device(nil), first, []queue.PendingSignal{{Fence: f1, Value: 1}}, nil)
	fs.markSignaled(first)
	w.Await(vk.Device(nil), second, []queue.PendingSignal{{Fence: f2, Value: 1}}, nil)
	fs.markSignaled(second)

	deadline := time.Now().Add(time.Second)
	for (f1.GetCompletedValue() != 1 || f2.GetCompletedValue() != 1) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if f1.GetCompletedValue() != 1 {
		t.Fatalf("first fence never completed")
	}
	if f2.GetCompletedValue() != 1 {
		t.Fatalf("second fence never completed")
	}
}
