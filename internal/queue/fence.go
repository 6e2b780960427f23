// Package queue implements the command-queue submission engine and the
// host-visible fence object (spec.md §3's Command queue/Fence entities,
// §4.8, §4.9).
package queue

import "sync"

// waiter is one registered SetEventOnCompletion call.
type waiter struct {
	value uint64
	event chan struct{}
	fired bool
}

// Fence is the D3D12 Fence entity: a monotonic 64-bit counter with
// host-event registration, shared between CPU-signal (ID3D12Fence::Signal)
// and GPU-signal (queue Signal record) paths. spec.md §8's round-trip
// property — CreateFence(v) → SetEventOnCompletion(v) → Signal(v) fires
// the event exactly once — is the contract this type must uphold.
type Fence struct {
	mu        sync.Mutex
	completed uint64
	waiters   []*waiter
}

// NewFence creates a fence whose completed value starts at initial.
func NewFence(initial uint64) *Fence {
	return &Fence{completed: initial}
}

// GetCompletedValue returns the highest value this fence has reached.
func (f *Fence) GetCompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// SetEventOnCompletion registers event to fire once the fence reaches
// value. A value already reached fires immediately (spec.md §5's
// "SetEventOnCompletion with value less than current fence value fires
// immediately" rule), from the calling goroutine, not asynchronously.
func (f *Fence) SetEventOnCompletion(value uint64, event chan struct{}) {
	f.mu.Lock()
	if f.completed >= value {
		f.mu.Unlock()
		fireOnce(event)
		return
	}
	f.waiters = append(f.waiters, &waiter{value: value, event: event})
	f.mu.Unlock()
}

// Signal advances the fence to value (the CPU-signal path,
// ID3D12Fence::Signal) and wakes every waiter whose target value is now
// reached. The fence worker calls the same underlying bump for the
// GPU-signal path once vkWaitForFences confirms completion.
func (f *Fence) Signal(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
	}
	var toFire []*waiter
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.fired && f.completed >= w.value {
			w.fired = true
			toFire = append(toFire, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
	f.mu.Unlock()

	for _, w := range toFire {
		fireOnce(w.event)
	}
}

// fireOnce closes event so every receiver observes completion,
// regardless of how many goroutines are waiting on it or whether any
// are waiting yet — the standard Go "done channel" idiom. Each
// registered waiter is fired at most once (guarded by w.fired), so the
// close here never double-closes the same channel.
func fireOnce(event chan struct{}) {
	close(event)
}
