package sync

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a relaxed-load / acquire-CAS spin-lock for the hot paths
// that can't afford a futex-backed sync.Mutex, such as the VA map's
// small-allocation fallback array. On
// contention it yields via runtime.Gosched, the Go analogue of the
// source's _mm_pause/yield backoff.
type SpinLock struct {
	state atomic.Bool
}

func (s *SpinLock) Lock() {
	for !s.state.CompareAndSwap(false, true) {
		for s.state.Load() {
			runtime.Gosched()
		}
	}
}

func (s *SpinLock) Unlock() {
	s.state.Store(false)
}

func (s *SpinLock) TryLock() bool {
	return s.state.CompareAndSwap(false, true)
}
