// Package fenceworker implements the background completion poller
// (spec.md §4.9): a single goroutine per device that polls submitted
// Vulkan batch fences to completion and advances the host-visible queue
// fences waiting on them, so a queue's submission thread never blocks on
// GPU completion itself.
package fenceworker

import (
	"sync"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/internal/queue"
	"github.com/vkd3d-go/vkd3d/internal/telemetry"
)

// pending is one batch handed off by a queue via Await, not yet observed
// complete.
type pending struct {
	device  vk.Device
	fence   vk.Fence
	signals []queue.PendingSignal
	release func(vk.Fence)
}

// pollFunc reports whether fence has signaled on device. The production
// poll wraps vk.WaitForFences with a zero timeout (spec.md §4.9's
// host-timeout poll, substituting for the timeline-semaphore
// vkWaitSemaphores batching the spec describes, since no timeline-
// semaphore wait entry point could be confirmed bound in this module's
// Vulkan binding); tests inject a fake to avoid needing a real device.
type pollFunc func(device vk.Device, fence vk.Fence) bool

// Worker implements queue.Worker. Each device should own exactly one
// Worker; every queue on that device shares it.
type Worker struct {
	poll         pollFunc
	pollInterval time.Duration
	profiler     *telemetry.Profiler

	mu    sync.Mutex
	items []pending

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
}

// New starts a fence worker for device, polling outstanding batches every
// pollInterval while any are pending and sleeping until woken otherwise.
// profiler may be nil.
func New(pollInterval time.Duration, profiler *telemetry.Profiler) *Worker {
	return newWorker(defaultPoll, pollInterval, profiler)
}

func newWorker(poll pollFunc, pollInterval time.Duration, profiler *telemetry.Profiler) *Worker {
	w := &Worker{
		poll:         poll,
		pollInterval: pollInterval,
		profiler:     profiler,
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func defaultPoll(device vk.Device, fence vk.Fence) bool {
	result := vk.WaitForFences(device, 1, []vk.Fence{fence}, vk.True, 0)
	return result == vk.Success
}

// Await implements queue.Worker.
func (w *Worker) Await(device vk.Device, batchFence vk.Fence, signals []queue.PendingSignal, release func(vk.Fence)) {
	w.mu.Lock()
	w.items = append(w.items, pending{device: device, fence: batchFence, signals: signals, release: release})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Shutdown stops the poll loop. Batches still pending at shutdown are left
// unsignaled and their release/signal callbacks are never invoked; callers
// should drain their queues before shutting down the worker they feed.
func (w *Worker) Shutdown() {
	close(w.quit)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		empty := len(w.items) == 0
		w.mu.Unlock()

		if empty {
			select {
			case <-w.quit:
				return
			case <-w.wake:
				continue
			}
		}

		w.sweep()

		select {
		case <-w.quit:
			return
		case <-w.wake:
		case <-time.After(w.pollInterval):
		}
	}
}

// sweep polls every pending batch once, firing completions in place and
// compacting the slice to drop the ones that finished.
func (w *Worker) sweep() {
	w.mu.Lock()
	items := w.items
	w.items = nil
	w.mu.Unlock()

	remaining := make([]pending, 0, len(items))
	for _, p := range items {
		if w.poll(p.device, p.fence) {
			for _, s := range p.signals {
				s.Fence.Signal(s.Value)
				w.profiler.RecordSignalObserved(s.QueueID, s.Value)
			}
			if p.release != nil {
				p.release(p.fence)
			}
		} else {
			remaining = append(remaining, p)
		}
	}

	// Anything Await appended while this sweep was running landed in
	// w.items while it was reset to nil above; merge it back in rather
	// than overwriting it.
	w.mu.Lock()
	w.items = append(remaining, w.items...)
	w.mu.Unlock()
}
