package queue

import (
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/telemetry"
)

// Worker is the completion side of a queue: it polls submitted batch
// fences to completion off the submission thread. internal/fenceworker
// implements this.
type Worker interface {
	// Await schedules batchFence to be polled on device to completion. Once
	// signaled, every entry in signals is advanced to its paired value and
	// release is called with batchFence so the queue can reuse it.
	Await(device vk.Device, batchFence vk.Fence, signals []PendingSignal, release func(vk.Fence))
}

// PendingSignal is one {fence, value} pair a submitted batch will complete
// once its Vulkan fence signals. QueueID identifies which queue issued it,
// purely for telemetry attribution once the fence worker fires it.
type PendingSignal struct {
	Fence   *Fence
	Value   uint64
	QueueID uint64
}

// Queue is the D3D12 command-queue entity (spec.md §3, §4.8): an ordered
// mailbox of submission records drained by a single goroutine, so that
// submission order on a queue always matches GPU execution order.
type Queue struct {
	id          uint64
	device      vk.Device
	vkQueue     vk.Queue
	worker      Worker
	mailbox     chan record
	wg          sync.WaitGroup
	fencePool   []vk.Fence
	fencePoolMu sync.Mutex
	profiler    *telemetry.Profiler

	// outstanding is non-zero while a submitted batch's completion has not
	// yet been observed by the fence worker. pendingSignals accumulates
	// Signal records issued while a batch is outstanding, since a real
	// GPU-side signal only becomes visible once the GPU reaches it, not
	// the instant the submission thread reaches the record.
	outstanding    vk.Fence
	pendingSignals []PendingSignal
}

// NewQueue starts the submission-thread goroutine for a Vulkan queue handle
// already retrieved via vkGetDeviceQueue. capacity sizes the mailbox buffer,
// matching engine/systems/job.go's buffered-channel worker-pool shape. id
// only labels this queue's events in profiler output (pass a stable,
// per-queue value such as the queue's index in device creation order);
// profiler may be nil, in which case every Record* call on it is a no-op.
func NewQueue(id uint64, device vk.Device, vkQueue vk.Queue, worker Worker, capacity int, profiler *telemetry.Profiler) *Queue {
	q := &Queue{
		id:       id,
		device:   device,
		vkQueue:  vkQueue,
		worker:   worker,
		mailbox:  make(chan record, capacity),
		profiler: profiler,
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for rec := range q.mailbox {
			q.process(rec)
		}
	}()
}

// Shutdown drains and closes the queue's mailbox, waiting for every
// already-enqueued record to be submitted before returning. It does not
// wait for GPU completion of that work; callers that need that still wait
// on the relevant Fence.
func (q *Queue) Shutdown() {
	close(q.mailbox)
	q.wg.Wait()
	q.fencePoolMu.Lock()
	for _, f := range q.fencePool {
		vk.DestroyFence(q.device, f, nil)
	}
	q.fencePool = nil
	q.fencePoolMu.Unlock()
}

// ExecuteCommandLists enqueues a batch of closed command lists for
// submission. If rec.Done is non-nil it receives the submission error (not
// the completion error, which is only observable through a Fence).
func (q *Queue) ExecuteCommandLists(rec ExecuteCommandLists) { q.mailbox <- rec }

// Signal enqueues a host-visible fence advance tied to this queue's
// position in program order (ID3D12CommandQueue::Signal).
func (q *Queue) Signal(rec SignalRecord) { q.mailbox <- rec }

// Wait enqueues a block on a fence value before any later record on this
// queue proceeds (ID3D12CommandQueue::Wait).
func (q *Queue) Wait(rec WaitRecord) { q.mailbox <- rec }

// Present enqueues a vkQueuePresentKHR call, ordered with respect to the
// rendering work that produced the presented image.
func (q *Queue) Present(rec PresentRecord) { q.mailbox <- rec }

// UpdateTileMappings enqueues a sparse-binding update
// (ID3D12CommandQueue::UpdateTileMappings).
func (q *Queue) UpdateTileMappings(rec SparseBind) { q.mailbox <- rec }

// process dequeues and resolves a single record. This is spec.md §4.8's
// per-record algorithm: resolve fence waits inline (blocking the
// submission thread, never the caller), batch ExecuteCommandLists into one
// vkQueueSubmit, advance the host fence for Signal records, and forward
// completion tracking to the fence worker.
func (q *Queue) process(rec record) {
	switch r := rec.(type) {
	case ExecuteCommandLists:
		q.executeCommandLists(r)
	case SignalRecord:
		q.signal(r)
	case WaitRecord:
		q.waitInline(r)
	case SparseBind:
		q.updateTileMappings(r)
	case PresentRecord:
		q.present(r)
	}
}

// signal resolves ID3D12CommandQueue::Signal. If no GPU batch is currently
// outstanding on this queue the fence is already caught up with the GPU, so
// the signal is visible immediately. Otherwise it is deferred until the
// fence worker observes the outstanding batch complete, which preserves
// the real GPU-order contract without a timeline semaphore. outstanding
// and pendingSignals are also touched by the fence worker's goroutine via
// onBatchComplete, so both are guarded by fencePoolMu.
func (q *Queue) signal(r SignalRecord) {
	q.fencePoolMu.Lock()
	var noBatch vk.Fence
	if q.outstanding == noBatch {
		q.fencePoolMu.Unlock()
		r.Fence.Signal(r.Value)
		q.profiler.RecordSignalObserved(q.id, r.Value)
		return
	}
	q.pendingSignals = append(q.pendingSignals, PendingSignal{Fence: r.Fence, Value: r.Value, QueueID: q.id})
	q.fencePoolMu.Unlock()
}

// waitInline blocks the submission thread until fence reaches value. A
// wait for a value not yet signaled is legal (spec.md §5): the submission
// thread simply stalls this queue's later records, exactly as a real GPU
// wait would stall subsequent GPU work, without blocking the caller that
// enqueued the wait.
func (q *Queue) waitInline(r WaitRecord) {
	if r.Fence.GetCompletedValue() >= r.Value {
		q.profiler.RecordWaitResolved(q.id, r.Value)
		return
	}
	done := make(chan struct{})
	r.Fence.SetEventOnCompletion(r.Value, done)
	<-done
	q.profiler.RecordWaitResolved(q.id, r.Value)
}

func (q *Queue) executeCommandLists(r ExecuteCommandLists) {
	bufs := make([]vk.CommandBuffer, 0, len(r.Lists))
	for _, l := range r.Lists {
		bufs = append(bufs, l.CommandBuffer())
	}

	batchFence := q.acquireFence()

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(bufs)),
		PCommandBuffers:    bufs,
	}

	if result := vk.QueueSubmit(q.vkQueue, 1, []vk.SubmitInfo{submitInfo}, batchFence); result != vk.Success {
		core.LogError("vkQueueSubmit failed: %d", result)
		if r.Done != nil {
			r.Done <- core.ErrFail
		}
		return
	}

	for _, l := range r.Lists {
		l.MarkSubmitted()
	}

	q.profiler.RecordSubmit(q.id, len(r.Lists))

	if r.Done != nil {
		r.Done <- nil
	}

	q.fencePoolMu.Lock()
	signals := q.pendingSignals
	q.pendingSignals = nil
	q.outstanding = batchFence
	q.fencePoolMu.Unlock()

	// Hand completion tracking off to the fence worker rather than
	// blocking this goroutine on vkWaitForFences; the submission thread
	// must stay free to process the next record on this queue. Since a
	// queue executes in submission order, observing this batch complete
	// also certifies every earlier batch complete, so outstanding only
	// ever needs to track the most recent one.
	if q.worker != nil {
		q.worker.Await(q.device, batchFence, signals, q.onBatchComplete)
	}
}

// onBatchComplete is the fence worker's release callback: it returns the
// Vulkan fence to the pool, clears outstanding if no newer batch has since
// been submitted, and fires any Signal records that accumulated in
// pendingSignals while this batch was the outstanding one. A Signal
// processed after the final ExecuteCommandLists on a queue (the common
// submit-then-signal pattern, spec.md §8 scenario 4) never sees another
// ExecuteCommandLists call to drain pendingSignals into, so it must be
// flushed here instead; if outstanding no longer matches f, a later
// submission has already claimed pendingSignals for its own batch, so
// there is nothing left for this completion to flush.
func (q *Queue) onBatchComplete(f vk.Fence) {
	q.fencePoolMu.Lock()
	var flush []PendingSignal
	if q.outstanding == f {
		var noBatch vk.Fence
		q.outstanding = noBatch
		flush = q.pendingSignals
		q.pendingSignals = nil
	}
	q.fencePoolMu.Unlock()

	for _, s := range flush {
		s.Fence.Signal(s.Value)
		q.profiler.RecordSignalObserved(s.QueueID, s.Value)
	}
	q.ReleaseFence(f)
}

func (q *Queue) updateTileMappings(r SparseBind) {
	// Tile-pool binding is resolved by the resource/heap layer before this
	// record is enqueued; this record only carries serialization ordering
	// against other queue work, so there is no Vulkan call to make here
	// beyond acknowledging completion.
	if r.Done != nil {
		r.Done <- nil
	}
}

func (q *Queue) present(r PresentRecord) {
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{r.Swapchain},
		PImageIndices:  []uint32{r.ImageIndex},
	}
	result := vk.QueuePresent(q.vkQueue, &presentInfo)
	var err error
	if result != vk.Success && result != vk.Suboptimal {
		err = core.ErrFail
	}
	if r.Done != nil {
		r.Done <- err
	}
}

// acquireFence hands out a reset, unsignaled fence from the pool, creating
// one if the pool is empty. Fences are returned to the pool by the fence
// worker once it observes them signaled.
func (q *Queue) acquireFence() vk.Fence {
	q.fencePoolMu.Lock()
	if n := len(q.fencePool); n > 0 {
		f := q.fencePool[n-1]
		q.fencePool = q.fencePool[:n-1]
		q.fencePoolMu.Unlock()
		vk.ResetFences(q.device, 1, []vk.Fence{f})
		return f
	}
	q.fencePoolMu.Unlock()

	var f vk.Fence
	createInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if result := vk.CreateFence(q.device, &createInfo, nil, &f); result != vk.Success {
		core.LogError("vkCreateFence failed: %d", result)
	}
	return f
}

// ReleaseFence returns a Vulkan fence the worker has observed signaled
// back to the pool for reuse by a later ExecuteCommandLists batch.
func (q *Queue) ReleaseFence(f vk.Fence) {
	q.fencePoolMu.Lock()
	q.fencePool = append(q.fencePool, f)
	q.fencePoolMu.Unlock()
}
