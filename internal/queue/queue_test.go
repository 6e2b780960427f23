package queue

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/vkd3d-go/vkd3d/internal/telemetry"
)

func TestQueueProcessSignalRecordAdvancesFence(t *testing.T) {
	q := &Queue{mailbox: make(chan record, 1)}
	q.start()
	defer q.Shutdown()

	f := NewFence(0)
	q.Signal(SignalRecord{Fence: f, Value: 3})

	deadline := time.Now().Add(time.Second)
	for f.GetCompletedValue() != 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := f.GetCompletedValue(); got != 3 {
		t.Fatalf("fence completed value = %d, want 3", got)
	}
}

func TestQueueWaitRecordBlocksUntilFenceSignaled(t *testing.T) {
	q := &Queue{mailbox: make(chan record, 2)}
	q.start()
	defer q.Shutdown()

	f := NewFence(0)
	done := make(chan struct{})
	q.Wait(WaitRecord{Fence: f, Value: 1})
	q.Signal(SignalRecord{Fence: f, Value: 2})

	// A record enqueued after the wait must only be observed complete once
	// the preceding Wait has unblocked, proving queue-order serialization.
	secondFence := NewFence(0)
	q.Signal(SignalRecord{Fence: secondFence, Value: 1})

	go func() {
		ev := make(chan struct{})
		secondFence.SetEventOnCompletion(1, ev)
		<-ev
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("second Signal must not complete before the Wait record unblocks")
	case <-time.After(50 * time.Millisecond):
	}

	f.Signal(1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("second Signal never completed after the awaited fence reached its value")
	}
}

func TestQueueShutdownDrainsMailbox(t *testing.T) {
	q := &Queue{mailbox: make(chan record, 4)}
	q.start()

	f := NewFence(0)
	q.Signal(SignalRecord{Fence: f, Value: 1})
	q.Shutdown()

	if got := f.GetCompletedValue(); got != 1 {
		t.Fatalf("fence completed value = %d, want 1 (Shutdown must drain pending records)", got)
	}
}

func TestQueueSignalRecordsObservedEventOnProfiler(t *testing.T) {
	path := t.TempDir() + "/trace.json"
	profiler := telemetry.NewProfiler(path, time.Now())
	q := &Queue{id: 9, mailbox: make(chan record, 1), profiler: profiler}
	q.start()

	f := NewFence(0)
	q.Signal(SignalRecord{Fence: f, Value: 1})

	deadline := time.Now().Add(time.Second)
	for f.GetCompletedValue() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Shutdown waits for the submission goroutine to finish the record,
	// including its profiler call, before the trace is flushed.
	q.Shutdown()

	if err := profiler.Flush(); err != nil {
		t.Fatalf("Flush() = %v, want nil", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() = %v", err)
	}
	if !strings.Contains(string(data), `"signal_observed"`) {
		t.Fatalf("trace has no signal_observed event: %s", data)
	}
}
