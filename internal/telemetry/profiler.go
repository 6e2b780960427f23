package telemetry

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/vkd3d-go/vkd3d/core"
)

// event is one Chrome Trace Event, the format `chrome://tracing` and
// Perfetto both load directly.
type event struct {
	Name string                 `json:"name"`
	Cat  string                 `json:"cat"`
	Ph   string                 `json:"ph"`
	TS   int64                  `json:"ts"`
	PID  int                    `json:"pid"`
	TID  uint64                 `json:"tid"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Profiler is the queue-timeline event buffer VKD3D_QUEUE_PROFILE
// enables: every submit, wait-resolved, and signal-observed point appends
// an instant event to an unbounded slice, flushed as Chrome Trace Event
// JSON at device teardown. A nil *Profiler is valid and every method on
// it is a no-op, so callers on the hot submission path can call it
// without a nil check and only pay the cost when profiling is enabled.
type Profiler struct {
	mu     sync.Mutex
	start  time.Time
	events []event
	path   string
}

// NewProfiler returns a Profiler that timestamps events relative to
// start. Pass the instant the device was created so timestamps line up
// with device lifetime.
func NewProfiler(path string, start time.Time) *Profiler {
	return &Profiler{start: start, path: path}
}

// NewProfilerFromEnv builds a Profiler if VKD3D_QUEUE_PROFILE is set,
// writing to VKD3D_PROFILE_PATH (defaulting to "vkd3d_queue_profile.json"
// in the working directory), matching spec.md §6's env-var pair. Returns
// nil when profiling is not requested.
func NewProfilerFromEnv(start time.Time) *Profiler {
	if os.Getenv("VKD3D_QUEUE_PROFILE") == "" {
		return nil
	}
	path := os.Getenv("VKD3D_PROFILE_PATH")
	if path == "" {
		path = "vkd3d_queue_profile.json"
	}
	return NewProfiler(path, start)
}

func (p *Profiler) record(name string, queueID uint64, args map[string]interface{}) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.events = append(p.events, event{
		Name: name,
		Cat:  "queue",
		Ph:   "i",
		TS:   time.Since(p.start).Microseconds(),
		PID:  1,
		TID:  queueID,
		Args: args,
	})
	p.mu.Unlock()
}

// RecordSubmit marks a vkQueueSubmit batch leaving the submission thread.
func (p *Profiler) RecordSubmit(queueID uint64, listCount int) {
	p.record("submit", queueID, map[string]interface{}{"lists": listCount})
}

// RecordWaitResolved marks a Wait record's value becoming satisfied,
// unblocking the submission thread for records after it on this queue.
func (p *Profiler) RecordWaitResolved(queueID uint64, value uint64) {
	p.record("wait_resolved", queueID, map[string]interface{}{"value": value})
}

// RecordSignalObserved marks a host fence being advanced, whether
// immediately (no outstanding batch) or deferred to the fence worker's
// completion callback.
func (p *Profiler) RecordSignalObserved(queueID uint64, value uint64) {
	p.record("signal_observed", queueID, map[string]interface{}{"value": value})
}

// Flush writes the accumulated events to the configured path as Chrome
// Trace Event JSON. Safe to call on a nil Profiler.
func (p *Profiler) Flush() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := struct {
		TraceEvents []event `json:"traceEvents"`
	}{TraceEvents: p.events}

	f, err := os.Create(p.path)
	if err != nil {
		core.LogError("failed to open queue profile output %q: %s", p.path, err)
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(doc); err != nil {
		core.LogError("failed to write queue profile: %s", err)
		return err
	}
	return nil
}
