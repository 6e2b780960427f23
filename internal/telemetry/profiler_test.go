package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNilProfilerRecordMethodsAreNoOps(t *testing.T) {
	var p *Profiler
	p.RecordSubmit(1, 2)
	p.RecordWaitResolved(1, 5)
	p.RecordSignalObserved(1, 5)
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush() on nil Profiler = %v, want nil", err)
	}
}

func TestNewProfilerFromEnvAbsentWhenUnset(t *testing.T) {
	t.Setenv("VKD3D_QUEUE_PROFILE", "")
	if got := NewProfilerFromEnv(time.Now()); got != nil {
		t.Fatalf("NewProfilerFromEnv() = %v, want nil when VKD3D_QUEUE_PROFILE unset", got)
	}
}

func TestNewProfilerFromEnvDefaultsPath(t *testing.T) {
	t.Setenv("VKD3D_QUEUE_PROFILE", "1")
	t.Setenv("VKD3D_PROFILE_PATH", "")
	p := NewProfilerFromEnv(time.Now())
	if p == nil {
		t.Fatalf("NewProfilerFromEnv() = nil, want a Profiler when VKD3D_QUEUE_PROFILE is set")
	}
	if p.path != "vkd3d_queue_profile.json" {
		t.Fatalf("p.path = %q, want default", p.path)
	}
}

func TestFlushWritesValidChromeTraceJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.json")
	p := NewProfiler(path, time.Now())

	p.RecordSubmit(7, 3)
	p.RecordWaitResolved(7, 42)
	p.RecordSignalObserved(7, 42)

	if err := p.Flush(); err != nil {
		t.Fatalf("Flush() = %v, want nil", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() = %v", err)
	}

	var doc struct {
		TraceEvents []struct {
			Name string `json:"name"`
			TID  uint64 `json:"tid"`
		} `json:"traceEvents"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	if len(doc.TraceEvents) != 3 {
		t.Fatalf("len(traceEvents) = %d, want 3", len(doc.TraceEvents))
	}
	for _, e := range doc.TraceEvents {
		if e.TID != 7 {
			t.Fatalf("event tid = %d, want 7", e.TID)
		}
	}
	if doc.TraceEvents[0].Name != "submit" {
		t.Fatalf("first event name = %q, want submit", doc.TraceEvents[0].Name)
	}
}
