package telemetry

import "testing"

func TestSampleOnUninitializedMonitorReportsNotOK(t *testing.T) {
	var m Monitor
	_, ok := m.Sample()
	if ok {
		t.Fatalf("Sample() ok = true on a Monitor with no NVML session, want false")
	}
}

func TestShutdownOnUninitializedMonitorIsSafe(t *testing.T) {
	var m Monitor
	m.Shutdown()
	m.Shutdown()
}
