// Package telemetry implements the observation hooks that sit beside the
// submission path without feeding back into it: an NVML GPU-counter
// sampler (VKD3D_HUD's data source) and a Chrome Trace Event profiler for
// VKD3D_QUEUE_PROFILE. Neither hook renders anything; a HUD or GPU
// crash-dump consumer is out of scope.
package telemetry

import (
	"sync"
	"time"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/vkd3d-go/vkd3d/core"
)

// Sample is one point-in-time reading of a GPU's counters, mirroring the
// fields D3D12's VKD3D_HUD overlay reads off NVML.
type Sample struct {
	Timestamp      time.Time
	TemperatureC   uint32
	GraphicsClock  uint32
	MemoryClock    uint32
	MemoryUsed     uint64
	MemoryTotal    uint64
	Utilization    uint32
	PowerUsageW    float64
}

// Monitor owns an NVML session and samples device 0's counters on
// request. A Monitor with a failed or absent NVML initialization is
// still safe to use: Sample returns its zero value and false.
type Monitor struct {
	mu          sync.Mutex
	initialized bool
	device      nvml.Device
}

// NewMonitor initializes NVML. If NVML is unavailable (no NVIDIA driver,
// no permission, not installed) the returned Monitor's Sample calls are
// simply no-ops; this is not treated as an error, matching the teacher
// pack's own "try NVIDIA, then fall through" monitoring shape.
func NewMonitor() *Monitor {
	m := &Monitor{}
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		core.LogWarn("NVML unavailable, GPU telemetry disabled: %s", nvml.ErrorString(ret))
		return m
	}
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS || count == 0 {
		nvml.Shutdown()
		return m
	}
	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		nvml.Shutdown()
		return m
	}
	m.device = device
	m.initialized = true
	return m
}

// Sample reads the current GPU counters. ok is false when NVML could not
// be initialized.
func (m *Monitor) Sample() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return Sample{}, false
	}

	s := Sample{Timestamp: time.Now()}
	if temp, ret := m.device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		s.TemperatureC = temp
	}
	if clock, ret := m.device.GetClockInfo(nvml.CLOCK_GRAPHICS); ret == nvml.SUCCESS {
		s.GraphicsClock = clock
	}
	if clock, ret := m.device.GetClockInfo(nvml.CLOCK_MEM); ret == nvml.SUCCESS {
		s.MemoryClock = clock
	}
	if info, ret := m.device.GetMemoryInfo(); ret == nvml.SUCCESS {
		s.MemoryUsed = info.Used
		s.MemoryTotal = info.Total
	}
	if util, ret := m.device.GetUtilizationRates(); ret == nvml.SUCCESS {
		s.Utilization = util.Gpu
	}
	if power, ret := m.device.GetPowerUsage(); ret == nvml.SUCCESS {
		s.PowerUsageW = float64(power) / 1000.0
	}
	return s, true
}

// Shutdown releases the NVML session. Safe to call on a Monitor whose
// initialization failed.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		nvml.Shutdown()
		m.initialized = false
	}
}
