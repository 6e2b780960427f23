package sync

import "time"

// clockBase anchors NowNanos: time.Since(clockBase) uses the monotonic
// reading carried by clockBase, so wall-clock adjustments never move
// NowNanos backwards.
var clockBase = time.Now()

// NowNanos returns a monotonic nanosecond timestamp, the clock primitive
// spec.md §4.1 asks this layer to provide. Clock reads through this
// function; the telemetry profiler takes its timestamps from time.Since
// directly.
func NowNanos() int64 {
	return clockBase.UnixNano() + int64(time.Since(clockBase))
}

// Clock measures elapsed monotonic time between Start and each Update,
// generalizing the engine's per-frame clock onto submission-batch and
// fence-wait latency measurement.
type Clock struct {
	start   int64
	elapsed int64
}

func (c *Clock) Start() {
	c.start = NowNanos()
	c.elapsed = 0
}

func (c *Clock) Update() {
	if c.start != 0 {
		c.elapsed = NowNanos() - c.start
	}
}

func (c *Clock) Stop() { c.start = 0 }

// Elapsed returns the nanoseconds measured at the last Update call.
func (c *Clock) Elapsed() int64 { return c.elapsed }
