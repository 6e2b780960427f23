package indirect

// Strategy names one of spec.md §4.10's three ExecuteIndirect translation
// paths.
type Strategy int

const (
	// StrategyIndirectCount is selected for a simple (single
	// Draw*/Dispatch*-only) signature. Executor.Execute replays it through
	// the same host-readback path as StrategyComputeRewrite; no native
	// Vulkan indirect draw/dispatch call is issued.
	StrategyIndirectCount Strategy = iota
	// StrategyDGC builds a VK_EXT_device_generated_commands command
	// layout for signatures that also write root constants/descriptors or
	// vertex/index buffer views.
	StrategyDGC
	// StrategyComputeRewrite is the fallback used when DGC support is
	// absent: the argument buffer is read back on the host and replayed
	// as ordinary bound draw/dispatch calls.
	StrategyComputeRewrite
)

// Capabilities records which indirect-execution extensions a Device found
// at creation time; Select consults this once per command signature (at
// CreateCommandSignature) rather than probing live, per the decision
// recorded for this Open Question in DESIGN.md.
type Capabilities struct {
	HasDeviceGeneratedCommands bool
}

// Select picks the translation strategy for sig, deciding once based on
// capabilities probed at device-creation time rather than re-probing per
// call (spec.md §9's Open Question, decided in DESIGN.md).
func Select(sig CommandSignature, caps Capabilities) Strategy {
	if sig.IsSimple() {
		return StrategyIndirectCount
	}
	if caps.HasDeviceGeneratedCommands {
		return StrategyDGC
	}
	return StrategyComputeRewrite
}
