package vkd3d

import (
	"testing"

	"github.com/vkd3d-go/vkd3d/internal/indirect"
	"github.com/vkd3d-go/vkd3d/internal/resource"
	"github.com/vkd3d-go/vkd3d/internal/rootsig"
)

// These exercise the root package's pure (non-Vulkan-call) paths: the
// internal/* packages they delegate to are already covered at their own
// level, so the interesting behavior here is the wiring itself — ID
// assignment, strategy selection, and argument validation that don't
// require an actual device.

func TestCreateFenceRoundTrips(t *testing.T) {
	d := &Device{}
	f := d.CreateFence(5)
	if got := f.GetCompletedValue(); got != 5 {
		t.Fatalf("GetCompletedValue() = %d, want 5", got)
	}
	event := make(chan struct{})
	f.SetEventOnCompletion(3, event)
	select {
	case <-event:
	default:
		t.Fatalf("event for an already-reached value should fire immediately")
	}
}

func TestCreateDescriptorHeapAssignsDistinctIDs(t *testing.T) {
	d := &Device{}
	h1 := d.CreateDescriptorHeap(resource.HeapCBVSRVUAV, 8, true)
	h2 := d.CreateDescriptorHeap(resource.HeapCBVSRVUAV, 8, true)
	_, handle1, ok := h1.Allocate()
	if !ok {
		t.Fatalf("Allocate on h1 failed")
	}
	_, handle2, ok := h2.Allocate()
	if !ok {
		t.Fatalf("Allocate on h2 failed")
	}
	id1, _ := resource.DecodeHandle(handle1)
	id2, _ := resource.DecodeHandle(handle2)
	if id1 == id2 {
		t.Fatalf("two heaps on the same device got the same heap ID (%d)", id1)
	}
}

func TestCreateBundleRecorderDropsRestrictedOps(t *testing.T) {
	d := &Device{}
	b := d.CreateBundle()
	rec := b.Record()
	// None of these must panic; a bundle recorder drops restricted
	// operations with a logged warning rather than rejecting them
	// (spec.md §4.7).
	rec.ResourceBarrier()
	rec.OMSetRenderTargets()
	rec.RSSetViewportsScissors()
	rec.ExecuteBundle()
	rec.SetDescriptorHeaps()
	rec.Dispatch(1, 1, 1)
}

func TestSerializeRootSignatureRejectsOversizedCost(t *testing.T) {
	desc := rootsig.Desc{
		Parameters: make([]rootsig.RootParameter, 5),
	}
	for i := range desc.Parameters {
		desc.Parameters[i] = rootsig.RootParameter{Type: rootsig.Param32BitConstants, Num32BitValues: 14}
	}
	if _, err := SerializeRootSignature(desc); err == nil {
		t.Fatalf("expected an error for a root signature whose cost exceeds 64 DWORDs")
	}
}

func TestCreateCommandSignatureSelectsIndirectCountForSimpleSignature(t *testing.T) {
	d := &Device{}
	sig := d.CreateCommandSignature(indirect.CommandSignature{
		ByteStride: 16,
		Arguments:  []indirect.ArgumentDesc{{Type: indirect.ArgumentDraw}},
	})
	if sig.strategy != indirect.StrategyIndirectCount {
		t.Fatalf("strategy = %v, want StrategyIndirectCount for a simple signature", sig.strategy)
	}
}

func TestCreateCommandSignatureFallsBackToComputeRewriteWithoutDGC(t *testing.T) {
	d := &Device{} // indirectCaps.HasDeviceGeneratedCommands defaults false
	sig := d.CreateCommandSignature(indirect.CommandSignature{
		ByteStride: 32,
		Arguments: []indirect.ArgumentDesc{
			{Type: indirect.ArgumentConstant, Num32BitValuesToSet: 4},
			{Type: indirect.ArgumentDraw},
		},
	})
	if sig.strategy != indirect.StrategyComputeRewrite {
		t.Fatalf("strategy = %v, want StrategyComputeRewrite when DGC is unavailable", sig.strategy)
	}
}

func TestCreateCommandSignaturePicksDGCWhenAvailable(t *testing.T) {
	d := &Device{indirectCaps: indirect.Capabilities{HasDeviceGeneratedCommands: true}}
	sig := d.CreateCommandSignature(indirect.CommandSignature{
		ByteStride: 32,
		Arguments: []indirect.ArgumentDesc{
			{Type: indirect.ArgumentConstant, Num32BitValuesToSet: 4},
			{Type: indirect.ArgumentDraw},
		},
	})
	if sig.strategy != indirect.StrategyDGC {
		t.Fatalf("strategy = %v, want StrategyDGC when device-generated-commands is available", sig.strategy)
	}
}
