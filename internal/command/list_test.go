package command

import (
	"testing"

	"github.com/vkd3d-go/vkd3d/internal/rootsig"
)

func TestPushConstantLocationCollapsesOnVisAll(t *testing.T) {
	desc := rootsig.Desc{Parameters: []rootsig.RootParameter{
		{Type: rootsig.Param32BitConstants, Visibility: rootsig.VisAll, Num32BitValues: 4},
	}}
	off, _, ok := pushConstantLocation(desc, 0)
	if !ok || off != 0 {
		t.Fatalf("pushConstantLocation = (%d, ok=%v), want (0, true)", off, ok)
	}
}

func TestPushConstantLocationSplitsByVisibility(t *testing.T) {
	desc := rootsig.Desc{Parameters: []rootsig.RootParameter{
		{Type: rootsig.Param32BitConstants, Visibility: rootsig.VisVertex, Num32BitValues: 2},
		{Type: rootsig.Param32BitConstants, Visibility: rootsig.VisPixel, Num32BitValues: 3},
	}}
	off0, stage0, ok0 := pushConstantLocation(desc, 0)
	off1, stage1, ok1 := pushConstantLocation(desc, 1)
	if !ok0 || !ok1 {
		t.Fatalf("expected both parameters to resolve")
	}
	if off0 != 0 {
		t.Fatalf("first group offset = %d, want 0", off0)
	}
	if off1 != 8 {
		t.Fatalf("second group offset = %d, want 8 (after the first group's 2*4 bytes)", off1)
	}
	if stage0 == stage1 {
		t.Fatalf("distinct visibilities must produce distinct stage flags")
	}
}

func TestPushConstantLocationUnknownParamFails(t *testing.T) {
	desc := rootsig.Desc{Parameters: []rootsig.RootParameter{
		{Type: rootsig.ParamSRV, Visibility: rootsig.VisPixel},
	}}
	_, _, ok := pushConstantLocation(desc, 0)
	if ok {
		t.Fatalf("expected ok=false: parameter 0 is not a 32-bit-constants parameter")
	}
}

func TestFindMappingReturnsZeroValueWhenAbsent(t *testing.T) {
	m := findMapping(nil, 3)
	if m.ParameterIndex != 0 || m.Set != 0 {
		t.Fatalf("expected zero-value Mapping for an empty mapping slice, got %+v", m)
	}
}

func TestFindMappingMatchesRootParameter(t *testing.T) {
	mappings := []rootsig.Mapping{
		{ParameterIndex: 0, RangeIndex: -1, Set: 0, Binding: 2},
		{ParameterIndex: 1, RangeIndex: -1, Set: 1, Binding: 0},
	}
	m := findMapping(mappings, 1)
	if m.Set != 1 || m.Binding != 0 {
		t.Fatalf("findMapping(1) = %+v, want Set=1 Binding=0", m)
	}
}
