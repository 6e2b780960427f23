package rootsig

import "testing"

func TestTotalCostMatchesSpecFormula(t *testing.T) {
	d := Desc{Parameters: []RootParameter{
		{Type: ParamDescriptorTable, Table: []DescriptorRange{{Type: RangeSRV}}}, // cost 1
		{Type: ParamCBV},                                                        // cost 2
		{Type: Param32BitConstants, Num32BitValues: 4},                          // cost 4
	}}
	if got := d.TotalCost(); got != 7 {
		t.Fatalf("TotalCost() = %d, want 7", got)
	}
}

func TestTotalCostRejectsOverBudget(t *testing.T) {
	d := Desc{Parameters: []RootParameter{{Type: Param32BitConstants, Num32BitValues: 65}}}
	if got := d.TotalCost(); got <= 64 {
		t.Fatalf("TotalCost() = %d, want > 64 to trigger rejection in Build", got)
	}
}

func TestCollectPushConstantRangesCollapsesOnVisAll(t *testing.T) {
	params := []RootParameter{
		{Type: Param32BitConstants, Visibility: VisAll, Num32BitValues: 4},
		{Type: ParamSRV, Visibility: VisPixel},
	}
	ranges := collectPushConstantRanges(params, true)
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1 collapsed range", len(ranges))
	}
	if ranges[0].Size != 16 {
		t.Fatalf("range size = %d, want 16 (4 * 4 bytes)", ranges[0].Size)
	}
}

func TestCollectPushConstantRangesSplitsByVisibility(t *testing.T) {
	params := []RootParameter{
		{Type: Param32BitConstants, Visibility: VisVertex, Num32BitValues: 2},
		{Type: Param32BitConstants, Visibility: VisPixel, Num32BitValues: 3},
	}
	ranges := collectPushConstantRanges(params, false)
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2 (one per distinct visibility)", len(ranges))
	}
	total := uint32(0)
	for _, r := range ranges {
		total += r.Size
	}
	if total != (2+3)*4 {
		t.Fatalf("total push-constant bytes = %d, want %d", total, (2+3)*4)
	}
}
