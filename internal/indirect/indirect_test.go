package indirect

import "testing"

func TestIsSimpleTrueForSingleDrawArgument(t *testing.T) {
	sig := CommandSignature{ByteStride: 16, Arguments: []ArgumentDesc{{Type: ArgumentDraw}}}
	if !sig.IsSimple() {
		t.Fatalf("a lone Draw argument should be simple")
	}
}

func TestIsSimpleFalseWithConstantsBeforeDraw(t *testing.T) {
	sig := CommandSignature{Arguments: []ArgumentDesc{
		{Type: ArgumentConstant, Num32BitValuesToSet: 2},
		{Type: ArgumentDraw},
	}}
	if sig.IsSimple() {
		t.Fatalf("a signature with a leading constants write must not be simple")
	}
}

func TestFinalArgumentFindsTerminalDrawRegardlessOfPosition(t *testing.T) {
	sig := CommandSignature{Arguments: []ArgumentDesc{
		{Type: ArgumentVertexBufferView, Slot: 0},
		{Type: ArgumentDrawIndexed},
	}}
	final, ok := sig.FinalArgument()
	if !ok || final.Type != ArgumentDrawIndexed {
		t.Fatalf("FinalArgument() = (%+v, %v), want DrawIndexed", final, ok)
	}
}

func TestFinalArgumentAbsentWithoutDrawOrDispatch(t *testing.T) {
	sig := CommandSignature{Arguments: []ArgumentDesc{{Type: ArgumentConstant, Num32BitValuesToSet: 1}}}
	if _, ok := sig.FinalArgument(); ok {
		t.Fatalf("a signature with no terminal draw/dispatch must report ok=false")
	}
}

func TestSelectPicksIndirectCountForSimpleSignatures(t *testing.T) {
	sig := CommandSignature{Arguments: []ArgumentDesc{{Type: ArgumentDispatch}}}
	if got := Select(sig, Capabilities{HasDeviceGeneratedCommands: true}); got != StrategyIndirectCount {
		t.Fatalf("Select() = %v, want StrategyIndirectCount", got)
	}
}

func TestSelectPicksDGCWhenSupportedAndComplex(t *testing.T) {
	sig := CommandSignature{Arguments: []ArgumentDesc{
		{Type: ArgumentConstant, Num32BitValuesToSet: 4},
		{Type: ArgumentDraw},
	}}
	if got := Select(sig, Capabilities{HasDeviceGeneratedCommands: true}); got != StrategyDGC {
		t.Fatalf("Select() = %v, want StrategyDGC", got)
	}
}

func TestSelectFallsBackToComputeRewriteWithoutDGC(t *testing.T) {
	sig := CommandSignature{Arguments: []ArgumentDesc{
		{Type: ArgumentConstant, Num32BitValuesToSet: 4},
		{Type: ArgumentDrawIndexed},
	}}
	if got := Select(sig, Capabilities{HasDeviceGeneratedCommands: false}); got != StrategyComputeRewrite {
		t.Fatalf("Select() = %v, want StrategyComputeRewrite", got)
	}
}

func TestArgumentSizeMatchesD3D12StructLayouts(t *testing.T) {
	cases := []struct {
		arg  ArgumentDesc
		want uint32
	}{
		{ArgumentDesc{Type: ArgumentDraw}, 16},
		{ArgumentDesc{Type: ArgumentDrawIndexed}, 20},
		{ArgumentDesc{Type: ArgumentDispatch}, 12},
		{ArgumentDesc{Type: ArgumentDispatchMesh}, 12},
		{ArgumentDesc{Type: ArgumentVertexBufferView}, 16},
		{ArgumentDesc{Type: ArgumentIndexBufferView}, 16},
		{ArgumentDesc{Type: ArgumentConstantBufferView}, 8},
		{ArgumentDesc{Type: ArgumentShaderResourceView}, 8},
		{ArgumentDesc{Type: ArgumentUnorderedAccessView}, 8},
		{ArgumentDesc{Type: ArgumentConstant, Num32BitValuesToSet: 3}, 12},
	}
	for _, c := range cases {
		if got := argumentSize(c.arg); got != c.want {
			t.Fatalf("argumentSize(%+v) = %d, want %d", c.arg, got, c.want)
		}
	}
}
