// Package indirect implements command signatures and the ExecuteIndirect
// translation strategies (spec.md §4.10).
package indirect

// ArgumentType is one D3D12_INDIRECT_ARGUMENT_TYPE entry.
type ArgumentType int

const (
	ArgumentDraw ArgumentType = iota
	ArgumentDrawIndexed
	ArgumentDispatch
	ArgumentDispatchMesh
	ArgumentVertexBufferView
	ArgumentIndexBufferView
	ArgumentConstant
	ArgumentConstantBufferView
	ArgumentShaderResourceView
	ArgumentUnorderedAccessView
)

// ArgumentDesc is one entry of a command signature's argument layout.
type ArgumentDesc struct {
	Type ArgumentType

	// Slot identifies which vertex-buffer slot or root-parameter index
	// this entry writes, for VertexBufferView/Constant/CBV/SRV/UAV
	// entries; unused for Draw/DrawIndexed/Dispatch/DispatchMesh.
	Slot uint32

	// DestOffsetIn32BitValues and Num32BitValuesToSet apply only to
	// ArgumentConstant entries (root 32-bit constants written per-draw).
	DestOffsetIn32BitValues uint32
	Num32BitValuesToSet     uint32
}

// CommandSignature is the ID3D12CommandSignature entity: a byte-stride
// plus an ordered list of argument descriptions describing one record of
// an ExecuteIndirect argument buffer.
type CommandSignature struct {
	ByteStride uint32
	Arguments  []ArgumentDesc
}

// IsSimple reports whether sig contains only a single trailing
// Draw/DrawIndexed/Dispatch/DispatchMesh argument and nothing else —
// spec.md §4.10's condition for translating straight to an indirect-draw
// Vulkan call instead of falling back to DGC or a rewrite pass.
func (sig CommandSignature) IsSimple() bool {
	if len(sig.Arguments) != 1 {
		return false
	}
	switch sig.Arguments[0].Type {
	case ArgumentDraw, ArgumentDrawIndexed, ArgumentDispatch, ArgumentDispatchMesh:
		return true
	default:
		return false
	}
}

// FinalArgument returns the signature's terminal draw/dispatch entry,
// which by D3D12's rule is always exactly one and always last.
func (sig CommandSignature) FinalArgument() (ArgumentDesc, bool) {
	for _, a := range sig.Arguments {
		switch a.Type {
		case ArgumentDraw, ArgumentDrawIndexed, ArgumentDispatch, ArgumentDispatchMesh:
			return a, true
		}
	}
	return ArgumentDesc{}, false
}
