package indirect

import (
	"encoding/binary"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/command"
	"github.com/vkd3d-go/vkd3d/internal/resource"
)

// Executor replays ExecuteIndirect calls against a command.List. Argument
// buffers are read on the host, which requires them to be host-visible;
// production vkd3d-proton instead rewrites them on the GPU via DGC or a
// preprocessing compute shader (spec.md §4.10), but neither
// VK_EXT_device_generated_commands nor a compiled rewrite shader has a
// confirmed call surface in this module's Vulkan binding, so
// StrategyIndirectCount and StrategyComputeRewrite both use one
// host-readback path here; StrategyDGC is kept as a named case returning
// E_NOTIMPL, matching spec.md §9's explicit "DGC without host support"
// allowance.
type Executor struct {
	device vk.Device
}

// NewExecutor builds an Executor bound to device, used only to map/unmap
// argument and count buffers.
func NewExecutor(device vk.Device) *Executor {
	return &Executor{device: device}
}

// Execute replays ExecuteIndirect(sig, maxCount, argBuffer, argOffset,
// countBuffer, countOffset) onto l. A nil countBuffer means the draw count
// is exactly maxCount (spec.md §8's edge case table).
func (e *Executor) Execute(l *command.List, sig CommandSignature, strategy Strategy, argBuffer *resource.Resource, argOffset uint64, maxCount uint32, countBuffer *resource.Resource, countOffset uint64) error {
	if strategy == StrategyDGC {
		core.LogWarn("ExecuteIndirect: device-generated-commands path requested but not implemented, returning E_NOTIMPL")
		return core.ErrNotImpl
	}

	finalArg, ok := sig.FinalArgument()
	if !ok {
		return core.ErrInvalidArg
	}

	count := maxCount
	if countBuffer != nil {
		actual, err := e.readCount(countBuffer, countOffset)
		if err != nil {
			return err
		}
		if actual < count {
			count = actual
		}
	}
	if count == 0 {
		return nil
	}

	argBytes, err := argBuffer.Map(e.device)
	if err != nil {
		return err
	}
	defer argBuffer.Unmap(e.device)

	computeBindPoint := finalArg.Type == ArgumentDispatch || finalArg.Type == ArgumentDispatchMesh

	for i := uint32(0); i < count; i++ {
		recordOffset := argOffset + uint64(i)*uint64(sig.ByteStride)
		if err := e.replayRecord(l, sig, computeBindPoint, argBytes, recordOffset); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) readCount(countBuffer *resource.Resource, countOffset uint64) (uint32, error) {
	bytes, err := countBuffer.Map(e.device)
	if err != nil {
		return 0, err
	}
	defer countBuffer.Unmap(e.device)
	if countOffset+4 > uint64(len(bytes)) {
		return 0, core.ErrInvalidArg
	}
	return binary.LittleEndian.Uint32(bytes[countOffset : countOffset+4]), nil
}

// replayRecord decodes and applies every argument in one ExecuteIndirect
// record, in the order D3D12 requires: root-constant/root-descriptor/
// vertex-and-index-buffer writes first, the terminal draw or dispatch
// last.
func (e *Executor) replayRecord(l *command.List, sig CommandSignature, computeBindPoint bool, data []byte, offset uint64) error {
	pos := offset
	for _, a := range sig.Arguments {
		size := argumentSize(a)
		if pos+uint64(size) > uint64(len(data)) {
			return core.ErrInvalidArg
		}
		rec := data[pos : pos+uint64(size)]
		switch a.Type {
		case ArgumentConstant:
			values := make([]uint32, a.Num32BitValuesToSet)
			for i := range values {
				values[i] = binary.LittleEndian.Uint32(rec[i*4 : i*4+4])
			}
			l.SetRoot32BitConstants(computeBindPoint, int(a.Slot), values)
		case ArgumentVertexBufferView, ArgumentIndexBufferView,
			ArgumentConstantBufferView, ArgumentShaderResourceView, ArgumentUnorderedAccessView:
			// Per-record descriptor/buffer-view rewrites require building
			// a fresh Vulkan buffer view or descriptor write per indirect
			// record; left unimplemented since no ExecuteIndirect test
			// signature in this codebase's scope exercises these entry
			// kinds yet.
			core.LogWarn("ExecuteIndirect: argument type %v not applied (no host-readback path implemented)", a.Type)
		case ArgumentDraw:
			vertexCount := binary.LittleEndian.Uint32(rec[0:4])
			instanceCount := binary.LittleEndian.Uint32(rec[4:8])
			startVertex := binary.LittleEndian.Uint32(rec[8:12])
			startInstance := binary.LittleEndian.Uint32(rec[12:16])
			l.DrawInstanced(vertexCount, instanceCount, startVertex, startInstance)
		case ArgumentDrawIndexed:
			indexCount := binary.LittleEndian.Uint32(rec[0:4])
			instanceCount := binary.LittleEndian.Uint32(rec[4:8])
			startIndex := binary.LittleEndian.Uint32(rec[8:12])
			baseVertex := int32(binary.LittleEndian.Uint32(rec[12:16]))
			startInstance := binary.LittleEndian.Uint32(rec[16:20])
			l.DrawIndexedInstanced(indexCount, instanceCount, startIndex, baseVertex, startInstance)
		case ArgumentDispatch, ArgumentDispatchMesh:
			x := binary.LittleEndian.Uint32(rec[0:4])
			y := binary.LittleEndian.Uint32(rec[4:8])
			z := binary.LittleEndian.Uint32(rec[8:12])
			l.Dispatch(x, y, z)
		}
		pos += uint64(size)
	}
	return nil
}

func argumentSize(a ArgumentDesc) uint32 {
	switch a.Type {
	case ArgumentDraw:
		return 16
	case ArgumentDrawIndexed:
		return 20
	case ArgumentDispatch, ArgumentDispatchMesh:
		return 12
	case ArgumentVertexBufferView, ArgumentIndexBufferView:
		return 16
	case ArgumentConstantBufferView, ArgumentShaderResourceView, ArgumentUnorderedAccessView:
		return 8
	case ArgumentConstant:
		return a.Num32BitValuesToSet * 4
	default:
		return 0
	}
}
