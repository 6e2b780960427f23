package vkd3d

import (
	"github.com/vkd3d-go/vkd3d/internal/indirect"
	"github.com/vkd3d-go/vkd3d/internal/resource"
)

// CommandSignature is ID3D12CommandSignature (spec.md §3, §4.10): an
// argument-buffer layout plus the translation strategy this device
// resolved for it at creation time.
type CommandSignature struct {
	desc     indirect.CommandSignature
	strategy indirect.Strategy
}

// CreateCommandSignature implements ID3D12Device::CreateCommandSignature.
// The strategy is decided once here, against the device's indirect
// capabilities probed at CreateDevice time, rather than re-probed on
// every ExecuteIndirect call (spec.md §9's Open Question).
func (d *Device) CreateCommandSignature(desc indirect.CommandSignature) *CommandSignature {
	return &CommandSignature{desc: desc, strategy: indirect.Select(desc, d.indirectCaps)}
}

// ExecuteIndirect implements ID3D12GraphicsCommandList::ExecuteIndirect
// (spec.md §4.10): replays up to maxCount records from argBuffer starting
// at argOffset, each one argBuffer-stride bytes apart, optionally capped
// by the uint32 stored at countOffset in countBuffer.
func (l *GraphicsCommandList) ExecuteIndirect(sig *CommandSignature, maxCount uint32, argBuffer *Resource, argOffset uint64, countBuffer *Resource, countOffset uint64) error {
	executor := indirect.NewExecutor(l.d.handle)
	var cb *resource.Resource
	if countBuffer != nil {
		cb = countBuffer.inner
	}
	return executor.Execute(l.list, sig.desc, sig.strategy, argBuffer.inner, argOffset, maxCount, cb, countOffset)
}
