package pipeline

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestCompatKeyCompatibleMatchesDSVAndRTFormats(t *testing.T) {
	a := NewCompatKey([]vk.Format{vk.FormatR8g8b8a8Unorm}, vk.FormatD32Sfloat, 1)
	b := NewCompatKey([]vk.Format{vk.FormatR8g8b8a8Unorm}, vk.FormatD32Sfloat, 4)
	if !a.Compatible(b) {
		t.Fatalf("expected compatible: sample count does not affect compatibility")
	}
}

func TestCompatKeyIncompatibleOnRTFormatMismatch(t *testing.T) {
	a := NewCompatKey([]vk.Format{vk.FormatR8g8b8a8Unorm}, vk.FormatUndefined, 1)
	b := NewCompatKey([]vk.Format{vk.FormatR32g32b32a32Sfloat}, vk.FormatUndefined, 1)
	if a.Compatible(b) {
		t.Fatalf("expected incompatible: RT formats differ")
	}
}

func TestCompatKeyIncompatibleOnRTCountMismatch(t *testing.T) {
	a := NewCompatKey([]vk.Format{vk.FormatR8g8b8a8Unorm}, vk.FormatUndefined, 1)
	b := NewCompatKey([]vk.Format{vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Unorm}, vk.FormatUndefined, 1)
	if a.Compatible(b) {
		t.Fatalf("expected incompatible: RT counts differ")
	}
}

func TestCompatKeyIncompatibleOnDSVMismatch(t *testing.T) {
	a := NewCompatKey(nil, vk.FormatD32Sfloat, 1)
	b := NewCompatKey(nil, vk.FormatD24UnormS8Uint, 1)
	if a.Compatible(b) {
		t.Fatalf("expected incompatible: DSV formats differ")
	}
}

func TestResolveOffsetsAppendsPerSlot(t *testing.T) {
	elems := []InputElement{
		{SemanticName: "POSITION", Format: vk.FormatR32g32b32Sfloat, InputSlot: 0, AlignedByteOffset: AppendAligned},
		{SemanticName: "NORMAL", Format: vk.FormatR32g32b32Sfloat, InputSlot: 0, AlignedByteOffset: AppendAligned},
		{SemanticName: "COLOR", Format: vk.FormatR8g8b8a8Unorm, InputSlot: 0, AlignedByteOffset: AppendAligned},
	}
	out := resolveOffsets(elems)
	want := []uint32{0, 12, 24}
	for i, w := range want {
		if out[i].AlignedByteOffset != w {
			t.Fatalf("element %d offset = %d, want %d", i, out[i].AlignedByteOffset, w)
		}
	}
}

func TestResolveOffsetsTracksSlotsIndependently(t *testing.T) {
	elems := []InputElement{
		{SemanticName: "POSITION", Format: vk.FormatR32g32b32Sfloat, InputSlot: 0, AlignedByteOffset: AppendAligned},
		{SemanticName: "INSTANCE_XFORM", Format: vk.FormatR32g32b32a32Sfloat, InputSlot: 1, AlignedByteOffset: AppendAligned, PerInstance: true},
		{SemanticName: "INSTANCE_COLOR", Format: vk.FormatR32g32b32a32Sfloat, InputSlot: 1, AlignedByteOffset: AppendAligned, PerInstance: true},
	}
	out := resolveOffsets(elems)
	if out[0].AlignedByteOffset != 0 {
		t.Fatalf("slot 0 first element offset = %d, want 0", out[0].AlignedByteOffset)
	}
	if out[1].AlignedByteOffset != 0 {
		t.Fatalf("slot 1 first element offset = %d, want 0 (independent from slot 0)", out[1].AlignedByteOffset)
	}
	if out[2].AlignedByteOffset != 16 {
		t.Fatalf("slot 1 second element offset = %d, want 16", out[2].AlignedByteOffset)
	}
}

func TestResolveOffsetsPreservesExplicitOffset(t *testing.T) {
	elems := []InputElement{
		{Format: vk.FormatR32g32b32Sfloat, InputSlot: 0, AlignedByteOffset: 32},
	}
	out := resolveOffsets(elems)
	if out[0].AlignedByteOffset != 32 {
		t.Fatalf("explicit offset overwritten: got %d, want 32", out[0].AlignedByteOffset)
	}
}
