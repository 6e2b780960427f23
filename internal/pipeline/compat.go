package pipeline

import vk "github.com/goki/vulkan"

// CompatKey is the render-pass-compatibility descriptor from spec.md
// §4.5: "Two PSOs are render-pass-compatible iff their DSV and RT-count
// agree and all RT formats match pairwise." It is comparable so it can
// key a plain Go map of already-built compatibility-only render passes.
type CompatKey struct {
	DSVFormat   vk.Format
	SampleCount uint32
	rtCount     int
	rt          [8]vk.Format
}

// NewCompatKey builds a CompatKey from a render target format list and
// optional depth/stencil format.
func NewCompatKey(rtFormats []vk.Format, dsvFormat vk.Format, sampleCount uint32) CompatKey {
	k := CompatKey{DSVFormat: dsvFormat, SampleCount: sampleCount, rtCount: len(rtFormats)}
	copy(k.rt[:], rtFormats)
	return k
}

// Compatible implements spec.md §4.5's render-pass-compatibility rule.
func (k CompatKey) Compatible(other CompatKey) bool {
	if k.DSVFormat != other.DSVFormat || k.rtCount != other.rtCount {
		return false
	}
	for i := 0; i < k.rtCount; i++ {
		if k.rt[i] != other.rt[i] {
			return false
		}
	}
	return true
}

// formatByteSize returns the per-texel byte size used to resolve
// D3D12_APPEND_ALIGNED_ELEMENT input-layout offsets. Only the formats
// commonly used for vertex attributes are modeled; any other format is
// treated as 4 bytes total, without a log message.
func formatByteSize(f vk.Format) uint32 {
	switch f {
	case vk.FormatR32Sfloat, vk.FormatR32Uint, vk.FormatR32Sint:
		return 4
	case vk.FormatR32g32Sfloat, vk.FormatR32g32Uint, vk.FormatR32g32Sint:
		return 8
	case vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32Uint, vk.FormatR32g32b32Sint:
		return 12
	case vk.FormatR32g32b32a32Sfloat, vk.FormatR32g32b32a32Uint, vk.FormatR32g32b32a32Sint:
		return 16
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Uint, vk.FormatR8g8b8a8Snorm, vk.FormatR8g8b8a8Sint:
		return 4
	case vk.FormatR16g16Sfloat, vk.FormatR16g16Unorm:
		return 4
	case vk.FormatR16g16b16a16Sfloat, vk.FormatR16g16b16a16Unorm:
		return 8
	default:
		return 4
	}
}

// resolveOffsets fills in AlignedByteOffset for every element that uses
// AppendAligned, per input slot (D3D12 packs each slot's stream
// independently).
func resolveOffsets(elems []InputElement) []InputElement {
	out := make([]InputElement, len(elems))
	copy(out, elems)
	next := map[uint32]uint32{}
	for i := range out {
		slot := out[i].InputSlot
		if out[i].AlignedByteOffset == AppendAligned {
			out[i].AlignedByteOffset = next[slot]
		}
		next[slot] = out[i].AlignedByteOffset + formatByteSize(out[i].Format)
	}
	return out
}
