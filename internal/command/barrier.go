package command

import (
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/resource"
)

// trackedState is the per-resource implicit state the list reconciles
// across submissions, per spec.md §4.6: "implicit state promotion and
// decay are tracked per-resource inside the list".
type trackedState struct {
	res   *resource.Resource
	state ResourceState
}

// recordBarrier emits the Vulkan pipeline barrier for a single
// before/after resource-state transition, grounded on the teacher's
// only barrier call site (cogentcore-core/egpu's ImageMemoryBarrier
// construction, which this module generalizes from one fixed
// present/ownership transfer into an arbitrary before/after pair) and
// on the standard CmdPipelineBarrier(srcStage, dstStage, deps,
// memBarriers, bufBarriers, imgBarriers) argument order every example
// in the pack uses.
func (l *List) recordBarrier(res *resource.Resource, before, after ResourceState, isBuffer bool, aspect vk.ImageAspectFlags) {
	from := transitionFor(before)
	to := transitionFor(after)

	if isBuffer {
		b := vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       from.access,
			DstAccessMask:       to.access,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              res.Buffer,
			Offset:              0,
			Size:                vk.DeviceSize(vk.WholeSize),
		}
		vk.CmdPipelineBarrier(l.cmd, from.stage, to.stage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{b}, 0, nil)
		return
	}

	img := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       from.access,
		DstAccessMask:       to.access,
		OldLayout:           from.layout,
		NewLayout:           to.layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               res.Image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: vk.RemainingMipLevels,
			LayerCount: vk.RemainingArrayLayers,
		},
	}
	vk.CmdPipelineBarrier(l.cmd, from.stage, to.stage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{img})
}

// ResourceBarrier implements spec.md §4.6's ResourceBarrier contract: it
// looks up (or seeds) the resource's tracked state inside this list,
// emits the Vulkan barrier for the before→after transition, and updates
// the tracked state so a later barrier on the same resource starts from
// the right place.
func (l *List) ResourceBarrier(res *resource.Resource, after ResourceState) error {
	if l.state != StateRecording {
		l.invalid = true
		core.LogError("ResourceBarrier called on a list that is not Recording")
		return core.ErrFail
	}
	tracked, ok := l.tracked[res.ID]
	before := StateCommon
	if ok {
		before = tracked.state
	}
	isBuffer := res.Desc.Dimension == resource.DimensionBuffer
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if res.Desc.Flags&resource.FlagAllowDepthStencil != 0 {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	l.recordBarrier(res, before, after, isBuffer, aspect)
	l.tracked[res.ID] = trackedState{res: res, state: after}
	return nil
}
