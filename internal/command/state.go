// Package command implements the command-allocator / command-list /
// bundle layer (spec.md §4.6, §4.7): the state machine a recording list
// moves through, ResourceBarrier translation, dirty root-binding
// tracking, and bundle replay.
package command

import vk "github.com/goki/vulkan"

// ResourceState mirrors the D3D12_RESOURCE_STATES bitmask the
// ResourceBarrier API takes.
type ResourceState uint32

const (
	StateCommon               ResourceState = 0
	StateVertexAndConstantBuf ResourceState = 1 << 0
	StateIndexBuffer          ResourceState = 1 << 1
	StateRenderTarget         ResourceState = 1 << 2
	StateUnorderedAccess      ResourceState = 1 << 3
	StateDepthWrite           ResourceState = 1 << 4
	StateDepthRead            ResourceState = 1 << 5
	StateNonPixelShaderResource ResourceState = 1 << 6
	StatePixelShaderResource  ResourceState = 1 << 7
	StateCopyDest             ResourceState = 1 << 10
	StateCopySource           ResourceState = 1 << 11
	StatePresent              ResourceState = 0
	StateGenericRead          = StateVertexAndConstantBuf | StateIndexBuffer | StateNonPixelShaderResource |
		StatePixelShaderResource | StateCopySource
)

// transition holds the Vulkan stage/access/layout a single D3D12 state
// bit maps to, per spec.md §4.6's "translate to Vulkan pipeline
// barriers" contract.
type transition struct {
	stage  vk.PipelineStageFlags
	access vk.AccessFlags
	layout vk.ImageLayout
}

func transitionFor(s ResourceState) transition {
	switch {
	case s == StateCommon:
		return transition{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0, vk.ImageLayoutUndefined}
	case s&StateRenderTarget != 0:
		return transition{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			vk.ImageLayoutColorAttachmentOptimal,
		}
	case s&StateUnorderedAccess != 0:
		return transition{
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit),
			vk.ImageLayoutGeneral,
		}
	case s&StateDepthWrite != 0:
		return transition{
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
			vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	case s&StateDepthRead != 0:
		return transition{
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit),
			vk.ImageLayoutDepthStencilReadOnlyOptimal,
		}
	case s&(StateNonPixelShaderResource|StatePixelShaderResource) != 0:
		stage := vk.PipelineStageFlags(0)
		if s&StatePixelShaderResource != 0 {
			stage |= vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
		}
		if s&StateNonPixelShaderResource != 0 {
			stage |= vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit) | vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
		}
		return transition{stage, vk.AccessFlags(vk.AccessShaderReadBit), vk.ImageLayoutShaderReadOnlyOptimal}
	case s&StateCopyDest != 0:
		return transition{vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit), vk.ImageLayoutTransferDstOptimal}
	case s&StateCopySource != 0:
		return transition{vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferReadBit), vk.ImageLayoutTransferSrcOptimal}
	case s&StateVertexAndConstantBuf != 0:
		return transition{vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), vk.AccessFlags(vk.AccessVertexAttributeReadBit) | vk.AccessFlags(vk.AccessUniformReadBit), vk.ImageLayoutUndefined}
	case s&StateIndexBuffer != 0:
		return transition{vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), vk.AccessFlags(vk.AccessIndexReadBit), vk.ImageLayoutUndefined}
	default:
		return transition{vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), vk.AccessFlags(vk.AccessMemoryReadBit) | vk.AccessFlags(vk.AccessMemoryWriteBit), vk.ImageLayoutGeneral}
	}
}

// ListState is spec.md §4.6's command-list state machine.
type ListState int

const (
	StateInitial ListState = iota
	StateRecording
	StateClosed
	StateSubmitted
)
