package command

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
)

// Allocator is the Vulkan-pool-backed command allocator from spec.md
// §3's Command allocator entity: a vk.CommandPool plus the set of
// command buffers it has lent out, reclaimed in bulk on Reset. It also
// owns the lazily-created framebuffer cache OMSetRenderTargets consults
// (spec.md §4.6), generalizing the teacher's single always-on
// VulkanFramebuffer into a keyed cache since this layer must support an
// arbitrary number of RTV/DSV combinations.
type Allocator struct {
	device vk.Device
	pool   vk.CommandPool

	mu       sync.Mutex
	lent     []vk.CommandBuffer
	resetGen uint64

	framebuffers map[fbKey]vk.Framebuffer
}

type fbKey struct {
	renderPass vk.RenderPass
	width      uint32
	height     uint32
	views      [9]vk.ImageView // up to 8 RTVs + 1 DSV
	viewCount  int
}

// NewAllocator creates the backing command pool, grounded on the
// teacher's device.go pool-creation call (ResetCommandBuffer flag so
// individual buffers can be reset/reused, matching this allocator's
// Reset contract).
func NewAllocator(device vk.Device, queueFamilyIndex uint32) (*Allocator, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &info, nil, &pool); res != vk.Success {
		return nil, fmt.Errorf("vkCreateCommandPool failed: %w", core.ErrFail)
	}
	return &Allocator{
		device:       device,
		pool:         pool,
		framebuffers: make(map[fbKey]vk.Framebuffer),
	}, nil
}

// newCommandBuffer allocates one primary command buffer from the pool,
// following NewVulkanCommandBuffer's AllocateInfo shape.
func (a *Allocator) newCommandBuffer() (vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        a.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	bufs := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(a.device, &info, bufs); res != vk.Success {
		return nil, fmt.Errorf("vkAllocateCommandBuffers failed: %w", core.ErrFail)
	}
	a.mu.Lock()
	a.lent = append(a.lent, bufs[0])
	a.mu.Unlock()
	return bufs[0], nil
}

// Reset implements the D3D12 "CommandAllocator::Reset" contract: the
// pool is reset as a whole (vkResetCommandPool), reclaiming every
// command buffer it lent out, and every cached framebuffer is destroyed.
// Callers must ensure none of those objects are still in flight on the
// GPU, exactly as D3D12 requires.
func (a *Allocator) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if res := vk.ResetCommandPool(a.device, a.pool, 0); res != vk.Success {
		return fmt.Errorf("vkResetCommandPool failed: %w", core.ErrFail)
	}
	for key, fb := range a.framebuffers {
		vk.DestroyFramebuffer(a.device, fb, nil)
		delete(a.framebuffers, key)
	}
	a.resetGen++
	a.lent = a.lent[:0]
	return nil
}

// framebufferFor returns a cached framebuffer for the given render
// pass/attachment tuple, creating one on first use — spec.md §4.6's
// "lazily create a framebuffer keyed by RTV/DSV tuple (owned by the
// allocator)".
func (a *Allocator) framebufferFor(rp vk.RenderPass, width, height uint32, views []vk.ImageView) (vk.Framebuffer, error) {
	var key fbKey
	key.renderPass = rp
	key.width = width
	key.height = height
	key.viewCount = len(views)
	copy(key.views[:], views)

	a.mu.Lock()
	if fb, ok := a.framebuffers[key]; ok {
		a.mu.Unlock()
		return fb, nil
	}
	a.mu.Unlock()

	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(a.device, &info, nil, &fb); res != vk.Success {
		return vk.Framebuffer(vk.NullHandle), fmt.Errorf("vkCreateFramebuffer failed: %w", core.ErrFail)
	}

	a.mu.Lock()
	a.framebuffers[key] = fb
	a.mu.Unlock()
	return fb, nil
}

// Destroy releases the command pool and every cached framebuffer.
func (a *Allocator) Destroy() {
	for _, fb := range a.framebuffers {
		vk.DestroyFramebuffer(a.device, fb, nil)
	}
	if a.pool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(a.device, a.pool, nil)
	}
}
