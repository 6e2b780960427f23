package present

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
)

// SupportInfo mirrors the DXGI adapter-output capability query
// (IDXGIOutput::GetDisplayModeList analogue) as the Vulkan surface
// queries the teacher performs before swapchain creation.
type SupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QuerySupport fills a SupportInfo for physicalDevice/surface.
func QuerySupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (SupportInfo, error) {
	var info SupportInfo

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities); res != vk.Success {
		return info, core.ErrFail
	}
	info.Capabilities.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return info, core.ErrFail
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return info, core.ErrFail
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return info, core.ErrFail
	}
	if presentModeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, info.PresentModes); res != vk.Success {
			return info, core.ErrFail
		}
	}
	return info, nil
}

// SwapChain is the Vulkan-backed IDXGISwapChain: a ring of presentable
// images plus the views the root package's render targets attach to.
type SwapChain struct {
	device vk.Device

	Handle      vk.Swapchain
	Format      vk.SurfaceFormat
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
	BufferCount uint32
}

// Create builds a swapchain against surface sized width x height,
// preferring an SRGB BGRA8 format and mailbox present mode exactly as the
// teacher's createSwapchain does, falling back to FIFO (always
// guaranteed) and the surface's first reported format.
func Create(device vk.Device, physicalDevice vk.PhysicalDevice, surface vk.Surface, graphicsQueueFamily, presentQueueFamily uint32, width, height uint32, bufferCount uint32) (*SwapChain, error) {
	support, err := QuerySupport(physicalDevice, surface)
	if err != nil {
		return nil, err
	}

	format := support.Formats[0]
	for _, f := range support.Formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			format = f
			break
		}
	}

	presentMode := vk.PresentModeFifo
	for _, m := range support.PresentModes {
		if m == vk.PresentModeMailbox {
			presentMode = m
			break
		}
	}

	extent := vk.Extent2D{Width: width, Height: height}
	if support.Capabilities.CurrentExtent.Width != math.MaxUint32 {
		extent = support.Capabilities.CurrentExtent
	}
	extent.Width = clamp(extent.Width, support.Capabilities.MinImageExtent.Width, support.Capabilities.MaxImageExtent.Width)
	extent.Height = clamp(extent.Height, support.Capabilities.MinImageExtent.Height, support.Capabilities.MaxImageExtent.Height)

	imageCount := bufferCount
	if imageCount < support.Capabilities.MinImageCount {
		imageCount = support.Capabilities.MinImageCount
	}
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	if graphicsQueueFamily != presentQueueFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{graphicsQueueFamily, presentQueueFamily}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device, &createInfo, nil, &handle); res != vk.Success {
		core.LogError("failed to create swapchain")
		return nil, core.ErrFail
	}

	sc := &SwapChain{device: device, Handle: handle, Format: format, Extent: extent}

	var actualCount uint32
	if res := vk.GetSwapchainImages(device, handle, &actualCount, nil); res != vk.Success {
		return nil, core.ErrFail
	}
	sc.Images = make([]vk.Image, actualCount)
	if res := vk.GetSwapchainImages(device, handle, &actualCount, sc.Images); res != vk.Success {
		return nil, core.ErrFail
	}
	sc.BufferCount = actualCount

	sc.Views = make([]vk.ImageView, actualCount)
	for i, img := range sc.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(device, &viewInfo, nil, &sc.Views[i]); res != vk.Success {
			core.LogError("failed to create swapchain image view")
			return nil, core.ErrFail
		}
	}

	return sc, nil
}

// AcquireNextImage mirrors IDXGISwapChain::GetCurrentBackBufferIndex's
// acquire step. A vk.ErrorOutOfDate result is surfaced to the caller so
// it can decide to recreate the swapchain (OutOfDate is not itself an
// error condition the Present queue record should fail on).
func (sc *SwapChain) AcquireNextImage(timeoutNs uint64, imageAvailable vk.Semaphore, fence vk.Fence) (uint32, bool, error) {
	var index uint32
	result := vk.AcquireNextImage(sc.device, sc.Handle, timeoutNs, imageAvailable, fence, &index)
	switch result {
	case vk.Success:
		return index, true, nil
	case vk.Suboptimal:
		return index, false, nil
	case vk.ErrorOutOfDate:
		return 0, false, nil
	default:
		return 0, false, core.ErrFail
	}
}

// Destroy destroys the image views and the swapchain itself. Swapchain
// images are owned by the swapchain and must not be destroyed directly.
func (sc *SwapChain) Destroy() {
	for _, v := range sc.Views {
		vk.DestroyImageView(sc.device, v, nil)
	}
	sc.Views = nil
	if sc.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(sc.device, sc.Handle, nil)
		sc.Handle = vk.NullSwapchain
	}
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
