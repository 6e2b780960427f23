package resource

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
	"github.com/vkd3d-go/vkd3d/internal/vamap"
)

// Manager owns every live resource's Vulkan allocation and the VA map
// that resolves a GPU-VA back to its owning Resource (spec.md §4.2,
// §4.3). One Manager exists per device.
type Manager struct {
	device           vk.Device
	physicalDevice   vk.PhysicalDevice
	hasConditional   bool
	uploadHVV        bool
	nextVA           uint64
	va               *vamap.Map[*Resource]
	memoryProperties vk.PhysicalDeviceMemoryProperties
}

// NewManager constructs a Manager against an already-created Vulkan
// device. uploadHVV mirrors the VKD3D_CONFIG upload_hvv flag (spec.md
// §6): when set, UPLOAD heaps prefer a host-visible *and* device-local
// memory type if one exists.
func NewManager(device vk.Device, physicalDevice vk.PhysicalDevice, hasConditionalRendering, uploadHVV bool) *Manager {
	m := &Manager{
		device:         device,
		physicalDevice: physicalDevice,
		hasConditional: hasConditionalRendering,
		uploadHVV:      uploadHVV,
		// GPU-VAs for buffers are synthesized rather than read from
		// vkGetBufferDeviceAddress so deref() and the VA map's block
		// math stay in full control of the process; the base is kept
		// away from zero so a null-resource deref never aliases a real one.
		nextVA: 1 << 32,
		va:     vamap.New[*Resource](),
	}
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &m.memoryProperties)
	m.memoryProperties.Deref()
	return m
}

// findMemoryIndex mirrors the example renderer's VulkanContext.FindMemoryIndex:
// scan memory types accepted by typeFilter for the first whose property
// flags are a superset of propertyFlags.
func (m *Manager) findMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (int, bool) {
	for i := uint32(0); i < m.memoryProperties.MemoryTypeCount; i++ {
		m.memoryProperties.MemoryTypes[i].Deref()
		flags := vk.MemoryPropertyFlags(m.memoryProperties.MemoryTypes[i].PropertyFlags)
		if typeFilter&(1<<i) != 0 && flags&propertyFlags == propertyFlags {
			return int(i), true
		}
	}
	return 0, false
}

// memoryPropertyFor implements spec.md §4.3's heap-type mapping.
func (m *Manager) memoryPropertyFor(hp HeapProperties) vk.MemoryPropertyFlags {
	switch hp.Type {
	case HeapDefault:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	case HeapUpload:
		base := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
		if m.uploadHVV {
			return base | vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
		}
		return base
	case HeapReadback:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit)
	case HeapGPUUpload:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit)
	default: // HeapCustom
		switch hp.CPUPage {
		case CPUPageWriteCombine:
			return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
		case CPUPageWriteBack:
			return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit)
		default:
			return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
		}
	}
}

// bufferUsageFor populates every usage bit the D3D12 flags permit, per
// spec.md §4.3's algorithm paragraph.
func (m *Manager) bufferUsageFor(desc Desc) vk.BufferUsageFlags {
	usage := vk.BufferUsageFlags(
		vk.BufferUsageTransferSrcBit |
			vk.BufferUsageTransferDstBit |
			vk.BufferUsageUniformTexelBufferBit |
			vk.BufferUsageStorageTexelBufferBit |
			vk.BufferUsageStorageBufferBit |
			vk.BufferUsageUniformBufferBit |
			vk.BufferUsageVertexBufferBit |
			vk.BufferUsageIndexBufferBit |
			vk.BufferUsageIndirectBufferBit |
			vk.BufferUsageShaderDeviceAddressBit,
	)
	if desc.Flags&FlagRaytracingAccelStruct != 0 {
		usage |= vk.BufferUsageFlags(
			vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR |
				vk.BufferUsageAccelerationStructureStorageBitKHR,
		)
	}
	if m.hasConditional {
		usage |= vk.BufferUsageFlags(vk.BufferUsageConditionalRenderingBitEXT)
	}
	return usage
}

func imageUsageFor(desc Desc) vk.ImageUsageFlags {
	usage := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)
	if desc.Flags&FlagDenyShaderResource == 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if desc.Flags&FlagAllowRenderTarget != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if desc.Flags&FlagAllowDepthStencil != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if desc.Flags&FlagAllowUnorderedAccess != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	return usage
}

func vkImageType(dim Dimension) vk.ImageType {
	switch dim {
	case DimensionTexture1D:
		return vk.ImageType1d
	case DimensionTexture3D:
		return vk.ImageType3d
	default:
		return vk.ImageType2d
	}
}

// validate rejects the D3D12-detectable malformed descriptors spec.md
// §4.3 names: dimension/format mismatches.
func validate(desc Desc) error {
	if desc.Dimension == DimensionBuffer && desc.Format != vk.FormatUndefined {
		return fmt.Errorf("buffer resource must not carry a format: %w", core.ErrInvalidArg)
	}
	if desc.Dimension != DimensionBuffer && desc.Format == vk.FormatUndefined {
		return fmt.Errorf("texture resource requires a format: %w", core.ErrInvalidArg)
	}
	if desc.Width == 0 {
		return fmt.Errorf("zero-width resource: %w", core.ErrInvalidArg)
	}
	return nil
}

// CreateCommittedResource implements spec.md §4.3's contract: allocate
// dedicated device memory for a new buffer or image, select its memory
// type from heapProps, and publish its GPU-VA (buffers only) into the
// manager's VA map.
func (m *Manager) CreateCommittedResource(heapProps HeapProperties, desc Desc, _ uint32, _ *ClearValue) (*Resource, error) {
	if err := validate(desc); err != nil {
		return nil, err
	}

	r := &Resource{
		ID:       core.NewID(),
		Desc:     desc,
		HeapProp: heapProps,
	}

	var memReqs vk.MemoryRequirements
	if desc.Dimension == DimensionBuffer {
		info := vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        vk.DeviceSize(desc.Width),
			Usage:       m.bufferUsageFor(desc),
			SharingMode: vk.SharingModeExclusive,
		}
		if res := vk.CreateBuffer(m.device, &info, nil, &r.Buffer); res != vk.Success {
			return nil, fmt.Errorf("vkCreateBuffer failed: %w", core.ErrFail)
		}
		vk.GetBufferMemoryRequirements(m.device, r.Buffer, &memReqs)
	} else {
		info := vk.ImageCreateInfo{
			SType:     vk.StructureTypeImageCreateInfo,
			ImageType: vkImageType(desc.Dimension),
			Format:    desc.Format,
			Extent: vk.Extent3D{
				Width:  uint32(desc.Width),
				Height: maxU32(desc.Height, 1),
				Depth:  depthOf(desc),
			},
			MipLevels:     uint32(maxU16(desc.MipLevels, 1)),
			ArrayLayers:   arrayLayersOf(desc),
			Samples:       sampleCountFlag(desc.SampleCount),
			Tiling:        vk.ImageTilingOptimal,
			Usage:         imageUsageFor(desc),
			SharingMode:   vk.SharingModeExclusive,
			InitialLayout: vk.ImageLayoutUndefined,
		}
		if res := vk.CreateImage(m.device, &info, nil, &r.Image); res != vk.Success {
			return nil, fmt.Errorf("vkCreateImage failed: %w", core.ErrFail)
		}
		vk.GetImageMemoryRequirements(m.device, r.Image, &memReqs)
	}
	memReqs.Deref()

	propFlags := m.memoryPropertyFor(heapProps)
	typeIndex, ok := m.findMemoryIndex(memReqs.MemoryTypeBits, propFlags)
	if !ok {
		m.destroyHandle(r)
		return nil, fmt.Errorf("no memory type satisfies requested heap properties: %w", core.ErrOutOfMemory)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(typeIndex),
	}
	if res := vk.AllocateMemory(m.device, &allocInfo, nil, &r.Memory); res != vk.Success {
		m.destroyHandle(r)
		return nil, fmt.Errorf("vkAllocateMemory failed: %w", core.ErrOutOfMemory)
	}
	r.MemoryOffset = 0
	r.MemorySize = uint64(memReqs.Size)

	if desc.Dimension == DimensionBuffer {
		if res := vk.BindBufferMemory(m.device, r.Buffer, r.Memory, 0); res != vk.Success {
			m.destroyAll(r)
			return nil, fmt.Errorf("vkBindBufferMemory failed: %w", core.ErrFail)
		}
		r.VABase = m.allocVA(desc.Width)
		m.va.Insert(r, r.VABase, desc.Width)
	} else {
		if res := vk.BindImageMemory(m.device, r.Image, r.Memory, 0); res != vk.Success {
			m.destroyAll(r)
			return nil, fmt.Errorf("vkBindImageMemory failed: %w", core.ErrFail)
		}
	}
	return r, nil
}

// allocVA bump-allocates a disjoint GPU-VA range of at least size bytes,
// aligned so it never straddles a VA-map block boundary needlessly.
func (m *Manager) allocVA(size uint64) uint64 {
	const align = 65536
	base := (m.nextVA + align - 1) &^ (align - 1)
	m.nextVA = base + size
	return base
}

// Deref resolves a GPU-VA back to the resource owning it, spec.md §4.2's
// deref(va) -> resource? contract.
func (m *Manager) Deref(va uint64) (*Resource, bool) {
	return m.va.Deref(va)
}

// Destroy releases r's Vulkan handles and removes it from the VA map. It
// is a caller error to call Destroy while r's internal refcount (queue
// in-flight tracking) is non-zero; the queue/fence-worker layer is
// responsible for sequencing this call behind submission completion.
func (m *Manager) Destroy(r *Resource) {
	if r.Desc.Dimension == DimensionBuffer {
		m.va.Remove(r.VABase, r.Desc.Width)
	}
	if !r.Borrowed {
		m.destroyAll(r)
	}
}

func (m *Manager) destroyHandle(r *Resource) {
	if r.Buffer != vk.Buffer(vk.NullHandle) {
		vk.DestroyBuffer(m.device, r.Buffer, nil)
	}
	if r.Image != vk.Image(vk.NullHandle) {
		vk.DestroyImage(m.device, r.Image, nil)
	}
}

func (m *Manager) destroyAll(r *Resource) {
	m.destroyHandle(r)
	if r.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(m.device, r.Memory, nil)
	}
}

func maxU32(v uint32, min uint32) uint32 {
	if v < min {
		return min
	}
	return v
}

func maxU16(v uint16, min uint16) uint16 {
	if v < min {
		return min
	}
	return v
}

func depthOf(desc Desc) uint32 {
	if desc.Dimension == DimensionTexture3D {
		return maxU32(uint32(desc.DepthOrArraySize), 1)
	}
	return 1
}

func arrayLayersOf(desc Desc) uint32 {
	if desc.Dimension == DimensionTexture3D {
		return 1
	}
	return maxU32(uint32(desc.DepthOrArraySize), 1)
}

func sampleCountFlag(count uint32) vk.SampleCountFlagBits {
	switch count {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	case 16:
		return vk.SampleCount16Bit
	default:
		return vk.SampleCount1Bit
	}
}
