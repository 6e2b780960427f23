package resource

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	ordmap "goki.dev/ordmap"

	"github.com/vkd3d-go/vkd3d/core"
)

// ViewKind enumerates the descriptor kinds spec.md §3 lists for View.
type ViewKind int

const (
	ViewCBV ViewKind = iota
	ViewSRV
	ViewUAV
	ViewSampler
	ViewRTV
	ViewDSV
	// ViewAccelStructOrOMM backs place_acceleration_structure /
	// place_micromap (spec.md §4.2): a placeholder view kind that can
	// hold either an acceleration structure or an opacity micromap.
	ViewAccelStructOrOMM
)

// View is one descriptor-heap entry, per the View entity in spec.md §3.
// SRV/UAV carry both a buffer-view and image-view handle because a
// single descriptor range is polymorphic over buffer/texture in D3D12.
type View struct {
	Kind   ViewKind
	Format vk.Format

	BufferView vk.BufferView
	ImageView  vk.ImageView
	Sampler    vk.Sampler

	// AccelStruct/Micromap hold the raw handle value for the optional
	// VK_KHR_acceleration_structure / VK_EXT_opacity_micromap objects.
	// Kept as opaque uint64 rather than the extension-specific Vulkan
	// types: those extensions are feature-gated (spec.md §6) and not
	// every bound Vulkan package exposes their generated bindings.
	AccelStruct uint64
	Micromap    uint64

	// CBV triple: no Vulkan object is needed, the buffer/offset/size is
	// bound directly as a push descriptor or a buffer-view-less binding.
	CBVBuffer vk.Buffer
	CBVOffset uint64
	CBVSize   uint64

	// Counter is the optional UAV counter view (spec.md §3's View entity).
	Counter *View

	// placedKind records whether an acceleration structure or a
	// micromap first occupied this cache slot, so a later
	// mismatched place_* call can be logged as spec.md §4.2 requires
	// without being treated as a fatal error.
	placedKind ViewKind
}

// ViewKey identifies a cached view within one resource's ViewCache. Its
// fields are deliberately plain and comparable so it can key a Go map:
// descriptor-heap writes, dynamic-root-descriptor buffer views, and
// acceleration-structure/micromap placements all derive a ViewKey from
// their own parameters.
type ViewKey struct {
	Kind   ViewKind
	Format vk.Format
	Offset uint64
	Size   uint64
	MinMip uint32
	MaxMip uint32
}

// ViewCache is the per-resource view_key -> view map from spec.md §3,
// published lazily on a resource and never torn down until the owning
// resource is destroyed. It keeps deterministic (first-created-first)
// iteration order via ordmap so pipeline-cache serialization and debug
// dumps are reproducible across runs.
type ViewCache struct {
	mu sync.Mutex
	m  ordmap.Map[ViewKey, *View]
}

func newViewCache() *ViewCache {
	return &ViewCache{m: *ordmap.New[ViewKey, *View]()}
}

// GetOrCreate returns the cached view for key, calling create and
// publishing its result if this is the first lookup with key. This is a
// CAS-once publication in spirit (spec.md §5's "view-cache publication
// is CAS-once; losers free their draft") implemented with a mutex since
// View construction itself calls into Vulkan and cannot run lock-free;
// the mutex scope is kept to the map operation plus construction, never
// held across a submission.
func (c *ViewCache) GetOrCreate(key ViewKey, create func() (*View, error)) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.m.ValueByKeyTry(key); ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	c.m.Add(key, v)
	return v, nil
}

// placeAccelOrOMM implements place_acceleration_structure / place_micromap
// (spec.md §4.2): creates-or-returns the cached placeholder view for key,
// logging (not failing) when the slot previously held the other kind.
func (c *ViewCache) placeAccelOrOMM(key ViewKey, kind ViewKind, create func() (*View, error)) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.m.ValueByKeyTry(key); ok {
		if v.placedKind != kind {
			logPlacementConflict(v.placedKind, kind)
		}
		return v, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	v.placedKind = kind
	c.m.Add(key, v)
	return v, nil
}

// PlaceAccelerationStructure implements place_acceleration_structure
// (spec.md §4.2).
func (c *ViewCache) PlaceAccelerationStructure(key ViewKey, create func() (*View, error)) (*View, error) {
	return c.placeAccelOrOMM(key, ViewAccelStructOrOMM, create)
}

// placedMicromap is the placedKind PlaceMicromap records. It is never a
// View.Kind; it only tells a micromap placement apart from an
// acceleration-structure placement on the same key.
const placedMicromap ViewKind = -1

// PlaceMicromap implements place_micromap (spec.md §4.2). It uses the same
// ViewAccelStructOrOMM keys as PlaceAccelerationStructure but records
// placedMicromap as the slot's placed kind, so placing on a key the other
// call already filled is detected and logged by placeAccelOrOMM; the
// existing view is returned rather than overwritten.
func (c *ViewCache) PlaceMicromap(key ViewKey, create func() (*View, error)) (*View, error) {
	return c.placeAccelOrOMM(key, placedMicromap, create)
}

// logPlacementConflict implements spec.md §4.2's "placing an RTAS where
// an OMM was previously placed (or vice versa) is a logged error but not
// fatal" rule, and spec.md §9's open question leaving promotion to fatal
// a caller decision (not taken here).
func logPlacementConflict(had, want ViewKind) {
	core.LogWarn(fmt.Sprintf("view cache slot held kind %d, re-placed as kind %d", had, want))
}

// Len reports how many views are cached, used by diagnostics and tests.
func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.Len()
}
