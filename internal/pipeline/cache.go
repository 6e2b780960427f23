package pipeline

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	vk "github.com/goki/vulkan"
	ordmap "goki.dev/ordmap"

	"github.com/vkd3d-go/vkd3d/core"
)

// Cache is the in-process PSO cache keyed by the stream-description hash
// (spec.md §3's Pipeline state entity identifies PSOs by this hash so
// CreatePipelineState calls with an identical description can reuse a
// compiled pipeline). goki.dev/ordmap keeps insertion order so a cache
// dump iterates deterministically, matching internal/resource's view
// cache choice.
type Cache struct {
	m          ordmap.Map[uint64, *State]
	vkCache    vk.PipelineCache
	persistDir string
}

// fileHeader is the on-disk companion file next to the raw
// vk.PipelineCache blob: spec.md §6 calls for persisting PSO cache state
// across runs, and the teacher's config loader
// (engine/assets/loaders/shader.go) already establishes TOML as this
// module's structured-file format of choice.
type fileHeader struct {
	VendorID      uint32 `toml:"vendor_id"`
	DeviceID      uint32 `toml:"device_id"`
	DriverVersion uint32 `toml:"driver_version"`
	BlobBase64    string `toml:"blob_base64"`
}

// NewCache creates an empty cache and attempts to seed the backing
// vk.PipelineCache from a previously persisted blob at
// <dir>/pipeline_cache.toml, ignoring a missing or stale file (a
// mismatched vendor/device/driver triple makes Vulkan reject the blob
// anyway, so CreatePipelineCache is simply given no initial data).
func NewCache(device vk.Device, dir string, vendorID, deviceID, driverVersion uint32) (*Cache, error) {
	var initialData []byte
	if dir != "" {
		if hdr, err := readFileHeader(filepath.Join(dir, "pipeline_cache.toml")); err == nil {
			if hdr.VendorID == vendorID && hdr.DeviceID == deviceID && hdr.DriverVersion == driverVersion {
				if blob, err := base64.StdEncoding.DecodeString(hdr.BlobBase64); err == nil {
					initialData = blob
				}
			} else {
				core.LogWarn("pipeline cache file is stale for this device, starting empty")
			}
		}
	}

	info := vk.PipelineCacheCreateInfo{
		SType:           vk.StructureTypePipelineCacheCreateInfo,
		InitialDataSize: uint(len(initialData)),
	}
	if len(initialData) > 0 {
		info.PInitialData = initialData
	}
	var vkCache vk.PipelineCache
	if res := vk.CreatePipelineCache(device, &info, nil, &vkCache); res != vk.Success {
		return nil, core.ErrFail
	}

	return &Cache{vkCache: vkCache, persistDir: dir}, nil
}

// VkCache is passed as the pipelineCache argument to
// vkCreateGraphicsPipelines/vkCreateComputePipelines so repeated
// compilations across the process benefit from driver-side reuse.
func (c *Cache) VkCache() vk.PipelineCache { return c.vkCache }

// Lookup returns the previously built State for hash, if present.
func (c *Cache) Lookup(hash uint64) (*State, bool) {
	return c.m.ValueByKeyTry(hash)
}

// Store records s under hash for future Lookup calls.
func (c *Cache) Store(hash uint64, s *State) {
	s.Hash = hash
	c.m.Add(hash, s)
}

// Len reports how many compiled pipelines the cache holds.
func (c *Cache) Len() int { return c.m.Len() }

// Persist writes the backing vk.PipelineCache's raw blob to
// <dir>/pipeline_cache.toml, per spec.md §6's persisted-state contract.
func (c *Cache) Persist(device vk.Device, vendorID, deviceID, driverVersion uint32) error {
	if c.persistDir == "" {
		return nil
	}
	var size uint
	if res := vk.GetPipelineCacheData(device, c.vkCache, &size, nil); res != vk.Success {
		return core.ErrFail
	}
	data := make([]byte, size)
	if res := vk.GetPipelineCacheData(device, c.vkCache, &size, data); res != vk.Success {
		return core.ErrFail
	}
	hdr := fileHeader{
		VendorID:      vendorID,
		DeviceID:      deviceID,
		DriverVersion: driverVersion,
		BlobBase64:    base64.StdEncoding.EncodeToString(data),
	}
	out, err := toml.Marshal(hdr)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.persistDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.persistDir, "pipeline_cache.toml"), out, 0o644)
}

// Destroy releases every pipeline the cache holds plus the backing
// vk.PipelineCache object.
func (c *Cache) Destroy(device vk.Device) {
	for _, s := range c.m.Order {
		Destroy(device, s.Value)
	}
	if c.vkCache != vk.PipelineCache(vk.NullHandle) {
		vk.DestroyPipelineCache(device, c.vkCache, nil)
	}
}

func readFileHeader(path string) (fileHeader, error) {
	var hdr fileHeader
	data, err := os.ReadFile(path)
	if err != nil {
		return hdr, err
	}
	if err := toml.Unmarshal(data, &hdr); err != nil {
		return hdr, err
	}
	return hdr, nil
}
