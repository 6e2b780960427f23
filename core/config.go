package core

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// Flags mirrors the comma-separated VKD3D_CONFIG environment variable
// (spec.md §6): a small set of well-known tokens toggle behavior across
// the whole module.
type Flags struct {
	VkDebug         bool
	DXR             bool
	SingleQueue     bool
	ForceStaticCBV  bool
	UploadHVV       bool
	NoUploadHVV     bool
	Raw             map[string]bool
}

func parseFlags(s string) Flags {
	f := Flags{Raw: make(map[string]bool)}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		f.Raw[tok] = true
		switch tok {
		case "vk_debug":
			f.VkDebug = true
		case "dxr":
			f.DXR = true
		case "single_queue":
			f.SingleQueue = true
		case "force_static_cbv":
			f.ForceStaticCBV = true
		case "upload_hvv":
			f.UploadHVV = true
		case "no_upload_hvv":
			f.NoUploadHVV = true
		}
	}
	return f
}

// FileConfig is the structured subset of configuration better expressed
// as TOML than as a comma list: per-device fence-worker sizing, the
// pipeline-cache path, and the upload-heap override. Parsed from the
// vkd3d.toml sidecar named by VKD3D_CONFIG_FILE (default "vkd3d.toml" in
// the working directory, missing-is-fine).
type FileConfig struct {
	FenceWorkersPerDevice int    `toml:"fence_workers_per_device"`
	PipelineCachePath     string `toml:"pipeline_cache_path"`
	UploadHeapHostVisible *bool  `toml:"upload_heap_host_visible_device_local"`
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		FenceWorkersPerDevice: 1,
		PipelineCachePath:     "vkd3d-pipeline-cache.bin",
	}
}

// ConfigSnapshot is the immutable, atomically-published merge of the
// environment-derived Flags and the TOML FileConfig, plus the other
// standalone env vars spec.md §6 lists.
type ConfigSnapshot struct {
	Flags             Flags
	File              FileConfig
	ShaderDumpPath    string
	AutoCaptureShader string
	AutoCaptureCounts string
	ProfilePath       string
	QueueProfile      bool
	HUD               string
	Aftermath         bool
}

func loadEnv() ConfigSnapshot {
	return ConfigSnapshot{
		Flags:             parseFlags(os.Getenv("VKD3D_CONFIG")),
		ShaderDumpPath:    os.Getenv("VKD3D_SHADER_DUMP_PATH"),
		AutoCaptureShader: os.Getenv("VKD3D_AUTO_CAPTURE_SHADER"),
		AutoCaptureCounts: os.Getenv("VKD3D_AUTO_CAPTURE_COUNTS"),
		ProfilePath:       os.Getenv("VKD3D_PROFILE_PATH"),
		QueueProfile:      os.Getenv("VKD3D_QUEUE_PROFILE") != "",
		HUD:               os.Getenv("VKD3D_HUD"),
		Aftermath:         os.Getenv("VKD3D_AFTERMATH") != "",
	}
}

func loadFile(path string) FileConfig {
	fc := defaultFileConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return fc
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		LogWarn("config: failed to parse %s: %s", path, err)
		return defaultFileConfig()
	}
	return fc
}

var current atomic.Pointer[ConfigSnapshot]

func init() {
	snap := loadEnv()
	snap.File = loadFile(configFilePath())
	current.Store(&snap)
}

func configFilePath() string {
	if p := os.Getenv("VKD3D_CONFIG_FILE"); p != "" {
		return p
	}
	return "vkd3d.toml"
}

// Config returns the current configuration snapshot. Safe to call from
// any goroutine; the returned value is immutable.
func Config() *ConfigSnapshot {
	return current.Load()
}

var watchOnce sync.Once

// WatchConfig starts a background watcher on the TOML sidecar named by
// VKD3D_CONFIG_FILE, republishing a new ConfigSnapshot and firing
// EventConfigReloaded whenever the file changes. This generalizes the
// engine's asset-directory fsnotify watcher onto a single config file;
// idempotent, only the first call starts the goroutine.
func WatchConfig() {
	watchOnce.Do(func() {
		path := configFilePath()
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			LogWarn("config: fsnotify unavailable: %s", err)
			return
		}
		if err := watcher.Add(path); err != nil {
			// Sidecar may not exist yet; that's fine, defaults apply.
			return
		}
		go func() {
			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					snap := loadEnv()
					snap.File = loadFile(path)
					current.Store(&snap)
					LogInfo("config: reloaded %s", path)
					Fire(EventConfigReloaded, &snap)
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					LogWarn("config: watch error: %s", err)
				}
			}
		}()
	})
}
