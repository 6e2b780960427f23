// Package present implements the DXGI swap-chain peripheral — the glfw
// window plus Vulkan surface/swapchain a GraphicsCommandQueue Present
// record targets (spec.md §3's swap-chain entity).
package present

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/core"
)

func init() {
	// glfw event handling must stay pinned to the thread that calls
	// glfw.Init, matching the teacher's own platform package.
	runtime.LockOSThread()
}

// Window owns the native window and the Vulkan surface created against
// it; IDXGIFactory::CreateSwapChainForHwnd maps onto this constructor.
type Window struct {
	handle  *glfw.Window
	surface vk.Surface
}

// NewWindow creates a hidden, resizable window sized width x height and
// titled title. glfw.Init must be called by the process exactly once
// before the first Window is created.
func NewWindow(title string, width, height int) (*Window, error) {
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	handle, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return nil, err
	}
	return &Window{handle: handle}, nil
}

// Show makes the window visible, mirroring IDXGISwapChain's implicit
// first-present visibility contract.
func (w *Window) Show() { w.handle.Show() }

// FramebufferSize returns the window's current drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.handle.GetFramebufferSize()
}

// CreateSurface creates the VkSurfaceKHR this window presents through.
// Must be called once, after the Vulkan instance exists and before any
// swapchain targeting this window is created.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	raw, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		core.LogError("failed to create window surface: %s", err)
		return vk.NullSurface, core.ErrFail
	}
	w.surface = vk.SurfaceFromPointer(raw)
	return w.surface, nil
}

// Surface returns the previously created VkSurfaceKHR.
func (w *Window) Surface() vk.Surface { return w.surface }

// Destroy destroys the Vulkan surface (if created) and the window.
func (w *Window) Destroy(instance vk.Instance) {
	if w.surface != vk.NullSurface {
		vk.DestroySurface(instance, w.surface, nil)
		w.surface = vk.NullSurface
	}
	w.handle.Destroy()
}

// PollEvents pumps the platform event queue; must be called from the
// thread that created the window.
func PollEvents() { glfw.PollEvents() }
