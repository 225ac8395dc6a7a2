package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window  *glfw.Window
	running bool
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	// GLFW calls must stay on the main thread.
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{
		window:  win,
		running: true,
	}
	w.internalWindow = gw

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press && w.onKeyDown != nil {
			w.onKeyDown(uint32(key))
		}
	})

	win.SetCloseCallback(func(_ *glfw.Window) {
		gw.running = false
		common.Logger().Debug("[Window] close requested")
	})

	// Framebuffer size, not window size: on high-DPI displays the two differ and the surface
	// is configured in pixels.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	common.Logger().Info("[Window] created", "width", fbWidth, "height", fbHeight)
	return nil
}

// platform returns the GLFW state of w, or nil once the window is closed or was never created.
func platform(w *engineWindow) *glfwWindow {
	gw, _ := w.internalWindow.(*glfwWindow)
	return gw
}

// platformGetSurfaceDescriptor builds the surface descriptor through the wgpuglfw bridge, which
// picks the native handle (HWND, Xlib, Wayland or CAMetalLayer) for the running platform.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if gw := platform(w); gw != nil {
		return wgpuglfw.GetSurfaceDescriptor(gw.window)
	}
	return nil
}

// platformIsRunningCheck is false after Close, after the close button was pressed, or once GLFW
// flags the window for closing.
func platformIsRunningCheck(w *engineWindow) bool {
	gw := platform(w)
	return gw != nil && gw.running && !gw.window.ShouldClose()
}

func platformSetTitle(w *engineWindow, title string) {
	if gw := platform(w); gw != nil {
		gw.window.SetTitle(title)
	}
}

// platformCloseWindow destroys the window and terminates GLFW. Closing twice is an error.
func platformCloseWindow(w *engineWindow) error {
	gw := platform(w)
	if gw == nil {
		return fmt.Errorf("window: not open")
	}
	gw.running = false
	gw.window.Destroy()
	glfw.Terminate()
	w.internalWindow = nil
	common.Logger().Debug("[Window] closed")
	return nil
}

// platformPollEvents drains pending GLFW events and returns immediately; callbacks fire from
// inside this call.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformPollEvents(w *engineWindow) {
	if platform(w) != nil {
		glfw.PollEvents()
	}
}
