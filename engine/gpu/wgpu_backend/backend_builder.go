package wgpu_backend

// BackendBuilderOption is a functional option applied to the WebGPU device during construction via NewDevice.
type BackendBuilderOption func(*wgpuDevice)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - BackendBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) BackendBuilderOption {
	return func(d *wgpuDevice) {
		d.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - BackendBuilderOption: a function that applies the option
func WithForceSoftwareRenderer(force bool) BackendBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithImageCount sets how many presentable images each swapchain exposes.
// Values below 2 are raised to 2.
//
// Parameters:
//   - n: the image count
//
// Returns:
//   - BackendBuilderOption: a function that applies the option
func WithImageCount(n int) BackendBuilderOption {
	return func(d *wgpuDevice) {
		d.imageCount = max(n, 2)
	}
}
