// Package wgpu_backend implements gpu.Device on top of WebGPU. WebGPU hides most of the
// explicit objects the device contract exposes, so several of them are emulated:
//
//   - semaphores are bookkeeping only; the WebGPU queue already orders submission and present
//   - fences complete when the device is polled with wait=true after their submission
//   - a swapchain is a surface configuration; its images are indices cycled in acquire order
//   - a command buffer stores a draw recipe that is encoded against the surface texture at submit
package wgpu_backend

import "github.com/Carmen-Shannon/retort/engine/gpu"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// DefaultImageCount is the number of presentable images a swapchain exposes when no
// WithImageCount option is given.
const DefaultImageCount = 3

// Device is a gpu.Device backed by a WebGPU instance, adapter, device, and surface.
type Device interface {
	gpu.Device

	// Release destroys every live object and the underlying WebGPU device, surface, adapter,
	// and instance. The Device must not be used afterwards.
	Release()
}
