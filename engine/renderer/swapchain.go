package renderer

import (
	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine/gpu"
)

// swapchainState holds the presentable image chain and every per-image object derived from it.
// The image count is decided by the device and is independent of MaxFramesInFlight.
type swapchainState struct {
	swapchain gpu.Handle
	images    []gpu.Handle
	views     []gpu.Handle
	format    gpu.Format
	extent    gpu.Extent

	// one framebuffer and one command buffer per image
	framebuffers   []gpu.Handle
	commandPool    gpu.Handle
	commandBuffers []gpu.Handle

	// imagesInFlight[i] is the fence of the frame slot that last submitted image i,
	// or gpu.NullHandle if the image has not been submitted since the chain was built.
	imagesInFlight []gpu.Handle
}

// createSwapchain builds a new image chain seeded from old and creates one view per image.
// The old chain, if any, is destroyed once the new one exists.
func (r *renderer) createSwapchain(old gpu.Handle) {
	info := gpu.Must(r.device.CreateSwapchain(old))
	if old != gpu.NullHandle {
		r.device.Destroy(old)
	}

	sc := &swapchainState{
		swapchain:      info.Swapchain,
		images:         info.Images,
		format:         info.Format,
		extent:         info.Extent,
		views:          make([]gpu.Handle, len(info.Images)),
		imagesInFlight: make([]gpu.Handle, len(info.Images)),
	}
	for i, img := range info.Images {
		sc.views[i] = gpu.Must(r.device.CreateImageView(img, info.Format))
	}
	r.swapchain = sc
}

// createFrameResources creates a framebuffer per image view, a command pool with one command
// buffer per image, and records the full-screen draw of the current pipeline into each buffer.
func (r *renderer) createFrameResources() {
	sc := r.swapchain
	sc.framebuffers = make([]gpu.Handle, len(sc.views))
	for i, view := range sc.views {
		sc.framebuffers[i] = gpu.Must(r.device.CreateFramebuffer(r.pipeline.RenderPass(), view, sc.extent))
	}

	sc.commandPool = gpu.Must(r.device.CreateCommandPool())
	sc.commandBuffers = gpu.Must(r.device.AllocateCommandBuffers(sc.commandPool, len(sc.framebuffers)))
	r.recordCommandBuffers()
}

// recordCommandBuffers records one draw per image with viewport and scissor at the swapchain extent.
func (r *renderer) recordCommandBuffers() {
	sc := r.swapchain
	for i, cb := range sc.commandBuffers {
		gpu.Check(r.device.RecordDraw(cb, r.pipeline.DrawDescriptor(sc.framebuffers[i], sc.extent)))
	}
}

// destroyFrameResources destroys the command pool, which frees its command buffers, then the framebuffers.
func (r *renderer) destroyFrameResources() {
	sc := r.swapchain
	if sc.commandPool != gpu.NullHandle {
		r.device.Destroy(sc.commandPool)
	}
	sc.commandPool = gpu.NullHandle
	sc.commandBuffers = nil

	r.device.Destroy(sc.framebuffers...)
	sc.framebuffers = nil
}

// recreateSwapchain rebuilds the image chain and everything derived from it after the surface
// went out of date. The pipeline, render pass and frame slots are kept. The render pass is
// assumed to remain compatible because the surface format does not change across rebuilds.
func (r *renderer) recreateSwapchain() {
	gpu.Check(r.device.WaitIdle())

	r.destroyFrameResources()
	r.device.Destroy(r.swapchain.views...)

	prevFormat := r.swapchain.format
	r.createSwapchain(r.swapchain.swapchain)
	if r.swapchain.format != prevFormat {
		common.Logger().Warn("[Renderer] swapchain format changed across rebuild",
			"old", uint32(prevFormat), "new", uint32(r.swapchain.format))
	}

	r.createFrameResources()
	r.rebuilds++

	common.Logger().Info("[Renderer] swapchain rebuilt",
		"images", len(r.swapchain.images),
		"width", r.swapchain.extent.Width,
		"height", r.swapchain.extent.Height)
}

// destroySwapchain destroys the chain and every per-image object. The caller must have
// waited for the device to go idle.
func (r *renderer) destroySwapchain() {
	if r.swapchain == nil {
		return
	}
	r.destroyFrameResources()
	r.device.Destroy(r.swapchain.views...)
	r.device.Destroy(r.swapchain.swapchain)
	r.swapchain = nil
}
