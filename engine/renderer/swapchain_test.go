package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveCounts(device interface{ Live(gpu.Kind) int }) map[gpu.Kind]int {
	counts := make(map[gpu.Kind]int)
	for _, k := range []gpu.Kind{
		gpu.KindSemaphore, gpu.KindFence, gpu.KindSwapchain, gpu.KindImage, gpu.KindImageView,
		gpu.KindFramebuffer, gpu.KindCommandPool, gpu.KindCommandBuffer, gpu.KindShaderModule,
		gpu.KindPipelineLayout, gpu.KindRenderPass, gpu.KindPipeline,
	} {
		counts[k] = device.Live(k)
	}
	return counts
}

func TestRecreateSwapchainIsIdempotent(t *testing.T) {
	r, device, _ := newTestRenderer(t, 3)
	renderFrames(t, r, 5)

	before := liveCounts(device)
	images, format := r.ImageCount(), r.Format()

	for range 2 {
		old := r.swapchain.swapchain
		r.recreateSwapchain()

		assert.Equal(t, images, r.ImageCount())
		assert.Equal(t, format, r.Format())
		assert.Equal(t, old, device.LastOldSwapchain, "new chain is seeded from the old one")
		assert.False(t, device.IsLive(old))
		assert.Equal(t, before, liveCounts(device))
		for _, f := range r.swapchain.imagesInFlight {
			assert.Equal(t, gpu.NullHandle, f)
		}
	}

	assert.Equal(t, 2, r.rebuilds)
	renderFrames(t, r, MaxFramesInFlight)
	assert.Empty(t, device.Violations)
}

func TestRecreateSwapchainOrder(t *testing.T) {
	r, device, _ := newTestRenderer(t, 2)
	mark := len(device.Calls)

	r.recreateSwapchain()

	assert.Equal(t, []string{
		"WaitIdle",
		"Destroy", // command pool
		"Destroy", // framebuffers
		"Destroy", // image views
		"CreateSwapchain",
		"Destroy", // old chain
		"CreateImageView", "CreateImageView",
		"CreateFramebuffer", "CreateFramebuffer",
		"CreateCommandPool",
		"AllocateCommandBuffers",
		"RecordDraw", "RecordDraw",
	}, device.Calls[mark:])
}

func TestRecreateSwapchainFollowsImageCount(t *testing.T) {
	r, device, _ := newTestRenderer(t, 3)
	renderFrames(t, r, 4)

	device.SetImageCount(5)
	device.SetExtent(gpu.Extent{Width: 800, Height: 600})
	r.recreateSwapchain()

	assert.Equal(t, 5, r.ImageCount())
	assert.Len(t, r.swapchain.imagesInFlight, 5)
	assert.Len(t, r.swapchain.commandBuffers, 5)
	assert.Equal(t, gpu.Extent{Width: 800, Height: 600}, r.Extent())
	assert.Equal(t, 5, device.Live(gpu.KindImage))

	renderFrames(t, r, 2*MaxFramesInFlight)
	assert.Empty(t, device.Violations)
}

func TestReleaseDestroysEverything(t *testing.T) {
	r, device, _ := newTestRenderer(t, 3)
	renderFrames(t, r, 7)
	require.NoError(t, r.SetFragmentShader("a.wgsl", "fragment"))
	renderFrames(t, r, 3)

	r.Release()
	r.Release()

	assert.Equal(t, 0, device.LiveTotal())
	assert.Equal(t, 0, device.PendingFences())
	assert.Empty(t, device.Violations)
}
