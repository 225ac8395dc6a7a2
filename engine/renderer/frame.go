package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/retort/engine/gpu"
)

// MaxFramesInFlight is the number of frame slots cycled by BeginFrame and EndFrame.
const MaxFramesInFlight = 12

var (
	// ErrFrameInProgress is returned when an operation needs to run between frames but a
	// BeginFrame has not yet been matched by EndFrame.
	ErrFrameInProgress = errors.New("renderer: frame already in progress")

	// ErrNoFrameInProgress is returned by EndFrame without a matching BeginFrame.
	ErrNoFrameInProgress = errors.New("renderer: no frame in progress")
)

// frameSlot owns the synchronization objects of one frame in flight.
type frameSlot struct {
	// available is signaled when the acquired image is ready to be rendered to.
	available gpu.Handle

	// finished is signaled when rendering is done and the image may be presented.
	finished gpu.Handle

	// inFlight is signaled when the slot's last submission completed. Created signaled.
	inFlight gpu.Handle
}

// FrameStats is a snapshot of frame timing handed to the overlay hook.
type FrameStats struct {
	FrameIndex int
	FrameCount uint64
	ImageIndex uint32
	FPS        int
	DeltaTime  float32
}

func (r *renderer) createSyncObjects() {
	for i := range r.slots {
		r.slots[i] = frameSlot{
			available: gpu.Must(r.device.CreateSemaphore()),
			finished:  gpu.Must(r.device.CreateSemaphore()),
			inFlight:  gpu.Must(r.device.CreateFence(true)),
		}
	}
}

// destroySyncObjects destroys every slot's semaphores and fence. The caller must have
// waited for the device to go idle.
func (r *renderer) destroySyncObjects() {
	for i, s := range r.slots {
		r.device.Destroy(s.available, s.finished, s.inFlight)
		r.slots[i] = frameSlot{}
	}
}

func (r *renderer) BeginFrame() error {
	if r.frameInProgress {
		return ErrFrameInProgress
	}

	slot := r.slots[r.frameIndex]
	gpu.Check(r.device.WaitForFences(slot.inFlight))

	imageIndex, err := r.device.AcquireNextImage(r.swapchain.swapchain, slot.available)
	switch {
	case errors.Is(err, gpu.ErrorOutOfDate):
		r.recreateSwapchain()
		r.frameSkipped = true
		return nil
	case err != nil && !errors.Is(err, gpu.Suboptimal):
		gpu.Check(err)
	}

	r.imageIndex = imageIndex
	r.profiler.Tick()
	r.frameInProgress = true
	return nil
}

func (r *renderer) EndFrame() error {
	if r.frameSkipped {
		r.frameSkipped = false
		return nil
	}
	if !r.frameInProgress {
		return ErrNoFrameInProgress
	}

	slot := r.slots[r.frameIndex]
	sc := r.swapchain
	img := r.imageIndex

	if owner := sc.imagesInFlight[img]; owner != gpu.NullHandle {
		gpu.Check(r.device.WaitForFences(owner))
	}
	sc.imagesInFlight[img] = slot.inFlight
	gpu.Check(r.device.ResetFences(slot.inFlight))

	if r.overlayEnabled && r.overlayHook != nil {
		r.overlayHook(r.stats())
	}

	gpu.Check(r.device.Submit(&gpu.SubmitInfo{
		WaitSemaphores:   []gpu.Handle{slot.available},
		CommandBuffers:   []gpu.Handle{sc.commandBuffers[img]},
		SignalSemaphores: []gpu.Handle{slot.finished},
	}, slot.inFlight))

	if err := r.device.Present(sc.swapchain, img, slot.finished); err != nil {
		if gpu.IsTransient(err) {
			r.recreateSwapchain()
		} else {
			gpu.Check(err)
		}
	}

	r.frameIndex = (r.frameIndex + 1) % MaxFramesInFlight
	r.frameCount++
	r.frameInProgress = false
	return nil
}

func (r *renderer) stats() FrameStats {
	return FrameStats{
		FrameIndex: r.frameIndex,
		FrameCount: r.frameCount,
		ImageIndex: r.imageIndex,
		FPS:        r.profiler.FPS(),
		DeltaTime:  r.profiler.DeltaTime(),
	}
}
