package renderer

import (
	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/Carmen-Shannon/retort/engine/profiler"
	"github.com/Carmen-Shannon/retort/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
)

// renderer is the implementation of the Renderer interface.
// All methods must be called from the goroutine that owns the device.
type renderer struct {
	device   gpu.Device
	compiler shader.Compiler
	profiler *profiler.Profiler

	label           string
	pipelineOptions []pipeline.PipelineBuilderOption

	vertexFilename, vertexSource     string
	fragmentFilename, fragmentSource string
	vertexStale                      bool

	pipeline  pipeline.Pipeline
	swapchain *swapchainState
	slots     [MaxFramesInFlight]frameSlot

	frameIndex      int
	frameCount      uint64
	imageIndex      uint32
	frameInProgress bool
	frameSkipped    bool
	rebuilds        int

	overlayEnabled bool
	overlayHook    func(FrameStats)

	released bool
}

// Renderer drives a full-screen quad through a swapchain with MaxFramesInFlight frame slots
// and hot-swaps its fragment shader between frames.
//
// BeginFrame and EndFrame bracket one frame. Out-of-date and suboptimal surfaces are
// recovered by rebuilding the swapchain internally; any other device failure is fatal and
// goes through the gpu package's fatal handler.
type Renderer interface {
	// BeginFrame waits for the current frame slot to retire and acquires the next image.
	// When the surface is out of date the swapchain is rebuilt and the frame is skipped:
	// BeginFrame returns nil, no frame is in progress and the matching EndFrame does nothing.
	//
	// Returns:
	//   - error: ErrFrameInProgress if a frame has already begun
	BeginFrame() error

	// EndFrame submits the acquired image's command buffer, presents it and advances the
	// frame slot.
	//
	// Returns:
	//   - error: ErrNoFrameInProgress without a matching BeginFrame
	EndFrame() error

	// SetFragmentShader compiles a fragment shader and swaps it into the pipeline between
	// frames. On a compile error or a rejected pipeline, nothing changes.
	//
	// Parameters:
	//   - filename: the name used in diagnostics
	//   - source: the WGSL source of the fragment stage
	//
	// Returns:
	//   - error: ErrFrameInProgress, a *shader.CompilationError or a *PipelineError
	SetFragmentShader(filename, source string) error

	// InvalidateVertexStage makes the next SetFragmentShader recompile the vertex stage.
	InvalidateVertexStage()

	// SetOverlayEnabled toggles whether EndFrame runs the overlay hook.
	//
	// Parameters:
	//   - enabled: the new state
	//
	// Returns:
	//   - error: ErrFrameInProgress if a frame has already begun
	SetOverlayEnabled(enabled bool) error

	// OverlayEnabled reports whether EndFrame runs the overlay hook.
	OverlayEnabled() bool

	// SetOverlayHook installs the function EndFrame calls before submission while the
	// overlay is enabled. Passing nil removes it.
	SetOverlayHook(hook func(FrameStats))

	// FrameIndex returns the current frame slot, in [0, MaxFramesInFlight).
	FrameIndex() int

	// FrameCount returns the number of frames submitted.
	FrameCount() uint64

	// IsFrameInProgress reports whether BeginFrame has not yet been matched by EndFrame.
	IsFrameInProgress() bool

	// FPS returns the frames counted in the last full second.
	FPS() int

	// DeltaTime returns the seconds between the two most recent frames.
	DeltaTime() float32

	// ImageCount returns the number of images in the swapchain.
	ImageCount() int

	// Format returns the swapchain image format.
	Format() gpu.Format

	// Extent returns the swapchain image size.
	Extent() gpu.Extent

	// Pipeline returns the active pipeline.
	Pipeline() pipeline.Pipeline

	// FragmentFilename returns the filename of the active fragment shader.
	FragmentFilename() string

	// Release waits for the device to go idle and destroys every object the renderer created.
	// The device itself is not released.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates the frame slots, swapchain, render pass and the initial pipeline built
// from the builtin vertex and fragment shaders. Device failures are fatal.
//
// Parameters:
//   - device: the GPU device to render with
//   - compiler: the shader compiler used for every stage
//   - options: variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the ready renderer
//   - error: a *shader.CompilationError or *PipelineError if the builtin shaders fail to build
func NewRenderer(device gpu.Device, compiler shader.Compiler, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		device:           device,
		compiler:         compiler,
		label:            "retort",
		vertexFilename:   shader.DefaultVertexFilename,
		vertexSource:     shader.DefaultVertexSource,
		fragmentFilename: shader.DefaultFragmentFilename,
		fragmentSource:   shader.DefaultFragmentSource,
		overlayEnabled:   true,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.profiler == nil {
		r.profiler = profiler.NewProfiler()
	}

	r.createSyncObjects()
	r.createSwapchain(gpu.NullHandle)
	if err := r.createPipeline(); err != nil {
		r.destroySwapchain()
		r.destroySyncObjects()
		return nil, err
	}
	r.createFrameResources()

	common.Logger().Info("[Renderer] initialized",
		"images", len(r.swapchain.images),
		"frames_in_flight", MaxFramesInFlight,
		"fragment", r.fragmentFilename)
	return r, nil
}

// createPipeline builds the pipeline layout, render pass, both shader modules and the
// graphics pipeline.
func (r *renderer) createPipeline() error {
	p := pipeline.NewPipeline(r.label, r.pipelineOptions...)

	vertex, err := r.compileVertexStage()
	if err != nil {
		return err
	}
	fragment, _, err := r.createFragmentModule(r.fragmentFilename, r.fragmentSource)
	if err != nil {
		r.device.Destroy(vertex)
		return err
	}

	p.SetModules(vertex, fragment)
	p.SetLayout(gpu.Must(r.device.CreatePipelineLayout(r.label)))
	p.SetRenderPass(gpu.Must(r.device.CreateRenderPass(p.RenderPassDescriptor(r.swapchain.format))))

	handle, err := r.device.CreateGraphicsPipeline(p.Descriptor())
	if err != nil {
		r.device.Destroy(vertex, fragment, p.Layout(), p.RenderPass())
		return &PipelineError{Filename: r.fragmentFilename, Err: err}
	}
	p.SetHandle(handle)
	r.pipeline = p
	return nil
}

func (r *renderer) OverlayEnabled() bool {
	return r.overlayEnabled
}

func (r *renderer) SetOverlayHook(hook func(FrameStats)) {
	r.overlayHook = hook
}

func (r *renderer) FrameIndex() int {
	return r.frameIndex
}

func (r *renderer) FrameCount() uint64 {
	return r.frameCount
}

func (r *renderer) IsFrameInProgress() bool {
	return r.frameInProgress
}

func (r *renderer) FPS() int {
	return r.profiler.FPS()
}

func (r *renderer) DeltaTime() float32 {
	return r.profiler.DeltaTime()
}

func (r *renderer) ImageCount() int {
	return len(r.swapchain.images)
}

func (r *renderer) Format() gpu.Format {
	return r.swapchain.format
}

func (r *renderer) Extent() gpu.Extent {
	return r.swapchain.extent
}

func (r *renderer) Pipeline() pipeline.Pipeline {
	return r.pipeline
}

func (r *renderer) FragmentFilename() string {
	return r.fragmentFilename
}

func (r *renderer) Release() {
	if r.released {
		return
	}
	r.released = true

	gpu.Check(r.device.WaitIdle())
	r.destroySwapchain()
	r.destroySyncObjects()
	if p := r.pipeline; p != nil {
		r.device.Destroy(p.Handle(), p.VertexModule(), p.FragmentModule(), p.RenderPass(), p.Layout())
	}
	r.pipeline = nil
	common.Logger().Info("[Renderer] released", "frames", r.frameCount)
}
