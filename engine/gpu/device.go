package gpu

// Format is an opaque, backend-defined pixel format of presentable images.
type Format uint32

// FormatUndefined is the zero Format.
const FormatUndefined Format = 0

// Extent is a two-dimensional size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// ShaderStage identifies the programmable stage a shader module is built for.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Topology is the primitive assembly mode of a graphics pipeline.
type Topology int

const (
	TopologyTriangleStrip Topology = iota
	TopologyTriangleList
)

// CullMode selects which faces are discarded during rasterization.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace selects the winding order of front-facing triangles.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// ColorWriteMask selects which channels a pipeline writes.
type ColorWriteMask uint32

const (
	ColorWriteMaskRed   ColorWriteMask = 1 << 0
	ColorWriteMaskGreen ColorWriteMask = 1 << 1
	ColorWriteMaskBlue  ColorWriteMask = 1 << 2
	ColorWriteMaskAlpha ColorWriteMask = 1 << 3
	ColorWriteMaskAll                  = ColorWriteMaskRed | ColorWriteMaskGreen | ColorWriteMaskBlue | ColorWriteMaskAlpha
)

// SwapchainInfo describes a presentable image chain returned by Device.CreateSwapchain.
type SwapchainInfo struct {
	Swapchain Handle
	Images    []Handle
	Format    Format
	Extent    Extent
}

// ShaderModuleDescriptor describes a shader module built from SPIR-V words.
type ShaderModuleDescriptor struct {
	Label      string
	Stage      ShaderStage
	EntryPoint string
	Code       []uint32
}

// RenderPassDescriptor describes the single color attachment render pass used for drawing.
type RenderPassDescriptor struct {
	Label      string
	Format     Format
	ClearColor [4]float64
}

// PipelineDescriptor describes a graphics pipeline with a vertex and a fragment stage.
type PipelineDescriptor struct {
	Label          string
	Layout         Handle
	RenderPass     Handle
	VertexModule   Handle
	FragmentModule Handle
	Topology       Topology
	CullMode       CullMode
	FrontFace      FrontFace
	WriteMask      ColorWriteMask
}

// DrawDescriptor is the recipe recorded into a command buffer: one render pass over one
// framebuffer, binding one pipeline and drawing VertexCount vertices with a full-extent
// viewport and scissor.
type DrawDescriptor struct {
	RenderPass  Handle
	Framebuffer Handle
	Pipeline    Handle
	Extent      Extent
	VertexCount uint32
}

// SubmitInfo lists the command buffers of a queue submission and the semaphores it waits
// on and signals.
type SubmitInfo struct {
	WaitSemaphores   []Handle
	CommandBuffers   []Handle
	SignalSemaphores []Handle
}

// Device is the GPU surface the frame lifecycle and pipeline code drive. Its shape follows
// explicit graphics APIs: objects are created and destroyed through handles, CPU/GPU ordering
// is expressed with fences and semaphores, and presentation goes through a swapchain.
//
// Every method returns a Result as its error. AcquireNextImage and Present may return the
// transient statuses Suboptimal and ErrorOutOfDate, which callers recover from by rebuilding
// the swapchain. All methods must be called from a single goroutine.
type Device interface {
	// CreateSemaphore creates a GPU-side signal used to order submissions and presentation.
	CreateSemaphore() (Handle, error)

	// CreateFence creates a CPU-visible completion signal.
	//
	// Parameters:
	//   - signaled: whether the fence starts in the signaled state
	CreateFence(signaled bool) (Handle, error)

	// WaitForFences blocks until every listed fence is signaled. There is no timeout.
	// Null handles are skipped.
	WaitForFences(fences ...Handle) error

	// ResetFences returns every listed fence to the unsignaled state.
	ResetFences(fences ...Handle) error

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error

	// CreateSwapchain builds a presentable image chain sized to the current surface.
	// The old chain, if any, seeds the new one and must be destroyed by the caller afterwards.
	//
	// Parameters:
	//   - old: the previous swapchain or NullHandle
	//
	// Returns:
	//   - SwapchainInfo: the new chain with its images, format, and extent
	//   - error: a Result on failure
	CreateSwapchain(old Handle) (SwapchainInfo, error)

	// CreateImageView creates a view over a swapchain image.
	CreateImageView(image Handle, format Format) (Handle, error)

	// AcquireNextImage requests the next presentable image and signals the given semaphore
	// when it is ready to be rendered to.
	//
	// Returns:
	//   - uint32: the index of the image within the chain
	//   - error: nil, Suboptimal, ErrorOutOfDate, or a fatal Result
	AcquireNextImage(swapchain, signal Handle) (uint32, error)

	// Present queues an image for display once every wait semaphore is signaled.
	//
	// Returns:
	//   - error: nil, Suboptimal, ErrorOutOfDate, or a fatal Result
	Present(swapchain Handle, imageIndex uint32, wait ...Handle) error

	// CreateShaderModule builds a shader module from SPIR-V words.
	CreateShaderModule(desc *ShaderModuleDescriptor) (Handle, error)

	// CreatePipelineLayout creates an empty pipeline layout.
	CreatePipelineLayout(label string) (Handle, error)

	// CreateRenderPass creates a render pass with a single cleared color attachment.
	CreateRenderPass(desc *RenderPassDescriptor) (Handle, error)

	// CreateGraphicsPipeline creates a graphics pipeline. A failure here is reported as a
	// Result but is not necessarily fatal: the device may reject a valid module pairing.
	CreateGraphicsPipeline(desc *PipelineDescriptor) (Handle, error)

	// CreateFramebuffer binds an image view to a render pass.
	CreateFramebuffer(renderPass, view Handle, extent Extent) (Handle, error)

	// CreateCommandPool creates a pool that owns command buffers. Destroying the pool
	// frees every buffer allocated from it.
	CreateCommandPool() (Handle, error)

	// AllocateCommandBuffers allocates count command buffers from pool.
	AllocateCommandBuffers(pool Handle, count int) ([]Handle, error)

	// RecordDraw records a draw recipe into a command buffer, replacing previous contents.
	RecordDraw(commandBuffer Handle, desc *DrawDescriptor) error

	// Submit queues command buffers for execution and signals fence on completion.
	//
	// Parameters:
	//   - info: the command buffers and semaphores of the submission
	//   - fence: an unsignaled fence to signal on completion, or NullHandle
	Submit(info *SubmitInfo, fence Handle) error

	// Destroy releases device objects. Unknown and null handles are ignored.
	Destroy(handles ...Handle)
}
