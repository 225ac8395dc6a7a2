package pipeline

import (
	"github.com/Carmen-Shannon/retort/engine/gpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the device handles that make up one graphics pipeline together with the
// fixed-function configuration used to create it.
type pipeline struct {
	// label names the pipeline in device diagnostics
	label string

	// the following handles are owned by the renderer, the pipeline only records them.

	vertexModule, fragmentModule gpu.Handle
	layout                       gpu.Handle
	renderPass                   gpu.Handle
	handle                       gpu.Handle

	// The following properties configure the pipeline during creation and can be set with the builder options.

	topology    gpu.Topology
	cullMode    gpu.CullMode
	frontFace   gpu.FrontFace
	writeMask   gpu.ColorWriteMask
	clearColor  [4]float64
	vertexCount uint32
}

// Pipeline describes a graphics pipeline drawing a full-screen quad: the vertex and
// fragment shader modules, the pipeline layout and render pass it was built against,
// the device pipeline handle and the fixed-function state.
type Pipeline interface {
	// Label returns the label used when creating device objects for this pipeline.
	//
	// Returns:
	//   - string: the pipeline label
	Label() string

	// Handle returns the device graphics pipeline, or gpu.NullHandle before creation.
	//
	// Returns:
	//   - gpu.Handle: the graphics pipeline handle
	Handle() gpu.Handle

	// VertexModule returns the vertex shader module handle.
	VertexModule() gpu.Handle

	// FragmentModule returns the fragment shader module handle.
	FragmentModule() gpu.Handle

	// Layout returns the pipeline layout handle.
	Layout() gpu.Handle

	// RenderPass returns the render pass handle the pipeline is compatible with.
	RenderPass() gpu.Handle

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - gpu.Topology: the primitive topology (e.g., gpu.TopologyTriangleStrip)
	Topology() gpu.Topology

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - gpu.CullMode: the cull mode (e.g., gpu.CullModeBack)
	CullMode() gpu.CullMode

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - gpu.FrontFace: the winding order (e.g., gpu.FrontFaceCW)
	FrontFace() gpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - gpu.ColorWriteMask: the color write mask (e.g., gpu.ColorWriteMaskAll)
	WriteMask() gpu.ColorWriteMask

	// ClearColor returns the RGBA clear color of the render pass.
	ClearColor() [4]float64

	// VertexCount returns the number of vertices drawn per frame.
	VertexCount() uint32

	// SetModules records the vertex and fragment shader module handles.
	//
	// Parameters:
	//   - vertex: the vertex shader module
	//   - fragment: the fragment shader module
	SetModules(vertex, fragment gpu.Handle)

	// SetLayout records the pipeline layout handle.
	SetLayout(layout gpu.Handle)

	// SetRenderPass records the render pass handle.
	SetRenderPass(renderPass gpu.Handle)

	// SetHandle records the device graphics pipeline handle.
	SetHandle(handle gpu.Handle)

	// WithFragment returns a copy of this pipeline that uses a different fragment module.
	// The copy has no device pipeline yet; everything else is shared by value.
	//
	// Parameters:
	//   - fragment: the fragment shader module of the copy
	//
	// Returns:
	//   - Pipeline: the copy
	WithFragment(fragment gpu.Handle) Pipeline

	// Descriptor builds the device descriptor used to create this pipeline.
	//
	// Returns:
	//   - *gpu.PipelineDescriptor: a descriptor built from the recorded handles and state
	Descriptor() *gpu.PipelineDescriptor

	// RenderPassDescriptor builds the descriptor for a render pass compatible with this pipeline.
	//
	// Parameters:
	//   - format: the swapchain image format
	//
	// Returns:
	//   - *gpu.RenderPassDescriptor: the render pass descriptor
	RenderPassDescriptor(format gpu.Format) *gpu.RenderPassDescriptor

	// DrawDescriptor builds the draw recorded into a command buffer for one framebuffer.
	//
	// Parameters:
	//   - framebuffer: the framebuffer to draw into
	//   - extent: the viewport and scissor size
	//
	// Returns:
	//   - *gpu.DrawDescriptor: the draw descriptor
	DrawDescriptor(framebuffer gpu.Handle, extent gpu.Extent) *gpu.DrawDescriptor
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline. Defaults draw a 4-vertex triangle
// strip with clockwise front faces, back-face culling, all channels written and a black clear.
//
// Parameters:
//   - label: the label for device objects created for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline with no device objects recorded
func NewPipeline(label string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		label:       label,
		topology:    gpu.TopologyTriangleStrip,
		cullMode:    gpu.CullModeBack,
		frontFace:   gpu.FrontFaceCW,
		writeMask:   gpu.ColorWriteMaskAll,
		clearColor:  [4]float64{0, 0, 0, 1},
		vertexCount: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) Handle() gpu.Handle {
	return p.handle
}

func (p *pipeline) VertexModule() gpu.Handle {
	return p.vertexModule
}

func (p *pipeline) FragmentModule() gpu.Handle {
	return p.fragmentModule
}

func (p *pipeline) Layout() gpu.Handle {
	return p.layout
}

func (p *pipeline) RenderPass() gpu.Handle {
	return p.renderPass
}

func (p *pipeline) Topology() gpu.Topology {
	return p.topology
}

func (p *pipeline) CullMode() gpu.CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() gpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() gpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) ClearColor() [4]float64 {
	return p.clearColor
}

func (p *pipeline) VertexCount() uint32 {
	return p.vertexCount
}

func (p *pipeline) SetModules(vertex, fragment gpu.Handle) {
	p.vertexModule = vertex
	p.fragmentModule = fragment
}

func (p *pipeline) SetLayout(layout gpu.Handle) {
	p.layout = layout
}

func (p *pipeline) SetRenderPass(renderPass gpu.Handle) {
	p.renderPass = renderPass
}

func (p *pipeline) SetHandle(handle gpu.Handle) {
	p.handle = handle
}

func (p *pipeline) WithFragment(fragment gpu.Handle) Pipeline {
	cp := *p
	cp.fragmentModule = fragment
	cp.handle = gpu.NullHandle
	return &cp
}

func (p *pipeline) Descriptor() *gpu.PipelineDescriptor {
	return &gpu.PipelineDescriptor{
		Label:          p.label,
		Layout:         p.layout,
		RenderPass:     p.renderPass,
		VertexModule:   p.vertexModule,
		FragmentModule: p.fragmentModule,
		Topology:       p.topology,
		CullMode:       p.cullMode,
		FrontFace:      p.frontFace,
		WriteMask:      p.writeMask,
	}
}

func (p *pipeline) RenderPassDescriptor(format gpu.Format) *gpu.RenderPassDescriptor {
	return &gpu.RenderPassDescriptor{
		Label:      p.label,
		Format:     format,
		ClearColor: p.clearColor,
	}
}

func (p *pipeline) DrawDescriptor(framebuffer gpu.Handle, extent gpu.Extent) *gpu.DrawDescriptor {
	return &gpu.DrawDescriptor{
		RenderPass:  p.renderPass,
		Framebuffer: framebuffer,
		Pipeline:    p.handle,
		Extent:      extent,
		VertexCount: p.vertexCount,
	}
}
