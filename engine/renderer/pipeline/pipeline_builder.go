package pipeline

import (
	"github.com/Carmen-Shannon/retort/engine/gpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the topology for this pipeline
func WithTopology(topology gpu.Topology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode gpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - face: the winding order that counts as front-facing
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(face gpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = face
	}
}

// WithWriteMask sets the color write mask for this pipeline.
func WithWriteMask(mask gpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = mask
	}
}

// WithClearColor sets the RGBA color the render pass clears to.
//
// Parameters:
//   - rgba: the clear color components in the 0..1 range
//
// Returns:
//   - PipelineBuilderOption: a function that sets the clear color for this pipeline
func WithClearColor(rgba [4]float64) PipelineBuilderOption {
	return func(p *pipeline) {
		p.clearColor = rgba
	}
}

// WithVertexCount sets how many vertices are drawn per frame.
func WithVertexCount(n uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexCount = n
	}
}
