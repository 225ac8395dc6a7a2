package renderer

import (
	"github.com/Carmen-Shannon/retort/engine/profiler"
	"github.com/Carmen-Shannon/retort/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLabel sets the label given to the pipeline and its device objects.
//
// Parameters:
//   - label: the label to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the label to a renderer
func WithLabel(label string) RendererBuilderOption {
	return func(r *renderer) {
		r.label = label
	}
}

// WithPipelineOptions forwards fixed-function options to every pipeline the renderer builds.
//
// Parameters:
//   - opts: the pipeline options, applied in order
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline options to a renderer
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelineOptions = append(r.pipelineOptions, opts...)
	}
}

// WithVertexSource replaces the builtin full-screen vertex stage.
//
// Parameters:
//   - filename: the name used in diagnostics
//   - source: the WGSL source containing a @vertex entry point
//
// Returns:
//   - RendererBuilderOption: a function that applies the vertex source to a renderer
func WithVertexSource(filename, source string) RendererBuilderOption {
	return func(r *renderer) {
		r.vertexFilename = filename
		r.vertexSource = source
	}
}

// WithFragmentSource replaces the builtin gradient used before any user shader loads.
//
// Parameters:
//   - filename: the name used in diagnostics
//   - source: the WGSL source containing a @fragment entry point
//
// Returns:
//   - RendererBuilderOption: a function that applies the fragment source to a renderer
func WithFragmentSource(filename, source string) RendererBuilderOption {
	return func(r *renderer) {
		r.fragmentFilename = filename
		r.fragmentSource = source
	}
}

// WithProfiler sets the profiler ticked by BeginFrame. A default profiler is used otherwise.
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}

// WithOverlayEnabled sets the initial overlay state. The overlay is enabled by default.
func WithOverlayEnabled(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.overlayEnabled = enabled
	}
}
