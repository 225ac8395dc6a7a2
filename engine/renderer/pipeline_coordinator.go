package renderer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
)

// PipelineError is returned when a shader compiled but the device rejected the module or
// the graphics pipeline built from it. The previous pipeline stays active.
type PipelineError struct {
	// Filename is the fragment shader the pipeline was built for.
	Filename string

	// Err is the device status.
	Err error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("renderer: pipeline creation failed for %s: %v", e.Filename, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// compileVertexStage compiles the vertex source and creates its module.
func (r *renderer) compileVertexStage() (gpu.Handle, error) {
	vs, err := r.compiler.Compile(r.vertexFilename, shader.ShaderTypeVertex, r.vertexSource)
	if err != nil {
		return gpu.NullHandle, err
	}
	module, err := r.device.CreateShaderModule(vs.Descriptor())
	if err != nil {
		return gpu.NullHandle, &PipelineError{Filename: r.vertexFilename, Err: err}
	}
	return module, nil
}

// createFragmentModule compiles a fragment source and creates its module.
func (r *renderer) createFragmentModule(filename, source string) (gpu.Handle, shader.CompiledShader, error) {
	fs, err := r.compiler.Compile(filename, shader.ShaderTypeFragment, source)
	if err != nil {
		return gpu.NullHandle, shader.CompiledShader{}, err
	}
	module, err := r.device.CreateShaderModule(fs.Descriptor())
	if err != nil {
		return gpu.NullHandle, fs, &PipelineError{Filename: filename, Err: err}
	}
	return module, fs, nil
}

func (r *renderer) SetFragmentShader(filename, source string) error {
	if r.frameInProgress {
		return ErrFrameInProgress
	}

	fragment, compiled, err := r.createFragmentModule(filename, source)
	if err != nil {
		return err
	}

	vertex := r.pipeline.VertexModule()
	newVertex := false
	if r.vertexStale {
		if vertex, err = r.compileVertexStage(); err != nil {
			r.device.Destroy(fragment)
			return err
		}
		newVertex = true
	}

	next := r.pipeline.WithFragment(fragment)
	next.SetModules(vertex, fragment)
	handle, err := r.device.CreateGraphicsPipeline(next.Descriptor())
	if err != nil {
		r.device.Destroy(fragment)
		if newVertex {
			r.device.Destroy(vertex)
		}
		common.Logger().Warn("[Renderer] pipeline rejected, keeping previous", "file", filename, "error", err)
		return &PipelineError{Filename: filename, Err: err}
	}
	next.SetHandle(handle)

	gpu.Check(r.device.WaitIdle())
	prev := r.pipeline
	r.device.Destroy(prev.Handle(), prev.FragmentModule())
	if newVertex {
		r.device.Destroy(prev.VertexModule())
		r.vertexStale = false
	}
	r.pipeline = next
	r.fragmentFilename, r.fragmentSource = filename, source

	r.destroyFrameResources()
	r.createFrameResources()
	r.destroySyncObjects()
	r.createSyncObjects()
	clear(r.swapchain.imagesInFlight)

	common.Logger().Info("[Renderer] fragment shader swapped", "file", filename, "entry", compiled.EntryPoint)
	if common.Logger().Enabled(context.Background(), slog.LevelDebug) {
		for _, t := range shader.Reflect(compiled.Words) {
			common.Logger().Debug("[Renderer] reflected type", "file", filename, "type", t.String())
		}
	}
	return nil
}

func (r *renderer) InvalidateVertexStage() {
	r.vertexStale = true
}

func (r *renderer) SetOverlayEnabled(enabled bool) error {
	if r.frameInProgress {
		return ErrFrameInProgress
	}
	r.overlayEnabled = enabled
	return nil
}
