package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/Carmen-Shannon/retort/engine/gpu/gputest"
	"github.com/Carmen-Shannon/retort/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFragmentShaderSwapsPipeline(t *testing.T) {
	r, device, _ := newTestRenderer(t, 3)
	renderFrames(t, r, 5)
	require.NotZero(t, device.PendingFences())

	old := r.Pipeline()
	oldSlots := r.slots
	before := liveCounts(device)

	require.NoError(t, r.SetFragmentShader("plasma.wgsl", "fragment"))

	next := r.Pipeline()
	assert.NotSame(t, old, next)
	assert.NotEqual(t, old.Handle(), next.Handle())
	assert.Equal(t, old.VertexModule(), next.VertexModule())
	assert.Equal(t, old.RenderPass(), next.RenderPass())
	assert.False(t, device.IsLive(old.Handle()))
	assert.False(t, device.IsLive(old.FragmentModule()))
	assert.False(t, device.IsLive(oldSlots[0].inFlight), "sync objects are recreated")
	assert.Equal(t, "plasma.wgsl", r.FragmentFilename())
	assert.Equal(t, "fragment", r.fragmentSource)
	assert.Equal(t, before, liveCounts(device))

	renderFrames(t, r, 2)
	assert.Equal(t, next.Handle(), device.Submissions[len(device.Submissions)-1].Pipeline)
	assert.Empty(t, device.Violations)
}

func TestCompileFailureLeavesPipelineUntouched(t *testing.T) {
	r, device, _ := newTestRenderer(t, 3)
	renderFrames(t, r, 5)

	old := r.Pipeline()
	handle := old.Handle()
	calls := len(device.Calls)
	live := device.LiveTotal()
	idle := device.WaitIdleCount

	err := r.SetFragmentShader("broken.wgsl", "SYNTAX ERROR")

	var ce *shader.CompilationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "broken.wgsl", ce.Filename)

	assert.Same(t, old, r.Pipeline())
	assert.Equal(t, handle, r.Pipeline().Handle())
	assert.Len(t, device.Calls, calls, "no device calls on compile failure")
	assert.Equal(t, live, device.LiveTotal())
	assert.Equal(t, idle, device.WaitIdleCount)
	assert.Equal(t, shader.DefaultFragmentFilename, r.FragmentFilename())
	assert.Equal(t, shader.DefaultFragmentSource, r.fragmentSource)

	renderFrames(t, r, 3)
	assert.Equal(t, handle, device.Submissions[len(device.Submissions)-1].Pipeline)
	assert.Empty(t, device.Violations)
}

func TestPipelineRejectionKeepsOldPipeline(t *testing.T) {
	r, device, _ := newTestRenderer(t, 3)
	renderFrames(t, r, 2)

	old := r.Pipeline()
	live := device.LiveTotal()
	device.QueuePipelineError(gpu.ErrorValidationFailed)

	err := r.SetFragmentShader("rejected.wgsl", "fragment")

	var pe *PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "rejected.wgsl", pe.Filename)
	assert.ErrorIs(t, err, gpu.ErrorValidationFailed)
	assert.Same(t, old, r.Pipeline())
	assert.Equal(t, live, device.LiveTotal(), "the new module is destroyed")

	renderFrames(t, r, 2)
	assert.Empty(t, device.Violations)
}

func TestSetFragmentShaderDuringFrameFails(t *testing.T) {
	r, device, compiler := newTestRenderer(t, 3)
	compiled := len(compiler.compiled)

	require.NoError(t, r.BeginFrame())
	calls := len(device.Calls)
	assert.ErrorIs(t, r.SetFragmentShader("late.wgsl", "fragment"), ErrFrameInProgress)
	assert.Len(t, device.Calls, calls)
	assert.Len(t, compiler.compiled, compiled, "fails before compiling")
	require.NoError(t, r.EndFrame())
}

func TestVertexStageCompiledOnceUntilInvalidated(t *testing.T) {
	r, device, compiler := newTestRenderer(t, 3)
	assert.Equal(t, 1, compiler.count(shader.ShaderTypeVertex))

	require.NoError(t, r.SetFragmentShader("a.wgsl", "fragment"))
	require.NoError(t, r.SetFragmentShader("b.wgsl", "fragment"))
	assert.Equal(t, 1, compiler.count(shader.ShaderTypeVertex))
	assert.Equal(t, 3, compiler.count(shader.ShaderTypeFragment))

	oldVertex := r.Pipeline().VertexModule()
	r.InvalidateVertexStage()
	require.NoError(t, r.SetFragmentShader("c.wgsl", "fragment"))
	assert.Equal(t, 2, compiler.count(shader.ShaderTypeVertex))
	assert.NotEqual(t, oldVertex, r.Pipeline().VertexModule())
	assert.False(t, device.IsLive(oldVertex))

	require.NoError(t, r.SetFragmentShader("d.wgsl", "fragment"))
	assert.Equal(t, 2, compiler.count(shader.ShaderTypeVertex))
	assert.Equal(t, 1, device.Live(gpu.KindPipeline))
	assert.Equal(t, 2, device.Live(gpu.KindShaderModule))
}

func TestPipelineOptionsReachDevice(t *testing.T) {
	r, device, _ := newTestRenderer(t, 3, WithPipelineOptions(pipeline.WithVertexCount(6)), WithLabel("custom"))
	renderFrames(t, r, 1)

	assert.Equal(t, uint32(6), r.Pipeline().VertexCount())
	assert.Equal(t, "custom", r.Pipeline().Label())
	assert.Empty(t, device.Violations)
}

func TestRendererWithShaderCompiler(t *testing.T) {
	panicOnFatal(t)
	device := gputest.New(3)
	rr, err := NewRenderer(device, shader.NewCompiler())
	require.NoError(t, err)
	r := rr.(*renderer)
	renderFrames(t, r, 2)

	valid := `//@retort:include vertex_output
//@retort:include constants

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    let v = 0.5 + 0.5 * sin(input.uv.x * TAU);
    return vec4<f32>(v, v, v, 1.0);
}
`
	require.NoError(t, r.SetFragmentShader("wave.wgsl", valid))
	assert.Equal(t, "wave.wgsl", r.FragmentFilename())

	handle := r.Pipeline().Handle()
	err = r.SetFragmentShader("wave.wgsl", valid[:len(valid)-3])
	var ce *shader.CompilationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, handle, r.Pipeline().Handle())

	renderFrames(t, r, 2)
	assert.Empty(t, device.Violations)
	r.Release()
	assert.Equal(t, 0, device.LiveTotal())
}
