package renderer

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/retort/engine/gpu"
	"github.com/Carmen-Shannon/retort/engine/gpu/gputest"
	"github.com/Carmen-Shannon/retort/engine/renderer/shader"
	"github.com/stretchr/testify/require"
)

// stubCompiler compiles any source to a minimal SPIR-V header, failing sources that
// contain "SYNTAX ERROR".
type stubCompiler struct {
	compiled []shader.ShaderType
}

func (c *stubCompiler) Compile(filename string, shaderType shader.ShaderType, source string) (shader.CompiledShader, error) {
	if strings.Contains(source, "SYNTAX ERROR") {
		return shader.CompiledShader{}, &shader.CompilationError{
			Filename: filename,
			Stage:    shader.StageIntermediate,
			Message:  "expected ';'",
		}
	}
	c.compiled = append(c.compiled, shaderType)
	return shader.CompiledShader{
		Words:      []uint32{0x07230203, 0x00010300, 0, 1, 0},
		Filename:   filename,
		EntryPoint: "main",
		Type:       shaderType,
	}, nil
}

func (c *stubCompiler) count(shaderType shader.ShaderType) int {
	n := 0
	for _, t := range c.compiled {
		if t == shaderType {
			n++
		}
	}
	return n
}

// panicOnFatal makes gpu.Check panic with the fatal error for the rest of the test.
func panicOnFatal(t *testing.T) {
	t.Helper()
	prev := gpu.SetFatalHandler(func(err error) { panic(err) })
	t.Cleanup(func() { gpu.SetFatalHandler(prev) })
}

// recoverFatal runs fn and returns the error passed to the fatal handler, if any.
func recoverFatal(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = v.(error)
		}
	}()
	fn()
	return nil
}

func newTestRenderer(t *testing.T, imageCount int, options ...RendererBuilderOption) (*renderer, *gputest.Device, *stubCompiler) {
	t.Helper()
	panicOnFatal(t)

	device := gputest.New(imageCount)
	compiler := &stubCompiler{}
	r, err := NewRenderer(device, compiler, options...)
	require.NoError(t, err)
	return r.(*renderer), device, compiler
}

// renderFrames runs n begin/end pairs and fails the test on the first error.
func renderFrames(t *testing.T, r Renderer, n int) {
	t.Helper()
	for range n {
		require.NoError(t, r.BeginFrame())
		require.NoError(t, r.EndFrame())
	}
}
