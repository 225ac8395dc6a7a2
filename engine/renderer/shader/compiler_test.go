package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spirvMagic = 0x07230203

func TestCompileBuiltinSources(t *testing.T) {
	c := NewCompiler()

	vs, err := c.Compile(DefaultVertexFilename, ShaderTypeVertex, DefaultVertexSource)
	require.NoError(t, err)
	require.NotEmpty(t, vs.Words)
	assert.Equal(t, uint32(spirvMagic), vs.Words[0])
	assert.Equal(t, "vs_main", vs.EntryPoint)
	assert.Equal(t, ShaderTypeVertex, vs.Type)

	fs, err := c.Compile(DefaultFragmentFilename, ShaderTypeFragment, DefaultFragmentSource)
	require.NoError(t, err)
	assert.Equal(t, uint32(spirvMagic), fs.Words[0])
	assert.Equal(t, "fs_main", fs.EntryPoint)

	desc := fs.Descriptor()
	assert.Equal(t, DefaultFragmentFilename, desc.Label)
	assert.Equal(t, "fs_main", desc.EntryPoint)
	assert.Equal(t, fs.Words, desc.Code)
}

func TestCompileSyntaxErrorFailsIntermediateStage(t *testing.T) {
	src := "//@retort:include vertex_output\n@fragment\nfn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {\n    return vec4<f32>(1.0, 0.0, 0.0, 1.0)\n"

	_, err := NewCompiler().Compile("broken.wgsl", ShaderTypeFragment, src)
	require.Error(t, err)

	var ce *CompilationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "broken.wgsl", ce.Filename)
	assert.Equal(t, StageIntermediate, ce.Stage)
	assert.NotEmpty(t, ce.Message)
}

func TestCompileAnnotationErrorFailsPreprocessStage(t *testing.T) {
	_, err := NewCompiler().Compile("bad.wgsl", ShaderTypeFragment, "//@retort:include nope\n")

	var ce *CompilationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, StagePreprocess, ce.Stage)
	assert.Contains(t, ce.Message, "line 1:")
	assert.Contains(t, err.Error(), "bad.wgsl: preprocess:")
}

func TestCompileRequiresEntryPointForStage(t *testing.T) {
	_, err := NewCompiler().Compile("vertex_only.wgsl", ShaderTypeFragment, DefaultVertexSource)

	var ce *CompilationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, StageIntermediate, ce.Stage)
	assert.Contains(t, ce.Message, "@fragment")
}

func TestCompileStageDefineSelectsBranch(t *testing.T) {
	src := `//@retort:include vertex_output
//@retort:ifdef RETORT_FRAGMENT
@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(TINT, 1.0);
}
//@retort:endif
`
	_, err := NewCompiler().Compile("tinted.wgsl", ShaderTypeFragment, src)
	require.Error(t, err, "TINT is undefined without WithDefine")

	fs, err := NewCompiler(WithDefine("TINT", "1.0, 0.5, 0.25")).Compile("tinted.wgsl", ShaderTypeFragment, src)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", fs.EntryPoint)
}

func TestBytesToWords(t *testing.T) {
	words, err := bytesToWords([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 1}, words)

	_, err = bytesToWords(nil)
	assert.ErrorIs(t, err, ErrEmptyBytecode)

	_, err = bytesToWords([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrEmptyBytecode)
}

func TestLoadSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(DefaultFragmentSource), 0o600))

	src, err := LoadSource(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultFragmentSource, src)

	_, err = LoadSource(filepath.Join(t.TempDir(), "missing.wgsl"))
	assert.Error(t, err)
}

func TestParseEntryPointIgnoresComments(t *testing.T) {
	src := "// @fragment fn commented() {}\n/* @fragment\nfn blocked() {} */\n@fragment\nfn real_main() {}"
	assert.Equal(t, "real_main", parseEntryPoint(src, ShaderTypeFragment))
	assert.Equal(t, "", parseEntryPoint(src, ShaderTypeVertex))
}

func TestEntryPointsKeepSourceLines(t *testing.T) {
	src := "/* header\n   spanning lines */\n@vertex\nfn vs() {}\n// @fragment fn no() {}\n@compute @workgroup_size(1)\nfn cs() {}\n"

	eps := entryPoints(src)
	require.Len(t, eps, 2)
	assert.Equal(t, entryPoint{stage: "vertex", name: "vs", line: 3}, eps[0])
	assert.Equal(t, entryPoint{stage: "compute", name: "cs", line: 6}, eps[1])
	assert.Equal(t, "@vertex vs (line 3), @compute cs (line 6)", describeEntryPoints(eps))
	assert.Equal(t, "none", describeEntryPoints(nil))
}
