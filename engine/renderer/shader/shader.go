package shader

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/retort/engine/gpu"
)

// ShaderType identifies which programmable stage a shader source is compiled for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type. Retort only ever compiles the builtin
	// full-screen quad for this stage unless a caller overrides it.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, the stage the user edits.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// Stage maps the shader type to the device stage a module is created for.
//
// Returns:
//   - gpu.ShaderStage: the matching device stage
func (t ShaderType) Stage() gpu.ShaderStage {
	if t == ShaderTypeVertex {
		return gpu.StageVertex
	}
	return gpu.StageFragment
}

// CompiledShader is the output of a successful compilation: SPIR-V words ready for
// gpu.Device.CreateShaderModule.
type CompiledShader struct {
	// Words is the SPIR-V module, one little-endian word per element.
	Words []uint32

	// Filename is the name the source was compiled under, used as the module label.
	Filename string

	// EntryPoint is the name of the stage's entry function.
	EntryPoint string

	// Type is the stage the shader was compiled for.
	Type ShaderType
}

// Descriptor builds the shader module descriptor for this compiled shader.
//
// Returns:
//   - *gpu.ShaderModuleDescriptor: a descriptor labelled with the filename
func (c CompiledShader) Descriptor() *gpu.ShaderModuleDescriptor {
	return &gpu.ShaderModuleDescriptor{
		Label:      c.Filename,
		Stage:      c.Type.Stage(),
		EntryPoint: c.EntryPoint,
		Code:       c.Words,
	}
}

// LoadSource reads a WGSL source file fully from disk.
//
// Parameters:
//   - path: the file path to read
//
// Returns:
//   - string: the file's contents
//   - error: an error if the file could not be read
func LoadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}
	return string(data), nil
}
