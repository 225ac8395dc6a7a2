package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"maps"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"
)

// ErrEmptyBytecode is reported when the bytecode stage produces no words or a byte
// stream that is not a whole number of words.
var ErrEmptyBytecode = errors.New("shader: compiler produced empty or misaligned bytecode")

// CompileStage names the compiler stage a diagnostic came from.
type CompileStage string

const (
	// StagePreprocess resolves @retort: annotations.
	StagePreprocess CompileStage = "preprocess"

	// StageIntermediate parses and lowers WGSL to naga IR.
	StageIntermediate CompileStage = "intermediate"

	// StageBytecode emits SPIR-V from the IR.
	StageBytecode CompileStage = "bytecode"
)

// CompilationError is returned by Compile when any stage fails. The first failing stage
// short-circuits the rest.
type CompilationError struct {
	// Filename is the name the source was compiled under.
	Filename string

	// Stage is the compiler stage that failed.
	Stage CompileStage

	// Message is the stage's raw diagnostic text.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Filename, e.Stage, e.Message)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// compiler is the implementation of the Compiler interface.
type compiler struct {
	defines  map[string]string
	validate bool
	options  spirv.Options
	backend  *spirv.Backend
}

// Compiler turns WGSL source into SPIR-V words in three stages: preprocess,
// intermediate and bytecode.
type Compiler interface {
	// Compile runs every stage for the given source.
	//
	// Parameters:
	//   - filename: the name used in diagnostics and as the module label
	//   - shaderType: the stage whose entry point must be present
	//   - source: the raw WGSL source, annotations included
	//
	// Returns:
	//   - CompiledShader: the compiled words and entry point on success
	//   - error: a *CompilationError naming the failed stage
	Compile(filename string, shaderType ShaderType, source string) (CompiledShader, error)
}

var _ Compiler = &compiler{}

// NewCompiler creates a Compiler with all specified options applied. By default it targets
// spirv.DefaultOptions and skips IR validation.
//
// Parameters:
//   - options: variadic list of CompilerBuilderOption functions to configure the compiler
//
// Returns:
//   - Compiler: a ready-to-use compiler
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		defines: make(map[string]string),
		options: spirv.DefaultOptions(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.backend = spirv.NewBackend(c.options)
	return c
}

func (c *compiler) Compile(filename string, shaderType ShaderType, source string) (CompiledShader, error) {
	fail := func(stage CompileStage, err error) (CompiledShader, error) {
		common.Logger().Debug("[Shader] compilation failed", "file", filename, "stage", string(stage), "error", err)
		return CompiledShader{}, &CompilationError{Filename: filename, Stage: stage, Message: err.Error(), Err: err}
	}

	pp := NewPreProcessor(c.stageDefines(shaderType))
	processed, err := pp.Process(source)
	if err != nil {
		return fail(StagePreprocess, err)
	}

	ast, err := naga.Parse(processed)
	if err != nil {
		return fail(StageIntermediate, err)
	}
	module, err := naga.LowerWithSource(ast, processed)
	if err != nil {
		return fail(StageIntermediate, err)
	}
	if c.validate {
		issues, err := naga.Validate(module)
		if err != nil {
			return fail(StageIntermediate, err)
		}
		if len(issues) > 0 {
			return fail(StageIntermediate, &issues[0])
		}
	}
	entry := parseEntryPoint(processed, shaderType)
	if entry == "" {
		return fail(StageIntermediate, fmt.Errorf("no @%s entry point found, declared: %s",
			shaderType, describeEntryPoints(entryPoints(processed))))
	}

	spv, err := c.backend.Compile(module)
	if err != nil {
		return fail(StageBytecode, err)
	}
	words, err := bytesToWords(spv)
	if err != nil {
		return fail(StageBytecode, err)
	}

	common.Logger().Debug("[Shader] compiled",
		"file", filename,
		"stage", shaderType.String(),
		"entry", entry,
		"words", len(words),
		"includes", pp.Includes())
	return CompiledShader{Words: words, Filename: filename, EntryPoint: entry, Type: shaderType}, nil
}

// stageDefines returns the configured defines plus RETORT_VERTEX or RETORT_FRAGMENT.
func (c *compiler) stageDefines(shaderType ShaderType) map[string]string {
	defines := make(map[string]string, len(c.defines)+1)
	maps.Copy(defines, c.defines)
	switch shaderType {
	case ShaderTypeVertex:
		defines["RETORT_VERTEX"] = "1"
	case ShaderTypeFragment:
		defines["RETORT_FRAGMENT"] = "1"
	}
	return defines
}

// bytesToWords converts a little-endian SPIR-V byte stream to words.
func bytesToWords(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, ErrEmptyBytecode
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}
