package shader

import "github.com/gogpu/naga/spirv"

// CompilerBuilderOption is a functional option for configuring a Compiler.
type CompilerBuilderOption func(*compiler)

// WithDefine adds a define visible to every source the compiler processes, as if the
// source began with //@retort:define NAME VALUE.
//
// Parameters:
//   - name: the identifier to replace
//   - value: the replacement text
//
// Returns:
//   - CompilerBuilderOption: a function that applies the define to a compiler
func WithDefine(name, value string) CompilerBuilderOption {
	return func(c *compiler) {
		c.defines[name] = value
	}
}

// WithValidation enables naga IR validation in the intermediate stage.
func WithValidation(enabled bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.validate = enabled
	}
}

// WithSPIRVOptions replaces the SPIR-V backend options.
//
// Parameters:
//   - options: the backend options, usually derived from spirv.DefaultOptions
//
// Returns:
//   - CompilerBuilderOption: a function that applies the options to a compiler
func WithSPIRVOptions(options spirv.Options) CompilerBuilderOption {
	return func(c *compiler) {
		c.options = options
	}
}
