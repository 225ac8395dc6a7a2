// pre_processor.go implements the Retort WGSL shader pre-processor. It scans shader
// source code for @retort: annotations, injects builtin snippets, applies textual
// defines and drops the inactive side of conditional blocks.
//
// Annotation lines and lines inside inactive blocks are replaced with empty lines so
// that line numbers reported by the WGSL front end still match the user's file for
// every line above the first include.
package shader

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
)

// tokenRegex matches whole WGSL identifiers for define substitution.
var tokenRegex = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// condFrame tracks one open ifdef/ifndef block.
type condFrame struct {
	// line is where the block was opened, for unterminated-block errors.
	line int

	// parentActive is whether the enclosing scope was emitting lines.
	parentActive bool

	// taken is whether the current branch emits lines.
	taken bool

	// seenElse guards against a second else in the same block.
	seenElse bool
}

// active reports whether lines inside this frame are emitted.
func (f condFrame) active() bool {
	return f.parentActive && f.taken
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// snippetRegistry maps snippet keys to their WGSL source.
	snippetRegistry map[AnnotationArg]string

	// predefined holds defines that exist before the first line is read.
	predefined map[string]string

	// defines holds the define table after the most recent Process call.
	defines map[string]string

	// includes records the snippets injected by the most recent Process call.
	includes []AnnotationArg
}

// PreProcessor processes raw WGSL shader source code containing @retort: annotations.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and resolves every @retort: annotation.
	// The define table is reset to the predefined set at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code
	//   - error: an error prefixed with "line N:" if any annotation is malformed or unbalanced
	Process(source string) (string, error)

	// Defines returns a copy of the define table as it stood at the end of the most recent
	// call to Process, including the predefined names.
	//
	// Returns:
	//   - map[string]string: define names mapped to their replacement values
	Defines() map[string]string

	// Includes returns the snippets injected during the most recent call to Process,
	// in source order.
	//
	// Returns:
	//   - []AnnotationArg: the included snippet keys
	Includes() []AnnotationArg
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the builtin snippet registry populated.
//
// Parameters:
//   - predefined: defines visible to every Process call, may be nil
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(predefined map[string]string) PreProcessor {
	return &preProcessor{
		snippetRegistry: map[AnnotationArg]string{
			AnnotationArgVertexOutput: VertexOutputSource,
			AnnotationArgConstants:    ConstantsSource,
		},
		predefined: maps.Clone(predefined),
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.defines = make(map[string]string, len(p.predefined))
	maps.Copy(p.defines, p.predefined)
	p.includes = p.includes[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []condFrame

	emitting := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active()
	}

	for i, line := range lines {
		lineNum := i + 1
		a, err := parseAnnotation(line, lineNum)
		if err != nil {
			return "", err
		}
		if a == nil {
			if emitting() {
				out = append(out, p.substitute(line))
			} else {
				out = append(out, "")
			}
			continue
		}

		switch a.Type {
		case AnnotationTypeIfdef, AnnotationTypeIfndef:
			_, defined := p.defines[string(a.Args[0])]
			stack = append(stack, condFrame{
				line:         lineNum,
				parentActive: emitting(),
				taken:        defined == (a.Type == AnnotationTypeIfdef),
			})
			out = append(out, "")
		case AnnotationTypeElse:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @retort else without matching ifdef or ifndef", lineNum)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return "", fmt.Errorf("line %d: duplicate @retort else for block opened on line %d", lineNum, top.line)
			}
			top.seenElse = true
			top.taken = !top.taken
			out = append(out, "")
		case AnnotationTypeEndif:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @retort endif without matching ifdef or ifndef", lineNum)
			}
			stack = stack[:len(stack)-1]
			out = append(out, "")
		case AnnotationTypeDefine:
			if emitting() {
				p.defines[string(a.Args[0])] = string(a.Args[1])
			}
			out = append(out, "")
		case AnnotationTypeInclude:
			if !emitting() {
				out = append(out, "")
				continue
			}
			snippet, ok := p.snippetRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @retort:include argument %q", lineNum, a.Args[0])
			}
			p.includes = append(p.includes, a.Args[0])
			out = append(out, strings.TrimRight(snippet, "\n"))
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", lineNum, a.Type)
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: unterminated @retort conditional block", stack[len(stack)-1].line)
	}
	return strings.Join(out, "\n"), nil
}

// substitute applies the current define table to a single line.
func (p *preProcessor) substitute(line string) string {
	if len(p.defines) == 0 {
		return line
	}
	return tokenRegex.ReplaceAllStringFunc(line, func(tok string) string {
		if v, ok := p.defines[tok]; ok {
			return v
		}
		return tok
	})
}

func (p *preProcessor) Defines() map[string]string {
	return maps.Clone(p.defines)
}

func (p *preProcessor) Includes() []AnnotationArg {
	return p.includes
}
