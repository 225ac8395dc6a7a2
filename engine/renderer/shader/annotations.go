// annotations.go defines the annotation types and parser for the Retort WGSL shader
// pre-processor. Annotations are single-line WGSL comments prefixed with @retort: that
// inject builtin snippets, declare textual defines and gate blocks of source behind
// conditionals. The parsed results are stored as Annotation values and consumed by the
// PreProcessor before the source reaches the WGSL front end.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// annotationPrefix is the marker that identifies a Retort annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@retort:"

// identifierRegex matches a single WGSL identifier.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects the WGSL source of a registered builtin snippet
	// into the shader at the annotation site.
	//
	// Syntax: //@retort:include <snippet>
	//
	// Example: //@retort:include vertex_output
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeDefine registers a textual replacement. Every later occurrence of NAME
	// as a whole identifier is replaced with VALUE. VALUE may contain spaces and may be empty.
	//
	// Syntax: //@retort:define <NAME> [VALUE...]
	//
	// Example: //@retort:define SPEED 2.0
	AnnotationTypeDefine AnnotationType = "define"

	// AnnotationTypeIfdef keeps the following block when NAME is defined.
	//
	// Syntax: //@retort:ifdef <NAME>
	AnnotationTypeIfdef AnnotationType = "ifdef"

	// AnnotationTypeIfndef keeps the following block when NAME is not defined.
	//
	// Syntax: //@retort:ifndef <NAME>
	AnnotationTypeIfndef AnnotationType = "ifndef"

	// AnnotationTypeElse flips the innermost open conditional.
	AnnotationTypeElse AnnotationType = "else"

	// AnnotationTypeEndif closes the innermost open conditional.
	AnnotationTypeEndif AnnotationType = "endif"
)

// Annotation represents a single parsed @retort: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include: [0] = snippet key (e.g. "vertex_output")
	//   - define:  [0] = name, [1] = replacement value (possibly empty)
	//   - ifdef, ifndef: [0] = name
	//   - else, endif: empty
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int
}

// AnnotationArg is a typed string used as an argument in annotations.
type AnnotationArg string

const (
	// AnnotationArgVertexOutput identifies the VertexOutput struct shared by the builtin
	// full-screen vertex stage and every fragment shader drawn behind it.
	AnnotationArgVertexOutput AnnotationArg = "vertex_output"

	// AnnotationArgConstants identifies the math constants snippet (PI, TAU, E).
	AnnotationArgConstants AnnotationArg = "constants"
)

// validSnippets lists every snippet key accepted by @retort:include.
var validSnippets = []AnnotationArg{
	AnnotationArgVertexOutput,
	AnnotationArgConstants,
}

// parseAnnotation attempts to parse a single line of WGSL source as a @retort: annotation.
// Lines that do not contain the annotation prefix inside a line comment return nil with no error.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number used in error messages
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: an error if the line is a malformed annotation
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @retort annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @retort include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validSnippets, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown snippet %q in @retort include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: AnnotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeDefine:
		if len(args) < 2 {
			return nil, fmt.Errorf("line %d: @retort define annotation requires a name", lineNum)
		}
		if !identifierRegex.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid define name %q in @retort define annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: AnnotationTypeDefine,
			Args: []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(strings.Join(args[2:], " "))},
			Line: lineNum,
		}, nil
	case AnnotationTypeIfdef, AnnotationTypeIfndef:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @retort %s annotation requires exactly one argument", lineNum, args[0])
		}
		if !identifierRegex.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid name %q in @retort %s annotation", lineNum, args[1], args[0])
		}
		return &Annotation{
			Type: AnnotationType(args[0]),
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeElse, AnnotationTypeEndif:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @retort %s annotation takes no arguments", lineNum, args[0])
		}
		return &Annotation{Type: AnnotationType(args[0]), Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown annotation type %q", lineNum, args[0])
	}
}
