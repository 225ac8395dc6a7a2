package shader

import (
	"fmt"
	"regexp"
	"strings"
)

// entryRegex matches a stage attribute and the name of the function it decorates. Other
// attributes such as @workgroup_size may sit between the two.
var entryRegex = regexp.MustCompile(`(?s)@(vertex|fragment|compute)\b.*?\bfn\s+(\w+)`)

// entryPoint is a stage-decorated function found in WGSL source.
type entryPoint struct {
	stage string
	name  string
	line  int
}

// entryPoints lists the entry points of source in declaration order. Commented out
// declarations are skipped and line numbers refer to the original source.
func entryPoints(source string) []entryPoint {
	cleaned := stripComments(source)

	var out []entryPoint
	for _, m := range entryRegex.FindAllStringSubmatchIndex(cleaned, -1) {
		out = append(out, entryPoint{
			stage: cleaned[m[2]:m[3]],
			name:  cleaned[m[4]:m[5]],
			line:  strings.Count(cleaned[:m[0]], "\n") + 1,
		})
	}
	return out
}

// parseEntryPoint returns the name of the first entry point for shaderType, or "" if
// source declares none.
//
// Parameters:
//   - source: the WGSL source code string
//   - shaderType: the stage to look for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	for _, ep := range entryPoints(source) {
		if ep.stage == shaderType.String() {
			return ep.name
		}
	}
	return ""
}

// describeEntryPoints formats entry points for diagnostics, e.g. "@vertex vs_main (line 3)".
func describeEntryPoints(eps []entryPoint) string {
	if len(eps) == 0 {
		return "none"
	}
	parts := make([]string, len(eps))
	for i, ep := range eps {
		parts[i] = fmt.Sprintf("@%s %s (line %d)", ep.stage, ep.name, ep.line)
	}
	return strings.Join(parts, ", ")
}

// stripComments blanks out line comments and nested block comments in one pass. Newlines
// inside comments are kept so offsets map to the same line as in source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))

	depth := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		var next byte
		if i+1 < len(source) {
			next = source[i+1]
		}

		switch {
		case c == '/' && next == '*':
			depth++
			i++
		case depth > 0 && c == '*' && next == '/':
			depth--
			i++
		case depth > 0:
			if c == '\n' {
				sb.WriteByte('\n')
			}
		case c == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
