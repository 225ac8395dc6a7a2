package shader

import "fmt"

// SPIR-V opcodes decoded by Reflect.
const (
	opTypeInt     = 0x15
	opTypeFloat   = 0x16
	opTypeVector  = 0x17
	opTypeArray   = 0x1C
	opTypePointer = 0x20
)

// spirvHeaderWords is the number of words before the first instruction.
const spirvHeaderWords = 5

// StorageClass is a SPIR-V pointer storage class.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassCrossWorkgroup  StorageClass = 5
	StorageClassPrivate         StorageClass = 6
	StorageClassStorageBuffer   StorageClass = 12
)

func (s StorageClass) String() string {
	switch s {
	case StorageClassUniformConstant:
		return "UniformConstant"
	case StorageClassInput:
		return "Input"
	case StorageClassUniform:
		return "Uniform"
	case StorageClassOutput:
		return "Output"
	case StorageClassWorkgroup:
		return "Workgroup"
	case StorageClassCrossWorkgroup:
		return "CrossWorkgroup"
	case StorageClassPrivate:
		return "Private"
	case StorageClassStorageBuffer:
		return "StorageBuffer"
	default:
		return fmt.Sprintf("StorageClass(%d)", uint32(s))
	}
}

// TypeKind identifies which type instruction a ReflectedType was decoded from.
type TypeKind int

const (
	TypeKindInt TypeKind = iota
	TypeKindFloat
	TypeKindVector
	TypeKindArray
	TypeKindPointer
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindInt:
		return "int"
	case TypeKindFloat:
		return "float"
	case TypeKindVector:
		return "vector"
	case TypeKindArray:
		return "array"
	case TypeKindPointer:
		return "pointer"
	default:
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
}

// ReflectedType is one decoded SPIR-V type declaration. Only the fields relevant to
// Kind are set.
type ReflectedType struct {
	Kind TypeKind

	// ID is the result id of the declaration.
	ID uint32

	// Width and Signed describe int and float types. Encoding is set for floats that
	// carry an explicit floating point encoding operand.
	Width       uint32
	Signed      bool
	Encoding    uint32
	HasEncoding bool

	// Component and Count describe vectors.
	Component uint32
	Count     uint32

	// Element and LengthID describe arrays. LengthID refers to a constant, not a literal.
	Element  uint32
	LengthID uint32

	// Storage and Pointee describe pointers.
	Storage StorageClass
	Pointee uint32
}

func (t ReflectedType) String() string {
	switch t.Kind {
	case TypeKindInt:
		sign := "u"
		if t.Signed {
			sign = "i"
		}
		return fmt.Sprintf("%%%d = %s%d", t.ID, sign, t.Width)
	case TypeKindFloat:
		if t.HasEncoding {
			return fmt.Sprintf("%%%d = f%d (encoding %d)", t.ID, t.Width, t.Encoding)
		}
		return fmt.Sprintf("%%%d = f%d", t.ID, t.Width)
	case TypeKindVector:
		return fmt.Sprintf("%%%d = vec%d<%%%d>", t.ID, t.Count, t.Component)
	case TypeKindArray:
		return fmt.Sprintf("%%%d = array<%%%d, %%%d>", t.ID, t.Element, t.LengthID)
	case TypeKindPointer:
		return fmt.Sprintf("%%%d = ptr<%s, %%%d>", t.ID, t.Storage, t.Pointee)
	default:
		return fmt.Sprintf("%%%d = %s", t.ID, t.Kind)
	}
}

// Reflect walks a SPIR-V module and decodes its int, float, vector, array and pointer
// type declarations. It is best effort: a truncated or malformed stream stops decoding
// and returns what was decoded so far.
//
// Parameters:
//   - words: the SPIR-V module including its 5-word header
//
// Returns:
//   - []ReflectedType: the decoded types in declaration order
func Reflect(words []uint32) []ReflectedType {
	var types []ReflectedType
	for i := spirvHeaderWords; i < len(words); {
		length := int(words[i] >> 16)
		op := words[i] & 0xFFFF
		if length == 0 || i+length > len(words) {
			break
		}
		operands := words[i+1 : i+length]

		switch op {
		case opTypeInt:
			if len(operands) >= 3 {
				types = append(types, ReflectedType{Kind: TypeKindInt, ID: operands[0], Width: operands[1], Signed: operands[2] != 0})
			}
		case opTypeFloat:
			if len(operands) >= 2 {
				t := ReflectedType{Kind: TypeKindFloat, ID: operands[0], Width: operands[1]}
				if length > 3 {
					t.Encoding = operands[2]
					t.HasEncoding = true
				}
				types = append(types, t)
			}
		case opTypeVector:
			if len(operands) >= 3 {
				types = append(types, ReflectedType{Kind: TypeKindVector, ID: operands[0], Component: operands[1], Count: operands[2]})
			}
		case opTypeArray:
			if len(operands) >= 3 {
				types = append(types, ReflectedType{Kind: TypeKindArray, ID: operands[0], Element: operands[1], LengthID: operands[2]})
			}
		case opTypePointer:
			if len(operands) >= 3 {
				types = append(types, ReflectedType{Kind: TypeKindPointer, ID: operands[0], Storage: StorageClass(operands[1]), Pointee: operands[2]})
			}
		}
		i += length
	}
	return types
}
