package backend

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the structural class of a Type.
type Kind int

const (
	VoidKind Kind = iota
	IntegerKind
	// OtherKind marks types read back from an artifact that are not modeled here.
	OtherKind
)

// Type describes a return type. Only void and fixed-width integers are modeled.
type Type struct {
	Kind Kind
	Bits int
}

// Void is the empty return type.
var Void = Type{Kind: VoidKind}

// Int returns the integer type of the given width.
func Int(bits int) Type {
	return Type{Kind: IntegerKind, Bits: bits}
}

// IsVoid reports whether t is the void type.
func (t Type) IsVoid() bool {
	return t.Kind == VoidKind
}

func (t Type) String() string {
	switch t.Kind {
	case VoidKind:
		return "void"
	case IntegerKind:
		return fmt.Sprintf("i%d", t.Bits)
	}
	return "other"
}

// Fits reports whether value can be represented by t without truncation.
func (t Type) Fits(value uint64) bool {
	if t.Kind != IntegerKind {
		return false
	}
	if t.Bits >= 64 {
		return true
	}
	return value < uint64(1)<<uint(t.Bits)
}

// MaxIntBits bounds integer widths accepted from users.
const MaxIntBits = 64

// builtinTypes maps accepted type names to types.
var builtinTypes = map[string]Type{
	// LLVM-style names
	"i1":  Int(1),
	"i8":  Int(8),
	"i16": Int(16),
	"i32": Int(32),
	"i64": Int(64),

	// Go-style names
	"int8":  Int(8),
	"int16": Int(16),
	"int32": Int(32),
	"int64": Int(64),
	"uint8": Int(8),
	"byte":  Int(8),
	"bool":  Int(1),
	"rune":  Int(32),

	"void": Void,
}

// ParseType resolves a type name such as "void", "i8", "int32" or "i24".
func ParseType(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if t, ok := builtinTypes[name]; ok {
		return t, nil
	}

	// Arbitrary widths in LLVM spelling
	var bits int
	if n, err := fmt.Sscanf(name, "i%d", &bits); err == nil && n == 1 && fmt.Sprintf("i%d", bits) == name {
		if bits < 1 || bits > MaxIntBits {
			return Type{}, fmt.Errorf("%w: width %d out of range 1..%d", ErrInvalidType, bits, MaxIntBits)
		}
		return Int(bits), nil
	}

	return Type{}, fmt.Errorf("%w: unknown type %q", ErrInvalidType, name)
}

// Format is an on-disk serialization of a module.
type Format int

const (
	FormatBitcode Format = iota
	FormatIR
	FormatObject
)

var formatNames = map[Format]string{
	FormatBitcode: "bc",
	FormatIR:      "ll",
	FormatObject:  "obj",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the conventional file extension, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatBitcode:
		return ".bc"
	case FormatIR:
		return ".ll"
	case FormatObject:
		return ".o"
	}
	return ""
}

// ParseFormat accepts "bc", "bitcode", "ll", "ir", "obj" and "o".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bc", "bitcode":
		return FormatBitcode, nil
	case "ll", "ir":
		return FormatIR, nil
	case "obj", "o", "object":
		return FormatObject, nil
	}
	return 0, fmt.Errorf("unknown format %q: must be one of bc, ll, obj", s)
}

// FormatForPath guesses a format from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch filepath.Ext(path) {
	case ".bc":
		return FormatBitcode, true
	case ".ll":
		return FormatIR, true
	case ".o", ".obj":
		return FormatObject, true
	}
	return 0, false
}
