// Package backend defines the handles a code-generation session drives.
//
// A backend hands out a Context; everything else (modules, builders, types,
// functions) is created inside it. Every creation call is fallible and every
// owned handle implements Releaser so the caller can scope its lifetime.
package backend

import "errors"

var (
	// ErrNilHandle is returned when the native library hands back a null handle.
	ErrNilHandle = errors.New("backend returned a null handle")

	// ErrUnsupportedFormat is returned by WriteFile for formats a backend cannot produce.
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// ErrInvalidType is returned for unknown type names or widths a backend cannot represent.
	ErrInvalidType = errors.New("invalid type")

	// ErrVerify is returned when a module fails verification before serialization.
	ErrVerify = errors.New("module verification failed")

	// ErrReleased is returned when a handle is used after it was released.
	ErrReleased = errors.New("handle already released")
)

// Releaser is implemented by every handle the caller owns.
// Release must be safe to call more than once.
type Releaser interface {
	Release() error
}

// Backend opens contexts on one code-generation library.
type Backend interface {
	// Name is the identifier used on the command line.
	Name() string

	// Supports reports whether WriteFile can produce f.
	Supports(f Format) bool

	// NewContext acquires an isolation scope. When global is true the
	// backend's process-wide context is used; releasing it is a no-op.
	NewContext(global bool) (Context, error)
}

// Context scopes all types, values and modules created in it.
type Context interface {
	Releaser

	NewModule(name string) (Module, error)
	NewBuilder() (Builder, error)

	// FunctionType returns the signature of a function returning ret with
	// zero parameters that is not variadic. The result is borrowed from the
	// context and must not be used after the context is released.
	FunctionType(ret Type) (Signature, error)
}

// Signature is a function type borrowed from a Context.
type Signature interface {
	Return() Type
}

// Function is a function value owned by its Module.
type Function interface {
	Name() string
	Signature() Signature
}

// FunctionDecl describes a function to add to a module.
// HasBody is false for a bare declaration.
type FunctionDecl struct {
	Name      string
	Signature Signature
	HasBody   bool
}

// Module is a top-level compilation unit.
type Module interface {
	Releaser

	AddFunction(decl FunctionDecl) (Function, error)

	// Verify checks the module is well formed before it is written.
	Verify() error

	// String returns the module as textual IR.
	String() string

	// WriteFile serializes the module to path.
	WriteFile(path string, format Format) error
}

// SourceNamer is implemented by modules that record the name of the source
// file they were built from.
type SourceNamer interface {
	SetSourceFilename(name string) error
}

// Builder emits instructions into a function body.
type Builder interface {
	Releaser

	// AppendBlock adds a basic block to fn and positions the builder at its end.
	AppendBlock(fn Function, name string) error

	ReturnVoid() error

	// ReturnConst materializes a constant of type t and returns it.
	ReturnConst(t Type, value uint64) error
}

// Inspector parses an artifact written by a backend back into a Summary.
type Inspector interface {
	Inspect(path string) (*Summary, error)
}
