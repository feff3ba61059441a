// Package llir builds LLVM IR in pure Go with github.com/llir/llvm.
//
// It needs no native LLVM installation and writes textual IR only.
package llir

import (
	"fmt"
	"math/big"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/arc-language/core-emit/backend"
)

// Name identifies this backend on the command line.
const Name = "llir"

// Backend is the pure-Go IR backend.
type Backend struct{}

// New returns the llir backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend name used on the command line.
func (*Backend) Name() string { return Name }

// Supports reports whether the backend can write f.
func (*Backend) Supports(f backend.Format) bool {
	return f == backend.FormatIR
}

// NewContext returns a context value; llir has no native context, so
// global and explicit contexts behave the same.
func (*Backend) NewContext(global bool) (backend.Context, error) {
	return &Context{global: global}, nil
}

// Context scopes llir objects created through it.
type Context struct {
	global   bool
	released bool
}

// Release disposes the context. It is safe to call twice.
func (c *Context) Release() error {
	c.released = true
	return nil
}

// NewModule creates an empty module named name.
func (c *Context) NewModule(name string) (backend.Module, error) {
	if c.released {
		return nil, fmt.Errorf("create module %q: %w", name, backend.ErrReleased)
	}
	return &Module{mod: ir.NewModule(), ctx: c, name: name}, nil
}

// NewBuilder creates a builder that is not yet positioned in a block.
func (c *Context) NewBuilder() (backend.Builder, error) {
	if c.released {
		return nil, fmt.Errorf("create builder: %w", backend.ErrReleased)
	}
	return &Builder{ctx: c}, nil
}

// FunctionType returns a signature with no parameters, not variadic, returning ret.
func (c *Context) FunctionType(ret backend.Type) (backend.Signature, error) {
	if c.released {
		return nil, fmt.Errorf("function type: %w", backend.ErrReleased)
	}
	rt, err := irType(ret)
	if err != nil {
		return nil, err
	}
	return &signature{ret: ret, typ: rt, ctx: c}, nil
}

func irType(t backend.Type) (types.Type, error) {
	switch t.Kind {
	case backend.VoidKind:
		return types.Void, nil
	case backend.IntegerKind:
		if t.Bits < 1 || t.Bits > backend.MaxIntBits {
			return nil, fmt.Errorf("%w: width %d", backend.ErrInvalidType, t.Bits)
		}
		return types.NewInt(uint64(t.Bits)), nil
	}
	return nil, fmt.Errorf("%w: %s", backend.ErrInvalidType, t)
}

type signature struct {
	ret backend.Type
	typ types.Type
	ctx *Context
}

func (s *signature) Return() backend.Type { return s.ret }

type function struct {
	fn  *ir.Func
	sig *signature
}

func (f *function) Name() string                  { return f.fn.Name() }
func (f *function) Signature() backend.Signature { return f.sig }

// Module wraps an *ir.Module.
type Module struct {
	mod      *ir.Module
	ctx      *Context
	name     string
	released bool
}

// Release disposes the module.
func (m *Module) Release() error {
	m.released = true
	return nil
}

// AddFunction adds decl to the module. Names must be unique.
func (m *Module) AddFunction(decl backend.FunctionDecl) (backend.Function, error) {
	if m.released {
		return nil, fmt.Errorf("add function %q: %w", decl.Name, backend.ErrReleased)
	}
	sig, ok := decl.Signature.(*signature)
	if !ok {
		return nil, fmt.Errorf("add function %q: signature was not created by the llir backend", decl.Name)
	}
	if sig.ctx != m.ctx {
		return nil, fmt.Errorf("add function %q: signature belongs to a different context", decl.Name)
	}
	for _, f := range m.mod.Funcs {
		if f.Name() == decl.Name {
			return nil, fmt.Errorf("add function %q: already defined in module %q", decl.Name, m.name)
		}
	}
	fn := m.mod.NewFunc(decl.Name, sig.typ)
	return &function{fn: fn, sig: sig}, nil
}

// Verify checks that every block is terminated and every return matches
// its function's return type.
// SetSourceFilename records name as the module's source_filename.
func (m *Module) SetSourceFilename(name string) error {
	if m.released {
		return fmt.Errorf("set source filename: %w", backend.ErrReleased)
	}
	m.mod.SourceFilename = name
	return nil
}

// Verify checks the module before it is written.
func (m *Module) Verify() error {
	for _, f := range m.mod.Funcs {
		for _, b := range f.Blocks {
			if b.Term == nil {
				return fmt.Errorf("%w: block %s in @%s has no terminator", backend.ErrVerify, b.Name(), f.Name())
			}
			ret, ok := b.Term.(*ir.TermRet)
			if !ok {
				continue
			}
			_, isVoid := f.Sig.RetType.(*types.VoidType)
			if isVoid != (ret.X == nil) {
				return fmt.Errorf("%w: return in @%s does not match %s", backend.ErrVerify, f.Name(), f.Sig.RetType)
			}
		}
	}
	return nil
}

// String returns the module as textual IR.
func (m *Module) String() string {
	return m.mod.String()
}

// WriteFile serializes the module to path in format.
func (m *Module) WriteFile(path string, format backend.Format) error {
	if m.released {
		return fmt.Errorf("write %s: %w", path, backend.ErrReleased)
	}
	if format != backend.FormatIR {
		return fmt.Errorf("%w: llir writes textual IR only, not %s", backend.ErrUnsupportedFormat, format)
	}
	if err := os.WriteFile(path, []byte(m.mod.String()), 0644); err != nil {
		return fmt.Errorf("write IR: %w", err)
	}
	return nil
}

// Builder appends to the current block of an llir function.
type Builder struct {
	ctx      *Context
	fn       *function
	block    *ir.Block
	released bool
}

// Release disposes the builder.
func (b *Builder) Release() error {
	b.released = true
	b.block = nil
	return nil
}

// AppendBlock adds a block named name to fn and positions the builder at its end.
func (b *Builder) AppendBlock(fn backend.Function, name string) error {
	if b.released {
		return fmt.Errorf("append block: %w", backend.ErrReleased)
	}
	f, ok := fn.(*function)
	if !ok {
		return fmt.Errorf("append block: function %q was not created by the llir backend", fn.Name())
	}
	b.fn = f
	b.block = f.fn.NewBlock(name)
	return nil
}

// ReturnVoid emits "ret void".
func (b *Builder) ReturnVoid() error {
	if err := b.ready(); err != nil {
		return err
	}
	if ret := b.fn.sig.ret; !ret.IsVoid() {
		return fmt.Errorf("%w: void return from @%s returning %s", backend.ErrInvalidType, b.fn.Name(), ret)
	}
	b.block.NewRet(nil)
	return nil
}

// ReturnConst emits a return of the constant value of type t.
func (b *Builder) ReturnConst(t backend.Type, value uint64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if ret := b.fn.sig.ret; ret != t {
		return fmt.Errorf("%w: %s return from @%s returning %s", backend.ErrInvalidType, t, b.fn.Name(), ret)
	}
	if !t.Fits(value) {
		return fmt.Errorf("%w: %d does not fit in %s", backend.ErrInvalidType, value, t)
	}
	it, ok := b.fn.sig.typ.(*types.IntType)
	if !ok {
		return fmt.Errorf("%w: %s is not an integer type", backend.ErrInvalidType, t)
	}
	c := &constant.Int{Typ: it, X: new(big.Int).SetUint64(value)}
	b.block.NewRet(c)
	return nil
}

func (b *Builder) ready() error {
	if b.released {
		return fmt.Errorf("build: %w", backend.ErrReleased)
	}
	if b.block == nil {
		return fmt.Errorf("build: builder is not positioned in a block")
	}
	return nil
}
