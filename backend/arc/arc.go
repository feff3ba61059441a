// Package arc builds IR with the Arc core builder and emits textual IR or
// native object code through the Arc code generator.
package arc

import (
	"fmt"
	"os"
	"strings"

	"github.com/arc-language/core-builder/builder"
	"github.com/arc-language/core-builder/ir"
	"github.com/arc-language/core-builder/types"
	"github.com/arc-language/core-codegen/codegen"

	"github.com/arc-language/core-emit/backend"
)

// Name identifies this backend on the command line.
const Name = "arc"

// Backend is the Arc builder backend.
type Backend struct{}

// New returns the Arc backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend name used on the command line.
func (*Backend) Name() string { return Name }

// Supports reports whether the backend can write f.
func (*Backend) Supports(f backend.Format) bool {
	return f == backend.FormatIR || f == backend.FormatObject
}

// NewContext creates a fresh Arc builder. The Arc builder owns module
// creation, so there is no process-wide context to share.
func (*Backend) NewContext(global bool) (backend.Context, error) {
	b := builder.New()
	if b == nil {
		return nil, fmt.Errorf("create builder: %w", backend.ErrNilHandle)
	}
	return &Context{b: b}, nil
}

// Context owns the Arc builder all modules are created through.
type Context struct {
	b        *builder.Builder
	module   *Module
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
	if c.module != nil {
		return nil, fmt.Errorf("create module %q: arc context already holds module %q", name, c.module.name)
	}
	mod := c.b.CreateModule(name)
	if mod == nil {
		return nil, fmt.Errorf("create module %q: %w", name, backend.ErrNilHandle)
	}
	c.module = &Module{mod: mod, ctx: c, name: name}
	return c.module, nil
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
	t, err := arcType(ret)
	if err != nil {
		return nil, err
	}
	return &signature{ret: ret, typ: t, ctx: c}, nil
}

// arcType maps a return type onto the Arc builder's fixed type set.
func arcType(t backend.Type) (types.Type, error) {
	if t.IsVoid() {
		return types.Void, nil
	}
	it, err := intType(t)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func intType(t backend.Type) (*types.IntType, error) {
	if t.Kind == backend.IntegerKind {
		switch t.Bits {
		case 1:
			return types.I1, nil
		case 8:
			return types.I8, nil
		case 16:
			return types.I16, nil
		case 32:
			return types.I32, nil
		case 64:
			return types.I64, nil
		}
	}
	return nil, fmt.Errorf("%w: arc supports i1, i8, i16, i32 and i64, not %s", backend.ErrInvalidType, t)
}

type signature struct {
	ret backend.Type
	typ types.Type
	ctx *Context
}

func (s *signature) Return() backend.Type { return s.ret }

type function struct {
	fn  *ir.Function
	sig *signature
	mod *Module
}

func (f *function) Name() string                  { return f.fn.Name() }
func (f *function) Signature() backend.Signature { return f.sig }

// Module wraps an Arc module.
type Module struct {
	mod      *ir.Module
	ctx      *Context
	name     string
	source   string
	blocks   []*ir.BasicBlock
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
		return nil, fmt.Errorf("add function %q: signature was not created by the arc backend", decl.Name)
	}
	if sig.ctx != m.ctx {
		return nil, fmt.Errorf("add function %q: signature belongs to a different context", decl.Name)
	}
	for _, f := range m.mod.Functions {
		if f.Name() == decl.Name {
			return nil, fmt.Errorf("add function %q: already defined in module %q", decl.Name, m.name)
		}
	}

	var fn *ir.Function
	if decl.HasBody {
		fn = m.ctx.b.CreateFunction(decl.Name, sig.typ, []types.Type{}, false)
	} else {
		fn = m.ctx.b.DeclareFunction(decl.Name, sig.typ, []types.Type{}, false)
	}
	if fn == nil {
		return nil, fmt.Errorf("add function %q: %w", decl.Name, backend.ErrNilHandle)
	}
	return &function{fn: fn, sig: sig, mod: m}, nil
}

// Verify checks every emitted block ends in a terminator.
func (m *Module) Verify() error {
	for _, bb := range m.blocks {
		if bb.Terminator() == nil {
			return fmt.Errorf("%w: block has no terminator", backend.ErrVerify)
		}
	}
	return nil
}

// SetSourceFilename records name for the textual IR header. Object files
// do not carry it.
func (m *Module) SetSourceFilename(name string) error {
	if m.released {
		return fmt.Errorf("set source filename: %w", backend.ErrReleased)
	}
	m.source = name
	return nil
}

// String returns the module as textual IR. The Arc builder prints only
// definitions, so the module header is added here unless the builder
// already wrote one.
func (m *Module) String() string {
	body := m.mod.String()
	if strings.Contains(body, "source_filename") {
		return body
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", m.name)
	if m.source != "" {
		fmt.Fprintf(&sb, "source_filename = %q\n", m.source)
	}
	if body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
	}
	return sb.String()
}

// WriteFile serializes the module to path in format.
func (m *Module) WriteFile(path string, format backend.Format) error {
	if m.released {
		return fmt.Errorf("write %s: %w", path, backend.ErrReleased)
	}
	var data []byte
	switch format {
	case backend.FormatIR:
		data = []byte(m.String())
	case backend.FormatObject:
		obj, err := codegen.GenerateObject(m.mod)
		if err != nil {
			return fmt.Errorf("code generation failed: %w", err)
		}
		data = obj
	default:
		return fmt.Errorf("%w: arc cannot write %s", backend.ErrUnsupportedFormat, format)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

// Builder positions the Arc builder inside a function body.
type Builder struct {
	ctx      *Context
	fn       *function
	block    *ir.BasicBlock
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
		return fmt.Errorf("append block: function %q was not created by the arc backend", fn.Name())
	}
	bb := b.ctx.b.CreateBlock(name)
	if bb == nil {
		return fmt.Errorf("append block %q: %w", name, backend.ErrNilHandle)
	}
	b.ctx.b.SetInsertPoint(bb)
	b.fn = f
	b.block = bb
	f.mod.blocks = append(f.mod.blocks, bb)
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
	b.ctx.b.CreateRetVoid()
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
	it, err := intType(t)
	if err != nil {
		return err
	}
	b.ctx.b.CreateRet(b.ctx.b.ConstInt(it, int64(value)))
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
