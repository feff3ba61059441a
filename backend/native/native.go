// Package native drives LLVM through its C interface.
//
// Every LLVM handle is wrapped so that creation failures surface as errors
// and disposal happens exactly once. A Module or Builder refuses to dispose
// itself after its Context is gone, since LLVM frees them with the context.
package native

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"tinygo.org/x/go-llvm"

	"github.com/arc-language/core-emit/backend"
)

// Name identifies this backend on the command line.
const Name = "llvm"

// Backend opens LLVM contexts.
type Backend struct{}

// New returns the LLVM backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend name used on the command line.
func (*Backend) Name() string { return Name }

// Supports reports whether the backend can write f.
func (*Backend) Supports(f backend.Format) bool {
	switch f {
	case backend.FormatBitcode, backend.FormatIR, backend.FormatObject:
		return true
	}
	return false
}

// NewContext opens a context. global selects the process-wide one where the backend has one.
func (*Backend) NewContext(global bool) (backend.Context, error) {
	var c llvm.Context
	if global {
		c = llvm.GlobalContext()
	} else {
		c = llvm.NewContext()
	}
	if c.C == nil {
		return nil, fmt.Errorf("create context: %w", backend.ErrNilHandle)
	}
	Logger().Debug("context acquired", zap.Bool("global", global))
	return &Context{ctx: c, global: global}, nil
}

// Context wraps an llvm.Context.
type Context struct {
	ctx      llvm.Context
	global   bool
	released bool
}

// Release disposes the context. It is safe to call twice.
func (c *Context) Release() error {
	if c.released {
		return nil
	}
	c.released = true
	if c.global {
		// The global context lives for the whole process.
		Logger().Debug("global context left alive")
		return nil
	}
	c.ctx.Dispose()
	Logger().Debug("context disposed")
	return nil
}

// alive reports whether objects created in c may still be touched.
func (c *Context) alive() bool {
	return c.global || !c.released
}

// NewModule creates an empty module named name.
func (c *Context) NewModule(name string) (backend.Module, error) {
	if c.released {
		return nil, fmt.Errorf("create module %q: %w", name, backend.ErrReleased)
	}
	m := c.ctx.NewModule(name)
	if m.C == nil {
		return nil, fmt.Errorf("create module %q: %w", name, backend.ErrNilHandle)
	}
	Logger().Debug("module created", zap.String("module", name))
	return &Module{mod: m, ctx: c, name: name}, nil
}

// NewBuilder creates a builder that is not yet positioned in a block.
func (c *Context) NewBuilder() (backend.Builder, error) {
	if c.released {
		return nil, fmt.Errorf("create builder: %w", backend.ErrReleased)
	}
	b := c.ctx.NewBuilder()
	if b.C == nil {
		return nil, fmt.Errorf("create builder: %w", backend.ErrNilHandle)
	}
	return &Builder{b: b, ctx: c}, nil
}

// FunctionType returns a signature with no parameters, not variadic, returning ret.
func (c *Context) FunctionType(ret backend.Type) (backend.Signature, error) {
	if c.released {
		return nil, fmt.Errorf("function type: %w", backend.ErrReleased)
	}
	rt, err := c.llvmType(ret)
	if err != nil {
		return nil, err
	}
	ft := llvm.FunctionType(rt, []llvm.Type{}, false)
	if ft.C == nil {
		return nil, fmt.Errorf("function type returning %s: %w", ret, backend.ErrNilHandle)
	}
	return &signature{typ: ft, ret: ret, ctx: c}, nil
}

func (c *Context) llvmType(t backend.Type) (llvm.Type, error) {
	var lt llvm.Type
	switch t.Kind {
	case backend.VoidKind:
		lt = c.ctx.VoidType()
	case backend.IntegerKind:
		if t.Bits < 1 || t.Bits > backend.MaxIntBits {
			return llvm.Type{}, fmt.Errorf("%w: width %d", backend.ErrInvalidType, t.Bits)
		}
		lt = c.ctx.IntType(t.Bits)
	default:
		return llvm.Type{}, fmt.Errorf("%w: %s", backend.ErrInvalidType, t)
	}
	if lt.C == nil {
		return llvm.Type{}, fmt.Errorf("type %s: %w", t, backend.ErrNilHandle)
	}
	return lt, nil
}

type signature struct {
	typ llvm.Type
	ret backend.Type
	ctx *Context
}

func (s *signature) Return() backend.Type { return s.ret }

type function struct {
	val  llvm.Value
	name string
	sig  *signature
}

func (f *function) Name() string                  { return f.name }
func (f *function) Signature() backend.Signature { return f.sig }

// Module wraps an llvm.Module.
type Module struct {
	mod      llvm.Module
	ctx      *Context
	name     string
	released bool
}

// Release disposes the module.
func (m *Module) Release() error {
	if m.released {
		return nil
	}
	m.released = true
	if !m.ctx.alive() {
		return fmt.Errorf("module %q released after its context", m.name)
	}
	m.mod.Dispose()
	Logger().Debug("module disposed", zap.String("module", m.name))
	return nil
}

// AddFunction adds decl to the module. Names must be unique.
func (m *Module) AddFunction(decl backend.FunctionDecl) (backend.Function, error) {
	if m.released {
		return nil, fmt.Errorf("add function %q: %w", decl.Name, backend.ErrReleased)
	}
	sig, ok := decl.Signature.(*signature)
	if !ok {
		return nil, fmt.Errorf("add function %q: signature was not created by the llvm backend", decl.Name)
	}
	if sig.ctx != m.ctx {
		return nil, fmt.Errorf("add function %q: signature belongs to a different context", decl.Name)
	}
	if !m.mod.NamedFunction(decl.Name).IsNil() {
		return nil, fmt.Errorf("add function %q: already defined in module %q", decl.Name, m.name)
	}

	fn := llvm.AddFunction(m.mod, decl.Name, sig.typ)
	if fn.IsNil() {
		return nil, fmt.Errorf("add function %q: %w", decl.Name, backend.ErrNilHandle)
	}
	Logger().Debug("function added",
		zap.String("function", decl.Name),
		zap.Stringer("return", sig.ret),
		zap.Bool("body", decl.HasBody))
	return &function{val: fn, name: decl.Name, sig: sig}, nil
}

// SetSourceFilename records name as the module's source_filename.
func (m *Module) SetSourceFilename(name string) error {
	if m.released {
		return fmt.Errorf("set source filename: %w", backend.ErrReleased)
	}
	setSourceFileName(m.mod, name)
	return nil
}

// Verify runs the LLVM module verifier.
func (m *Module) Verify() error {
	if err := llvm.VerifyModule(m.mod, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrVerify, err)
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
	switch format {
	case backend.FormatBitcode:
		return m.writeBitcode(path)
	case backend.FormatIR:
		if err := os.WriteFile(path, []byte(m.mod.String()), 0644); err != nil {
			return fmt.Errorf("write IR: %w", err)
		}
		return nil
	case backend.FormatObject:
		return emitObject(m.mod, path)
	}
	return fmt.Errorf("%w: %s", backend.ErrUnsupportedFormat, format)
}

func (m *Module) writeBitcode(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write bitcode: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()

	if err := llvm.WriteBitcodeToFile(m.mod, f); err != nil {
		return fmt.Errorf("write bitcode: %w", err)
	}
	return nil
}

// Builder wraps an llvm.Builder.
type Builder struct {
	b        llvm.Builder
	ctx      *Context
	fn       *function
	released bool
}

// Release disposes the builder.
func (b *Builder) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	if !b.ctx.alive() {
		return errors.New("builder released after its context")
	}
	b.b.Dispose()
	Logger().Debug("builder disposed")
	return nil
}

// AppendBlock adds a block named name to fn and positions the builder at its end.
func (b *Builder) AppendBlock(fn backend.Function, name string) error {
	if b.released {
		return fmt.Errorf("append block: %w", backend.ErrReleased)
	}
	f, ok := fn.(*function)
	if !ok {
		return fmt.Errorf("append block: function %q was not created by the llvm backend", fn.Name())
	}
	bb := b.ctx.ctx.AddBasicBlock(f.val, name)
	if bb.C == nil {
		return fmt.Errorf("append block %q: %w", name, backend.ErrNilHandle)
	}
	b.b.SetInsertPointAtEnd(bb)
	b.fn = f
	return nil
}

// ReturnVoid emits "ret void".
func (b *Builder) ReturnVoid() error {
	if err := b.ready(); err != nil {
		return err
	}
	if ret := b.fn.sig.ret; !ret.IsVoid() {
		return fmt.Errorf("%w: void return from @%s returning %s", backend.ErrInvalidType, b.fn.name, ret)
	}
	if b.b.CreateRetVoid().IsNil() {
		return fmt.Errorf("ret void: %w", backend.ErrNilHandle)
	}
	return nil
}

// ReturnConst emits a return of the constant value of type t.
func (b *Builder) ReturnConst(t backend.Type, value uint64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if ret := b.fn.sig.ret; ret != t {
		return fmt.Errorf("%w: %s return from @%s returning %s", backend.ErrInvalidType, t, b.fn.name, ret)
	}
	if !t.Fits(value) {
		return fmt.Errorf("%w: %d does not fit in %s", backend.ErrInvalidType, value, t)
	}
	it, err := b.ctx.llvmType(t)
	if err != nil {
		return err
	}
	c := llvm.ConstInt(it, value, false)
	if c.IsNil() {
		return fmt.Errorf("constant %s %d: %w", t, value, backend.ErrNilHandle)
	}
	if b.b.CreateRet(c).IsNil() {
		return fmt.Errorf("ret %s %d: %w", t, value, backend.ErrNilHandle)
	}
	return nil
}

func (b *Builder) ready() error {
	if b.released {
		return fmt.Errorf("build: %w", backend.ErrReleased)
	}
	if b.fn == nil {
		return errors.New("build: builder is not positioned in a block")
	}
	return nil
}
