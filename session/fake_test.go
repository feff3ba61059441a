package session

import (
	"errors"
	"fmt"
	"os"

	"github.com/arc-language/core-emit/backend"
)

// recorder logs every call a fake backend receives.
type recorder struct {
	events []string
	// fail maps an event name to the error the fake returns for it.
	fail map[string]error
}

func (r *recorder) call(event string) error {
	r.events = append(r.events, event)
	if err, ok := r.fail[event]; ok {
		return err
	}
	return nil
}

type fakeBackend struct {
	rec     *recorder
	formats []backend.Format
	// empty makes WriteFile produce a zero-length file.
	empty bool
	// sourceNames makes modules implement backend.SourceNamer.
	sourceNames bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rec:     &recorder{fail: map[string]error{}},
		formats: []backend.Format{backend.FormatBitcode, backend.FormatIR},
	}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Supports(f backend.Format) bool {
	for _, ff := range b.formats {
		if ff == f {
			return true
		}
	}
	return false
}

func (b *fakeBackend) NewContext(global bool) (backend.Context, error) {
	if err := b.rec.call("context.new"); err != nil {
		return nil, err
	}
	return &fakeContext{b: b}, nil
}

type fakeContext struct{ b *fakeBackend }

func (c *fakeContext) Release() error { return c.b.rec.call("context.release") }

func (c *fakeContext) NewModule(name string) (backend.Module, error) {
	if err := c.b.rec.call("module.new"); err != nil {
		return nil, err
	}
	m := &fakeModule{b: c.b, name: name}
	if c.b.sourceNames {
		return &fakeNamedModule{m}, nil
	}
	return m, nil
}

func (c *fakeContext) NewBuilder() (backend.Builder, error) {
	if err := c.b.rec.call("builder.new"); err != nil {
		return nil, err
	}
	return &fakeBuilder{b: c.b}, nil
}

func (c *fakeContext) FunctionType(ret backend.Type) (backend.Signature, error) {
	if err := c.b.rec.call("types"); err != nil {
		return nil, err
	}
	return fakeSignature{ret: ret}, nil
}

type fakeSignature struct{ ret backend.Type }

func (s fakeSignature) Return() backend.Type { return s.ret }

type fakeFunction struct {
	name string
	sig  backend.Signature
}

func (f fakeFunction) Name() string                  { return f.name }
func (f fakeFunction) Signature() backend.Signature { return f.sig }

type fakeModule struct {
	b    *fakeBackend
	name string
	fns  []string
}

func (m *fakeModule) Release() error { return m.b.rec.call("module.release") }

func (m *fakeModule) AddFunction(decl backend.FunctionDecl) (backend.Function, error) {
	if err := m.b.rec.call(fmt.Sprintf("function %s body=%t", decl.Name, decl.HasBody)); err != nil {
		return nil, err
	}
	m.fns = append(m.fns, decl.Name)
	return fakeFunction{name: decl.Name, sig: decl.Signature}, nil
}

func (m *fakeModule) Verify() error { return m.b.rec.call("verify") }

func (m *fakeModule) String() string {
	return fmt.Sprintf("; module %s functions %v\n", m.name, m.fns)
}

func (m *fakeModule) WriteFile(path string, format backend.Format) error {
	if err := m.b.rec.call("write " + format.String()); err != nil {
		return err
	}
	if m.b.empty {
		return os.WriteFile(path, nil, 0644)
	}
	return os.WriteFile(path, []byte(m.String()), 0644)
}

type fakeNamedModule struct{ *fakeModule }

func (m *fakeNamedModule) SetSourceFilename(name string) error {
	return m.b.rec.call("source " + name)
}

type fakeBuilder struct{ b *fakeBackend }

func (fb *fakeBuilder) Release() error { return fb.b.rec.call("builder.release") }

func (fb *fakeBuilder) AppendBlock(fn backend.Function, name string) error {
	return fb.b.rec.call("block " + name)
}

func (fb *fakeBuilder) ReturnVoid() error { return fb.b.rec.call("ret void") }

func (fb *fakeBuilder) ReturnConst(t backend.Type, value uint64) error {
	return fb.b.rec.call(fmt.Sprintf("ret %s %d", t, value))
}

var errBoom = errors.New("boom")
