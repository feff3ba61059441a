package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arc-language/core-emit/backend"
	"github.com/arc-language/core-emit/diagnostics"
)

// Result describes the artifact a successful session wrote.
type Result struct {
	Output    string
	Format    backend.Format
	Backend   string
	Variant   Variant
	Size      int64
	Functions int

	// IR is the textual module, set only when Options.Dump is true.
	IR string
}

// Session sequences the calls that build one module and write it to disk.
type Session struct {
	backend backend.Backend
	opts    Options
	logger  *Logger
	diags   *diagnostics.DiagnosticEngine
	dump    io.Writer
}

// plan is the validated, resolved form of Options.
type plan struct {
	variant Variant
	ret     backend.Type
	format  backend.Format
	output  string
	source  string
}

// New creates a session. A nil logger discards log output.
func New(be backend.Backend, opts Options, logger *Logger) *Session {
	if logger == nil {
		logger = NewLogger("session", nil)
	}
	logger.Debug("Creating session for module '%s' on backend '%s'", opts.ModuleName, be.Name())
	return &Session{
		backend: be,
		opts:    opts,
		logger:  logger,
		diags:   diagnostics.NewDiagnosticEngine(),
		dump:    os.Stderr,
	}
}

// SetDumpWriter sets where textual IR goes when Options.Dump is set.
func (s *Session) SetDumpWriter(w io.Writer) {
	s.dump = w
}

// Diagnostics returns the diagnostics collected so far.
func (s *Session) Diagnostics() *diagnostics.DiagnosticEngine {
	return s.diags
}

// Run builds the module and writes it. Every handle acquired is released
// before Run returns, on success and on every failure path; release
// failures are joined with the primary error.
func (s *Session) Run(ctx context.Context) (res *Result, err error) {
	p, err := s.plan()
	if err != nil {
		return nil, s.fail(StepOptions, err)
	}
	s.logger.Info("Building %s variant of module '%s' into %s", p.variant, s.opts.ModuleName, p.output)

	scope := NewScope(s.logger)
	defer func() {
		if rerr := scope.Release(); rerr != nil {
			err = errors.Join(err, s.fail(StepRelease, rerr))
			res = nil
		}
	}()

	// 1. Context
	if err := s.checkpoint(ctx, StepContext); err != nil {
		return nil, err
	}
	bctx, err := s.backend.NewContext(s.opts.GlobalContext)
	if err != nil {
		return nil, s.fail(StepContext, err)
	}
	if err := scope.Acquire("context", bctx); err != nil {
		return nil, s.fail(StepContext, err)
	}

	// 2. Module
	mod, err := bctx.NewModule(s.opts.ModuleName)
	if err != nil {
		return nil, s.fail(StepModule, err)
	}
	if err := scope.Acquire("module", mod); err != nil {
		return nil, s.fail(StepModule, err)
	}
	if sn, ok := mod.(backend.SourceNamer); ok {
		if err := sn.SetSourceFilename(p.source); err != nil {
			return nil, s.fail(StepModule, err)
		}
	} else {
		s.diags.Info(string(StepModule), fmt.Sprintf("backend %s does not record a source filename", s.backend.Name()))
	}

	// 3. Builder, only when a body is emitted
	var b backend.Builder
	if p.variant.HasBody() {
		b, err = bctx.NewBuilder()
		if err != nil {
			return nil, s.fail(StepBuilder, err)
		}
		if err := scope.Acquire("builder", b); err != nil {
			return nil, s.fail(StepBuilder, err)
		}
	}

	// 4-6. Types, function, body
	functions := 0
	if p.variant.Declares() {
		if err := s.checkpoint(ctx, StepTypes); err != nil {
			return nil, err
		}
		sig, err := bctx.FunctionType(p.ret)
		if err != nil {
			return nil, s.fail(StepTypes, err)
		}

		fn, err := mod.AddFunction(backend.FunctionDecl{
			Name:      s.opts.FunctionName,
			Signature: sig,
			HasBody:   p.variant.HasBody(),
		})
		if err != nil {
			return nil, s.fail(StepFunction, err)
		}
		functions++
		s.logger.Debug("Added function @%s returning %s", fn.Name(), p.ret)

		if p.variant.HasBody() {
			if err := s.emitBody(b, fn, p.ret); err != nil {
				return nil, s.fail(StepBody, err)
			}
		}
	}

	s.logger.Debug("Verifying with %s held", strings.Join(scope.Names(), ", "))
	if err := mod.Verify(); err != nil {
		return nil, s.fail(StepVerify, err)
	}

	res = &Result{
		Output:    p.output,
		Format:    p.format,
		Backend:   s.backend.Name(),
		Variant:   p.variant,
		Functions: functions,
	}
	if s.opts.Dump {
		res.IR = mod.String()
		if s.dump != nil {
			fmt.Fprint(s.dump, res.IR)
		}
	}

	// 7. Serialize
	if err := s.checkpoint(ctx, StepSerialize); err != nil {
		return nil, err
	}
	if err := mod.WriteFile(p.output, p.format); err != nil {
		return nil, s.fail(StepSerialize, err)
	}
	info, err := os.Stat(p.output)
	if err != nil {
		return nil, s.fail(StepSerialize, err)
	}
	if info.Size() == 0 {
		return nil, s.fail(StepSerialize, fmt.Errorf("%s is empty", p.output))
	}
	res.Size = info.Size()
	s.diags.Info(string(StepSerialize), fmt.Sprintf("wrote %d bytes of %s to %s", res.Size, p.format, p.output))

	s.logger.Info("Wrote %d bytes of %s to %s", res.Size, p.format, p.output)

	// 8. Release happens in the deferred scope release
	return res, nil
}

func (s *Session) emitBody(b backend.Builder, fn backend.Function, ret backend.Type) error {
	if err := b.AppendBlock(fn, EntryBlockName); err != nil {
		return err
	}
	if ret.IsVoid() {
		return b.ReturnVoid()
	}
	return b.ReturnConst(ret, s.opts.Value)
}

// plan validates the options against the backend and resolves the output path.
func (s *Session) plan() (*plan, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	ret, err := s.opts.ResolvedReturnType()
	if err != nil {
		return nil, err
	}
	format, err := s.opts.ResolvedFormat()
	if err != nil {
		return nil, err
	}
	if !s.backend.Supports(format) {
		return nil, fmt.Errorf("%w: backend %s cannot write %s", backend.ErrUnsupportedFormat, s.backend.Name(), format)
	}

	resolver, err := NewOutputResolver(s.opts.WorkDir)
	if err != nil {
		return nil, err
	}
	output, err := resolver.Resolve(s.opts.Output, format)
	if err != nil {
		return nil, err
	}

	if !MatchesFormat(output, format) {
		s.warn(StepOptions, fmt.Sprintf("output %s does not have the %s extension", output, format.Ext()))
	}
	if s.opts.GlobalContext {
		s.warn(StepContext, "building in the global context; it is not released")
	}

	return &plan{
		variant: s.opts.Variant.canonical(),
		source:  s.opts.ResolvedSourceFilename(),
		ret:     ret,
		format:  format,
		output:  output,
	}, nil
}

func (s *Session) checkpoint(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return s.fail(step, err)
	}
	return nil
}

func (s *Session) warn(step Step, message string) {
	s.diags.Warning(string(step), message)
	s.logger.Warning("%s: %s", step, message)
}

// fail records err against step and wraps it in a StepError.
func (s *Session) fail(step Step, err error) error {
	s.diags.Error(string(step), err.Error())
	s.logger.Error("%s failed: %v", step, err)
	return &StepError{Step: step, Err: err}
}
