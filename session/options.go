package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arc-language/core-emit/backend"
)

// Variant selects what the session puts in the module.
type Variant string

const (
	// VariantEmpty writes a module with no functions.
	VariantEmpty Variant = "empty"
	// VariantDeclare declares the function without a body.
	VariantDeclare Variant = "declare"
	// VariantVoid defines the function as a single "ret void".
	VariantVoid Variant = "void"
	// VariantConst defines the function as a single return of a constant.
	VariantConst Variant = "const"
)

// Variants lists the accepted variants.
var Variants = []Variant{VariantConst, VariantVoid, VariantDeclare, VariantEmpty}

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(s).canonical()
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown variant %q: must be one of %v", s, Variants)
}

// canonical folds case and surrounding space so "Void" and "void" agree.
func (v Variant) canonical() Variant {
	return Variant(strings.ToLower(strings.TrimSpace(string(v))))
}

// Declares reports whether the variant adds a function to the module.
func (v Variant) Declares() bool {
	return v.canonical() != VariantEmpty
}

// HasBody reports whether the variant emits a function body, and so needs a builder.
func (v Variant) HasBody() bool {
	c := v.canonical()
	return c == VariantVoid || c == VariantConst
}

const (
	DefaultModuleName   = "main"
	DefaultFunctionName = "main"
	DefaultReturnValue  = 9
	DefaultOutputBase   = "main"
	DefaultBackend      = "llvm"

	// EntryBlockName is the name of the single basic block of a body.
	EntryBlockName = "entry"
)

// Options configures a session. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Variant      Variant `yaml:"variant"`
	ModuleName   string  `yaml:"module"`
	FunctionName string  `yaml:"function"`

	// SourceFilename is recorded as the module's source_filename. Empty
	// means the module name.
	SourceFilename string `yaml:"source_file"`

	// ReturnType is a type name such as "void", "i8" or "int32". Empty
	// means the variant's default: i8 for const, void otherwise.
	ReturnType string `yaml:"return"`
	Value      uint64 `yaml:"value"`

	// Output is the artifact path. Empty means "main" plus the format's
	// extension. Relative paths resolve against WorkDir.
	Output string `yaml:"output"`
	// Format is "bc", "ll" or "obj". Empty means guess from Output, else bc.
	Format  string `yaml:"format"`
	Backend string `yaml:"backend"`
	WorkDir string `yaml:"work_dir"`

	// GlobalContext builds in the backend's process-wide context instead
	// of creating and disposing a private one.
	GlobalContext bool `yaml:"global_context"`
	// Dump writes the textual IR to the session's dump writer before
	// serialization.
	Dump bool `yaml:"dump"`
}

// DefaultOptions reproduces the classic run: an i8 main returning 9,
// written as bitcode to main.bc.
func DefaultOptions() Options {
	return Options{
		Variant:      VariantConst,
		ModuleName:   DefaultModuleName,
		FunctionName: DefaultFunctionName,
		Value:        DefaultReturnValue,
		Backend:      DefaultBackend,
	}
}

// LoadOptions reads a YAML file over base. Keys missing from the file keep
// base's values; unknown keys are an error.
func LoadOptions(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}

	opts := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return opts, nil
}

// ResolvedReturnType returns the function's return type for the variant.
func (o Options) ResolvedReturnType() (backend.Type, error) {
	switch o.Variant.canonical() {
	case VariantEmpty:
		return backend.Void, nil
	case VariantVoid:
		if o.ReturnType == "" {
			return backend.Void, nil
		}
		t, err := backend.ParseType(o.ReturnType)
		if err != nil {
			return backend.Type{}, err
		}
		if !t.IsVoid() {
			return backend.Type{}, fmt.Errorf("%w: variant %s returns void, not %s", backend.ErrInvalidType, o.Variant, t)
		}
		return t, nil
	case VariantDeclare:
		if o.ReturnType == "" {
			return backend.Void, nil
		}
		return backend.ParseType(o.ReturnType)
	case VariantConst:
		if o.ReturnType == "" {
			return backend.Int(8), nil
		}
		t, err := backend.ParseType(o.ReturnType)
		if err != nil {
			return backend.Type{}, err
		}
		if t.IsVoid() {
			return backend.Type{}, fmt.Errorf("%w: variant %s needs an integer return type", backend.ErrInvalidType, o.Variant)
		}
		return t, nil
	}
	return backend.Type{}, fmt.Errorf("unknown variant %q", o.Variant)
}

// ResolvedSourceFilename returns the source filename recorded in the module.
func (o Options) ResolvedSourceFilename() string {
	if o.SourceFilename != "" {
		return o.SourceFilename
	}
	return o.ModuleName
}

// ResolvedFormat returns the output format, guessing from Output when
// Format is empty.
func (o Options) ResolvedFormat() (backend.Format, error) {
	if o.Format != "" {
		return backend.ParseFormat(o.Format)
	}
	if f, ok := backend.FormatForPath(o.Output); ok {
		return f, nil
	}
	return backend.FormatBitcode, nil
}

// Validate reports the first problem with o.
func (o Options) Validate() error {
	if _, err := ParseVariant(string(o.Variant)); err != nil {
		return err
	}
	if strings.TrimSpace(o.ModuleName) == "" {
		return errors.New("module name must not be empty")
	}
	if o.Variant.Declares() && strings.TrimSpace(o.FunctionName) == "" {
		return errors.New("function name must not be empty")
	}
	if strings.TrimSpace(o.Backend) == "" {
		return errors.New("backend must not be empty")
	}
	if _, err := o.ResolvedFormat(); err != nil {
		return err
	}
	ret, err := o.ResolvedReturnType()
	if err != nil {
		return err
	}
	if o.Variant.canonical() == VariantConst && !ret.Fits(o.Value) {
		return fmt.Errorf("%w: %d does not fit in %s", backend.ErrInvalidType, o.Value, ret)
	}
	return nil
}
