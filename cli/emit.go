package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/core-emit/diagnostics"
	"github.com/arc-language/core-emit/session"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Config        string
	Variant       string
	Module        string
	Function      string
	SourceFile    string
	Return        string
	Value         uint64
	Output        string
	Format        string
	Backend       string
	WorkDir       string
	GlobalContext bool
	Dump          bool
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Build the module and write the artifact",
		Long: `Build a module in one code-generation session and write it to disk.

Variants:
  const    i8 @main() returning 9 (default)
  void     void @main() returning nothing
  declare  declaration of void @main() with no body
  empty    module with no functions

Flags override values read from --config.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(cmd, opts)
		},
	}
	addEmitFlags(cmd, opts)
	return cmd
}

func addEmitFlags(cmd *cobra.Command, opts *EmitOptions) {
	def := session.DefaultOptions()
	f := cmd.Flags()
	f.StringVar(&opts.Config, "config", "", "YAML file with session options")
	f.StringVar(&opts.Variant, "variant", string(def.Variant), "what to emit (const|void|declare|empty)")
	f.StringVarP(&opts.Module, "module", "m", def.ModuleName, "module name")
	f.StringVar(&opts.Function, "function", def.FunctionName, "function name")
	f.StringVar(&opts.SourceFile, "source-file", "", "source_filename recorded in the module (default: module name)")
	f.StringVar(&opts.Return, "return", "", "return type (void, i8, int32, ...); defaults by variant")
	f.Uint64Var(&opts.Value, "value", def.Value, "constant returned by the const variant")
	f.StringVarP(&opts.Output, "output", "o", "", "output file (default main.<ext>)")
	f.StringVar(&opts.Format, "format", "", "output format (bc|ll|obj); defaults from --output, else bc")
	f.StringVar(&opts.Backend, "backend", def.Backend, fmt.Sprintf("code generation backend %v", BackendNames()))
	f.StringVar(&opts.WorkDir, "work-dir", "", "directory relative outputs resolve against")
	f.BoolVar(&opts.GlobalContext, "global-context", false, "build in the backend's global context")
	f.BoolVar(&opts.Dump, "dump", false, "print the textual IR to stderr before writing")
}

// sessionOptions layers defaults, the config file and explicitly set flags.
func (o *EmitOptions) sessionOptions(cmd *cobra.Command) (session.Options, error) {
	opts := session.DefaultOptions()
	if o.Config != "" {
		loaded, err := session.LoadOptions(o.Config, opts)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("variant") {
		opts.Variant = session.Variant(o.Variant)
	}
	if flags.Changed("module") {
		opts.ModuleName = o.Module
	}
	if flags.Changed("function") {
		opts.FunctionName = o.Function
	}
	if flags.Changed("source-file") {
		opts.SourceFilename = o.SourceFile
	}
	if flags.Changed("return") {
		opts.ReturnType = o.Return
	}
	if flags.Changed("value") {
		opts.Value = o.Value
	}
	if flags.Changed("output") {
		opts.Output = o.Output
	}
	if flags.Changed("format") {
		opts.Format = o.Format
	}
	if flags.Changed("backend") {
		opts.Backend = o.Backend
	}
	if flags.Changed("work-dir") {
		opts.WorkDir = o.WorkDir
	}
	if flags.Changed("global-context") {
		opts.GlobalContext = o.GlobalContext
	}
	if flags.Changed("dump") {
		opts.Dump = o.Dump
	}

	variant, err := session.ParseVariant(string(opts.Variant))
	if err != nil {
		return opts, err
	}
	opts.Variant = variant

	return opts, opts.Validate()
}

func runEmit(cmd *cobra.Command, o *EmitOptions) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	opts, err := o.sessionOptions(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}
	be, err := NewBackend(opts.Backend)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	zl := newLogger(o.Verbose, errOut)
	setBackendLogger(zl)
	logger := session.NewLogger("session", zl)
	defer logger.Sync() //nolint:errcheck

	fmt.Fprintln(out, StartMessage)

	s := session.New(be, opts, logger)
	s.SetDumpWriter(errOut)
	res, err := s.Run(cmd.Context())
	diags := s.Diagnostics()
	if o.Verbose {
		diags.Print(errOut, diagnostics.SeverityInfo)
	} else if diags.HasErrors() {
		diags.Print(errOut, diagnostics.SeverityWarning)
	}
	if o.Verbose || logger.HasErrors() {
		logger.PrintSummary(errOut)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "code generation failed", err)
	}

	if o.Verbose {
		fmt.Fprintf(out, "✓ %s variant written by %s backend\n", res.Variant, res.Backend)
		fmt.Fprintf(out, "✓ %d bytes of %s written to %s\n", res.Size, res.Format, res.Output)
		fmt.Fprintf(out, "✓ %d warning(s)\n", diags.WarningCount())
	}
	fmt.Fprintln(out, DoneMessage)
	return nil
}
