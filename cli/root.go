package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command. Run without a subcommand it
// behaves like "emit".
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	emitOpts := &EmitOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "arc-emit",
		Short: "Build a minimal LLVM module and write it to disk",
		Long: `arc-emit opens a code-generation session, builds a module holding at
most one function, and serializes it (bitcode by default, to main.bc).

With no flags it writes an i8 function @main that returns 9.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(cmd, emitOpts)
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "usage", err)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	addEmitFlags(cmd, emitOpts)

	cmd.AddCommand(NewEmitCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
