package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arc-language/core-emit/session"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Backend string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Parse an artifact back and summarize its functions",
		Long: `Parse a bitcode or textual IR file and print its functions, their
signatures and the instructions of each basic block.

The llvm backend reads both .bc and .ll files; llir reads .ll only.`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", session.DefaultBackend, "backend used to parse the artifact (llvm|llir)")
	return cmd
}

func runInspect(cmd *cobra.Command, opts *InspectOptions, path string) error {
	in, err := NewInspector(opts.Backend)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "artifact not found", err)
	}

	summary, err := in.Inspect(path)
	if err != nil {
		return WrapExitError(ExitFailure, "inspect failed", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "artifact: %s\n", filepath.Base(path))
	if opts.Verbose {
		fmt.Fprintf(out, "path: %s\n", path)
	}
	return summary.Write(out)
}
