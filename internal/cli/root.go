package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X".
var version = "1.0.0"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

type options struct {
	configPath string
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

// NewRootCommand builds the command tree writing to the given streams.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "recipeops",
		Short:         "Recipe ingredient calculator service",
		Long:          "recipeops serves AI generated recipes scaled to a number of servings, with caching and resilient JSON decoding.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("RECIPEOPS_CONFIG"), "path to a YAML config file")

	root.AddCommand(
		newServeCmd(opts),
		newDecodeCmd(opts),
		newFingerprintCmd(),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Run executes the command line and returns an exit code.
func Run(ctx context.Context, args []string) int {
	root := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		if isUsageError(err) {
			return ExitUsageError
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}

// usageError marks argument and flag mistakes.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func isUsageError(err error) bool {
	var ue usageError
	return errors.As(err, &ue)
}

// usageArgs marks positional argument failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print recipeops version",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recipeops version %s\n", version)
		},
	}
}
