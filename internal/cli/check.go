package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CheckResult holds the outcome of a successful check.
type CheckResult struct {
	Program    string `json:"program"`
	Valid      bool   `json:"valid"`
	Statements int    `json:"statements"`
}

// String renders the text output.
func (r CheckResult) String() string {
	return fmt.Sprintf("%s: ok (%d statements)", r.Program, r.Statements)
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <program>",
		Short: "Run semantic checks without executing",
		Long: `Run every semantic check on a program without touching the backend.

Reports the first error: undefined variables or relations, arity
mismatches, unsafe rules, type conflicts, unknown IE functions or
unreadable files.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSession(opts, sessionOverrides{BaseDir: programBaseDir([]string{path})}, cmd)
	if err != nil {
		return formatter.Fail(GetExitCode(err), err)
	}
	defer s.Close()

	prog, err := readProgram(path)
	if err != nil {
		return formatter.Fail(GetExitCode(err), err)
	}
	if err := s.engine.Check(prog); err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	return formatter.Success(CheckResult{
		Program:    path,
		Valid:      true,
		Statements: len(prog.Statements),
	})
}
