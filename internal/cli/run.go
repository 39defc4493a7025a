package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rgxlog/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Backend    string
	Transcript string
}

// QueryOutput is one answered query.
type QueryOutput struct {
	Program string     `json:"program"`
	Query   string     `json:"query"`
	Rows    []ir.Tuple `json:"rows"`
}

// RunResult holds every query answered by a run, in program order.
type RunResult struct {
	Queries []QueryOutput `json:"queries"`
}

// String renders the text output: each query followed by its rows.
func (r RunResult) String() string {
	var b strings.Builder
	for i, q := range r.Queries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "?%s\n", q.Query)
		if len(q.Rows) == 0 {
			b.WriteString("  (no results)\n")
			continue
		}
		for _, row := range q.Rows {
			fmt.Fprintf(&b, "  %s\n", row)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>...",
		Short: "Execute programs in one session",
		Long: `Execute one or more rgxlog programs in a single session.

Each program is a labeled tree (.json, .yaml or .yml). Programs are loaded
in order, so later programs see the relations, rules and variables of
earlier ones. Query results are printed as they are answered.

Exit codes:
  0 - All programs executed
  1 - A program was rejected or failed at runtime
  2 - Command error (unreadable file, bad config, etc.)

Examples:
  rgxlog run facts.yaml rules.yaml
  rgxlog run --backend sqlite program.json
  rgxlog run --config rgxlog.cue --transcript calls.txt program.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrograms(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend override (memory|sqlite|mangle)")
	cmd.Flags().StringVar(&opts.Transcript, "transcript", "", "write backend transcript to file (- for stderr)")

	return cmd
}

func runPrograms(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSession(opts.RootOptions, sessionOverrides{
		Backend:    opts.Backend,
		Transcript: opts.Transcript,
		BaseDir:    programBaseDir(paths),
	}, cmd)
	if err != nil {
		return formatter.Fail(GetExitCode(err), err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing session", "error", closeErr)
		}
	}()
	formatter.SessionID = s.engine.SessionID()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := RunResult{Queries: []QueryOutput{}}
	for _, path := range paths {
		prog, err := readProgram(path)
		if err != nil {
			return formatter.Fail(GetExitCode(err), err)
		}
		formatter.VerboseLog("Loading %s (%d statements)", path, len(prog.Statements))

		results, err := s.engine.Load(ctx, prog)
		if err != nil {
			return formatter.Fail(ExitFailure, fmt.Errorf("%s: %w", path, err))
		}
		for _, qr := range results {
			rows := qr.Rows
			if rows == nil {
				rows = []ir.Tuple{}
			}
			result.Queries = append(result.Queries, QueryOutput{
				Program: path,
				Query:   qr.Query.String(),
				Rows:    rows,
			})
		}
	}

	if opts.Format != "json" && len(result.Queries) == 0 {
		return nil
	}
	return formatter.Success(result)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
