package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <program>...",
		Short: "Print the term graph after loading programs",
		Long: `Load programs into a session and print its term graph.

Text output is one node per line, indented under its parent, with the node
state in brackets. JSON output lists every node of the arena.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runGraph(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSession(opts, sessionOverrides{BaseDir: programBaseDir(paths)}, cmd)
	if err != nil {
		return formatter.Fail(GetExitCode(err), err)
	}
	defer s.Close()
	formatter.SessionID = s.engine.SessionID()

	ctx := commandContext(cmd)
	for _, path := range paths {
		prog, err := readProgram(path)
		if err != nil {
			return formatter.Fail(GetExitCode(err), err)
		}
		if _, err := s.engine.Load(ctx, prog); err != nil {
			return formatter.Fail(ExitFailure, fmt.Errorf("%s: %w", path, err))
		}
	}

	g := s.engine.Graph()
	if opts.Format == "json" {
		data, err := json.Marshal(g)
		if err != nil {
			return formatter.Fail(ExitFailure, err)
		}
		return formatter.Success(json.RawMessage(data))
	}
	fmt.Fprint(cmd.OutOrStdout(), g.Pretty(g.Root()))
	return nil
}
