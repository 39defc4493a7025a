package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/rgxlog/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Backend   string // run only on this backend
	Filter    string // scenario filter (glob pattern on the name)
	GoldenDir string // golden transcript directory
	Update    bool   // regenerate golden files
}

// ScenarioResult holds the result of one scenario on one backend.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Backend string   `json:"backend"`
	Pass    bool     `json:"pass"`
	Errors  []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against the backends.

Every scenario runs on each backend it lists (all backends by default).
Scenarios marked golden also compare the backend transcript against
<golden-dir>/<name>.golden; the golden directory defaults to a "golden"
directory next to the scenarios directory.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  rgxlog test ./testdata/scenarios
  rgxlog test ./testdata/scenarios --backend sqlite
  rgxlog test ./testdata/scenarios --filter "parent*" --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "run only on this backend (memory|sqlite|mangle)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden transcript directory")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}
	if opts.GoldenDir == "" {
		opts.GoldenDir = filepath.Join(filepath.Dir(filepath.Clean(scenariosDir)), "golden")
	}

	scenarios, err := harness.LoadScenarios(scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	w := cmd.OutOrStdout()
	for _, scenario := range scenarios {
		if opts.Filter != "" {
			if matched, _ := filepath.Match(opts.Filter, scenario.Name); !matched {
				continue
			}
		}
		for _, backendName := range harness.AllBackends {
			if !scenario.RunsOn(backendName) {
				continue
			}
			if opts.Backend != "" && opts.Backend != backendName {
				continue
			}
			scenResult := runScenario(opts, scenario, backendName, cmd)
			if opts.Format != "json" {
				printScenarioResult(w, scenResult)
			}
			result.Scenarios = append(result.Scenarios, scenResult)
			result.Total++
			if scenResult.Pass {
				result.Passed++
			} else {
				result.Failed++
			}
		}
	}

	if opts.Format == "json" {
		if err := outputTestJSON(cmd, result); err != nil {
			return err
		}
	} else if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
	} else {
		fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// runScenario executes a single scenario on one backend.
func runScenario(opts *TestOptions, scenario *harness.Scenario, backendName string, cmd *cobra.Command) ScenarioResult {
	out := ScenarioResult{Name: scenario.Name, Backend: backendName, Pass: true}

	result, err := harness.Run(commandContext(cmd), scenario, backendName)
	if err != nil {
		out.Pass = false
		out.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return out
	}
	if !result.Pass {
		out.Pass = false
		out.Errors = append(out.Errors, result.Errors...)
	}

	if !scenario.Golden {
		return out
	}
	goldenPath := filepath.Join(opts.GoldenDir, scenario.Name+".golden")
	if opts.Update {
		if err := updateGoldenFile(goldenPath, result.Transcript); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return out
	}
	golden, err := os.ReadFile(goldenPath)
	if err != nil {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return out
	}
	if string(golden) != result.Transcript {
		out.Pass = false
		out.Errors = append(out.Errors, "transcript does not match golden file (run with --update to regenerate)")
	}
	return out
}

// updateGoldenFile writes the current transcript as the golden file.
func updateGoldenFile(path, transcript string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(transcript), 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func printScenarioResult(w io.Writer, r ScenarioResult) {
	if r.Pass {
		fmt.Fprintf(w, "✓ %s [%s]\n", r.Name, r.Backend)
		return
	}
	fmt.Fprintf(w, "✗ %s [%s]\n", r.Name, r.Backend)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(CLIResponse{
		Status: status,
		Data:   result,
	})
}
