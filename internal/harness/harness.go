package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/backend/factory"
	"github.com/roach88/rgxlog/internal/compiler"
	"github.com/roach88/rgxlog/internal/config"
	"github.com/roach88/rgxlog/internal/engine"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/testutil"
)

// Harness is one scenario run: an engine session over a recorded backend.
type Harness struct {
	engine     *engine.Engine
	transcript *bytes.Buffer
	logger     *slog.Logger
}

// Run executes a scenario on the named backend and returns the result.
//
// Each run gets a fresh backend (SQLite runs in memory) for isolation.
//
// Execution flow:
//  1. Open the backend wrapped in a transcript recorder
//  2. Load every step into one engine session, checking its expectation
//  3. Capture the transcript
//  4. Evaluate assertions against the final relations
//
// The returned error is reserved for infrastructure failures; scenario
// mismatches are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, backendName string) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	cfg := config.Default()
	cfg.Backend = backendName
	namer := backend.NewNamer()
	transcript := &bytes.Buffer{}
	b, err := factory.Open(cfg, namer, logger, transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", backendName, err)
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithSessionIDGenerator(testutil.NewFixedSessionGenerator("harness-" + scenario.Name)),
		engine.WithBaseDir(scenario.Dir),
	}
	if scenario.MaxIETuples != nil {
		opts = append(opts, engine.WithMaxIETuples(*scenario.MaxIETuples))
	}
	h := &Harness{
		engine:     engine.New(b, namer, opts...),
		transcript: transcript,
		logger:     logger,
	}
	defer h.engine.Close()

	result := NewResult(backendName)
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.runStep(ctx, i, step, result)
	}
	result.Transcript = transcript.String()

	for i, assertion := range scenario.Assertions {
		if err := h.evaluateAssertion(ctx, assertion); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// runStep loads one step and records mismatches against its expectation.
func (h *Harness) runStep(ctx context.Context, index int, step Step, result *Result) {
	var sr StepResult
	defer func() { result.Steps = append(result.Steps, sr) }()

	prog, err := ast.Decode(step.Source())
	if err == nil {
		sr.Results, err = h.engine.Load(ctx, prog)
	}
	if err != nil {
		sr.Error = ErrorKind(err)
		sr.Message = err.Error()
	}

	want := step.Expect
	switch {
	case want.Error != "" && sr.Error == "":
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got success", index, want.Error))
		return
	case want.Error != "" && sr.Error != want.Error:
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %s: %s", index, want.Error, sr.Error, sr.Message))
		return
	case want.Error != "":
		return
	case sr.Error != "":
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error %s: %s", index, sr.Error, sr.Message))
		return
	}

	if len(sr.Results) != len(want.Results) {
		result.AddError(fmt.Sprintf("steps[%d]: expected %d query results, got %d", index, len(want.Results), len(sr.Results)))
		return
	}
	for j, exp := range want.Results {
		got := sr.Results[j]
		if exp.Query != "" && exp.Query != got.Query.String() {
			result.AddError(fmt.Sprintf("steps[%d].results[%d]: expected query %s, got %s", index, j, exp.Query, got.Query))
		}
		if rows := renderRows(got.Rows); !equalRows(exp.Rows, rows) {
			result.AddError(fmt.Sprintf("steps[%d].results[%d]: %s\n  expected: %s\n  actual:   %s",
				index, j, got.Query, formatRows(exp.Rows), formatRows(rows)))
		}
	}
}

// ErrorKind classifies an error for scenario expectations: the compiler
// error kind, the engine runtime error code, "ShapeError" for malformed
// trees, or "Error".
func ErrorKind(err error) string {
	if kind := compiler.KindOf(err); kind != "" {
		return string(kind)
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	if ast.IsShapeError(err) {
		return "ShapeError"
	}
	return "Error"
}

func renderRows(rows []ir.Tuple) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.String()
	}
	return out
}

func equalRows(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

func formatRows(rows []string) string {
	if len(rows) == 0 {
		return "(none)"
	}
	return strings.Join(rows, " ")
}
