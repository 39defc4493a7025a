package harness

import "github.com/roach88/rgxlog/internal/engine"

// StepResult is the outcome of one step.
type StepResult struct {
	Results []engine.QueryResult `json:"results,omitempty"`

	// Error is the error kind, empty on success.
	Error string `json:"error,omitempty"`

	// Message is the full error text.
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a scenario run on one backend.
type Result struct {
	// Backend is the backend the scenario ran on.
	Backend string `json:"backend"`

	// Pass indicates overall test success.
	// True if every step and assertion matched.
	Pass bool `json:"pass"`

	// Steps holds one entry per executed step.
	Steps []StepResult `json:"steps"`

	// Transcript holds the backend calls of every step, in the
	// mini-language written by the transcript backend.
	Transcript string `json:"transcript"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(backend string) *Result {
	return &Result{
		Backend: backend,
		Pass:    true,
		Steps:   []StepResult{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
