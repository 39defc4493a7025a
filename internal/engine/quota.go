package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
)

// QuotaEnforcer tracks the number of tuples IE functions produce while one
// rule is evaluated and enforces a maximum.
//
// The executor creates one QuotaEnforcer per rule evaluation and wraps
// every IE function of the rule body with it, so a rule whose IE calls
// explode (a regex over a huge document, a cross product of inputs) fails
// instead of flooding the backend.
//
// A limit of 0 disables the quota.
type QuotaEnforcer struct {
	maxTuples int // Maximum allowed tuples for this rule
	current   int // Tuples produced so far
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxTuples int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxTuples: maxTuples,
		current:   0,
	}
}

// Check adds n produced tuples and validates against the limit.
//
// Returns TuplesExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(function string, n int) error {
	q.current += n
	if q.maxTuples > 0 && q.current > q.maxTuples {
		return &TuplesExceededError{
			Function: function,
			Tuples:   q.current,
			Limit:    q.maxTuples,
		}
	}
	return nil
}

// Current returns the current tuple count.
// Used for logging and diagnostics.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxTuples returns the tuple limit.
func (q *QuotaEnforcer) MaxTuples() int {
	return q.maxTuples
}

// Wrap returns a copy of fn whose calls are counted against the quota and
// whose output tuples are checked against outputTypes.
//
// Errors from the wrapped call come back as *RuntimeError values so the
// executor can tell IE failures from backend failures after they have
// passed through the backend.
func (q *QuotaEnforcer) Wrap(fn *iefunc.Function, outputTypes ir.Schema) *iefunc.Function {
	wrapped := *fn
	wrapped.Call = func(ctx context.Context, args []ir.Value) ([]ir.Tuple, error) {
		tuples, err := fn.Call(ctx, args)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &RuntimeError{
				Code:    ErrCodeIEFailure,
				Message: fmt.Sprintf("ie function %s failed: %v", fn.Name, err),
				Details: map[string]string{"function": fn.Name, "args": ir.Tuple(args).String()},
				Err:     err,
			}
		}
		for _, tuple := range tuples {
			if err := iefunc.CheckOutput(fn.Name, tuple, outputTypes); err != nil {
				return nil, &RuntimeError{
					Code:    ErrCodeIEOutputMismatch,
					Message: err.Error(),
					Details: map[string]string{"function": fn.Name, "args": ir.Tuple(args).String()},
					Err:     err,
				}
			}
		}
		if err := q.Check(fn.Name, len(tuples)); err != nil {
			var te *TuplesExceededError
			errors.As(err, &te)
			return nil, NewQuotaError(te)
		}
		return tuples, nil
	}
	return &wrapped
}

// TuplesExceededError is returned when IE functions exceed the tuple quota
// of one rule evaluation.
type TuplesExceededError struct {
	Function string // The function whose output crossed the limit
	Tuples   int    // Number of tuples produced
	Limit    int    // Maximum allowed tuples
}

// Error implements the error interface.
func (e *TuplesExceededError) Error() string {
	return fmt.Sprintf("ie function %s exceeded max tuples quota: %d tuples > %d limit",
		e.Function, e.Tuples, e.Limit)
}

// IsTuplesExceededError returns true if the error is a TuplesExceededError.
// Uses errors.As to handle wrapped errors.
func IsTuplesExceededError(err error) bool {
	var te *TuplesExceededError
	return errors.As(err, &te)
}
