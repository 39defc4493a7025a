package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rgxlog/internal/termgraph"
)

// RuntimeError represents an error detected during execution.
//
// Runtime errors include:
//   - Backend failure: a backend call failed
//   - IE failure: an IE function returned an error
//   - IE output mismatch: an IE function returned a tuple of the wrong shape
//   - Quota exceeded: IE functions produced too many tuples for one rule
//   - Cancelled: the context was cancelled mid-execution
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Session identifies the engine session.
	Session string

	// Node is the term graph node that failed (0 when unknown).
	Node termgraph.NodeID

	// Statement renders the failing node.
	Statement string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeBackendFailure indicates a backend call failed.
	ErrCodeBackendFailure RuntimeErrorCode = "BACKEND_FAILURE"

	// ErrCodeIEFailure indicates an IE function returned an error.
	ErrCodeIEFailure RuntimeErrorCode = "IE_FAILURE"

	// ErrCodeIEOutputMismatch indicates an IE output tuple does not match the expected types.
	ErrCodeIEOutputMismatch RuntimeErrorCode = "IE_OUTPUT_MISMATCH"

	// ErrCodeQuotaExceeded indicates IE functions produced too many tuples.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeUnknownIEFunction indicates an IE function disappeared from the registry.
	ErrCodeUnknownIEFunction RuntimeErrorCode = "UNKNOWN_IE_FUNCTION"

	// ErrCodeCancelled indicates the context was cancelled.
	ErrCodeCancelled RuntimeErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Statement != "" {
		return fmt.Sprintf("%s: %s (node=%d, statement=%s)", e.Code, e.Message, e.Node, e.Statement)
	}
	if e.Node != 0 {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsRuntimeError returns true if err is or wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// CodeOf returns the RuntimeError code of err, or "" if it has none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and TuplesExceededError.
func IsQuotaError(err error) bool {
	if CodeOf(err) == ErrCodeQuotaExceeded {
		return true
	}
	var te *TuplesExceededError
	return errors.As(err, &te)
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(te *TuplesExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("ie functions produced %d tuples, limit is %d", te.Tuples, te.Limit),
		Details: map[string]string{
			"function":      te.Function,
			"tuples":        fmt.Sprintf("%d", te.Tuples),
			"max_ie_tuples": fmt.Sprintf("%d", te.Limit),
		},
		Err: te,
	}
}

// nodeError attaches node context to err, classifying it when it is not
// already a RuntimeError.
func (e *Engine) nodeError(id termgraph.NodeID, err error) *RuntimeError {
	var re *RuntimeError
	if !errors.As(err, &re) {
		code := ErrCodeBackendFailure
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = ErrCodeCancelled
		}
		re = &RuntimeError{Code: code, Message: err.Error(), Err: err}
	} else {
		cp := *re
		if cp.Err == nil {
			cp.Err = err
		}
		re = &cp
	}
	re.Session = e.sessionID
	if re.Node == 0 {
		re.Node = id
		if v := e.graph.Value(id); v != nil {
			re.Statement = v.String()
		}
	}
	return re
}
