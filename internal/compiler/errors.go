package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
)

// ErrorKind names a semantic error category.
type ErrorKind string

// Semantic error kinds.
const (
	UndefinedVariable          ErrorKind = "UndefinedVariable"
	ReservedNameError          ErrorKind = "ReservedNameError"
	UndefinedRelation          ErrorKind = "UndefinedRelation"
	ArityMismatch              ErrorKind = "ArityMismatch"
	RelationRedefinition       ErrorKind = "RelationRedefinition"
	UndefinedIEFunction        ErrorKind = "UndefinedIEFunction"
	RuleNotSafe                ErrorKind = "RuleNotSafe"
	TypeConflict               ErrorKind = "TypeConflict"
	TermsNotProperlyTypedError ErrorKind = "TermsNotProperlyTypedError"
	UnreadableFile             ErrorKind = "UnreadableFile"
	InvalidIECall              ErrorKind = "InvalidIECall"
)

// Semantic error codes (E201-E299). E200 is the labeled tree shape error.
const (
	ErrUndefinedVariable     = "E201" // variable referenced before assignment
	ErrReservedName          = "E202" // relation name uses the engine prefix
	ErrUndefinedRelation     = "E203" // relation referenced before definition
	ErrArityMismatch         = "E204" // term count differs from definition
	ErrRelationRedefinition  = "E205" // relation declared or derived twice
	ErrUndefinedIEFunction   = "E206" // ie function not registered
	ErrRuleNotSafe           = "E207" // rule has unbound free variables
	ErrTypeConflict          = "E208" // free variable forced to several types
	ErrTermsNotProperlyTyped = "E209" // terms do not match the schema
	ErrUnreadableFile        = "E210" // read assignment failed
	ErrInvalidIECall         = "E211" // ie function rejected its arguments
)

var kindCodes = map[ErrorKind]string{
	UndefinedVariable:          ErrUndefinedVariable,
	ReservedNameError:          ErrReservedName,
	UndefinedRelation:          ErrUndefinedRelation,
	ArityMismatch:              ErrArityMismatch,
	RelationRedefinition:       ErrRelationRedefinition,
	UndefinedIEFunction:        ErrUndefinedIEFunction,
	RuleNotSafe:                ErrRuleNotSafe,
	TypeConflict:               ErrTypeConflict,
	TermsNotProperlyTypedError: ErrTermsNotProperlyTyped,
	UnreadableFile:             ErrUnreadableFile,
	InvalidIECall:              ErrInvalidIECall,
}

// SemanticError is raised by the pass that detects a program violation.
type SemanticError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Pos     ast.Pos   `json:"pos"`

	// Vars lists every implicated variable, sorted.
	Vars []string `json:"vars,omitempty"`

	// Conflicts maps each conflicting free variable to every type it was
	// forced to, in the order they were encountered.
	Conflicts map[string][]ir.Type `json:"conflicts,omitempty"`
}

// Error implements the error interface.
func (e *SemanticError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("[%s] line %s: %s: %s", e.Code, e.Pos, e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Kind, e.Message)
}

func newError(kind ErrorKind, pos ast.Pos, format string, args ...any) *SemanticError {
	return &SemanticError{
		Kind:    kind,
		Code:    kindCodes[kind],
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// IsKind reports whether err is or wraps a SemanticError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SemanticError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// KindOf returns the kind of a semantic error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var se *SemanticError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func formatConflicts(conflicts map[string][]ir.Type) string {
	names := make([]string, 0, len(conflicts))
	for name := range conflicts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		types := make([]string, len(conflicts[name]))
		for j, t := range conflicts[name] {
			types[j] = t.String()
		}
		parts[i] = fmt.Sprintf("%s: {%s}", name, strings.Join(types, ", "))
	}
	return strings.Join(parts, "; ")
}
