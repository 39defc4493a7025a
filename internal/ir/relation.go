package ir

import (
	"fmt"
	"strings"
)

// TempPrefix is the reserved name prefix of engine-generated relations.
// User programs can never declare or reference a relation with this prefix.
const TempPrefix = "__rgxlog__"

// IsReserved reports whether name uses the engine's private prefix.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}

// Term is a positional argument of a relation: a constant or a free variable.
type Term struct {
	Value   Value  `json:"value,omitempty"`    // nil for free variables
	FreeVar string `json:"free_var,omitempty"` // empty for constants
}

// Const creates a constant term.
func Const(v Value) Term {
	return Term{Value: v}
}

// Var creates a free-variable term.
func Var(name string) Term {
	return Term{FreeVar: name}
}

// IsFreeVar reports whether the term is a free variable.
func (t Term) IsFreeVar() bool {
	return t.Value == nil
}

// String renders the term in rule-language syntax.
func (t Term) String() string {
	if t.IsFreeVar() {
		return t.FreeVar
	}
	return t.Value.Literal()
}

// FreeVars returns the distinct free variables among terms, in first-occurrence order.
func FreeVars(terms []Term) []string {
	var vars []string
	seen := make(map[string]bool)
	for _, t := range terms {
		if t.IsFreeVar() && !seen[t.FreeVar] {
			seen[t.FreeVar] = true
			vars = append(vars, t.FreeVar)
		}
	}
	return vars
}

func formatTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func checkTerms(side string, terms []Term, types Schema) error {
	if len(terms) != len(types) {
		return fmt.Errorf("%s has %d terms but %d types", side, len(terms), len(types))
	}
	for i, t := range terms {
		if t.IsFreeVar() {
			if t.FreeVar == "" {
				return fmt.Errorf("%s term %d is neither a constant nor a free variable", side, i)
			}
			continue
		}
		if t.FreeVar != "" {
			return fmt.Errorf("%s term %d is both a constant and a free variable", side, i)
		}
		if t.Value.Type() != types[i] {
			return fmt.Errorf("%s term %d is %s but typed %s", side, i, t.Value.Type(), types[i])
		}
	}
	return nil
}

// Relation is a reference to a (possibly derived) relation with typed terms.
type Relation struct {
	Name  string `json:"name"`
	Terms []Term `json:"terms"`
	Types Schema `json:"types"`
}

// NewRelation creates a relation, checking that terms and types line up.
func NewRelation(name string, terms []Term, types Schema) (Relation, error) {
	r := Relation{Name: name, Terms: terms, Types: types}
	if err := r.Check(); err != nil {
		return Relation{}, err
	}
	return r, nil
}

// Check verifies the terms/types invariants.
func (r Relation) Check() error {
	if r.Name == "" {
		return fmt.Errorf("relation name is required")
	}
	if err := checkTerms(r.Name, r.Terms, r.Types); err != nil {
		return fmt.Errorf("relation %w", err)
	}
	return nil
}

// Arity returns the number of terms.
func (r Relation) Arity() int { return len(r.Terms) }

// FreeVars returns the distinct free variables in first-occurrence order.
func (r Relation) FreeVars() []string { return FreeVars(r.Terms) }

// FreeVarTypes maps every free variable to the type of its first occurrence.
func (r Relation) FreeVarTypes() map[string]Type {
	types := make(map[string]Type)
	for i, t := range r.Terms {
		if t.IsFreeVar() {
			if _, ok := types[t.FreeVar]; !ok {
				types[t.FreeVar] = r.Types[i]
			}
		}
	}
	return types
}

// String renders the relation as name(t1, t2).
func (r Relation) String() string {
	return r.Name + "(" + formatTerms(r.Terms) + ")"
}

// IERelation is a reference to an information-extraction function.
// Output tuples are computed by calling the function on bound inputs.
type IERelation struct {
	Name        string `json:"name"`
	InputTerms  []Term `json:"input_terms"`
	InputTypes  Schema `json:"input_types"`
	OutputTerms []Term `json:"output_terms"`
	OutputTypes Schema `json:"output_types"`
}

// Check verifies both term lists against their types.
func (r IERelation) Check() error {
	if r.Name == "" {
		return fmt.Errorf("ie relation name is required")
	}
	if len(r.InputTerms) == 0 && len(r.OutputTerms) == 0 {
		return fmt.Errorf("ie relation %s has no terms", r.Name)
	}
	if err := checkTerms(r.Name+" input", r.InputTerms, r.InputTypes); err != nil {
		return fmt.Errorf("ie relation %w", err)
	}
	if err := checkTerms(r.Name+" output", r.OutputTerms, r.OutputTypes); err != nil {
		return fmt.Errorf("ie relation %w", err)
	}
	return nil
}

// InputFreeVars returns the free variables that must be bound before the call.
func (r IERelation) InputFreeVars() []string { return FreeVars(r.InputTerms) }

// OutputFreeVars returns the free variables bound by the call.
func (r IERelation) OutputFreeVars() []string { return FreeVars(r.OutputTerms) }

// String renders the relation as name(in1, in2) -> (out1, out2).
func (r IERelation) String() string {
	return r.Name + "(" + formatTerms(r.InputTerms) + ") -> (" + formatTerms(r.OutputTerms) + ")"
}

// RelationDeclaration declares the arity and column types of a user relation.
type RelationDeclaration struct {
	Name   string `json:"name"`
	Schema Schema `json:"schema"`
}

// String renders the declaration as name(string, span).
func (d RelationDeclaration) String() string {
	return d.Name + d.Schema.String()
}
