package queryir

import (
	"github.com/roach88/rgxlog/internal/ir"
)

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
// Every query produces a set of bindings (variable name → value mappings).
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition over the columns of one Select.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads the rows of one relation and binds columns to variables.
//
// Semantics:
//
//	SELECT c0 AS X, c2 AS Y FROM parent WHERE c1 = "bob" AND c0 = c3
//
// Each variable is bound once, at its first column. Repeated variables and
// constant terms become predicates in Filter.
type Select struct {
	From     string    // Relation name
	Arity    int       // Number of columns in From
	Filter   Predicate // WHERE conditions (nil = no filter)
	Bindings []Binding // Column → variable, in column order
}

func (*Select) queryNode() {}

// Binding binds a column of a Select to a variable.
type Binding struct {
	Column int
	Var    string
}

// Join represents the natural inner join of two queries.
//
// Rows are combined when they agree on every variable the two sides share.
// With no shared variables the join is a cross product.
type Join struct {
	Left  Query
	Right Query
}

func (*Join) queryNode() {}

// Project shapes the bindings of Input into rows of a head relation.
//
// Head terms are either variables bound by Input or constants.
type Project struct {
	Input Query
	Head  []ir.Term
}

func (*Project) queryNode() {}

// Equals represents a column-equals-literal predicate.
//
//	c1 = "bob"
type Equals struct {
	Column int
	Value  ir.Value
}

func (*Equals) predicateNode() {}

// SameColumn requires two columns of the same row to hold equal values.
// It arises from a variable that appears more than once in one relation.
//
//	c0 = c3
type SameColumn struct {
	Left  int
	Right int
}

func (*SameColumn) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// Empty Predicates means "always true".
type And struct {
	Predicates []Predicate
}

func (*And) predicateNode() {}

// Vars returns the variables bound by a query, in binding order.
func Vars(q Query) []string {
	switch query := q.(type) {
	case *Select:
		vars := make([]string, len(query.Bindings))
		for i, b := range query.Bindings {
			vars[i] = b.Var
		}
		return vars
	case *Join:
		vars := Vars(query.Left)
		seen := make(map[string]bool, len(vars))
		for _, v := range vars {
			seen[v] = true
		}
		for _, v := range Vars(query.Right) {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
		return vars
	case *Project:
		return ir.FreeVars(query.Head)
	default:
		return nil
	}
}

// SharedVars returns the variables bound by both sides of a join, in left order.
func SharedVars(j *Join) []string {
	right := make(map[string]bool)
	for _, v := range Vars(j.Right) {
		right[v] = true
	}
	var shared []string
	for _, v := range Vars(j.Left) {
		if right[v] {
			shared = append(shared, v)
		}
	}
	return shared
}

// Selects flattens a join tree into its Select leaves, left to right.
func Selects(q Query) []*Select {
	switch query := q.(type) {
	case *Select:
		return []*Select{query}
	case *Join:
		return append(Selects(query.Left), Selects(query.Right)...)
	case *Project:
		return Selects(query.Input)
	default:
		return nil
	}
}

// Conditions flattens a predicate into its non-And leaves.
func Conditions(p Predicate) []Predicate {
	switch pred := p.(type) {
	case nil:
		return nil
	case *And:
		var out []Predicate
		for _, sub := range pred.Predicates {
			out = append(out, Conditions(sub)...)
		}
		return out
	default:
		return []Predicate{p}
	}
}
