// Package backend defines the contract between the rule engine and the
// relational store that evaluates it.
//
// A backend holds named relations of typed tuples. Base relations are
// declared and filled with facts; derived relations are defined by rules
// (conjunctive queries over other relations). The engine never evaluates
// rules itself: it lowers each rule body into a chain of temporary
// relations, named by a shared Namer, and hands the final join to AddRule.
//
// IE relations are the exception. Their tuples come from Go functions, so
// ComputeIE materializes them: it queries the bound inputs, calls the
// function once per input tuple and asserts the results as facts of a
// fresh temporary relation. Backends implement ComputeRuleBodyIERelation by
// delegating to ComputeIE with their own Core.
package backend

import (
	"context"
	"errors"

	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
)

var (
	// ErrUnknownRelation is returned for operations on a relation the backend does not hold.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrRelationExists is returned when a base relation is declared twice.
	ErrRelationExists = errors.New("relation already declared")

	// ErrNotGround is returned when a fact contains a free variable.
	ErrNotGround = errors.New("fact contains free variables")
)

// Core is the subset of backend primitives the shared protocol helpers
// (Project, NaturalJoin, ComputeIE) are built on.
type Core interface {
	// DeclareRelation creates an empty base relation.
	DeclareRelation(ctx context.Context, decl ir.RelationDeclaration) error

	// AddFact inserts a ground tuple into a base relation. Duplicates are ignored.
	AddFact(ctx context.Context, fact ir.Relation) error

	// Query returns the rows of q.Name that match q's constants and repeated
	// variables. Rows are full tuples, deduplicated and ordered by
	// ir.CompareTuples.
	Query(ctx context.Context, q ir.Relation) ([]ir.Tuple, error)

	// AddRule defines head as (one more disjunct of) the conjunctive query
	// over body. Head variables must all be bound by body.
	AddRule(ctx context.Context, head ir.Relation, body []ir.Relation) error
}

// Backend is the full contract the engine executes against.
type Backend interface {
	Core

	// RemoveFact deletes a ground tuple from a base relation.
	// Removing an absent tuple is not an error.
	RemoveFact(ctx context.Context, fact ir.Relation) error

	// ComputeRuleBodyRelation returns a temporary relation over the distinct
	// free variables of rel, holding its matching rows.
	ComputeRuleBodyRelation(ctx context.Context, rel ir.Relation) (ir.Relation, error)

	// ComputeRuleBodyIERelation materializes an IE relation joined with the
	// relation that binds its inputs. bounding is nil when no relation
	// precedes the IE relation in the rule body.
	ComputeRuleBodyIERelation(ctx context.Context, rel ir.IERelation, fn *iefunc.Function, bounding *ir.Relation) (ir.Relation, error)

	// RemoveTempResult drops a temporary relation created during rule
	// evaluation.
	RemoveTempResult(ctx context.Context, rel ir.Relation) error

	// Close releases backend resources.
	Close() error
}

// IsGround reports whether every term of rel is a constant.
func IsGround(rel ir.Relation) bool {
	for _, t := range rel.Terms {
		if t.IsFreeVar() {
			return false
		}
	}
	return true
}

// FactTuple extracts the tuple of a ground relation.
func FactTuple(rel ir.Relation) (ir.Tuple, error) {
	if !IsGround(rel) {
		return nil, ErrNotGround
	}
	tuple := make(ir.Tuple, len(rel.Terms))
	for i, t := range rel.Terms {
		tuple[i] = t.Value
	}
	return tuple, nil
}

// Matches reports whether tuple satisfies the constants and repeated
// variables of q.
func Matches(q ir.Relation, tuple ir.Tuple) bool {
	if len(tuple) != len(q.Terms) {
		return false
	}
	bound := make(map[string]ir.Value)
	for i, t := range q.Terms {
		if !t.IsFreeVar() {
			if !ir.ValuesEqual(t.Value, tuple[i]) {
				return false
			}
			continue
		}
		if prev, ok := bound[t.FreeVar]; ok {
			if !ir.ValuesEqual(prev, tuple[i]) {
				return false
			}
			continue
		}
		bound[t.FreeVar] = tuple[i]
	}
	return true
}
