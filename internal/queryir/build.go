package queryir

import (
	"fmt"

	"github.com/roach88/rgxlog/internal/ir"
)

// FromRelation builds the Select that reads rel, binding its free variables
// and filtering on its constants and repeated variables.
func FromRelation(rel ir.Relation) *Select {
	sel := &Select{From: rel.Name, Arity: rel.Arity()}
	first := make(map[string]int)
	var preds []Predicate
	for i, t := range rel.Terms {
		if !t.IsFreeVar() {
			preds = append(preds, &Equals{Column: i, Value: t.Value})
			continue
		}
		if col, seen := first[t.FreeVar]; seen {
			preds = append(preds, &SameColumn{Left: col, Right: i})
			continue
		}
		first[t.FreeVar] = i
		sel.Bindings = append(sel.Bindings, Binding{Column: i, Var: t.FreeVar})
	}
	switch len(preds) {
	case 0:
	case 1:
		sel.Filter = preds[0]
	default:
		sel.Filter = &And{Predicates: preds}
	}
	return sel
}

// FromRule builds the conjunctive query head <- body.
// Body relations are joined left to right; every head variable must be
// bound by some body relation.
func FromRule(head ir.Relation, body []ir.Relation) (*Project, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("rule %s has an empty body", head.Name)
	}
	var input Query = FromRelation(body[0])
	for _, rel := range body[1:] {
		input = &Join{Left: input, Right: FromRelation(rel)}
	}
	proj := &Project{Input: input, Head: head.Terms}
	if err := Validate(proj); err != nil {
		return nil, fmt.Errorf("rule %s: %w", head.Name, err)
	}
	return proj, nil
}
