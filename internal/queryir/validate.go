package queryir

import (
	"errors"
	"fmt"
)

// Validate checks that a query is well formed:
//   - Select columns are within the relation's arity
//   - each Select binds a variable at most once
//   - Equals carries a value
//   - Project head variables are bound by its input
//
// All problems are reported together. Validate is a pure function with no
// side effects.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	return errors.Join(v.errs...)
}

// validator accumulates problems during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case *Select:
		v.validateSelect(query)
	case *Join:
		v.validateQuery(query.Left)
		v.validateQuery(query.Right)
	case *Project:
		v.validateQuery(query.Input)
		bound := make(map[string]bool)
		for _, name := range Vars(query.Input) {
			bound[name] = true
		}
		for _, t := range query.Head {
			if t.IsFreeVar() && !bound[t.FreeVar] {
				v.addError("head variable %s is not bound by the body", t.FreeVar)
			}
		}
	default:
		v.addError("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(s *Select) {
	if s.From == "" {
		v.addError("select has no source relation")
	}
	seen := make(map[string]bool)
	for _, b := range s.Bindings {
		v.checkColumn(s, b.Column)
		if seen[b.Var] {
			v.addError("%s binds %s more than once", s.From, b.Var)
		}
		seen[b.Var] = true
	}
	for _, p := range Conditions(s.Filter) {
		switch pred := p.(type) {
		case *Equals:
			v.checkColumn(s, pred.Column)
			if pred.Value == nil {
				v.addError("%s column %d compared to a nil value", s.From, pred.Column)
			}
		case *SameColumn:
			v.checkColumn(s, pred.Left)
			v.checkColumn(s, pred.Right)
		default:
			v.addError("unknown predicate type %T", p)
		}
	}
}

func (v *validator) checkColumn(s *Select, col int) {
	if col < 0 || col >= s.Arity {
		v.addError("%s has no column %d (arity %d)", s.From, col, s.Arity)
	}
}
