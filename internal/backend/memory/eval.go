package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
)

// binding maps variables to values for one row of a query result.
type binding map[string]ir.Value

// evaluator computes relation contents for one Query call. Each relation
// is computed at most once per call.
type evaluator struct {
	ctx      context.Context
	b        *Backend
	memo     map[string][]ir.Tuple
	visiting map[string]bool
}

func newEvaluator(ctx context.Context, b *Backend) *evaluator {
	return &evaluator{
		ctx:      ctx,
		b:        b,
		memo:     make(map[string][]ir.Tuple),
		visiting: make(map[string]bool),
	}
}

// relation returns the deduplicated rows of a base or derived relation.
func (e *evaluator) relation(name string) ([]ir.Tuple, error) {
	if rows, ok := e.memo[name]; ok {
		return rows, nil
	}
	if _, ok := e.b.arity[name]; !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownRelation, name)
	}
	if e.visiting[name] {
		return nil, fmt.Errorf("recursive definition of %s is not supported", name)
	}
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	e.visiting[name] = true
	defer delete(e.visiting, name)

	seen := make(map[string]bool)
	var rows []ir.Tuple
	add := func(t ir.Tuple) {
		key := ir.CanonicalKey(t)
		if !seen[key] {
			seen[key] = true
			rows = append(rows, t)
		}
	}
	if t, ok := e.b.tables[name]; ok {
		for _, row := range t.rows {
			add(row)
		}
	}
	for _, r := range e.b.rules[name] {
		bindings, err := e.query(r.query.Input)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", name, err)
		}
		for _, bnd := range bindings {
			row := make(ir.Tuple, len(r.query.Head))
			for i, term := range r.query.Head {
				if term.IsFreeVar() {
					row[i] = bnd[term.FreeVar]
				} else {
					row[i] = term.Value
				}
			}
			add(row)
		}
	}
	e.memo[name] = rows
	return rows, nil
}

func (e *evaluator) query(q queryir.Query) ([]binding, error) {
	switch query := q.(type) {
	case *queryir.Select:
		return e.selectRows(query)
	case *queryir.Join:
		return e.join(query)
	default:
		return nil, fmt.Errorf("unsupported query node %T", q)
	}
}

func (e *evaluator) selectRows(s *queryir.Select) ([]binding, error) {
	rows, err := e.relation(s.From)
	if err != nil {
		return nil, err
	}
	conds := queryir.Conditions(s.Filter)
	var out []binding
	for _, row := range rows {
		if !satisfies(row, conds) {
			continue
		}
		bnd := make(binding, len(s.Bindings))
		for _, b := range s.Bindings {
			bnd[b.Var] = row[b.Column]
		}
		out = append(out, bnd)
	}
	return out, nil
}

func satisfies(row ir.Tuple, conds []queryir.Predicate) bool {
	for _, c := range conds {
		switch pred := c.(type) {
		case *queryir.Equals:
			if !ir.ValuesEqual(row[pred.Column], pred.Value) {
				return false
			}
		case *queryir.SameColumn:
			if !ir.ValuesEqual(row[pred.Left], row[pred.Right]) {
				return false
			}
		}
	}
	return true
}

// join is a hash join on the shared variables.
func (e *evaluator) join(j *queryir.Join) ([]binding, error) {
	left, err := e.query(j.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.query(j.Right)
	if err != nil {
		return nil, err
	}
	shared := queryir.SharedVars(j)
	buckets := make(map[string][]binding)
	for _, r := range right {
		key := joinKey(r, shared)
		buckets[key] = append(buckets[key], r)
	}
	var out []binding
	for _, l := range left {
		for _, r := range buckets[joinKey(l, shared)] {
			merged := make(binding, len(l)+len(r))
			for k, v := range l {
				merged[k] = v
			}
			for k, v := range r {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out, nil
}

func joinKey(b binding, vars []string) string {
	var key strings.Builder
	for _, v := range vars {
		key.WriteString(ir.CanonicalValueKey(b[v]))
		key.WriteByte(0x1e)
	}
	return key.String()
}
