package mangle

import (
	"fmt"

	"github.com/google/mangle/ast"

	"github.com/roach88/rgxlog/internal/ir"
)

// constant converts a value to a Mangle constant.
func constant(v ir.Value) (ast.BaseTerm, error) {
	switch val := v.(type) {
	case ir.String:
		return ast.String(ir.NormalizeString(string(val))), nil
	case ir.Int:
		return ast.Number(int64(val)), nil
	case ir.Span:
		return ast.String(val.Literal()), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// constants converts a ground tuple to atom arguments.
// Values come from type-checked facts, so conversion cannot fail.
func constants(t ir.Tuple) []ast.BaseTerm {
	if len(t) == 0 {
		return []ast.BaseTerm{ast.Number(0)}
	}
	args := make([]ast.BaseTerm, len(t))
	for i, v := range t {
		c, err := constant(v)
		if err != nil {
			panic(err)
		}
		args[i] = c
	}
	return args
}

// tupleOf converts a derived atom back into a tuple of schema.
func tupleOf(atom ast.Atom, schema ir.Schema) (ir.Tuple, error) {
	tuple := make(ir.Tuple, len(schema))
	for i, t := range schema {
		c, ok := atom.Args[i].(ast.Constant)
		if !ok {
			return nil, fmt.Errorf("%s argument %d is not a constant", atom.Predicate.Symbol, i)
		}
		switch t {
		case ir.TypeInt:
			if c.Type != ast.NumberType {
				return nil, fmt.Errorf("%s argument %d: expected number", atom.Predicate.Symbol, i)
			}
			tuple[i] = ir.Int(c.NumValue)
		case ir.TypeString, ir.TypeSpan:
			if c.Type != ast.StringType {
				return nil, fmt.Errorf("%s argument %d: expected string", atom.Predicate.Symbol, i)
			}
			if t == ir.TypeString {
				tuple[i] = ir.String(c.Symbol)
				continue
			}
			span, err := ir.ParseSpan(c.Symbol)
			if err != nil {
				return nil, err
			}
			tuple[i] = span
		default:
			return nil, fmt.Errorf("unsupported column type %s", t)
		}
	}
	return tuple, nil
}

// clauseBuilder renames rule variables to Mangle variables.
type clauseBuilder struct {
	vars map[string]ast.Variable
}

func (c *clauseBuilder) atom(rel ir.Relation) (ast.Atom, error) {
	sym := predicate(rel.Name, rel.Arity())
	if rel.Arity() == 0 {
		return ast.Atom{Predicate: sym, Args: []ast.BaseTerm{ast.Number(0)}}, nil
	}
	args := make([]ast.BaseTerm, len(rel.Terms))
	for i, t := range rel.Terms {
		if !t.IsFreeVar() {
			arg, err := constant(t.Value)
			if err != nil {
				return ast.Atom{}, fmt.Errorf("%s argument %d: %w", rel.Name, i, err)
			}
			args[i] = arg
			continue
		}
		v, ok := c.vars[t.FreeVar]
		if !ok {
			v = ast.Variable{Symbol: fmt.Sprintf("V%d", len(c.vars))}
			c.vars[t.FreeVar] = v
		}
		args[i] = v
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

// buildClause translates head <- body. Body atoms are numbered first so
// that variable names follow their binding order.
func buildClause(head ir.Relation, body []ir.Relation) (ast.Clause, error) {
	c := &clauseBuilder{vars: make(map[string]ast.Variable)}
	premises := make([]ast.Term, 0, len(body))
	for _, rel := range body {
		atom, err := c.atom(rel)
		if err != nil {
			return ast.Clause{}, err
		}
		premises = append(premises, atom)
	}
	h, err := c.atom(head)
	if err != nil {
		return ast.Clause{}, err
	}
	return ast.Clause{Head: h, Premises: premises}, nil
}
