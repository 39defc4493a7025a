package compiler

import (
	"slices"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
)

// unifier assigns types to free variables and collects every conflict.
type unifier struct {
	types     map[string]ir.Type
	conflicts map[string][]ir.Type
}

func newUnifier() *unifier {
	return &unifier{
		types:     make(map[string]ir.Type),
		conflicts: make(map[string][]ir.Type),
	}
}

func (u *unifier) bind(name string, t ir.Type) {
	current, ok := u.types[name]
	if !ok {
		u.types[name] = t
		return
	}
	if current == t {
		return
	}
	seen, ok := u.conflicts[name]
	if !ok {
		seen = []ir.Type{current}
	}
	if !slices.Contains(seen, t) {
		seen = append(seen, t)
	}
	u.conflicts[name] = seen
}

func (u *unifier) err(pos ast.Pos, subject string) error {
	if len(u.conflicts) == 0 {
		return nil
	}
	vars := make(map[string]bool, len(u.conflicts))
	for name := range u.conflicts {
		vars[name] = true
	}
	err := newError(TypeConflict, pos, "conflicting free variable types in %s: %s", subject, formatConflicts(u.conflicts))
	err.Vars = sortedSet(vars)
	err.Conflicts = u.conflicts
	return err
}

// termType returns the type of a constant or variable reference term.
func termType(sc *scope, t ast.Term) ir.Type {
	if v, ok := sc.value(t); ok {
		return v.Type()
	}
	if ref, ok := t.(ast.VarRef); ok {
		if v, ok := sc.get(ref.Name); ok {
			return v.Type
		}
	}
	return ir.TypeFreeVar
}

// checkTypes type checks facts, queries and rules against relation schemas
// and installs declared and inferred schemas in the symbol table.
func checkTypes(a *Analysis) error {
	sc := newScope(a.Symbols)
	for _, stmt := range a.Program.Statements {
		var err error
		switch st := stmt.(type) {
		case *ast.Assignment, *ast.ReadAssignment:
			sc.assign(a, st)
		case *ast.RelationDeclaration:
			if a.Symbols.SetSchema(st.Name, st.Schema) != nil {
				err = newError(RelationRedefinition, st.Pos, "relation %q is already defined", st.Name)
			}
		case *ast.AddFact:
			err = checkFactTypes(a, sc, st.Name, st.Terms, st.Pos)
		case *ast.RemoveFact:
			err = checkFactTypes(a, sc, st.Name, st.Terms, st.Pos)
		case *ast.Query:
			err = checkQueryTypes(a, sc, st.Relation)
		case *ast.Rule:
			err = checkRuleTypes(a, sc, st)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func checkFactTypes(a *Analysis, sc *scope, name string, terms []ast.Term, pos ast.Pos) error {
	schema, _ := a.Symbols.Schema(name)
	got := make(ir.Schema, len(terms))
	for i, t := range terms {
		got[i] = termType(sc, t)
	}
	if !got.Equal(schema) {
		return newError(TermsNotProperlyTypedError, pos, "terms of %q are typed %s, schema is %s", name, got, schema)
	}
	return nil
}

func checkQueryTypes(a *Analysis, sc *scope, rel *ast.Relation) error {
	schema, _ := a.Symbols.Schema(rel.Name)
	u := newUnifier()
	got := make(ir.Schema, len(rel.Terms))
	for i, t := range rel.Terms {
		if fv, ok := t.(ast.FreeVar); ok && i < len(schema) {
			got[i] = schema[i]
			u.bind(fv.Name, schema[i])
			continue
		}
		got[i] = termType(sc, t)
	}
	if !got.Equal(schema) {
		return newError(TermsNotProperlyTypedError, rel.Pos, "terms of %q are typed %s, schema is %s", rel.Name, got, schema)
	}
	return u.err(rel.Pos, "query "+rel.Name)
}

// checkBodyTerms checks one term list of a body relation against the types
// it must have. Free variables are unified; constants must match exactly.
func checkBodyTerms(sc *scope, u *unifier, name string, terms []ast.Term, want ir.Schema) error {
	for i, t := range terms {
		if fv, ok := t.(ast.FreeVar); ok {
			u.bind(fv.Name, want[i])
			continue
		}
		if got := termType(sc, t); got != want[i] {
			return newError(TermsNotProperlyTypedError, t.Position(), "term %d of %q is %s, expected %s", i, name, got, want[i])
		}
	}
	return nil
}

// checkRuleTypes unifies free variable types across the body in source
// order and installs the inferred head schema.
func checkRuleTypes(a *Analysis, sc *scope, rule *ast.Rule) error {
	u := newUnifier()
	for _, rel := range rule.Body {
		switch r := rel.(type) {
		case *ast.Relation:
			schema, _ := a.Symbols.Schema(r.Name)
			if err := checkBodyTerms(sc, u, r.Name, r.Terms, schema); err != nil {
				return err
			}
		case *ast.IERelation:
			sig, err := typeIERelation(a, sc, u, r)
			if err != nil {
				return err
			}
			a.IE[r] = sig
		}
	}
	if err := u.err(rule.Pos, "rule "+rule.Head.Name); err != nil {
		return err
	}

	schema := make(ir.Schema, len(rule.Head.Vars))
	for i, v := range rule.Head.Vars {
		schema[i] = u.types[v.Name]
	}
	if a.Symbols.SetSchema(rule.Head.Name, schema) != nil {
		return newError(RelationRedefinition, rule.Head.Pos, "relation %q is already defined", rule.Head.Name)
	}
	a.logger.Debug("inferred rule head schema", "relation", rule.Head.Name, "schema", schema.String())
	return nil
}

// typeIERelation types an IE relation from the registry: declared input
// types, and output types derived from the constant arguments.
func typeIERelation(a *Analysis, sc *scope, u *unifier, r *ast.IERelation) (IESignature, error) {
	fn, _ := a.Symbols.Registry().Lookup(r.Name)
	if err := checkBodyTerms(sc, u, r.Name, r.Inputs, fn.InputTypes); err != nil {
		return IESignature{}, err
	}

	args := make([]ir.Value, len(r.Inputs))
	for i, t := range r.Inputs {
		if v, ok := sc.value(t); ok {
			args[i] = v
		}
	}
	outputs, err := fn.OutputTypes(args, len(r.Outputs))
	if err != nil {
		return IESignature{}, newError(InvalidIECall, r.Pos, "ie function %q: %v", r.Name, err)
	}
	if len(outputs) != len(r.Outputs) {
		return IESignature{}, newError(ArityMismatch, r.Pos, "ie function %q produces %d outputs, got %d terms",
			r.Name, len(outputs), len(r.Outputs))
	}
	if err := checkBodyTerms(sc, u, r.Name, r.Outputs, outputs); err != nil {
		return IESignature{}, err
	}
	return IESignature{
		Function:    fn,
		InputTypes:  slices.Clone(fn.InputTypes),
		OutputTypes: outputs,
	}, nil
}
