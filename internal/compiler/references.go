package compiler

import (
	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
)

// checkVariableReferences verifies that every variable reference is
// assigned before use, scanning the program forward.
func checkVariableReferences(a *Analysis) error {
	defined := make(map[string]bool)
	for _, name := range a.Symbols.VariableNames() {
		defined[name] = true
	}

	checkTerms := func(terms ...ast.Term) error {
		for _, t := range terms {
			ref, ok := t.(ast.VarRef)
			if !ok || defined[ref.Name] {
				continue
			}
			err := newError(UndefinedVariable, ref.Pos, "variable %q is not defined", ref.Name)
			err.Vars = []string{ref.Name}
			return err
		}
		return nil
	}

	for _, stmt := range a.Program.Statements {
		var err error
		switch st := stmt.(type) {
		case *ast.Assignment:
			err = checkTerms(st.Value)
			defined[st.Name] = true
		case *ast.ReadAssignment:
			err = checkTerms(st.Path)
			defined[st.Name] = true
		case *ast.AddFact:
			err = checkTerms(st.Terms...)
		case *ast.RemoveFact:
			err = checkTerms(st.Terms...)
		case *ast.Query:
			err = checkTerms(st.Relation.Terms...)
		case *ast.Rule:
			for _, rel := range st.Body {
				switch r := rel.(type) {
				case *ast.Relation:
					err = checkTerms(r.Terms...)
				case *ast.IERelation:
					if err = checkTerms(r.Inputs...); err == nil {
						err = checkTerms(r.Outputs...)
					}
				}
				if err != nil {
					break
				}
			}
		case *ast.RelationDeclaration:
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkFiles reads the file named by every read assignment and keeps the
// contents for lowering.
func checkFiles(a *Analysis) error {
	sc := newScope(a.Symbols)
	for _, stmt := range a.Program.Statements {
		switch st := stmt.(type) {
		case *ast.Assignment:
			sc.assign(a, st)
		case *ast.ReadAssignment:
			v, _ := sc.value(st.Path)
			path, ok := v.(ir.String)
			if !ok {
				return newError(UnreadableFile, st.Pos, "read path of %q must be a string", st.Name)
			}
			data, err := a.readFile(a.resolvePath(string(path)))
			if err != nil {
				return newError(UnreadableFile, st.Pos, "cannot read %q: %v", string(path), err)
			}
			a.Files[st] = ir.NormalizeString(string(data))
			sc.assign(a, st)
		}
	}
	return nil
}

// checkReservedNames rejects relation names that use the engine prefix.
func checkReservedNames(a *Analysis) error {
	check := func(name string, pos ast.Pos) error {
		if ir.IsReserved(name) {
			return newError(ReservedNameError, pos, "relation name %q uses the reserved prefix %q", name, ir.TempPrefix)
		}
		return nil
	}

	for _, stmt := range a.Program.Statements {
		var err error
		switch st := stmt.(type) {
		case *ast.RelationDeclaration:
			err = check(st.Name, st.Pos)
		case *ast.AddFact:
			err = check(st.Name, st.Pos)
		case *ast.RemoveFact:
			err = check(st.Name, st.Pos)
		case *ast.Query:
			err = check(st.Relation.Name, st.Relation.Pos)
		case *ast.Rule:
			err = check(st.Head.Name, st.Head.Pos)
			for _, rel := range st.Body {
				if err != nil {
					break
				}
				err = check(ast.BodyName(rel), rel.Position())
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkRelationReferences verifies that relations are defined before use
// with the right arity, and never defined twice.
func checkRelationReferences(a *Analysis) error {
	arity := make(map[string]int)
	for _, name := range a.Symbols.Relations() {
		schema, _ := a.Symbols.Schema(name)
		arity[name] = len(schema)
	}

	define := func(name string, n int, pos ast.Pos) error {
		if _, exists := arity[name]; exists {
			return newError(RelationRedefinition, pos, "relation %q is already defined", name)
		}
		arity[name] = n
		return nil
	}
	reference := func(name string, n int, pos ast.Pos) error {
		want, ok := arity[name]
		if !ok {
			return newError(UndefinedRelation, pos, "relation %q is not defined", name)
		}
		if n != want {
			return newError(ArityMismatch, pos, "relation %q has arity %d, got %d terms", name, want, n)
		}
		return nil
	}

	for _, stmt := range a.Program.Statements {
		var err error
		switch st := stmt.(type) {
		case *ast.RelationDeclaration:
			err = define(st.Name, len(st.Schema), st.Pos)
		case *ast.AddFact:
			err = reference(st.Name, len(st.Terms), st.Pos)
		case *ast.RemoveFact:
			err = reference(st.Name, len(st.Terms), st.Pos)
		case *ast.Query:
			err = reference(st.Relation.Name, len(st.Relation.Terms), st.Relation.Pos)
		case *ast.Rule:
			if _, exists := arity[st.Head.Name]; exists {
				err = newError(RelationRedefinition, st.Head.Pos, "relation %q is already defined", st.Head.Name)
				break
			}
			for _, rel := range st.Body {
				if r, ok := rel.(*ast.Relation); ok {
					if err = reference(r.Name, len(r.Terms), r.Pos); err != nil {
						break
					}
				}
			}
			if err == nil {
				err = define(st.Head.Name, len(st.Head.Vars), st.Head.Pos)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkIEFunctions verifies that every IE relation names a registered
// function and passes it the right number of inputs.
func checkIEFunctions(a *Analysis) error {
	registry := a.Symbols.Registry()
	for _, stmt := range a.Program.Statements {
		rule, ok := stmt.(*ast.Rule)
		if !ok {
			continue
		}
		for _, rel := range rule.Body {
			ie, ok := rel.(*ast.IERelation)
			if !ok {
				continue
			}
			fn, ok := registry.Lookup(ie.Name)
			if !ok {
				return newError(UndefinedIEFunction, ie.Pos, "ie function %q is not defined", ie.Name)
			}
			if len(ie.Inputs) != len(fn.InputTypes) {
				return newError(ArityMismatch, ie.Pos, "ie function %q takes %d inputs, got %d",
					ie.Name, len(fn.InputTypes), len(ie.Inputs))
			}
		}
	}
	return nil
}
