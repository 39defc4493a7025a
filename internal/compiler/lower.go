package compiler

import (
	"fmt"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/termgraph"
)

// simplified is a statement collapsed into IR values, ready to become
// term graph nodes.
type simplified struct {
	kind termgraph.Kind
	// value is set for leaf statements.
	value termgraph.Payload
	// head and body are set for rules; body is in execution order.
	head ir.Relation
	body []termgraph.Payload
}

// Lower converts a checked program into term graph nodes under a fresh
// program_root attached to the global root, and applies the program's
// assignments to the symbol table. It returns the program_root.
func Lower(a *Analysis, g *termgraph.Graph) (termgraph.NodeID, error) {
	var statements []simplified
	for _, stmt := range a.Program.Statements {
		s, ok, err := simplify(a, stmt)
		if err != nil {
			return 0, err
		}
		if ok {
			statements = append(statements, s)
		}
	}

	program, err := g.AddTerm(termgraph.KindProgramRoot, nil)
	if err != nil {
		return 0, err
	}
	if err := g.AddDependency(g.Root(), program); err != nil {
		return 0, err
	}
	for _, s := range statements {
		if err := attach(g, program, s); err != nil {
			return 0, err
		}
	}
	return program, nil
}

// simplify collapses a statement into IR values. Assignments update the
// symbol table and produce no node.
func simplify(a *Analysis, stmt ast.Statement) (simplified, bool, error) {
	switch st := stmt.(type) {
	case *ast.Assignment:
		v, err := resolveValue(a, st.Value)
		if err != nil {
			return simplified{}, false, err
		}
		a.Symbols.SetVariable(st.Name, v)
		return simplified{}, false, nil

	case *ast.ReadAssignment:
		a.Symbols.SetVariable(st.Name, ir.String(a.Files[st]))
		return simplified{}, false, nil

	case *ast.RelationDeclaration:
		decl := ir.RelationDeclaration{Name: st.Name, Schema: st.Schema}
		return simplified{kind: termgraph.KindRelationDeclaration, value: termgraph.DeclarationValue{Declaration: decl}}, true, nil

	case *ast.AddFact:
		rel, err := lowerRelation(a, st.Name, st.Terms)
		if err != nil {
			return simplified{}, false, err
		}
		return simplified{kind: termgraph.KindAddFact, value: termgraph.RelationValue{Relation: rel}}, true, nil

	case *ast.RemoveFact:
		rel, err := lowerRelation(a, st.Name, st.Terms)
		if err != nil {
			return simplified{}, false, err
		}
		return simplified{kind: termgraph.KindRemoveFact, value: termgraph.RelationValue{Relation: rel}}, true, nil

	case *ast.Query:
		rel, err := lowerRelation(a, st.Relation.Name, st.Relation.Terms)
		if err != nil {
			return simplified{}, false, err
		}
		return simplified{kind: termgraph.KindQuery, value: termgraph.RelationValue{Relation: rel}}, true, nil

	case *ast.Rule:
		return simplifyRule(a, st)

	default:
		return simplified{}, false, fmt.Errorf("cannot lower %s", ast.Kind(stmt))
	}
}

func simplifyRule(a *Analysis, rule *ast.Rule) (simplified, bool, error) {
	terms := make([]ast.Term, len(rule.Head.Vars))
	for i, v := range rule.Head.Vars {
		terms[i] = v
	}
	head, err := lowerRelation(a, rule.Head.Name, terms)
	if err != nil {
		return simplified{}, false, err
	}

	s := simplified{kind: termgraph.KindRule, head: head}
	for _, rel := range rule.Body {
		switch r := rel.(type) {
		case *ast.Relation:
			lowered, err := lowerRelation(a, r.Name, r.Terms)
			if err != nil {
				return simplified{}, false, err
			}
			s.body = append(s.body, termgraph.RelationValue{Relation: lowered})
		case *ast.IERelation:
			lowered, err := lowerIERelation(a, r)
			if err != nil {
				return simplified{}, false, err
			}
			s.body = append(s.body, termgraph.IERelationValue{IERelation: lowered})
		}
	}
	return s, true, nil
}

func attach(g *termgraph.Graph, program termgraph.NodeID, s simplified) error {
	if s.kind != termgraph.KindRule {
		id, err := g.AddTerm(s.kind, s.value)
		if err != nil {
			return err
		}
		return g.AddDependency(program, id)
	}

	rule, err := g.AddTerm(termgraph.KindRule, nil)
	if err != nil {
		return err
	}
	head, err := g.AddTerm(termgraph.KindRuleHead, termgraph.RelationValue{Relation: s.head})
	if err != nil {
		return err
	}
	body, err := g.AddTerm(termgraph.KindRuleBody, nil)
	if err != nil {
		return err
	}
	for _, edge := range [][2]termgraph.NodeID{{program, rule}, {rule, head}, {rule, body}} {
		if err := g.AddDependency(edge[0], edge[1]); err != nil {
			return err
		}
	}
	for _, value := range s.body {
		kind := termgraph.KindRelation
		if _, ok := value.(termgraph.IERelationValue); ok {
			kind = termgraph.KindIERelation
		}
		id, err := g.AddTerm(kind, value)
		if err != nil {
			return err
		}
		if err := g.AddDependency(body, id); err != nil {
			return err
		}
	}
	return nil
}

// resolveValue returns the value of a constant or variable reference term
// as the symbol table holds it at this point of the program.
func resolveValue(a *Analysis, t ast.Term) (ir.Value, error) {
	if v, ok := ast.ConstValue(t); ok {
		return v, nil
	}
	if ref, ok := t.(ast.VarRef); ok {
		if v, ok := a.Symbols.Variable(ref.Name); ok {
			return v.Value, nil
		}
		return nil, fmt.Errorf("variable %q has no value", ref.Name)
	}
	return nil, fmt.Errorf("%s is not a constant", ast.Kind(t))
}

func lowerTerms(a *Analysis, terms []ast.Term) ([]ir.Term, error) {
	out := make([]ir.Term, len(terms))
	for i, t := range terms {
		if fv, ok := t.(ast.FreeVar); ok {
			out[i] = ir.Var(fv.Name)
			continue
		}
		v, err := resolveValue(a, t)
		if err != nil {
			return nil, err
		}
		out[i] = ir.Const(v)
	}
	return out, nil
}

// lowerRelation builds a relation typed by its schema.
func lowerRelation(a *Analysis, name string, terms []ast.Term) (ir.Relation, error) {
	schema, ok := a.Symbols.Schema(name)
	if !ok {
		return ir.Relation{}, fmt.Errorf("relation %q has no schema", name)
	}
	lowered, err := lowerTerms(a, terms)
	if err != nil {
		return ir.Relation{}, err
	}
	return ir.NewRelation(name, lowered, schema.Clone())
}

func lowerIERelation(a *Analysis, r *ast.IERelation) (ir.IERelation, error) {
	sig, ok := a.IE[r]
	if !ok {
		return ir.IERelation{}, fmt.Errorf("ie relation %q was not type checked", r.Name)
	}
	inputs, err := lowerTerms(a, r.Inputs)
	if err != nil {
		return ir.IERelation{}, err
	}
	outputs, err := lowerTerms(a, r.Outputs)
	if err != nil {
		return ir.IERelation{}, err
	}
	ie := ir.IERelation{
		Name:        r.Name,
		InputTerms:  inputs,
		InputTypes:  sig.InputTypes,
		OutputTerms: outputs,
		OutputTypes: sig.OutputTypes,
	}
	return ie, ie.Check()
}
