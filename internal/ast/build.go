package ast

import "github.com/roach88/rgxlog/internal/ir"

// Builders for constructing typed trees directly, mainly in tests and
// embedded programs. Nodes built this way carry no position.

// Str creates a string literal.
func Str(s string) StringLit { return StringLit{Value: ir.NormalizeString(s)} }

// Int creates an integer literal.
func Int(i int64) IntLit { return IntLit{Value: i} }

// Span creates a span literal.
func Span(start, stop int64) SpanLit { return SpanLit{Start: start, Stop: stop} }

// Ref creates a variable reference.
func Ref(name string) VarRef { return VarRef{Name: name} }

// Free creates a free variable.
func Free(name string) FreeVar { return FreeVar{Name: name} }

// Terms collects terms into a slice.
func Terms(terms ...Term) []Term { return terms }

// NewProgram creates a program from statements.
func NewProgram(stmts ...Statement) *Program {
	return &Program{Statements: stmts}
}

// Assign creates an assignment statement.
func Assign(name string, value Term) *Assignment {
	return &Assignment{Name: name, Value: value}
}

// Read creates a read assignment statement.
func Read(name string, path Term) *ReadAssignment {
	return &ReadAssignment{Name: name, Path: path}
}

// Declare creates a relation declaration.
func Declare(name string, schema ...ir.Type) *RelationDeclaration {
	return &RelationDeclaration{Name: name, Schema: schema}
}

// Fact creates an add_fact statement.
func Fact(name string, terms ...Term) *AddFact {
	return &AddFact{Name: name, Terms: terms}
}

// Retract creates a remove_fact statement.
func Retract(name string, terms ...Term) *RemoveFact {
	return &RemoveFact{Name: name, Terms: terms}
}

// Ask creates a query statement.
func Ask(name string, terms ...Term) *Query {
	return &Query{Relation: Rel(name, terms...)}
}

// Rel creates a relation reference.
func Rel(name string, terms ...Term) *Relation {
	return &Relation{Name: name, Terms: terms}
}

// IE creates an IE relation reference.
func IE(name string, inputs, outputs []Term) *IERelation {
	return &IERelation{Name: name, Inputs: inputs, Outputs: outputs}
}

// NewRule creates a rule with the given head variables and body.
func NewRule(head string, vars []string, body ...BodyRelation) *Rule {
	h := &RuleHead{Name: head}
	for _, v := range vars {
		h.Vars = append(h.Vars, FreeVar{Name: v})
	}
	return &Rule{Head: h, Body: body}
}
