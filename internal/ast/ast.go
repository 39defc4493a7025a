package ast

import (
	"fmt"

	"github.com/roach88/rgxlog/internal/ir"
)

// Pos is the source position of a node. The zero Pos means unknown.
type Pos struct {
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

// Position returns p. Embedding Pos gives every node this method.
func (p Pos) Position() Pos { return p }

// IsValid reports whether the position is known.
func (p Pos) IsValid() bool { return p.Line > 0 }

// String renders "line:column".
func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is implemented by every syntax tree node.
type Node interface {
	Position() Pos
}

// Statement is a sealed interface for top-level program statements.
// Only Assignment, ReadAssignment, RelationDeclaration, AddFact, RemoveFact,
// Query and Rule implement it.
type Statement interface {
	Node
	statement()
}

// BodyRelation is a sealed interface for rule body members.
// Only Relation and IERelation implement it.
type BodyRelation interface {
	Node
	bodyRelation()
}

// Term is a sealed interface for relation arguments.
// Only StringLit, IntLit, SpanLit, VarRef and FreeVar implement it.
type Term interface {
	Node
	term()
}

// Program is an ordered list of statements.
type Program struct {
	Pos
	Statements []Statement
}

// Assignment binds a variable to a constant or to another variable's value.
// Value is a StringLit, IntLit, SpanLit or VarRef.
type Assignment struct {
	Pos
	Name  string
	Value Term
}

// ReadAssignment binds a variable to the contents of a file.
// Path is a StringLit or a VarRef.
type ReadAssignment struct {
	Pos
	Name string
	Path Term
}

// RelationDeclaration declares a relation's schema.
type RelationDeclaration struct {
	Pos
	Name   string
	Schema ir.Schema
}

// AddFact asserts a tuple. Terms are constants or variable references.
type AddFact struct {
	Pos
	Name  string
	Terms []Term
}

// RemoveFact retracts a tuple. Terms are constants or variable references.
type RemoveFact struct {
	Pos
	Name  string
	Terms []Term
}

// Query asks the backend for the tuples matching a relation.
type Query struct {
	Pos
	Relation *Relation
}

// Rule defines a derived relation.
type Rule struct {
	Pos
	Head *RuleHead
	Body []BodyRelation
}

// RuleHead names the derived relation and its free variables.
type RuleHead struct {
	Pos
	Name string
	Vars []FreeVar
}

// Relation is a reference to a declared or derived relation.
type Relation struct {
	Pos
	Name  string
	Terms []Term
}

// IERelation is a call to an information-extraction function.
type IERelation struct {
	Pos
	Name    string
	Inputs  []Term
	Outputs []Term
}

// StringLit is a normalized string constant.
type StringLit struct {
	Pos
	Value string
}

// IntLit is an integer constant.
type IntLit struct {
	Pos
	Value int64
}

// SpanLit is a span constant [Start, Stop).
type SpanLit struct {
	Pos
	Start int64
	Stop  int64
}

// VarRef references a variable defined by an assignment.
type VarRef struct {
	Pos
	Name string
}

// FreeVar is a rule or query placeholder bound during evaluation.
type FreeVar struct {
	Pos
	Name string
}

func (*Assignment) statement()          {}
func (*ReadAssignment) statement()      {}
func (*RelationDeclaration) statement() {}
func (*AddFact) statement()             {}
func (*RemoveFact) statement()          {}
func (*Query) statement()               {}
func (*Rule) statement()                {}

func (*Relation) bodyRelation()   {}
func (*IERelation) bodyRelation() {}

func (StringLit) term() {}
func (IntLit) term()    {}
func (SpanLit) term()   {}
func (VarRef) term()    {}
func (FreeVar) term()   {}

// Kind returns the grammar node kind of a statement.
func Kind(n Node) string {
	switch n.(type) {
	case *Program:
		return "program"
	case *Assignment:
		return "assignment"
	case *ReadAssignment:
		return "read_assignment"
	case *RelationDeclaration:
		return "relation_declaration"
	case *AddFact:
		return "add_fact"
	case *RemoveFact:
		return "remove_fact"
	case *Query:
		return "query"
	case *Rule:
		return "rule"
	case *RuleHead:
		return "rule_head"
	case *Relation:
		return "relation"
	case *IERelation:
		return "ie_relation"
	case StringLit:
		return "string"
	case IntLit:
		return "integer"
	case SpanLit:
		return "span"
	case VarRef:
		return "var_name"
	case FreeVar:
		return "free_var_name"
	default:
		return fmt.Sprintf("%T", n)
	}
}

// ConstValue converts a literal term into an IR value.
// ok is false for VarRef and FreeVar.
func ConstValue(t Term) (v ir.Value, ok bool) {
	switch lit := t.(type) {
	case StringLit:
		return ir.String(lit.Value), true
	case IntLit:
		return ir.Int(lit.Value), true
	case SpanLit:
		return ir.Span{Start: lit.Start, Stop: lit.Stop}, true
	default:
		return nil, false
	}
}

// FreeVarNames returns the distinct free variable names among terms in
// first-occurrence order.
func FreeVarNames(terms []Term) []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range terms {
		if fv, ok := t.(FreeVar); ok && !seen[fv.Name] {
			seen[fv.Name] = true
			names = append(names, fv.Name)
		}
	}
	return names
}

// InputFreeVars returns the free variables a body relation needs bound
// before it can be evaluated. Plain relations need none.
func InputFreeVars(r BodyRelation) []string {
	switch rel := r.(type) {
	case *IERelation:
		return FreeVarNames(rel.Inputs)
	default:
		return nil
	}
}

// OutputFreeVars returns the free variables a body relation binds.
func OutputFreeVars(r BodyRelation) []string {
	switch rel := r.(type) {
	case *Relation:
		return FreeVarNames(rel.Terms)
	case *IERelation:
		return FreeVarNames(rel.Outputs)
	default:
		return nil
	}
}

// BodyName returns the relation or IE function name of a body relation.
func BodyName(r BodyRelation) string {
	switch rel := r.(type) {
	case *Relation:
		return rel.Name
	case *IERelation:
		return rel.Name
	default:
		return ""
	}
}
