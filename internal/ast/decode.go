package ast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/rgxlog/internal/ir"
)

// ErrCodeShape is the diagnostic code of a malformed labeled tree.
const ErrCodeShape = "E200"

// ShapeError reports a labeled tree that does not match the grammar.
// It is a structural precondition failure, not a recoverable program error.
type ShapeError struct {
	Node    string `json:"node"`
	Message string `json:"message"`
	Pos     Pos    `json:"pos"`
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("[%s] line %s: %s: %s", ErrCodeShape, e.Pos, e.Node, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ErrCodeShape, e.Node, e.Message)
}

// IsShapeError reports whether err is or wraps a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

func shapeErr(n *Labeled, format string, args ...any) error {
	return &ShapeError{Node: n.Data, Message: fmt.Sprintf(format, args...), Pos: n.Pos()}
}

// expect checks the node kind and, when arity >= 0, its child count.
func expect(n *Labeled, data string, arity int) error {
	if n == nil {
		return &ShapeError{Node: data, Message: "missing node"}
	}
	if n.Data != data {
		return shapeErr(n, "expected %s node", data)
	}
	if arity >= 0 && len(n.Children) != arity {
		return shapeErr(n, "expected %d children, got %d", arity, len(n.Children))
	}
	return nil
}

func leafToken(n *Labeled, data string) (string, error) {
	if err := expect(n, data, -1); err != nil {
		return "", err
	}
	if len(n.Children) == 1 && len(n.Children[0].Children) == 0 {
		return n.Children[0].Token, nil
	}
	if len(n.Children) != 0 {
		return "", shapeErr(n, "expected a token leaf")
	}
	if n.Token == "" {
		return "", shapeErr(n, "empty token")
	}
	return n.Token, nil
}

// Decode converts a labeled tree rooted at "program" (or "start") into a
// typed Program, normalizing tokens on the way.
func Decode(root *Labeled) (*Program, error) {
	if root == nil {
		return nil, &ShapeError{Node: "program", Message: "missing node"}
	}
	if root.Data != "program" && root.Data != "start" {
		return nil, shapeErr(root, "expected program node")
	}
	prog := &Program{Pos: root.Pos()}
	for _, child := range root.Children {
		stmt, err := decodeStatement(child)
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func decodeStatement(n *Labeled) (Statement, error) {
	switch n.Data {
	case "assignment":
		return decodeAssignment(n)
	case "read_assignment":
		return decodeReadAssignment(n)
	case "relation_declaration":
		return decodeDeclaration(n)
	case "add_fact", "remove_fact":
		return decodeFact(n)
	case "query":
		if err := expect(n, "query", 1); err != nil {
			return nil, err
		}
		rel, err := decodeRelation(n.Children[0])
		if err != nil {
			return nil, err
		}
		return &Query{Pos: n.Pos(), Relation: rel}, nil
	case "rule":
		return decodeRule(n)
	default:
		return nil, shapeErr(n, "unknown statement kind")
	}
}

func decodeAssignment(n *Labeled) (*Assignment, error) {
	if err := expect(n, "assignment", 2); err != nil {
		return nil, err
	}
	name, err := leafToken(n.Children[0], "var_name")
	if err != nil {
		return nil, err
	}
	value, err := decodeTerm(n.Children[1], constKinds)
	if err != nil {
		return nil, err
	}
	return &Assignment{Pos: n.Pos(), Name: name, Value: value}, nil
}

func decodeReadAssignment(n *Labeled) (*ReadAssignment, error) {
	if err := expect(n, "read_assignment", 2); err != nil {
		return nil, err
	}
	name, err := leafToken(n.Children[0], "var_name")
	if err != nil {
		return nil, err
	}
	path, err := decodeTerm(n.Children[1], pathKinds)
	if err != nil {
		return nil, err
	}
	return &ReadAssignment{Pos: n.Pos(), Name: name, Path: path}, nil
}

func decodeDeclaration(n *Labeled) (*RelationDeclaration, error) {
	if err := expect(n, "relation_declaration", 2); err != nil {
		return nil, err
	}
	name, err := leafToken(n.Children[0], "relation_name")
	if err != nil {
		return nil, err
	}
	list := n.Children[1]
	if err := expect(list, "decl_term_list", -1); err != nil {
		return nil, err
	}
	schema := make(ir.Schema, 0, len(list.Children))
	for _, c := range list.Children {
		t, err := decodeDeclType(c)
		if err != nil {
			return nil, err
		}
		schema = append(schema, t)
	}
	return &RelationDeclaration{Pos: n.Pos(), Name: name, Schema: schema}, nil
}

func decodeDeclType(n *Labeled) (ir.Type, error) {
	switch n.Data {
	case "decl_string":
		return ir.TypeString, nil
	case "decl_span":
		return ir.TypeSpan, nil
	case "decl_int":
		return ir.TypeInt, nil
	case "type":
		t, err := ir.ParseType(n.Token)
		if err != nil {
			return ir.TypeFreeVar, shapeErr(n, "%v", err)
		}
		return t, nil
	default:
		return ir.TypeFreeVar, shapeErr(n, "expected a declared type")
	}
}

func decodeFact(n *Labeled) (Statement, error) {
	if err := expect(n, n.Data, 2); err != nil {
		return nil, err
	}
	name, err := leafToken(n.Children[0], "relation_name")
	if err != nil {
		return nil, err
	}
	terms, err := decodeTermList(n.Children[1], "const_term_list", constKinds)
	if err != nil {
		return nil, err
	}
	if n.Data == "add_fact" {
		return &AddFact{Pos: n.Pos(), Name: name, Terms: terms}, nil
	}
	return &RemoveFact{Pos: n.Pos(), Name: name, Terms: terms}, nil
}

func decodeRule(n *Labeled) (*Rule, error) {
	if err := expect(n, "rule", 2); err != nil {
		return nil, err
	}
	headNode := n.Children[0]
	if err := expect(headNode, "rule_head", 2); err != nil {
		return nil, err
	}
	headName, err := leafToken(headNode.Children[0], "relation_name")
	if err != nil {
		return nil, err
	}
	headTerms, err := decodeTermList(headNode.Children[1], "free_var_name_list", freeVarKinds)
	if err != nil {
		return nil, err
	}
	head := &RuleHead{Pos: headNode.Pos(), Name: headName}
	for _, t := range headTerms {
		head.Vars = append(head.Vars, t.(FreeVar))
	}

	bodyNode := n.Children[1]
	if err := expect(bodyNode, "rule_body", 1); err != nil {
		return nil, err
	}
	list := bodyNode.Children[0]
	if err := expect(list, "rule_body_relation_list", -1); err != nil {
		return nil, err
	}
	if len(list.Children) == 0 {
		return nil, shapeErr(list, "rule body is empty")
	}
	rule := &Rule{Pos: n.Pos(), Head: head}
	for _, c := range list.Children {
		var rel BodyRelation
		switch c.Data {
		case "relation":
			rel, err = decodeRelation(c)
		case "ie_relation":
			rel, err = decodeIERelation(c)
		default:
			err = shapeErr(c, "expected relation or ie_relation")
		}
		if err != nil {
			return nil, err
		}
		rule.Body = append(rule.Body, rel)
	}
	return rule, nil
}

func decodeRelation(n *Labeled) (*Relation, error) {
	if err := expect(n, "relation", 2); err != nil {
		return nil, err
	}
	name, err := leafToken(n.Children[0], "relation_name")
	if err != nil {
		return nil, err
	}
	terms, err := decodeTermList(n.Children[1], "term_list", allKinds)
	if err != nil {
		return nil, err
	}
	return &Relation{Pos: n.Pos(), Name: name, Terms: terms}, nil
}

func decodeIERelation(n *Labeled) (*IERelation, error) {
	if err := expect(n, "ie_relation", 3); err != nil {
		return nil, err
	}
	name, err := leafToken(n.Children[0], "relation_name")
	if err != nil {
		return nil, err
	}
	inputs, err := decodeTermList(n.Children[1], "term_list", allKinds)
	if err != nil {
		return nil, err
	}
	outputs, err := decodeTermList(n.Children[2], "term_list", allKinds)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 && len(outputs) == 0 {
		return nil, shapeErr(n, "ie relation has no terms")
	}
	return &IERelation{Pos: n.Pos(), Name: name, Inputs: inputs, Outputs: outputs}, nil
}

var (
	allKinds     = []string{"string", "integer", "span", "var_name", "free_var_name"}
	constKinds   = []string{"string", "integer", "span", "var_name"}
	pathKinds    = []string{"string", "var_name"}
	freeVarKinds = []string{"free_var_name"}
)

func decodeTermList(n *Labeled, data string, kinds []string) ([]Term, error) {
	if err := expect(n, data, -1); err != nil {
		return nil, err
	}
	terms := make([]Term, 0, len(n.Children))
	for _, c := range n.Children {
		t, err := decodeTerm(c, kinds)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}

func decodeTerm(n *Labeled, kinds []string) (Term, error) {
	if n == nil {
		return nil, &ShapeError{Node: "term", Message: "missing node"}
	}
	allowed := false
	for _, k := range kinds {
		if n.Data == k {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, shapeErr(n, "expected one of %s", strings.Join(kinds, ", "))
	}

	switch n.Data {
	case "string":
		s, err := normalizeStringNode(n)
		if err != nil {
			return nil, err
		}
		return StringLit{Pos: n.Pos(), Value: s}, nil
	case "integer":
		tok, err := leafToken(n, "integer")
		if err != nil {
			return nil, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return nil, shapeErr(n, "invalid integer %q", tok)
		}
		return IntLit{Pos: n.Pos(), Value: i}, nil
	case "span":
		return decodeSpan(n)
	case "var_name":
		name, err := leafToken(n, "var_name")
		if err != nil {
			return nil, err
		}
		return VarRef{Pos: n.Pos(), Name: name}, nil
	default:
		name, err := leafToken(n, "free_var_name")
		if err != nil {
			return nil, err
		}
		return FreeVar{Pos: n.Pos(), Name: name}, nil
	}
}

func decodeSpan(n *Labeled) (Term, error) {
	var span ir.Span
	switch {
	case len(n.Children) == 2:
		var bounds [2]int64
		for i, c := range n.Children {
			tok, err := leafToken(c, "integer")
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
			if err != nil {
				return nil, shapeErr(c, "invalid integer %q", tok)
			}
			bounds[i] = v
		}
		s, err := ir.NewSpan(bounds[0], bounds[1])
		if err != nil {
			return nil, shapeErr(n, "%v", err)
		}
		span = s
	case len(n.Children) == 0 && n.Token != "":
		s, err := ir.ParseSpan(n.Token)
		if err != nil {
			return nil, shapeErr(n, "%v", err)
		}
		span = s
	default:
		return nil, shapeErr(n, "expected [start, stop) token or two integer children")
	}
	return SpanLit{Pos: n.Pos(), Start: span.Start, Stop: span.Stop}, nil
}

// normalizeStringNode merges the segments of a string literal into one
// logical string. Each segment loses its quote delimiters, backslash-newline
// continuations are removed and the result is NFC normalized.
func normalizeStringNode(n *Labeled) (string, error) {
	var segments []string
	if len(n.Children) == 0 {
		segments = []string{n.Token}
	} else {
		for _, c := range n.Children {
			if len(c.Children) != 0 {
				return "", shapeErr(c, "string segment must be a token")
			}
			segments = append(segments, c.Token)
		}
	}

	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(unquote(seg))
	}
	s := b.String()
	s = strings.ReplaceAll(s, "\\\r\n", "")
	s = strings.ReplaceAll(s, "\\\n", "")
	return ir.NormalizeString(s), nil
}

func unquote(tok string) string {
	if len(tok) >= 2 {
		first, last := tok[0], tok[len(tok)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return tok[1 : len(tok)-1]
		}
	}
	return tok
}
