package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ir"
)

const parentProgramYAML = `
program:
  - relation_declaration:
      - relation_name:parent
      - decl_term_list: [{data: decl_string}, type:str]
  - add_fact:
      - relation_name:parent
      - const_term_list: ['string:"bob"', var_name:kid]
  - query:
      - relation:
          - relation_name:parent
          - term_list: ['string:"bob"', free_var_name:X]
`

func TestDecodeYAMLCompactForm(t *testing.T) {
	tree, err := ReadYAML(strings.NewReader(parentProgramYAML))
	require.NoError(t, err)

	prog, err := Decode(tree)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 3)

	decl, ok := prog.Statements[0].(*RelationDeclaration)
	require.True(t, ok)
	assert.Equal(t, "parent", decl.Name)
	assert.Equal(t, ir.Schema{ir.TypeString, ir.TypeString}, decl.Schema)
	assert.True(t, decl.Pos.IsValid(), "YAML positions are recorded")

	fact, ok := prog.Statements[1].(*AddFact)
	require.True(t, ok)
	require.Len(t, fact.Terms, 2)
	assert.Equal(t, "bob", fact.Terms[0].(StringLit).Value)
	assert.Equal(t, "kid", fact.Terms[1].(VarRef).Name)

	q, ok := prog.Statements[2].(*Query)
	require.True(t, ok)
	assert.Equal(t, "X", q.Relation.Terms[1].(FreeVar).Name)
}

func TestDecodeJSONObjectForm(t *testing.T) {
	src := `{"data": "program", "children": [
		{"data": "assignment", "line": 1, "column": 1, "children": [
			{"data": "var_name", "token": "n"},
			{"data": "integer", "token": "42"}
		]},
		{"data": "assignment", "children": [
			{"data": "var_name", "token": "s"},
			{"data": "span", "children": ["integer:1", "integer:4"]}
		]}
	]}`
	tree, err := ReadJSON(strings.NewReader(src))
	require.NoError(t, err)
	prog, err := Decode(tree)
	require.NoError(t, err)

	a := prog.Statements[0].(*Assignment)
	assert.Equal(t, Pos{Line: 1, Column: 1}, a.Pos)
	assert.Equal(t, int64(42), a.Value.(IntLit).Value)

	s := prog.Statements[1].(*Assignment)
	assert.Equal(t, SpanLit{Start: 1, Stop: 4}, s.Value.(SpanLit))
}

func TestNormalizeStringSegments(t *testing.T) {
	n := Tree("string", Leaf("STRING", `"hello \`+"\n"+`wor"`), Leaf("STRING", `"ld"`))
	s, err := normalizeStringNode(n)
	require.NoError(t, err)
	assert.Equal(t, "hello world", s)

	decomposed := Leaf("string", "\"cafe\u0301\"")
	s, err = normalizeStringNode(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", s)
}

func TestDecodeSpanToken(t *testing.T) {
	term, err := decodeTerm(Leaf("span", "[3, 7)"), allKinds)
	require.NoError(t, err)
	assert.Equal(t, SpanLit{Start: 3, Stop: 7}, term)

	_, err = decodeTerm(Leaf("span", "[7, 3)"), allKinds)
	assert.True(t, IsShapeError(err))
}

func TestDecodeRule(t *testing.T) {
	tree := Tree("program",
		Tree("rule",
			Tree("rule_head", Leaf("relation_name", "cousin"),
				Tree("free_var_name_list", Leaf("free_var_name", "X"), Leaf("free_var_name", "Y"))),
			Tree("rule_body", Tree("rule_body_relation_list",
				Tree("ie_relation", Leaf("relation_name", "rgx"),
					Tree("term_list", Leaf("free_var_name", "X"), Leaf("string", `"(\w+)"`)),
					Tree("term_list", Leaf("free_var_name", "Y"))),
				Tree("relation", Leaf("relation_name", "parent"),
					Tree("term_list", Leaf("string", `"s"`), Leaf("free_var_name", "X")))))))

	prog, err := Decode(tree)
	require.NoError(t, err)
	rule := prog.Statements[0].(*Rule)
	assert.Equal(t, "cousin", rule.Head.Name)
	require.Len(t, rule.Body, 2)

	ie := rule.Body[0].(*IERelation)
	assert.Equal(t, []string{"X"}, InputFreeVars(ie))
	assert.Equal(t, []string{"Y"}, OutputFreeVars(ie))
	assert.Equal(t, `(\w+)`, ie.Inputs[1].(StringLit).Value)
	assert.Empty(t, InputFreeVars(rule.Body[1]))
	assert.Equal(t, []string{"X"}, OutputFreeVars(rule.Body[1]))
}

func TestDecodeShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		tree *Labeled
	}{
		{"wrong root", Tree("relation")},
		{"unknown statement", Tree("program", Tree("delete"))},
		{"fact arity", Tree("program", Tree("add_fact", Leaf("relation_name", "a")))},
		{"free var in fact", Tree("program", Tree("add_fact", Leaf("relation_name", "a"),
			Tree("const_term_list", Leaf("free_var_name", "X"))))},
		{"constant in rule head", Tree("program", Tree("rule",
			Tree("rule_head", Leaf("relation_name", "h"), Tree("free_var_name_list", Leaf("integer", "1"))),
			Tree("rule_body", Tree("rule_body_relation_list"))))},
		{"empty body", Tree("program", Tree("rule",
			Tree("rule_head", Leaf("relation_name", "h"), Tree("free_var_name_list")),
			Tree("rule_body", Tree("rule_body_relation_list"))))},
		{"bad integer", Tree("program", Tree("assignment", Leaf("var_name", "x"), Leaf("integer", "x1")))},
		{"bad declared type", Tree("program", Tree("relation_declaration", Leaf("relation_name", "r"),
			Tree("decl_term_list", Leaf("type", "float"))))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.tree)
			require.Error(t, err)
			assert.True(t, IsShapeError(err), "got %v", err)
			assert.Contains(t, err.Error(), ErrCodeShape)
		})
	}
}

func TestLabeledString(t *testing.T) {
	tree := Tree("relation", Leaf("relation_name", "a"), Tree("term_list", Leaf("free_var_name", "X")))
	assert.Equal(t, "relation(relation_name:a term_list(free_var_name:X))", tree.String())
}
