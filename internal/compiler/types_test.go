package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/symtab"
)

func TestTypeConflictListsAllTypes(t *testing.T) {
	// C(X) <- A(X), B(X), D(X)
	_, err := check(t, nil,
		ast.Declare("A", ir.TypeString),
		ast.Declare("B", ir.TypeInt),
		ast.Declare("D", ir.TypeSpan),
		ast.NewRule("C", []string{"X"},
			ast.Rel("A", ast.Free("X")),
			ast.Rel("B", ast.Free("X")),
			ast.Rel("D", ast.Free("X"))))

	var se *SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, TypeConflict, se.Kind)
	assert.Equal(t, []string{"X"}, se.Vars)
	assert.Equal(t, []ir.Type{ir.TypeString, ir.TypeInt, ir.TypeSpan}, se.Conflicts["X"])
	assert.Contains(t, se.Message, "X: {string, integer, span}")
}

func TestTypeConflictAcrossIEOutputs(t *testing.T) {
	// r(S) <- doc(T), rgx(T, "a") -> (S), label(S)   with label(string)
	_, err := check(t, nil,
		ast.Declare("doc", ir.TypeString),
		ast.Declare("label", ir.TypeString),
		ast.NewRule("r", []string{"S"},
			ast.Rel("doc", ast.Free("T")),
			ast.IE("rgx", ast.Terms(ast.Free("T"), ast.Str("a")), ast.Terms(ast.Free("S"))),
			ast.Rel("label", ast.Free("S"))))

	var se *SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, TypeConflict, se.Kind)
	assert.Equal(t, []ir.Type{ir.TypeSpan, ir.TypeString}, se.Conflicts["S"])
}

func TestTypeConflictSeveralVariables(t *testing.T) {
	_, err := check(t, nil,
		ast.Declare("a", ir.TypeString, ir.TypeInt),
		ast.Declare("b", ir.TypeInt, ir.TypeString),
		ast.NewRule("c", []string{"X"},
			ast.Rel("a", ast.Free("X"), ast.Free("Y")),
			ast.Rel("b", ast.Free("X"), ast.Free("Y"))))

	var se *SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"X", "Y"}, se.Vars)
}

func TestRuleHeadSchemaInferred(t *testing.T) {
	symbols := symtab.New(nil)
	_, err := check(t, symbols,
		ast.Declare("doc", ir.TypeString, ir.TypeInt),
		ast.NewRule("words", []string{"N", "W", "S"},
			ast.Rel("doc", ast.Free("T"), ast.Free("N")),
			ast.IE("rgx_string", ast.Terms(ast.Free("T"), ast.Str(`\w+`)), ast.Terms(ast.Free("W"))),
			ast.IE("rgx", ast.Terms(ast.Free("T"), ast.Str(`\w+`)), ast.Terms(ast.Free("S")))),
		ast.NewRule("uses", []string{"W"}, ast.Rel("words", ast.Free("N"), ast.Free("W"), ast.Free("S"))))
	require.NoError(t, err)

	schema, ok := symbols.Schema("words")
	require.True(t, ok)
	assert.Equal(t, ir.Schema{ir.TypeInt, ir.TypeString, ir.TypeSpan}, schema)

	schema, ok = symbols.Schema("uses")
	require.True(t, ok)
	assert.Equal(t, ir.Schema{ir.TypeString}, schema)
}

func TestIEPatternFromVariable(t *testing.T) {
	a, err := check(t, nil,
		ast.Declare("doc", ir.TypeString),
		ast.Assign("pattern", ast.Str(`(\w+)@(\w+)`)),
		ast.NewRule("emails", []string{"U", "D"},
			ast.Rel("doc", ast.Free("T")),
			ast.IE("rgx_string", ast.Terms(ast.Free("T"), ast.Ref("pattern")), ast.Terms(ast.Free("U"), ast.Free("D")))))
	require.NoError(t, err)

	for ie, sig := range a.IE {
		assert.Equal(t, "rgx_string", ie.Name)
		assert.Equal(t, ir.Schema{ir.TypeString, ir.TypeString}, sig.OutputTypes)
	}
}

func TestQueryFreeVariablesTakeSchemaTypes(t *testing.T) {
	_, err := check(t, nil,
		ast.Declare("parent", ir.TypeString, ir.TypeString),
		ast.Ask("parent", ast.Str("bob"), ast.Free("X")))
	assert.NoError(t, err)

	_, err = check(t, nil,
		ast.Declare("p", ir.TypeString, ir.TypeInt),
		ast.Ask("p", ast.Free("X"), ast.Free("X")))
	assert.True(t, IsKind(err, TypeConflict))
}

func TestBodyConstantMustMatchSchema(t *testing.T) {
	_, err := check(t, nil,
		ast.Declare("parent", ir.TypeString, ir.TypeString),
		ast.NewRule("r", []string{"X"}, ast.Rel("parent", ast.Int(1), ast.Free("X"))))
	assert.True(t, IsKind(err, TermsNotProperlyTypedError))
}
