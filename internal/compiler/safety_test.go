package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
)

func TestRuleSafetyReordersIEAfterBinder(t *testing.T) {
	// cousin(X, Y) <- rgx_string(X, "(\w)(\w)") -> (Y, Z), parent("s", X)
	rule := ast.NewRule("cousin", []string{"X", "Y", "Z"},
		ast.IE("rgx_string", ast.Terms(ast.Free("X"), ast.Str(`(\w)(\w)`)), ast.Terms(ast.Free("Y"), ast.Free("Z"))),
		ast.Rel("parent", ast.Str("s"), ast.Free("X")),
	)
	a, err := check(t, nil, ast.Declare("parent", ir.TypeString, ir.TypeString), rule)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, a.Orders[rule])
	require.Len(t, rule.Body, 2)
	assert.Equal(t, "parent", ast.BodyName(rule.Body[0]))
	assert.Equal(t, "rgx_string", ast.BodyName(rule.Body[1]))
}

func TestRuleNotSafeUnboundIEInput(t *testing.T) {
	// bad(Y) <- rgx(Z, "a") -> (Y)
	rule := ast.NewRule("bad", []string{"Y"},
		ast.IE("rgx", ast.Terms(ast.Free("Z"), ast.Str("a")), ast.Terms(ast.Free("Y"))))
	_, err := check(t, nil, rule)
	require.Error(t, err)

	var se *SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, RuleNotSafe, se.Kind)
	assert.Equal(t, []string{"Z"}, se.Vars)
}

func TestRuleNotSafeHeadVariable(t *testing.T) {
	// parent(X, Y) <- son(X)
	_, err := check(t, nil,
		ast.Declare("son", ir.TypeString),
		ast.NewRule("p", []string{"X", "Y", "W"}, ast.Rel("son", ast.Free("X"))))

	var se *SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, RuleNotSafe, se.Kind)
	assert.Equal(t, []string{"W", "Y"}, se.Vars)
}

func TestRuleNotSafeReportsAllUnbound(t *testing.T) {
	rule := ast.NewRule("bad", []string{"A", "B"},
		ast.IE("rgx", ast.Terms(ast.Free("P"), ast.Free("Q")), ast.Terms(ast.Free("A"))),
		ast.IE("rgx", ast.Terms(ast.Free("R"), ast.Str("x")), ast.Terms(ast.Free("B"))),
	)
	_, err := check(t, nil, rule)

	var se *SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"P", "Q", "R"}, se.Vars)
}

func TestResolutionOrderChain(t *testing.T) {
	// Inputs form a chain D <- C <- B <- A, written backwards.
	ie := func(in, out string) ast.BodyRelation {
		return ast.IE("f", ast.Terms(ast.Free(in)), ast.Terms(ast.Free(out)))
	}
	body := []ast.BodyRelation{
		ie("C", "D"),
		ie("B", "C"),
		ie("A", "B"),
		ast.Rel("base", ast.Free("A")),
	}
	order, unbound := ResolutionOrder(body)
	assert.Equal(t, []int{3, 2, 1, 0}, order)
	assert.Empty(t, unbound)
}

// Every resolved order must bind each relation's inputs with the outputs
// of the relations placed before it, and never take more sweeps than
// relations.
func TestResolutionOrderProperty(t *testing.T) {
	vars := []string{"A", "B", "C", "D", "E"}
	for seed := 0; seed < 64; seed++ {
		var body []ast.BodyRelation
		body = append(body, ast.Rel("base", ast.Free(vars[seed%len(vars)])))
		for i := 0; i < 5; i++ {
			in := vars[(seed+i*3)%len(vars)]
			out := vars[(seed*7+i)%len(vars)]
			body = append(body, ast.IE("f", ast.Terms(ast.Free(in)), ast.Terms(ast.Free(out))))
		}

		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			order, unbound := ResolutionOrder(body)
			assert.LessOrEqual(t, len(order), len(body))

			bound := make(map[string]bool)
			for _, idx := range order {
				for _, v := range ast.InputFreeVars(body[idx]) {
					assert.True(t, bound[v], "input %s of relation %d used before bound", v, idx)
				}
				for _, v := range ast.OutputFreeVars(body[idx]) {
					bound[v] = true
				}
			}
			if len(order) < len(body) {
				assert.NotEmpty(t, unbound)
				for _, v := range unbound {
					assert.False(t, bound[v])
				}
			} else {
				assert.Empty(t, unbound)
			}
		})
	}
}
