// Package backendtest holds the conformance suite every backend.Backend
// implementation runs in its own tests.
package backendtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
)

// Factory creates a fresh, empty backend sharing namer.
type Factory func(t *testing.T, namer *backend.Namer) backend.Backend

// Run executes the conformance suite against backends built by newBackend.
func Run(t *testing.T, newBackend Factory) {
	cases := []struct {
		name string
		run  func(t *testing.T, b backend.Backend, namer *backend.Namer)
	}{
		{"DeclareAddQuery", testDeclareAddQuery},
		{"QueryFiltersConstantsAndRepeats", testQueryFilters},
		{"RemoveFact", testRemoveFact},
		{"TypedValues", testTypedValues},
		{"RuleJoin", testRuleJoin},
		{"RuleUnion", testRuleUnion},
		{"DerivedReflectsLaterFacts", testDerivedReflectsLaterFacts},
		{"ComputeRuleBodyRelation", testComputeRuleBodyRelation},
		{"IEWithBounding", testIEWithBounding},
		{"IEWithoutInputs", testIEWithoutInputs},
		{"IEOutputConstantFilters", testIEOutputConstant},
		{"IEZeroArityResult", testIEZeroArity},
		{"Errors", testErrors},
		{"RemoveTempResult", testRemoveTempResult},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			namer := backend.NewNamer()
			b := newBackend(t, namer)
			t.Cleanup(func() { _ = b.Close() })
			tc.run(t, b, namer)
		})
	}
}

// Rel builds a relation, inferring constant types from values and giving
// free variables the types listed in varTypes (string by default).
func Rel(name string, varTypes map[string]ir.Type, terms ...ir.Term) ir.Relation {
	types := make(ir.Schema, len(terms))
	for i, term := range terms {
		switch {
		case !term.IsFreeVar():
			types[i] = term.Value.Type()
		case varTypes[term.FreeVar] != ir.TypeFreeVar:
			types[i] = varTypes[term.FreeVar]
		default:
			types[i] = ir.TypeString
		}
	}
	return ir.Relation{Name: name, Terms: terms, Types: types}
}

// Fact builds a ground relation from values.
func Fact(name string, values ...ir.Value) ir.Relation {
	terms := make([]ir.Term, len(values))
	for i, v := range values {
		terms[i] = ir.Const(v)
	}
	return Rel(name, nil, terms...)
}

// Vars builds free-variable terms.
func Vars(names ...string) []ir.Term {
	terms := make([]ir.Term, len(names))
	for i, n := range names {
		terms[i] = ir.Var(n)
	}
	return terms
}

// Strings builds a tuple of string values.
func Strings(values ...string) ir.Tuple {
	tuple := make(ir.Tuple, len(values))
	for i, v := range values {
		tuple[i] = ir.String(v)
	}
	return tuple
}

func declare(t *testing.T, b backend.Backend, name string, schema ...ir.Type) {
	t.Helper()
	require.NoError(t, b.DeclareRelation(context.Background(), ir.RelationDeclaration{Name: name, Schema: schema}))
}

func addFacts(t *testing.T, b backend.Backend, facts ...ir.Relation) {
	t.Helper()
	for _, f := range facts {
		require.NoError(t, b.AddFact(context.Background(), f), f.String())
	}
}

func query(t *testing.T, b backend.Backend, q ir.Relation) []ir.Tuple {
	t.Helper()
	rows, err := b.Query(context.Background(), q)
	require.NoError(t, err, q.String())
	return rows
}

func seedParents(t *testing.T, b backend.Backend) {
	t.Helper()
	declare(t, b, "parent", ir.TypeString, ir.TypeString)
	addFacts(t, b,
		Fact("parent", ir.String("bob"), ir.String("greg")),
		Fact("parent", ir.String("greg"), ir.String("alice")),
		Fact("parent", ir.String("ann"), ir.String("bob")),
		Fact("parent", ir.String("bob"), ir.String("greg")),
	)
}

func testDeclareAddQuery(t *testing.T, b backend.Backend, _ *backend.Namer) {
	seedParents(t, b)
	rows := query(t, b, Rel("parent", nil, Vars("X", "Y")...))
	assert.Equal(t, []ir.Tuple{
		Strings("ann", "bob"),
		Strings("bob", "greg"),
		Strings("greg", "alice"),
	}, rows)
}

func testQueryFilters(t *testing.T, b backend.Backend, _ *backend.Namer) {
	seedParents(t, b)
	addFacts(t, b, Fact("parent", ir.String("eve"), ir.String("eve")))

	rows := query(t, b, Rel("parent", nil, ir.Const(ir.String("bob")), ir.Var("X")))
	assert.Equal(t, []ir.Tuple{Strings("bob", "greg")}, rows)

	rows = query(t, b, Rel("parent", nil, ir.Var("X"), ir.Var("X")))
	assert.Equal(t, []ir.Tuple{Strings("eve", "eve")}, rows)

	rows = query(t, b, Rel("parent", nil, ir.Const(ir.String("nobody")), ir.Var("X")))
	assert.Empty(t, rows)
}

func testRemoveFact(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	seedParents(t, b)
	require.NoError(t, b.RemoveFact(ctx, Fact("parent", ir.String("bob"), ir.String("greg"))))
	require.NoError(t, b.RemoveFact(ctx, Fact("parent", ir.String("not"), ir.String("there"))))

	rows := query(t, b, Rel("parent", nil, Vars("X", "Y")...))
	assert.Equal(t, []ir.Tuple{Strings("ann", "bob"), Strings("greg", "alice")}, rows)
}

func testTypedValues(t *testing.T, b backend.Backend, _ *backend.Namer) {
	declare(t, b, "mention", ir.TypeString, ir.TypeSpan, ir.TypeInt)
	addFacts(t, b,
		Fact("mention", ir.String("x"), ir.Span{Start: 10, Stop: 12}, ir.Int(-3)),
		Fact("mention", ir.String("x"), ir.Span{Start: 2, Stop: 4}, ir.Int(40)),
	)
	types := map[string]ir.Type{"S": ir.TypeSpan, "N": ir.TypeInt}
	rows := query(t, b, Rel("mention", types, ir.Const(ir.String("x")), ir.Var("S"), ir.Var("N")))
	assert.Equal(t, []ir.Tuple{
		{ir.String("x"), ir.Span{Start: 2, Stop: 4}, ir.Int(40)},
		{ir.String("x"), ir.Span{Start: 10, Stop: 12}, ir.Int(-3)},
	}, rows)

	rows = query(t, b, Rel("mention", types, ir.Var("T"), ir.Const(ir.Span{Start: 10, Stop: 12}), ir.Var("N")))
	assert.Len(t, rows, 1)
}

func testRuleJoin(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	seedParents(t, b)
	head := Rel("grandparent", nil, Vars("X", "Z")...)
	body := []ir.Relation{
		Rel("parent", nil, Vars("X", "Y")...),
		Rel("parent", nil, Vars("Y", "Z")...),
	}
	require.NoError(t, b.AddRule(ctx, head, body))

	rows := query(t, b, Rel("grandparent", nil, Vars("A", "B")...))
	assert.Equal(t, []ir.Tuple{Strings("ann", "greg"), Strings("bob", "alice")}, rows)

	rows = query(t, b, Rel("grandparent", nil, ir.Var("A"), ir.Const(ir.String("alice"))))
	assert.Equal(t, []ir.Tuple{Strings("bob", "alice")}, rows)
}

func testRuleUnion(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	seedParents(t, b)
	require.NoError(t, b.AddRule(ctx, Rel("person", nil, ir.Var("X")), []ir.Relation{Rel("parent", nil, Vars("X", "Y")...)}))
	require.NoError(t, b.AddRule(ctx, Rel("person", nil, ir.Var("Y")), []ir.Relation{Rel("parent", nil, Vars("X", "Y")...)}))

	rows := query(t, b, Rel("person", nil, ir.Var("P")))
	assert.Equal(t, []ir.Tuple{Strings("alice"), Strings("ann"), Strings("bob"), Strings("greg")}, rows)
}

func testDerivedReflectsLaterFacts(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	seedParents(t, b)
	require.NoError(t, b.AddRule(ctx, Rel("child", nil, ir.Var("Y")), []ir.Relation{
		Rel("parent", nil, ir.Const(ir.String("bob")), ir.Var("Y")),
	}))
	assert.Equal(t, []ir.Tuple{Strings("greg")}, query(t, b, Rel("child", nil, ir.Var("C"))))

	addFacts(t, b, Fact("parent", ir.String("bob"), ir.String("carl")))
	assert.Equal(t, []ir.Tuple{Strings("carl"), Strings("greg")}, query(t, b, Rel("child", nil, ir.Var("C"))))
}

func testComputeRuleBodyRelation(t *testing.T, b backend.Backend, _ *backend.Namer) {
	seedParents(t, b)
	temp, err := b.ComputeRuleBodyRelation(context.Background(), Rel("parent", nil, ir.Const(ir.String("bob")), ir.Var("Y")))
	require.NoError(t, err)

	assert.True(t, ir.IsReserved(temp.Name))
	assert.Equal(t, []string{"Y"}, temp.FreeVars())
	assert.Equal(t, ir.Schema{ir.TypeString}, temp.Types)
	assert.Equal(t, []ir.Tuple{Strings("greg")}, query(t, b, temp))
}

func lookup(t *testing.T, name string) *iefunc.Function {
	t.Helper()
	fn, ok := iefunc.DefaultRegistry().Lookup(name)
	require.True(t, ok)
	return fn
}

func testIEWithBounding(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	declare(t, b, "doc", ir.TypeString)
	addFacts(t, b,
		Fact("doc", ir.String("ann@acme bob@corp")),
		Fact("doc", ir.String("no mail here")),
	)
	bounding, err := b.ComputeRuleBodyRelation(ctx, Rel("doc", nil, ir.Var("T")))
	require.NoError(t, err)

	ie := ir.IERelation{
		Name:        "rgx_string",
		InputTerms:  []ir.Term{ir.Var("T"), ir.Const(ir.String(`(\w+)@(\w+)`))},
		InputTypes:  ir.Schema{ir.TypeString, ir.TypeString},
		OutputTerms: Vars("U", "D"),
		OutputTypes: ir.Schema{ir.TypeString, ir.TypeString},
	}
	result, err := b.ComputeRuleBodyIERelation(ctx, ie, lookup(t, "rgx_string"), &bounding)
	require.NoError(t, err)
	assert.Equal(t, []string{"T", "U", "D"}, result.FreeVars())

	rows := query(t, b, Rel(result.Name, nil, Vars("T", "U", "D")...))
	assert.Equal(t, []ir.Tuple{
		Strings("ann@acme bob@corp", "ann", "acme"),
		Strings("ann@acme bob@corp", "bob", "corp"),
	}, rows)
}

func testIEWithoutInputs(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ie := ir.IERelation{
		Name:        "rgx",
		InputTerms:  []ir.Term{ir.Const(ir.String("a1b22")), ir.Const(ir.String(`\d+`))},
		InputTypes:  ir.Schema{ir.TypeString, ir.TypeString},
		OutputTerms: Vars("S"),
		OutputTypes: ir.Schema{ir.TypeSpan},
	}
	result, err := b.ComputeRuleBodyIERelation(context.Background(), ie, lookup(t, "rgx"), nil)
	require.NoError(t, err)

	rows := query(t, b, Rel(result.Name, map[string]ir.Type{"S": ir.TypeSpan}, ir.Var("S")))
	assert.Equal(t, []ir.Tuple{
		{ir.Span{Start: 1, Stop: 2}},
		{ir.Span{Start: 3, Stop: 5}},
	}, rows)
}

func testIEOutputConstant(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ie := ir.IERelation{
		Name:        "rgx_string",
		InputTerms:  []ir.Term{ir.Const(ir.String("ab cb ad")), ir.Const(ir.String(`(\w)(\w)`))},
		InputTypes:  ir.Schema{ir.TypeString, ir.TypeString},
		OutputTerms: []ir.Term{ir.Var("A"), ir.Const(ir.String("b"))},
		OutputTypes: ir.Schema{ir.TypeString, ir.TypeString},
	}
	result, err := b.ComputeRuleBodyIERelation(context.Background(), ie, lookup(t, "rgx_string"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, result.FreeVars())

	rows := query(t, b, Rel(result.Name, nil, ir.Var("A")))
	assert.Equal(t, []ir.Tuple{Strings("a"), Strings("c")}, rows)
}

func testIEZeroArity(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	call := func(text string) []ir.Tuple {
		ie := ir.IERelation{
			Name:        "rgx_string",
			InputTerms:  []ir.Term{ir.Const(ir.String(text)), ir.Const(ir.String("a+"))},
			InputTypes:  ir.Schema{ir.TypeString, ir.TypeString},
			OutputTerms: []ir.Term{ir.Const(ir.String("aa"))},
			OutputTypes: ir.Schema{ir.TypeString},
		}
		result, err := b.ComputeRuleBodyIERelation(ctx, ie, lookup(t, "rgx_string"), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Arity())
		return query(t, b, result)
	}
	assert.Equal(t, []ir.Tuple{{}}, call("xaay"))
	assert.Empty(t, call("xay"))
}

func testErrors(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	seedParents(t, b)

	err := b.DeclareRelation(ctx, ir.RelationDeclaration{Name: "parent", Schema: ir.Schema{ir.TypeString}})
	assert.ErrorIs(t, err, backend.ErrRelationExists)

	_, err = b.Query(ctx, Rel("missing", nil, ir.Var("X")))
	assert.ErrorIs(t, err, backend.ErrUnknownRelation)

	err = b.AddFact(ctx, Fact("missing", ir.String("x")))
	assert.ErrorIs(t, err, backend.ErrUnknownRelation)

	err = b.AddFact(ctx, Rel("parent", nil, ir.Var("X"), ir.Const(ir.String("y"))))
	assert.ErrorIs(t, err, backend.ErrNotGround)

	err = b.AddRule(ctx, Rel("h", nil, ir.Var("X")), []ir.Relation{Rel("missing", nil, ir.Var("X"))})
	assert.ErrorIs(t, err, backend.ErrUnknownRelation)
}

func testRemoveTempResult(t *testing.T, b backend.Backend, _ *backend.Namer) {
	ctx := context.Background()
	seedParents(t, b)
	temp, err := b.ComputeRuleBodyRelation(ctx, Rel("parent", nil, Vars("X", "Y")...))
	require.NoError(t, err)

	require.NoError(t, b.RemoveTempResult(ctx, temp))
	_, err = b.Query(ctx, temp)
	assert.ErrorIs(t, err, backend.ErrUnknownRelation)

	assert.Error(t, b.RemoveTempResult(ctx, Rel("parent", nil, Vars("X", "Y")...)))
}
