package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
)

func quoteAll(name string) (string, error) {
	return Quote(name), nil
}

func strRel(name string, terms ...ir.Term) ir.Relation {
	types := make(ir.Schema, len(terms))
	for i, t := range terms {
		types[i] = ir.TypeString
		if !t.IsFreeVar() {
			types[i] = t.Value.Type()
		}
	}
	return ir.Relation{Name: name, Terms: terms, Types: types}
}

func TestCompile_SelectReadsFullRowsInOrder(t *testing.T) {
	c := NewSQLCompiler(quoteAll)
	q := queryir.FromRelation(strRel("parent", ir.Const(ir.String("bob")), ir.Var("X")))

	sql, params, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT t0.c0, t0.c1 FROM "parent" AS t0 WHERE t0.c0 = ? ORDER BY t0.c0 COLLATE BINARY, t0.c1 COLLATE BINARY`,
		sql)
	assert.Equal(t, []any{"bob"}, params)
}

func TestCompile_SelectRepeatedVariable(t *testing.T) {
	c := NewSQLCompiler(quoteAll)
	q := queryir.FromRelation(strRel("same", ir.Var("X"), ir.Var("X")))

	sql, params, err := c.Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE t0.c0 = t0.c1")
	assert.Empty(t, params)
}

func TestCompile_RuleJoinsOnSharedVariables(t *testing.T) {
	c := NewSQLCompiler(quoteAll)
	proj, err := queryir.FromRule(
		strRel("grandparent", ir.Var("X"), ir.Var("Z")),
		[]ir.Relation{
			strRel("parent", ir.Var("X"), ir.Var("Y")),
			strRel("parent", ir.Var("Y"), ir.Var("Z")),
		})
	require.NoError(t, err)

	sql, params, err := c.Compile(proj)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT DISTINCT t0.c0 AS c0, t1.c1 AS c1 FROM "parent" AS t0, "parent" AS t1 WHERE t0.c1 = t1.c0`,
		sql)
	assert.Empty(t, params)
}

func TestCompile_ParamsFollowTextOrder(t *testing.T) {
	c := NewSQLCompiler(quoteAll)
	proj := &queryir.Project{
		Input: &queryir.Join{
			Left:  queryir.FromRelation(strRel("a", ir.Var("X"), ir.Const(ir.Int(1)))),
			Right: queryir.FromRelation(strRel("b", ir.Var("X"), ir.Const(ir.Span{Start: 0, Stop: 3}))),
		},
		Head: []ir.Term{ir.Var("X"), ir.Const(ir.String("k"))},
	}

	sql, params, err := c.Compile(proj)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT DISTINCT t0.c0 AS c0, ? AS c1 FROM "a" AS t0, "b" AS t1 WHERE t0.c1 = ? AND t1.c1 = ? AND t0.c0 = t1.c0`,
		sql)
	assert.Equal(t, []any{"k", int64(1), "[0, 3)"}, params)
}

func TestCompile_ZeroArityHead(t *testing.T) {
	c := NewSQLCompiler(quoteAll)
	proj, err := queryir.FromRule(strRel("any"), []ir.Relation{strRel("r", ir.Var("X"))})
	require.NoError(t, err)

	sql, _, err := c.Compile(proj)
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT 0 AS c0 FROM "r" AS t0`, sql)
}

func TestCompile_ResolverErrorPropagates(t *testing.T) {
	c := NewSQLCompiler(func(name string) (string, error) {
		return "", assert.AnError
	})
	_, _, err := c.Compile(queryir.FromRelation(strRel("r", ir.Var("X"))))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestParam_NormalizesStrings(t *testing.T) {
	p, err := Param(ir.String("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", p)

	_, err = Param(nil)
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
}
