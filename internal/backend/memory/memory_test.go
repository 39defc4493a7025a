package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/backend/backendtest"
	"github.com/roach88/rgxlog/internal/ir"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T, namer *backend.Namer) backend.Backend {
		return New(namer)
	})
}

func TestRemoveFactKeepsInsertionIndex(t *testing.T) {
	ctx := context.Background()
	b := New(nil)
	require.NoError(t, b.DeclareRelation(ctx, ir.RelationDeclaration{Name: "n", Schema: ir.Schema{ir.TypeInt}}))
	for i := 1; i <= 4; i++ {
		require.NoError(t, b.AddFact(ctx, backendtest.Fact("n", ir.Int(i))))
	}
	require.NoError(t, b.RemoveFact(ctx, backendtest.Fact("n", ir.Int(2))))
	require.NoError(t, b.RemoveFact(ctx, backendtest.Fact("n", ir.Int(4))))

	tbl := b.tables["n"]
	assert.Equal(t, []ir.Tuple{{ir.Int(1)}, {ir.Int(3)}}, tbl.rows)
	assert.Equal(t, 1, tbl.index[ir.CanonicalKey(ir.Tuple{ir.Int(3)})])
}

func TestAddFactRejectsSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	b := New(nil)
	require.NoError(t, b.DeclareRelation(ctx, ir.RelationDeclaration{Name: "n", Schema: ir.Schema{ir.TypeInt}}))
	err := b.AddFact(ctx, backendtest.Fact("n", ir.String("1")))
	assert.ErrorContains(t, err, "does not match schema")
}

func TestRecursiveRuleIsRejectedAtQuery(t *testing.T) {
	ctx := context.Background()
	b := New(nil)
	require.NoError(t, b.DeclareRelation(ctx, ir.RelationDeclaration{Name: "edge", Schema: ir.Schema{ir.TypeString, ir.TypeString}}))
	path := backendtest.Rel("path", nil, backendtest.Vars("X", "Y")...)
	require.NoError(t, b.AddRule(ctx, path, []ir.Relation{backendtest.Rel("edge", nil, backendtest.Vars("X", "Y")...)}))
	require.NoError(t, b.AddRule(ctx, path, []ir.Relation{
		backendtest.Rel("edge", nil, backendtest.Vars("X", "Z")...),
		backendtest.Rel("path", nil, backendtest.Vars("Z", "Y")...),
	}))

	_, err := b.Query(ctx, path)
	assert.ErrorContains(t, err, "recursive definition of path")
}

func TestQueryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := New(nil)
	require.NoError(t, b.DeclareRelation(ctx, ir.RelationDeclaration{Name: "n", Schema: ir.Schema{ir.TypeInt}}))
	cancel()

	_, err := b.Query(ctx, backendtest.Rel("n", map[string]ir.Type{"X": ir.TypeInt}, ir.Var("X")))
	assert.ErrorIs(t, err, context.Canceled)
}
