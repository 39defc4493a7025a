package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/backend/backendtest"
	"github.com/roach88/rgxlog/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T, namer *backend.Namer) backend.Backend {
		s, err := Open(":memory:", WithNamer(namer))
		require.NoError(t, err)
		return s
	})
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_DropsPreviousSession(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.DeclareRelation(ctx, ir.RelationDeclaration{Name: "r", Schema: ir.Schema{ir.TypeString}}))
	require.NoError(t, s1.AddFact(ctx, backendtest.Fact("r", ir.String("x"))))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var tables int
	require.NoError(t, s2.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'rel_r'`).Scan(&tables))
	assert.Zero(t, tables)
	assert.NoError(t, s2.DeclareRelation(ctx, ir.RelationDeclaration{Name: "r", Schema: ir.Schema{ir.TypeString}}))
}

func TestDeclareRelation_RecordsCatalog(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.DeclareRelation(ctx, ir.RelationDeclaration{Name: "m", Schema: ir.Schema{ir.TypeString, ir.TypeSpan, ir.TypeInt}}))

	var schema string
	var temp bool
	require.NoError(t, s.DB().QueryRow(`SELECT schema, temp FROM rgxlog_relations WHERE name = ?`, "m").Scan(&schema, &temp))
	assert.Equal(t, "(string, span, integer)", schema)
	assert.False(t, temp)
}

func TestAddFact_StoresSpanLiteral(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.DeclareRelation(ctx, ir.RelationDeclaration{Name: "m", Schema: ir.Schema{ir.TypeSpan}}))
	require.NoError(t, s.AddFact(ctx, backendtest.Fact("m", ir.Span{Start: 3, Stop: 14})))

	var raw string
	require.NoError(t, s.DB().QueryRow(`SELECT c0 FROM rel_m`).Scan(&raw))
	assert.Equal(t, "[3, 14)", raw)
}

func TestQuery_OrdersSpansNumerically(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.DeclareRelation(ctx, ir.RelationDeclaration{Name: "m", Schema: ir.Schema{ir.TypeSpan}}))
	for _, sp := range []ir.Span{{Start: 10, Stop: 11}, {Start: 9, Stop: 12}, {Start: 100, Stop: 101}} {
		require.NoError(t, s.AddFact(ctx, backendtest.Fact("m", sp)))
	}

	rows, err := s.Query(ctx, backendtest.Rel("m", map[string]ir.Type{"S": ir.TypeSpan}, ir.Var("S")))
	require.NoError(t, err)
	assert.Equal(t, []ir.Tuple{
		{ir.Span{Start: 9, Stop: 12}},
		{ir.Span{Start: 10, Stop: 11}},
		{ir.Span{Start: 100, Stop: 101}},
	}, rows)
}

func TestCompileQuery_UsesCTEsInDependencyOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.DeclareRelation(ctx, ir.RelationDeclaration{Name: "e", Schema: ir.Schema{ir.TypeString, ir.TypeString}}))
	require.NoError(t, s.AddRule(ctx, backendtest.Rel("a", nil, backendtest.Vars("X", "Y")...),
		[]ir.Relation{backendtest.Rel("e", nil, backendtest.Vars("X", "Y")...)}))
	require.NoError(t, s.AddRule(ctx, backendtest.Rel("b", nil, ir.Var("X")),
		[]ir.Relation{backendtest.Rel("a", nil, ir.Var("X"), ir.Const(ir.String("k")))}))

	sql, params, err := s.compileQuery(backendtest.Rel("b", nil, ir.Var("Z")))
	require.NoError(t, err)
	assert.Equal(t,
		`WITH "derived_a" AS (SELECT DISTINCT t0.c0 AS c0, t0.c1 AS c1 FROM "rel_e" AS t0), `+
			`"derived_b" AS (SELECT DISTINCT t0.c0 AS c0 FROM "derived_a" AS t0 WHERE t0.c1 = ?) `+
			`SELECT t0.c0 FROM "derived_b" AS t0 ORDER BY t0.c0 COLLATE BINARY`,
		sql)
	assert.Equal(t, []any{"k"}, params)
}

func TestQuery_RejectsRecursion(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.DeclareRelation(ctx, ir.RelationDeclaration{Name: "e", Schema: ir.Schema{ir.TypeString}}))
	require.NoError(t, s.AddRule(ctx, backendtest.Rel("p", nil, ir.Var("X")), []ir.Relation{backendtest.Rel("e", nil, ir.Var("X"))}))
	require.NoError(t, s.AddRule(ctx, backendtest.Rel("p", nil, ir.Var("X")), []ir.Relation{backendtest.Rel("p", nil, ir.Var("X"))}))

	_, err := s.Query(ctx, backendtest.Rel("p", nil, ir.Var("X")))
	assert.ErrorContains(t, err, "recursive definition of p")
}
