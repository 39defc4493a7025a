package factory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/backend/mangle"
	"github.com/roach88/rgxlog/internal/backend/memory"
	"github.com/roach88/rgxlog/internal/backend/transcript"
	"github.com/roach88/rgxlog/internal/config"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/store"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		backend string
		check   func(t *testing.T, b backend.Backend)
	}{
		{config.BackendMemory, func(t *testing.T, b backend.Backend) { assert.IsType(t, &memory.Backend{}, b) }},
		{config.BackendSQLite, func(t *testing.T, b backend.Backend) { assert.IsType(t, &store.Store{}, b) }},
		{config.BackendMangle, func(t *testing.T, b backend.Backend) { assert.IsType(t, &mangle.Backend{}, b) }},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Backend = tt.backend
			b, err := Open(cfg, backend.NewNamer(), nil, nil)
			require.NoError(t, err)
			defer b.Close()
			tt.check(t, b)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "postgres"
	_, err := Open(cfg, backend.NewNamer(), nil, nil)
	assert.ErrorContains(t, err, `unknown backend "postgres"`)
}

func TestOpenWithTranscript(t *testing.T) {
	var buf bytes.Buffer
	b, err := Open(config.Default(), backend.NewNamer(), nil, &buf)
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &transcript.Recorder{}, b)

	decl := ir.RelationDeclaration{Name: "r", Schema: ir.Schema{ir.TypeInt}}
	require.NoError(t, b.DeclareRelation(context.Background(), decl))
	assert.Equal(t, "new r(integer)\n", buf.String())
}
