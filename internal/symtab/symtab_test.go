package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ir"
)

func TestVariables(t *testing.T) {
	tab := New(nil)
	tab.SetVariable("x", ir.String("a"))
	tab.SetVariable("x", ir.Int(3))
	tab.SetVariable("a", ir.Span{Start: 0, Stop: 1})

	v, ok := tab.Variable("x")
	require.True(t, ok)
	assert.Equal(t, ir.TypeInt, v.Type)
	assert.Equal(t, ir.Int(3), v.Value)
	assert.Equal(t, []string{"a", "x"}, tab.VariableNames())
	assert.False(t, tab.HasVariable("y"))
}

func TestSchemaSetOnce(t *testing.T) {
	tab := New(nil)
	require.NoError(t, tab.SetSchema("parent", ir.Schema{ir.TypeString, ir.TypeString}))

	err := tab.SetSchema("parent", ir.Schema{ir.TypeInt})
	assert.ErrorIs(t, err, ErrRelationExists)

	s, ok := tab.Schema("parent")
	require.True(t, ok)
	assert.Equal(t, ir.Schema{ir.TypeString, ir.TypeString}, s)
}

func TestSnapshotRestore(t *testing.T) {
	tab := New(nil)
	tab.SetVariable("x", ir.Int(1))
	require.NoError(t, tab.SetSchema("a", ir.Schema{ir.TypeInt}))

	snap := tab.Snapshot()
	tab.SetVariable("x", ir.Int(2))
	tab.SetVariable("y", ir.Int(3))
	require.NoError(t, tab.SetSchema("b", ir.Schema{ir.TypeInt}))

	tab.Restore(snap)
	v, _ := tab.Variable("x")
	assert.Equal(t, ir.Int(1), v.Value)
	assert.False(t, tab.HasVariable("y"))
	assert.Equal(t, []string{"a"}, tab.Relations())
}

func TestDefaultRegistry(t *testing.T) {
	_, ok := New(nil).Registry().Lookup("rgx")
	assert.True(t, ok)
}
