package testutil

import (
	"io/fs"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ast"
)

func TestFixedSessionGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedSessionGenerator("test-session-123")

	assert.Equal(t, "test-session-123", gen.Generate())
	assert.Equal(t, "test-session-123", gen.Generate())
}

func TestFixedSessionGenerator_EmptyIDDefault(t *testing.T) {
	gen := NewFixedSessionGenerator("")
	assert.Equal(t, "test-session-default", gen.Generate())
}

func TestFixedSessionGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedSessionGenerator("thread-safe")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestFixtures(t *testing.T) {
	for name, prog := range map[string]*ast.Program{
		"parent": ParentProgram(),
		"cousin": CousinProgram(),
		"unsafe": UnsafeProgram(),
	} {
		assert.NotEmpty(t, prog.Statements, name)
	}

	rule, ok := CousinProgram().Statements[2].(*ast.Rule)
	require.True(t, ok)
	_, ok = rule.Body[0].(*ast.IERelation)
	assert.True(t, ok, "the IE relation is written first")
}

func TestReadFiles(t *testing.T) {
	read := ReadFiles(map[string]string{"a.txt": "hello"})

	b, err := read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = read("missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
