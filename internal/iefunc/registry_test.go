package iefunc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ir"
)

func echo() *Function {
	return &Function{
		Name:        "echo",
		InputTypes:  ir.Schema{ir.TypeInt},
		OutputTypes: FixedOutput(ir.TypeInt),
		Call: func(_ context.Context, args []ir.Value) ([]ir.Tuple, error) {
			return []ir.Tuple{{args[0]}}, nil
		},
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echo()))

	fn, ok := r.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, ir.Schema{ir.TypeInt}, fn.InputTypes)

	assert.Error(t, r.Register(echo()), "duplicate name")

	reserved := echo()
	reserved.Name = ir.TempPrefix + "echo"
	assert.Error(t, r.Register(reserved))

	incomplete := echo()
	incomplete.Name = "nocall"
	incomplete.Call = nil
	assert.Error(t, r.Register(incomplete))
}

func TestDefaultRegistryNames(t *testing.T) {
	assert.Equal(t, []string{"rgx", "rgx_string"}, DefaultRegistry().Names())
}

func TestCheckOutput(t *testing.T) {
	schema := ir.Schema{ir.TypeString, ir.TypeInt}
	assert.NoError(t, CheckOutput("f", ir.Tuple{ir.String("a"), ir.Int(1)}, schema))
	assert.Error(t, CheckOutput("f", ir.Tuple{ir.String("a")}, schema))
	assert.Error(t, CheckOutput("f", ir.Tuple{ir.Int(1), ir.Int(1)}, schema))
	assert.Error(t, CheckOutput("f", ir.Tuple{nil, ir.Int(1)}, schema))
}
