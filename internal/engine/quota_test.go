package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
)

func TestQuotaEnforcer_Check(t *testing.T) {
	q := NewQuotaEnforcer(3)

	require.NoError(t, q.Check("rgx", 2))
	require.NoError(t, q.Check("rgx", 1))
	assert.Equal(t, 3, q.Current())

	err := q.Check("rgx", 1)
	require.Error(t, err)
	assert.True(t, IsTuplesExceededError(err))
	assert.Equal(t, "ie function rgx exceeded max tuples quota: 4 tuples > 3 limit", err.Error())
}

func TestQuotaEnforcer_ZeroIsUnlimited(t *testing.T) {
	q := NewQuotaEnforcer(0)
	require.NoError(t, q.Check("rgx", 1_000_000))
	assert.Equal(t, 0, q.MaxTuples())
}

func constFunction(out ...ir.Tuple) *iefunc.Function {
	return &iefunc.Function{
		Name:        "f",
		InputTypes:  ir.Schema{ir.TypeString},
		OutputTypes: iefunc.FixedOutput(ir.TypeInt),
		Call: func(context.Context, []ir.Value) ([]ir.Tuple, error) {
			return out, nil
		},
	}
}

func TestWrap_ChecksOutputTypes(t *testing.T) {
	q := NewQuotaEnforcer(10)
	fn := q.Wrap(constFunction(ir.Tuple{ir.String("x")}), ir.Schema{ir.TypeInt})

	_, err := fn.Call(context.Background(), []ir.Value{ir.String("in")})
	require.Error(t, err)
	assert.Equal(t, ErrCodeIEOutputMismatch, CodeOf(err))
	assert.Contains(t, err.Error(), "ie function f returned string at position 0, want integer")
}

func TestWrap_CountsTuples(t *testing.T) {
	q := NewQuotaEnforcer(3)
	fn := q.Wrap(constFunction(ir.Tuple{ir.Int(1)}, ir.Tuple{ir.Int(2)}), ir.Schema{ir.TypeInt})

	out, err := fn.Call(context.Background(), []ir.Value{ir.String("in")})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = fn.Call(context.Background(), []ir.Value{ir.String("in")})
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "4", re.Details["tuples"])
	assert.Equal(t, "3", re.Details["max_ie_tuples"])
}

func TestWrap_ClassifiesFailures(t *testing.T) {
	q := NewQuotaEnforcer(0)
	boom := errors.New("boom")
	fn := q.Wrap(&iefunc.Function{
		Name: "f",
		Call: func(context.Context, []ir.Value) ([]ir.Tuple, error) { return nil, boom },
	}, nil)

	_, err := fn.Call(context.Background(), []ir.Value{ir.Int(7)})
	assert.Equal(t, ErrCodeIEFailure, CodeOf(err))
	assert.ErrorIs(t, err, boom)
}
