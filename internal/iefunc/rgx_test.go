package iefunc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ir"
)

func lookup(t *testing.T, name string) *Function {
	t.Helper()
	fn, ok := DefaultRegistry().Lookup(name)
	require.True(t, ok, name)
	return fn
}

func TestRgxWholeMatchSpans(t *testing.T) {
	fn := lookup(t, "rgx")
	out, err := fn.Call(context.Background(), []ir.Value{ir.String("ab ab"), ir.String("ab")})
	require.NoError(t, err)
	assert.Equal(t, []ir.Tuple{
		{ir.Span{Start: 0, Stop: 2}},
		{ir.Span{Start: 3, Stop: 5}},
	}, out)
}

func TestRgxGroupSpans(t *testing.T) {
	fn := lookup(t, "rgx")
	out, err := fn.Call(context.Background(), []ir.Value{ir.String("a=1, b=22"), ir.String(`(\w)=(\d+)`)})
	require.NoError(t, err)
	assert.Equal(t, []ir.Tuple{
		{ir.Span{Start: 0, Stop: 1}, ir.Span{Start: 2, Stop: 3}},
		{ir.Span{Start: 5, Stop: 6}, ir.Span{Start: 7, Stop: 9}},
	}, out)
}

func TestRgxCharacterOffsets(t *testing.T) {
	fn := lookup(t, "rgx")
	out, err := fn.Call(context.Background(), []ir.Value{ir.String("h\u00e9llo w\u00f6rld"), ir.String(`w\w+`)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ir.Span{Start: 6, Stop: 11}, out[0][0])
}

func TestRgxStringGroups(t *testing.T) {
	fn := lookup(t, "rgx_string")
	out, err := fn.Call(context.Background(), []ir.Value{ir.String("John Smith, Jane Doe"), ir.String(`(\w+) (\w+)`)})
	require.NoError(t, err)
	assert.Equal(t, []ir.Tuple{
		{ir.String("John"), ir.String("Smith")},
		{ir.String("Jane"), ir.String("Doe")},
	}, out)
}

func TestRgxSkipsUnmatchedGroups(t *testing.T) {
	fn := lookup(t, "rgx_string")
	out, err := fn.Call(context.Background(), []ir.Value{ir.String("a ab"), ir.String(`a(b)?`)})
	require.NoError(t, err)
	assert.Equal(t, []ir.Tuple{{ir.String("b")}}, out)
}

func TestRgxOutputTypes(t *testing.T) {
	fn := lookup(t, "rgx")

	schema, err := fn.OutputTypes([]ir.Value{nil, ir.String(`(a)(b)(c)`)}, 1)
	require.NoError(t, err)
	assert.Equal(t, ir.Schema{ir.TypeSpan, ir.TypeSpan, ir.TypeSpan}, schema)

	schema, err = fn.OutputTypes([]ir.Value{nil, ir.String(`abc`)}, 2)
	require.NoError(t, err)
	assert.Equal(t, ir.Schema{ir.TypeSpan}, schema)

	// Unknown pattern: trust the call site.
	schema, err = fn.OutputTypes([]ir.Value{nil, nil}, 2)
	require.NoError(t, err)
	assert.Equal(t, ir.Schema{ir.TypeSpan, ir.TypeSpan}, schema)

	_, err = fn.OutputTypes([]ir.Value{nil, ir.String(`(unclosed`)}, 1)
	assert.Error(t, err)
}

func TestRgxHonorsCancellation(t *testing.T) {
	fn := lookup(t, "rgx")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fn.Call(ctx, []ir.Value{ir.String("aaa"), ir.String("a")})
	assert.ErrorIs(t, err, context.Canceled)
}
