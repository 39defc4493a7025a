package iefunc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/roach88/rgxlog/internal/ir"
)

// MatchTimeout bounds a single regex evaluation.
const MatchTimeout = 5 * time.Second

// Builtins returns the builtin IE functions: rgx and rgx_string.
//
// Both take (text, pattern). A pattern without capture groups yields one
// column holding the whole match; otherwise there is one column per group.
// rgx emits spans in character offsets, rgx_string emits the matched text.
// Matches where some group did not participate are skipped.
func Builtins() []*Function {
	cache := &patternCache{compiled: make(map[string]*regexp2.Regexp)}
	return []*Function{
		{
			Name:        "rgx",
			InputTypes:  ir.Schema{ir.TypeString, ir.TypeString},
			OutputTypes: cache.outputTypes(ir.TypeSpan),
			Call:        cache.call(spanOf),
		},
		{
			Name:        "rgx_string",
			InputTypes:  ir.Schema{ir.TypeString, ir.TypeString},
			OutputTypes: cache.outputTypes(ir.TypeString),
			Call:        cache.call(textOf),
		},
	}
}

type patternCache struct {
	mu       sync.Mutex
	compiled map[string]*regexp2.Regexp
}

func (c *patternCache) get(pattern string) (*regexp2.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = MatchTimeout
	c.compiled[pattern] = re
	return re, nil
}

// width is the number of output columns a pattern produces.
func width(re *regexp2.Regexp) int {
	groups := len(re.GetGroupNumbers()) - 1
	if groups == 0 {
		return 1
	}
	return groups
}

func (c *patternCache) outputTypes(t ir.Type) OutputTypesFunc {
	return func(args []ir.Value, arity int) (ir.Schema, error) {
		n := arity
		if len(args) == 2 && args[1] != nil {
			pattern, ok := args[1].(ir.String)
			if !ok {
				return nil, fmt.Errorf("pattern must be a string, got %s", args[1].Type())
			}
			re, err := c.get(string(pattern))
			if err != nil {
				return nil, err
			}
			n = width(re)
		}
		schema := make(ir.Schema, n)
		for i := range schema {
			schema[i] = t
		}
		return schema, nil
	}
}

type groupValue func(g *regexp2.Group) ir.Value

func spanOf(g *regexp2.Group) ir.Value {
	return ir.Span{Start: int64(g.Index), Stop: int64(g.Index + g.Length)}
}

func textOf(g *regexp2.Group) ir.Value {
	return ir.String(g.String())
}

func (c *patternCache) call(value groupValue) CallFunc {
	return func(ctx context.Context, args []ir.Value) ([]ir.Tuple, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 arguments (text, pattern), got %d", len(args))
		}
		text, ok := args[0].(ir.String)
		if !ok {
			return nil, fmt.Errorf("text must be a string")
		}
		pattern, ok := args[1].(ir.String)
		if !ok {
			return nil, fmt.Errorf("pattern must be a string")
		}
		re, err := c.get(string(pattern))
		if err != nil {
			return nil, err
		}

		groups := re.GetGroupNumbers()[1:]
		var out []ir.Tuple
		m, err := re.FindStringMatch(string(text))
		for ; m != nil && err == nil; m, err = re.FindNextMatch(m) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if len(groups) == 0 {
				out = append(out, ir.Tuple{value(&m.Group)})
				continue
			}
			tuple := make(ir.Tuple, 0, len(groups))
			for _, num := range groups {
				g := m.GroupByNumber(num)
				if g == nil || len(g.Captures) == 0 {
					tuple = nil
					break
				}
				tuple = append(tuple, value(g))
			}
			if tuple != nil {
				out = append(out, tuple)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", string(pattern), err)
		}
		return out, nil
	}
}
