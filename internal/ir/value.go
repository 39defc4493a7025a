package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface representing a constant term value.
// Only String, Int and Span implement it.
type Value interface {
	irValue() // Sealed - only these types implement it

	// Type returns the schema type of the value.
	Type() Type

	// Literal returns the value in rule-language syntax.
	Literal() string
}

// String is a string constant.
type String string

func (String) irValue() {}

// Type implements Value.
func (String) Type() Type { return TypeString }

// Literal returns the double-quoted, escaped form.
func (s String) Literal() string { return strconv.Quote(string(s)) }

// Int is an integer constant.
// Always int64, never a float.
type Int int64

func (Int) irValue() {}

// Type implements Value.
func (Int) Type() Type { return TypeInt }

// Literal implements Value.
func (i Int) Literal() string { return strconv.FormatInt(int64(i), 10) }

// Span is a half-open interval [Start, Stop) of character offsets.
type Span struct {
	Start int64 `json:"start"`
	Stop  int64 `json:"stop"`
}

func (Span) irValue() {}

// Type implements Value.
func (Span) Type() Type { return TypeSpan }

// Literal renders the span as "[start, stop)".
func (s Span) Literal() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.Stop)
}

// Len returns the number of positions covered by the span.
func (s Span) Len() int64 { return s.Stop - s.Start }

// NewSpan creates a span, rejecting negative offsets and inverted bounds.
func NewSpan(start, stop int64) (Span, error) {
	if start < 0 || stop < start {
		return Span{}, fmt.Errorf("invalid span [%d, %d): need 0 <= start <= stop", start, stop)
	}
	return Span{Start: start, Stop: stop}, nil
}

// ParseSpan parses the "[start, stop)" literal form.
func ParseSpan(s string) (Span, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, ")") {
		return Span{}, fmt.Errorf("invalid span literal %q: want [start, stop)", s)
	}
	inner := trimmed[1 : len(trimmed)-1]
	left, right, ok := strings.Cut(inner, ",")
	if !ok {
		return Span{}, fmt.Errorf("invalid span literal %q: missing comma", s)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(left), 10, 64)
	if err != nil {
		return Span{}, fmt.Errorf("invalid span start in %q: %w", s, err)
	}
	stop, err := strconv.ParseInt(strings.TrimSpace(right), 10, 64)
	if err != nil {
		return Span{}, fmt.Errorf("invalid span stop in %q: %w", s, err)
	}
	return NewSpan(start, stop)
}

// MarshalJSON encodes a span as a two-element array.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{s.Start, s.Stop})
}

// ParseValue parses a literal of the given type in its Literal form.
func ParseValue(t Type, literal string) (Value, error) {
	switch t {
	case TypeString:
		s, err := strconv.Unquote(literal)
		if err != nil {
			return nil, fmt.Errorf("invalid string literal %s: %w", literal, err)
		}
		return String(s), nil
	case TypeInt:
		i, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q: %w", literal, err)
		}
		return Int(i), nil
	case TypeSpan:
		return ParseSpan(literal)
	default:
		return nil, fmt.Errorf("cannot parse a value of type %s", t)
	}
}

// Tuple is one row of a relation.
type Tuple []Value

// String renders the tuple as `("a", 1, [0, 3))`.
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.Literal()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Types returns the type of every column.
func (t Tuple) Types() Schema {
	types := make(Schema, len(t))
	for i, v := range t {
		types[i] = v.Type()
	}
	return types
}

// MarshalJSON encodes the tuple as a JSON array of native values.
func (t Tuple) MarshalJSON() ([]byte, error) {
	out := make([]any, len(t))
	for i, v := range t {
		switch val := v.(type) {
		case String:
			out[i] = string(val)
		case Int:
			out[i] = int64(val)
		case Span:
			out[i] = val
		default:
			return nil, fmt.Errorf("tuple[%d]: unsupported value %T", i, v)
		}
	}
	return json.Marshal(out)
}
