package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Type is the type of a term or a schema position.
type Type int

const (
	// TypeFreeVar marks a term whose type is not resolved yet.
	// It never appears in a declared or inferred schema.
	TypeFreeVar Type = iota
	TypeString
	TypeSpan
	TypeInt
)

// String returns the textual form used in declarations and diagnostics.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeSpan:
		return "span"
	case TypeInt:
		return "integer"
	case TypeFreeVar:
		return "free_var"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType parses a declared type name.
// Accepts the canonical names plus the short forms "str" and "int".
func ParseType(s string) (Type, error) {
	switch strings.TrimSpace(s) {
	case "string", "str":
		return TypeString, nil
	case "span":
		return TypeSpan, nil
	case "integer", "int":
		return TypeInt, nil
	default:
		return TypeFreeVar, fmt.Errorf("invalid type %q: must be string, span or integer", s)
	}
}

// Schema is an ordered list of column types.
type Schema []Type

// Equal reports whether two schemas have the same length and types in order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the schema.
func (s Schema) Clone() Schema {
	return slices.Clone(s)
}

// String renders the schema as "(string, span)".
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
