package ir

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeString returns the NFC form of s.
// Every string constant is normalized before it is stored or compared, so
// visually identical literals from different sources are the same value.
func NormalizeString(s string) string {
	return norm.NFC.String(s)
}

// CanonicalKey produces a stable identity key for a tuple.
// Two tuples have the same key iff they hold equal values of equal types.
//
// Key format, one segment per column joined by 0x1f:
//   - string: s:<len>:<NFC text>
//   - integer: i:<decimal>
//   - span: p:<start>:<stop>
func CanonicalKey(t Tuple) string {
	var b strings.Builder
	for i, v := range t {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		writeCanonicalValue(&b, v)
	}
	return b.String()
}

// CanonicalValueKey produces the identity key of a single value.
func CanonicalValueKey(v Value) string {
	var b strings.Builder
	writeCanonicalValue(&b, v)
	return b.String()
}

func writeCanonicalValue(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case String:
		s := NormalizeString(string(val))
		b.WriteString("s:")
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	case Int:
		b.WriteString("i:")
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case Span:
		b.WriteString("p:")
		b.WriteString(strconv.FormatInt(val.Start, 10))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(val.Stop, 10))
	}
}

// ValuesEqual compares two values by canonical identity.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return CanonicalValueKey(a) == CanonicalValueKey(b)
}

// CompareValues orders values: integers numerically, spans by (start, stop),
// strings by NFC byte order. Values of different types order by type.
func CompareValues(a, b Value) int {
	if a.Type() != b.Type() {
		return int(a.Type()) - int(b.Type())
	}
	switch av := a.(type) {
	case Int:
		bv := b.(Int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case Span:
		bv := b.(Span)
		if av.Start != bv.Start {
			if av.Start < bv.Start {
				return -1
			}
			return 1
		}
		if av.Stop != bv.Stop {
			if av.Stop < bv.Stop {
				return -1
			}
			return 1
		}
		return 0
	case String:
		return strings.Compare(NormalizeString(string(av)), NormalizeString(string(b.(String))))
	}
	return 0
}

// CompareTuples orders tuples column by column, shorter tuples first on ties.
func CompareTuples(a, b Tuple) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
