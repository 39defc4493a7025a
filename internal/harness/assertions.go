package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rgxlog/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Relation string   // Relation that was read
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Rows     []string // Full relation contents for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Relation)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nRelation contents:\n")
	for i, row := range e.Rows {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, row)
	}

	return buf.String()
}

// relationRows reads every row of a relation through the session backend.
func (h *Harness) relationRows(ctx context.Context, name string) ([]string, error) {
	schema, ok := h.engine.Symbols().Schema(name)
	if !ok {
		return nil, fmt.Errorf("relation %q is not defined", name)
	}
	q := ir.Relation{Name: name, Types: schema.Clone()}
	for i := range schema {
		q.Terms = append(q.Terms, ir.Var(fmt.Sprintf("C%d", i)))
	}
	rows, err := h.engine.Backend().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return renderRows(rows), nil
}

// evaluateAssertion dispatches on the assertion type.
func (h *Harness) evaluateAssertion(ctx context.Context, a Assertion) error {
	rows, err := h.relationRows(ctx, a.Relation)
	if err != nil {
		return err
	}
	switch a.Type {
	case AssertRows:
		return assertRows(rows, a)
	case AssertContains:
		return assertContains(rows, a)
	case AssertCount:
		return assertCount(rows, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertRows checks that the relation holds exactly the expected rows,
// in answer order.
func assertRows(rows []string, a Assertion) error {
	if equalRows(a.Rows, rows) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRows,
		Relation: a.Relation,
		Expected: formatRows(a.Rows),
		Actual:   formatRows(rows),
		Rows:     rows,
	}
}

// assertContains checks that every expected row is present.
func assertContains(rows []string, a Assertion) error {
	var missing []string
	for _, want := range a.Rows {
		if !slices.Contains(rows, want) {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertContains,
		Relation: a.Relation,
		Expected: "rows " + formatRows(a.Rows),
		Actual:   "missing " + formatRows(missing),
		Rows:     rows,
	}
}

// assertCount checks the number of rows.
func assertCount(rows []string, a Assertion) error {
	if len(rows) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Relation: a.Relation,
		Expected: fmt.Sprintf("%d rows", a.Count),
		Actual:   fmt.Sprintf("%d rows", len(rows)),
		Rows:     rows,
	}
}
