package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertRows(t *testing.T) {
	rows := []string{`("a")`, `("b")`}

	assert.NoError(t, assertRows(rows, Assertion{Type: AssertRows, Relation: "r", Rows: []string{`("a")`, `("b")`}}))

	err := assertRows(rows, Assertion{Type: AssertRows, Relation: "r", Rows: []string{`("b")`, `("a")`}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertRows, ae.Type)
	assert.Contains(t, err.Error(), "Assertion failed: rows r")
	assert.Contains(t, err.Error(), `[2] ("b")`)
}

func TestAssertRows_EmptyRelation(t *testing.T) {
	assert.NoError(t, assertRows(nil, Assertion{Type: AssertRows, Relation: "r"}))

	err := assertRows([]string{`(1)`}, Assertion{Type: AssertRows, Relation: "r"})
	assert.ErrorContains(t, err, "Expected: (none)")
}

func TestAssertContains(t *testing.T) {
	rows := []string{`(1)`, `(2)`, `(3)`}

	assert.NoError(t, assertContains(rows, Assertion{Type: AssertContains, Relation: "n", Rows: []string{`(3)`, `(1)`}}))

	err := assertContains(rows, Assertion{Type: AssertContains, Relation: "n", Rows: []string{`(1)`, `(4)`}})
	assert.ErrorContains(t, err, "Actual: missing (4)")
}

func TestAssertCount(t *testing.T) {
	rows := []string{`(1)`, `(2)`}

	assert.NoError(t, assertCount(rows, Assertion{Type: AssertCount, Relation: "n", Count: 2}))
	assert.ErrorContains(t, assertCount(rows, Assertion{Type: AssertCount, Relation: "n", Count: 3}), "Actual: 2 rows")
}
