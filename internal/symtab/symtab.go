// Package symtab provides the session symbol table: variables, relation
// schemas and the IE function registry shared by every program loaded into
// one session.
package symtab

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
)

// ErrRelationExists is returned when a relation schema is set twice.
var ErrRelationExists = errors.New("relation already defined")

// Variable is the current binding of a program variable.
type Variable struct {
	Type  ir.Type
	Value ir.Value
}

// Table is the session symbol table.
//
// Variables are overwritten by later assignments and never cleared.
// Relation schemas are set once, by declaration or rule-head inference.
// A Table is owned by one session and is not safe for concurrent use.
type Table struct {
	vars     map[string]Variable
	schemas  map[string]ir.Schema
	registry *iefunc.Registry
}

// New creates a table backed by the given IE registry.
// A nil registry means the builtin functions only.
func New(registry *iefunc.Registry) *Table {
	if registry == nil {
		registry = iefunc.DefaultRegistry()
	}
	return &Table{
		vars:     make(map[string]Variable),
		schemas:  make(map[string]ir.Schema),
		registry: registry,
	}
}

// SetVariable binds name to v.
func (t *Table) SetVariable(name string, v ir.Value) {
	t.vars[name] = Variable{Type: v.Type(), Value: v}
}

// Variable returns the binding of name.
func (t *Table) Variable(name string) (Variable, bool) {
	v, ok := t.vars[name]
	return v, ok
}

// HasVariable reports whether name is bound.
func (t *Table) HasVariable(name string) bool {
	_, ok := t.vars[name]
	return ok
}

// VariableNames returns bound variable names in sorted order.
func (t *Table) VariableNames() []string {
	return slices.Sorted(maps.Keys(t.vars))
}

// SetSchema records the schema of a relation.
func (t *Table) SetSchema(name string, schema ir.Schema) error {
	if _, exists := t.schemas[name]; exists {
		return fmt.Errorf("%w: %s", ErrRelationExists, name)
	}
	t.schemas[name] = slices.Clone(schema)
	return nil
}

// Schema returns the schema of a relation.
func (t *Table) Schema(name string) (ir.Schema, bool) {
	s, ok := t.schemas[name]
	return s, ok
}

// Relations returns relation names in sorted order.
func (t *Table) Relations() []string {
	return slices.Sorted(maps.Keys(t.schemas))
}

// Registry returns the IE function registry.
func (t *Table) Registry() *iefunc.Registry {
	return t.registry
}

// Snapshot captures variables and schemas so a failed program can be
// undone in the table. It does not capture the registry.
type Snapshot struct {
	vars    map[string]Variable
	schemas map[string]ir.Schema
}

// Snapshot returns a copy of the current state.
func (t *Table) Snapshot() Snapshot {
	return Snapshot{vars: maps.Clone(t.vars), schemas: maps.Clone(t.schemas)}
}

// Restore replaces the current state with a snapshot.
func (t *Table) Restore(s Snapshot) {
	t.vars = maps.Clone(s.vars)
	t.schemas = maps.Clone(s.schemas)
	if t.vars == nil {
		t.vars = make(map[string]Variable)
	}
	if t.schemas == nil {
		t.schemas = make(map[string]ir.Schema)
	}
}
