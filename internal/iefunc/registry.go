// Package iefunc holds the information-extraction function registry.
//
// An IE function maps a tuple of bound input values to zero or more output
// tuples. Each entry carries its static input types and a deriver for its
// output types, since some functions (regex extraction) have an output
// width that depends on the actual arguments.
package iefunc

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/rgxlog/internal/ir"
)

// CallFunc invokes the function on one input tuple.
type CallFunc func(ctx context.Context, args []ir.Value) ([]ir.Tuple, error)

// OutputTypesFunc derives output types from the call site.
// args holds the constant input values, with nil for inputs that are only
// known at execution time; arity is the number of output terms at the call site.
type OutputTypesFunc func(args []ir.Value, arity int) (ir.Schema, error)

// Function is a registered IE function.
type Function struct {
	Name        string
	InputTypes  ir.Schema
	OutputTypes OutputTypesFunc
	Call        CallFunc
}

// Registry maps IE function names to functions.
// A Registry is not safe for concurrent registration; lookups are read-only.
type Registry struct {
	funcs map[string]*Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// DefaultRegistry creates a registry holding the builtin functions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, fn := range Builtins() {
		if err := r.Register(fn); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a function. Names must be unique and not reserved.
func (r *Registry) Register(fn *Function) error {
	if fn == nil || fn.Name == "" {
		return fmt.Errorf("ie function name is required")
	}
	if ir.IsReserved(fn.Name) {
		return fmt.Errorf("ie function %q uses the reserved prefix %q", fn.Name, ir.TempPrefix)
	}
	if fn.Call == nil || fn.OutputTypes == nil {
		return fmt.Errorf("ie function %q must define Call and OutputTypes", fn.Name)
	}
	if _, exists := r.funcs[fn.Name]; exists {
		return fmt.Errorf("ie function %q already registered", fn.Name)
	}
	r.funcs[fn.Name] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FixedOutput returns an OutputTypesFunc for functions whose output schema
// does not depend on their arguments.
func FixedOutput(schema ...ir.Type) OutputTypesFunc {
	return func([]ir.Value, int) (ir.Schema, error) {
		return append(ir.Schema(nil), schema...), nil
	}
}

// CheckOutput verifies that an output tuple matches the expected schema.
func CheckOutput(fn string, tuple ir.Tuple, schema ir.Schema) error {
	if len(tuple) != len(schema) {
		return fmt.Errorf("ie function %s returned %d values, want %d", fn, len(tuple), len(schema))
	}
	for i, v := range tuple {
		if v == nil {
			return fmt.Errorf("ie function %s returned nil at position %d", fn, i)
		}
		if v.Type() != schema[i] {
			return fmt.Errorf("ie function %s returned %s at position %d, want %s", fn, v.Type(), i, schema[i])
		}
	}
	return nil
}
