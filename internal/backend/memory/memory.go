// Package memory implements the reference in-memory backend.
//
// Base relations are insertion-ordered tuple sets keyed by ir.CanonicalKey.
// Derived relations keep their rules as queryir trees and are evaluated on
// demand, so a query always reflects the current base facts.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
)

// table is a base relation.
type table struct {
	schema ir.Schema
	rows   []ir.Tuple
	index  map[string]int // canonical key → position in rows
}

func newTable(schema ir.Schema) *table {
	return &table{schema: schema.Clone(), index: make(map[string]int)}
}

func (t *table) insert(tuple ir.Tuple) {
	key := ir.CanonicalKey(tuple)
	if _, ok := t.index[key]; ok {
		return
	}
	t.index[key] = len(t.rows)
	t.rows = append(t.rows, tuple)
}

func (t *table) delete(tuple ir.Tuple) {
	key := ir.CanonicalKey(tuple)
	pos, ok := t.index[key]
	if !ok {
		return
	}
	t.rows = slices.Delete(t.rows, pos, pos+1)
	delete(t.index, key)
	for i := pos; i < len(t.rows); i++ {
		t.index[ir.CanonicalKey(t.rows[i])] = i
	}
}

// rule is one disjunct of a derived relation.
type rule struct {
	head  ir.Relation
	query *queryir.Project
}

// Backend is an in-memory backend.Backend.
//
// Thread-safety: all methods are serialized by an internal mutex.
type Backend struct {
	mu     sync.Mutex
	namer  *backend.Namer
	logger *slog.Logger
	tables map[string]*table
	rules  map[string][]rule
	arity  map[string]int
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for debug tracing of backend operations.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New creates an empty backend. Temporary relations are named by namer;
// a nil namer gets a private one.
func New(namer *backend.Namer, opts ...Option) *Backend {
	if namer == nil {
		namer = backend.NewNamer()
	}
	b := &Backend{
		namer:  namer,
		logger: slog.Default(),
		tables: make(map[string]*table),
		rules:  make(map[string][]rule),
		arity:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ backend.Backend = (*Backend)(nil)

// DeclareRelation creates an empty base relation.
func (b *Backend) DeclareRelation(ctx context.Context, decl ir.RelationDeclaration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.arity[decl.Name]; ok {
		return fmt.Errorf("%w: %s", backend.ErrRelationExists, decl.Name)
	}
	b.tables[decl.Name] = newTable(decl.Schema)
	b.arity[decl.Name] = len(decl.Schema)
	b.logger.Debug("declare relation", "relation", decl.String())
	return nil
}

func (b *Backend) baseTable(fact ir.Relation) (*table, ir.Tuple, error) {
	t, ok := b.tables[fact.Name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", backend.ErrUnknownRelation, fact.Name)
	}
	tuple, err := backend.FactTuple(fact)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", fact, err)
	}
	if !tuple.Types().Equal(t.schema) {
		return nil, nil, fmt.Errorf("fact %s does not match schema %s%s", fact, fact.Name, t.schema)
	}
	return t, tuple, nil
}

// AddFact inserts a ground tuple. Duplicates are ignored.
func (b *Backend) AddFact(ctx context.Context, fact ir.Relation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, tuple, err := b.baseTable(fact)
	if err != nil {
		return err
	}
	t.insert(tuple)
	return nil
}

// RemoveFact deletes a ground tuple. Removing an absent tuple is a no-op.
func (b *Backend) RemoveFact(ctx context.Context, fact ir.Relation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, tuple, err := b.baseTable(fact)
	if err != nil {
		return err
	}
	t.delete(tuple)
	b.logger.Debug("remove fact", "fact", fact.String())
	return nil
}

// AddRule adds one disjunct to the definition of head.
func (b *Backend) AddRule(ctx context.Context, head ir.Relation, body []ir.Relation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rel := range body {
		arity, ok := b.arity[rel.Name]
		if !ok {
			return fmt.Errorf("%w: %s", backend.ErrUnknownRelation, rel.Name)
		}
		if arity != rel.Arity() {
			return fmt.Errorf("%s has arity %d, used with %d terms", rel.Name, arity, rel.Arity())
		}
	}
	if arity, ok := b.arity[head.Name]; ok && arity != head.Arity() {
		return fmt.Errorf("%s has arity %d, defined with %d terms", head.Name, arity, head.Arity())
	}
	query, err := queryir.FromRule(head, body)
	if err != nil {
		return err
	}
	b.rules[head.Name] = append(b.rules[head.Name], rule{head: head, query: query})
	b.arity[head.Name] = head.Arity()
	return nil
}

// Query returns the matching rows of q.Name in ir.CompareTuples order.
func (b *Backend) Query(ctx context.Context, q ir.Relation) ([]ir.Tuple, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev := newEvaluator(ctx, b)
	rows, err := ev.relation(q.Name)
	if err != nil {
		return nil, err
	}
	var out []ir.Tuple
	for _, row := range rows {
		if backend.Matches(q, row) {
			out = append(out, row)
		}
	}
	slices.SortFunc(out, ir.CompareTuples)
	return out, nil
}

// ComputeRuleBodyRelation projects rel onto its free variables.
func (b *Backend) ComputeRuleBodyRelation(ctx context.Context, rel ir.Relation) (ir.Relation, error) {
	return backend.Project(ctx, b, b.namer, rel)
}

// ComputeRuleBodyIERelation materializes an IE relation with backend.ComputeIE.
func (b *Backend) ComputeRuleBodyIERelation(ctx context.Context, rel ir.IERelation, fn *iefunc.Function, bounding *ir.Relation) (ir.Relation, error) {
	return backend.ComputeIE(ctx, b, b.namer, rel, fn, bounding)
}

// RemoveTempResult forgets a temporary relation and its rules.
func (b *Backend) RemoveTempResult(ctx context.Context, rel ir.Relation) error {
	if !ir.IsReserved(rel.Name) {
		return fmt.Errorf("%s is not a temporary relation", rel.Name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.tables, rel.Name)
	delete(b.rules, rel.Name)
	delete(b.arity, rel.Name)
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}
