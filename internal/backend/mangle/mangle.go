// Package mangle implements a backend on top of the Google Mangle Datalog
// engine.
//
// Base facts are kept in insertion-ordered sets. Rules are translated into
// Mangle clauses; every query over a derived relation analyzes the clauses
// it depends on, evaluates them over a fresh fact store and reads the
// derived predicate back.
//
// Relation names map to predicates with an "r_" prefix, variables are
// renamed V0, V1, ... per clause, spans are stored as their "[start, stop)"
// string and a relation of arity zero carries the placeholder column 0.
package mangle

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
)

// factSet is an insertion-ordered set of base facts.
type factSet struct {
	rows  []ir.Tuple
	index map[string]int
}

func (f *factSet) insert(t ir.Tuple) {
	key := ir.CanonicalKey(t)
	if _, ok := f.index[key]; ok {
		return
	}
	f.index[key] = len(f.rows)
	f.rows = append(f.rows, t)
}

func (f *factSet) delete(t ir.Tuple) {
	key := ir.CanonicalKey(t)
	pos, ok := f.index[key]
	if !ok {
		return
	}
	f.rows = slices.Delete(f.rows, pos, pos+1)
	delete(f.index, key)
	for i := pos; i < len(f.rows); i++ {
		f.index[ir.CanonicalKey(f.rows[i])] = i
	}
}

// rule is one clause of a derived relation.
type rule struct {
	query  *queryir.Project
	clause ast.Clause
}

// Backend is a backend.Backend evaluated by Mangle.
//
// Thread-safety: all methods are serialized by an internal mutex.
type Backend struct {
	mu      sync.Mutex
	namer   *backend.Namer
	logger  *slog.Logger
	schemas map[string]ir.Schema
	facts   map[string]*factSet
	rules   map[string][]rule
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for evaluation statistics.
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
		namer:   namer,
		logger:  slog.Default(),
		schemas: make(map[string]ir.Schema),
		facts:   make(map[string]*factSet),
		rules:   make(map[string][]rule),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ backend.Backend = (*Backend)(nil)

// predicate maps a relation to its Mangle predicate symbol.
func predicate(name string, arity int) ast.PredicateSym {
	if arity == 0 {
		arity = 1
	}
	return ast.PredicateSym{Symbol: "r_" + name, Arity: arity}
}

// DeclareRelation creates an empty base relation.
func (b *Backend) DeclareRelation(ctx context.Context, decl ir.RelationDeclaration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.schemas[decl.Name]; ok {
		return fmt.Errorf("%w: %s", backend.ErrRelationExists, decl.Name)
	}
	b.schemas[decl.Name] = decl.Schema.Clone()
	b.facts[decl.Name] = &factSet{index: make(map[string]int)}
	b.logger.Debug("declare relation", "relation", decl.String(), "predicate", predicate(decl.Name, len(decl.Schema)).Symbol)
	return nil
}

func (b *Backend) baseFacts(fact ir.Relation) (*factSet, ir.Tuple, error) {
	set, ok := b.facts[fact.Name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", backend.ErrUnknownRelation, fact.Name)
	}
	tuple, err := backend.FactTuple(fact)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", fact, err)
	}
	if schema := b.schemas[fact.Name]; !tuple.Types().Equal(schema) {
		return nil, nil, fmt.Errorf("fact %s does not match schema %s%s", fact, fact.Name, schema)
	}
	return set, tuple, nil
}

// AddFact inserts a ground tuple. Duplicates are ignored.
func (b *Backend) AddFact(ctx context.Context, fact ir.Relation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, tuple, err := b.baseFacts(fact)
	if err != nil {
		return err
	}
	set.insert(tuple)
	return nil
}

// RemoveFact deletes a ground tuple. Removing an absent tuple is a no-op.
func (b *Backend) RemoveFact(ctx context.Context, fact ir.Relation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, tuple, err := b.baseFacts(fact)
	if err != nil {
		return err
	}
	set.delete(tuple)
	return nil
}

// AddRule translates head <- body into a Mangle clause.
func (b *Backend) AddRule(ctx context.Context, head ir.Relation, body []ir.Relation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rel := range body {
		schema, ok := b.schemas[rel.Name]
		if !ok {
			return fmt.Errorf("%w: %s", backend.ErrUnknownRelation, rel.Name)
		}
		if len(schema) != rel.Arity() {
			return fmt.Errorf("%s has arity %d, used with %d terms", rel.Name, len(schema), rel.Arity())
		}
	}
	if schema, ok := b.schemas[head.Name]; ok && len(schema) != head.Arity() {
		return fmt.Errorf("%s has arity %d, defined with %d terms", head.Name, len(schema), head.Arity())
	}
	query, err := queryir.FromRule(head, body)
	if err != nil {
		return err
	}
	clause, err := buildClause(head, body)
	if err != nil {
		return err
	}
	b.rules[head.Name] = append(b.rules[head.Name], rule{query: query, clause: clause})
	if _, ok := b.schemas[head.Name]; !ok {
		b.schemas[head.Name] = head.Types.Clone()
	}
	b.logger.Debug("add rule", "clause", clause.String())
	return nil
}

// Query returns the matching rows of q.Name in ir.CompareTuples order.
func (b *Backend) Query(ctx context.Context, q ir.Relation) ([]ir.Tuple, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	schema, ok := b.schemas[q.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownRelation, q.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []ir.Tuple
	if len(b.rules[q.Name]) == 0 {
		rows = b.facts[q.Name].rows
	} else {
		var err error
		rows, err = b.evaluate(q.Name, schema)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q, err)
		}
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

// evaluate runs the clauses name depends on and reads back its facts.
func (b *Backend) evaluate(name string, schema ir.Schema) ([]ir.Tuple, error) {
	derived, base := b.dependencies(name)

	var decls strings.Builder
	for _, rel := range base {
		sym := predicate(rel, len(b.schemas[rel]))
		args := make([]string, sym.Arity)
		for i := range args {
			args[i] = fmt.Sprintf("A%d", i)
		}
		fmt.Fprintf(&decls, "Decl %s(%s).\n", sym.Symbol, strings.Join(args, ", "))
	}
	unit, err := parse.Unit(strings.NewReader(decls.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse declarations: %w", err)
	}
	for _, rel := range derived {
		for _, r := range b.rules[rel] {
			unit.Clauses = append(unit.Clauses, r.clause)
		}
	}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze program: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	for _, rel := range base {
		sym := predicate(rel, len(b.schemas[rel]))
		for _, row := range b.facts[rel].rows {
			store.Add(ast.Atom{Predicate: sym, Args: constants(row)})
		}
	}

	stats, err := mengine.EvalProgramWithStats(programInfo, store)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate program: %w", err)
	}
	b.logger.Debug("mangle evaluation", "relation", name, "stats", fmt.Sprintf("%+v", stats))

	var rows []ir.Tuple
	err = store.GetFacts(ast.NewQuery(predicate(name, len(schema))), func(atom ast.Atom) error {
		tuple, err := tupleOf(atom, schema)
		if err != nil {
			return err
		}
		rows = append(rows, tuple)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// dependencies returns the derived relations reachable from name and the
// base relations they read, both in first-visit order. Recursion is left
// to Mangle.
func (b *Backend) dependencies(name string) (derived, base []string) {
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(rel string) {
		if seen[rel] {
			return
		}
		seen[rel] = true
		if _, ok := b.facts[rel]; ok {
			base = append(base, rel)
		}
		if len(b.rules[rel]) == 0 {
			return
		}
		derived = append(derived, rel)
		for _, r := range b.rules[rel] {
			for _, sel := range queryir.Selects(r.query) {
				visit(sel.From)
			}
		}
	}
	visit(name)
	return derived, base
}

// ComputeRuleBodyRelation projects rel onto its free variables.
func (b *Backend) ComputeRuleBodyRelation(ctx context.Context, rel ir.Relation) (ir.Relation, error) {
	return backend.Project(ctx, b, b.namer, rel)
}

// ComputeRuleBodyIERelation materializes an IE relation with backend.ComputeIE.
func (b *Backend) ComputeRuleBodyIERelation(ctx context.Context, rel ir.IERelation, fn *iefunc.Function, bounding *ir.Relation) (ir.Relation, error) {
	return backend.ComputeIE(ctx, b, b.namer, rel, fn, bounding)
}

// RemoveTempResult forgets a temporary relation, its facts and its clauses.
func (b *Backend) RemoveTempResult(ctx context.Context, rel ir.Relation) error {
	if !ir.IsReserved(rel.Name) {
		return fmt.Errorf("%s is not a temporary relation", rel.Name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.schemas, rel.Name)
	delete(b.facts, rel.Name)
	delete(b.rules, rel.Name)
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}
