package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/compiler"
	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/symtab"
	"github.com/roach88/rgxlog/internal/termgraph"
)

// DefaultMaxIETuples is the default maximum number of tuples IE functions
// may produce while one rule is evaluated.
const DefaultMaxIETuples = 1_000_000

// QueryResult is the answer to one query statement.
type QueryResult struct {
	Query ir.Relation
	Rows  []ir.Tuple
}

// Engine is one rgxlog session.
//
// INVARIANTS:
//   - the symbol table, term graph and backend always describe the same
//     set of successfully compiled programs
//   - a node reaches the backend at most once unless it is marked DIRTY
//   - temporary relation names come from the namer shared with the backend
type Engine struct {
	backend   backend.Backend
	namer     *backend.Namer
	symbols   *symtab.Table
	graph     *termgraph.Graph
	registry  *iefunc.Registry
	sessionID string
	logger    *slog.Logger

	sessionGen  SessionIDGenerator
	maxIETuples int
	baseDir     string
	readFile    func(string) ([]byte, error)
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMaxIETuples sets the IE tuple quota per rule evaluation.
//
// Default: 1,000,000 tuples (DefaultMaxIETuples)
// Use WithMaxIETuples(0) to disable the quota.
func WithMaxIETuples(n int) Option {
	return func(e *Engine) {
		e.maxIETuples = n
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBaseDir resolves relative read paths against dir.
func WithBaseDir(dir string) Option {
	return func(e *Engine) {
		e.baseDir = dir
	}
}

// WithReadFile replaces the file reader used by read assignments.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(e *Engine) {
		e.readFile = fn
	}
}

// WithSessionIDGenerator sets the session ID source.
// Default: UUIDv7Generator.
func WithSessionIDGenerator(gen SessionIDGenerator) Option {
	return func(e *Engine) {
		e.sessionGen = gen
	}
}

// WithRegistry sets the IE function registry.
// Default: iefunc.DefaultRegistry().
func WithRegistry(r *iefunc.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// New creates a session executing against b.
//
// namer must be the namer b was created with, so temporary relations made
// by the engine and by the backend never collide.
func New(b backend.Backend, namer *backend.Namer, opts ...Option) *Engine {
	e := &Engine{
		backend:     b,
		namer:       namer,
		graph:       termgraph.New(),
		logger:      slog.Default(),
		sessionGen:  UUIDv7Generator{},
		maxIETuples: DefaultMaxIETuples,
		readFile:    os.ReadFile,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.namer == nil {
		e.namer = backend.NewNamer()
	}
	if e.registry == nil {
		e.registry = iefunc.DefaultRegistry()
	}
	e.symbols = symtab.New(e.registry)
	e.sessionID = e.sessionGen.Generate()
	e.logger = e.logger.With("session", e.sessionID)
	return e
}

// SessionID returns the session identifier.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Symbols returns the session symbol table.
func (e *Engine) Symbols() *symtab.Table {
	return e.symbols
}

// Graph returns the session term graph.
func (e *Engine) Graph() *termgraph.Graph {
	return e.graph
}

// Backend returns the backend the session executes against.
func (e *Engine) Backend() backend.Backend {
	return e.backend
}

func (e *Engine) analysisOptions() []compiler.AnalysisOption {
	opts := []compiler.AnalysisOption{
		compiler.WithLogger(e.logger),
		compiler.WithReadFile(e.readFile),
	}
	if e.baseDir != "" {
		opts = append(opts, compiler.WithBaseDir(e.baseDir))
	}
	return opts
}

// Check runs the semantic passes over prog without changing the session.
func (e *Engine) Check(prog *ast.Program) error {
	snapshot := e.symbols.Snapshot()
	defer e.symbols.Restore(snapshot)

	a := compiler.NewAnalysis(prog, e.symbols, e.analysisOptions()...)
	return compiler.Check(a)
}

// Load compiles prog into the session and executes it.
//
// A program that fails semantic checks leaves the session untouched. A
// program that fails during execution stays in the graph with its failing
// node marked DIRTY; a later Load or Execute retries it.
//
// Results holds the answers to the query statements executed by this call,
// in execution order.
func (e *Engine) Load(ctx context.Context, prog *ast.Program) ([]QueryResult, error) {
	snapshot := e.symbols.Snapshot()
	program, err := compiler.Compile(prog, e.symbols, e.graph, e.analysisOptions()...)
	if err != nil {
		e.symbols.Restore(snapshot)
		return nil, err
	}
	e.logger.Debug("program compiled", "program_root", program, "nodes", e.graph.Len())
	return e.Execute(ctx)
}

// Execute runs every node of the graph that is not COMPUTED.
func (e *Engine) Execute(ctx context.Context) ([]QueryResult, error) {
	x := &executor{engine: e}
	if err := x.run(ctx, e.graph.Root()); err != nil {
		return x.results, err
	}
	return x.results, nil
}

// Invalidate marks the subtree below id DIRTY so the next Execute re-runs it.
func (e *Engine) Invalidate(id termgraph.NodeID) error {
	if id < 0 || int(id) >= e.graph.Len() {
		return fmt.Errorf("node %d does not exist", id)
	}
	e.graph.Invalidate(id)
	return nil
}

// Close closes the backend.
func (e *Engine) Close() error {
	return e.backend.Close()
}
