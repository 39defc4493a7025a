package compiler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/symtab"
)

// IESignature is the resolved typing of one IE relation occurrence.
type IESignature struct {
	Function    *iefunc.Function
	InputTypes  ir.Schema
	OutputTypes ir.Schema
}

// Analysis is the state shared by the passes over one program.
type Analysis struct {
	Program *ast.Program
	Symbols *symtab.Table

	// Files holds the contents read for each read assignment.
	Files map[*ast.ReadAssignment]string

	// Orders holds each rule's body indexes in safety-resolved order.
	Orders map[*ast.Rule][]int

	// IE holds the typing of every IE relation in a rule body.
	IE map[*ast.IERelation]IESignature

	baseDir  string
	readFile func(string) ([]byte, error)
	logger   *slog.Logger
}

// AnalysisOption configures an Analysis.
type AnalysisOption func(*Analysis)

// WithBaseDir resolves relative read paths against dir.
func WithBaseDir(dir string) AnalysisOption {
	return func(a *Analysis) {
		a.baseDir = dir
	}
}

// WithReadFile replaces the file reader used by read assignments.
func WithReadFile(fn func(string) ([]byte, error)) AnalysisOption {
	return func(a *Analysis) {
		a.readFile = fn
	}
}

// WithLogger sets the logger for pass tracing.
func WithLogger(logger *slog.Logger) AnalysisOption {
	return func(a *Analysis) {
		a.logger = logger
	}
}

// NewAnalysis prepares a program for the passes.
func NewAnalysis(prog *ast.Program, symbols *symtab.Table, opts ...AnalysisOption) *Analysis {
	a := &Analysis{
		Program:  prog,
		Symbols:  symbols,
		Files:    make(map[*ast.ReadAssignment]string),
		Orders:   make(map[*ast.Rule][]int),
		IE:       make(map[*ast.IERelation]IESignature),
		readFile: os.ReadFile,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analysis) resolvePath(path string) string {
	if a.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.baseDir, path)
}

// Pass is one semantic analysis step.
type Pass interface {
	Name() string
	Run(a *Analysis) error
}

type passFunc struct {
	name string
	run  func(*Analysis) error
}

func (p passFunc) Name() string          { return p.name }
func (p passFunc) Run(a *Analysis) error { return p.run(a) }

// DefaultPasses returns the passes in their required order.
func DefaultPasses() []Pass {
	return []Pass{
		passFunc{"variable_references", checkVariableReferences},
		passFunc{"files", checkFiles},
		passFunc{"reserved_names", checkReservedNames},
		passFunc{"relation_references", checkRelationReferences},
		passFunc{"ie_functions", checkIEFunctions},
		passFunc{"rule_safety", checkRuleSafety},
		passFunc{"type_checking", checkTypes},
		passFunc{"reorder_bodies", reorderBodies},
	}
}

// Check runs the passes in order and stops at the first error.
// On error the symbol table is restored to its state before Check.
func Check(a *Analysis, passes ...Pass) error {
	if len(passes) == 0 {
		passes = DefaultPasses()
	}
	snapshot := a.Symbols.Snapshot()
	for _, p := range passes {
		a.logger.Debug("running pass", "pass", p.Name())
		if err := p.Run(a); err != nil {
			a.Symbols.Restore(snapshot)
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

// scope tracks variable bindings while a pass walks the program in order.
// It starts from the session's variables so earlier programs are visible.
type scope struct {
	vars map[string]symtab.Variable
}

func newScope(symbols *symtab.Table) *scope {
	s := &scope{vars: make(map[string]symtab.Variable)}
	for _, name := range symbols.VariableNames() {
		v, _ := symbols.Variable(name)
		s.vars[name] = v
	}
	return s
}

func (s *scope) get(name string) (symtab.Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func (s *scope) set(name string, v ir.Value) {
	s.vars[name] = symtab.Variable{Type: v.Type(), Value: v}
}

// value resolves a constant or variable reference term.
func (s *scope) value(t ast.Term) (ir.Value, bool) {
	if v, ok := ast.ConstValue(t); ok {
		return v, true
	}
	if ref, ok := t.(ast.VarRef); ok {
		if v, ok := s.get(ref.Name); ok {
			return v.Value, true
		}
	}
	return nil, false
}

// assign applies an assignment or read assignment to the scope.
func (s *scope) assign(a *Analysis, stmt ast.Statement) {
	switch st := stmt.(type) {
	case *ast.Assignment:
		if v, ok := s.value(st.Value); ok {
			s.set(st.Name, v)
		}
	case *ast.ReadAssignment:
		s.set(st.Name, ir.String(a.Files[st]))
	}
}
