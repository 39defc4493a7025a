package compiler

import (
	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/symtab"
	"github.com/roach88/rgxlog/internal/termgraph"
)

// Compile checks a program and lowers it into g.
// It returns the new program_root.
func Compile(prog *ast.Program, symbols *symtab.Table, g *termgraph.Graph, opts ...AnalysisOption) (termgraph.NodeID, error) {
	a := NewAnalysis(prog, symbols, opts...)
	if err := Check(a); err != nil {
		return 0, err
	}
	return Lower(a, g)
}
