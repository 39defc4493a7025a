package testutil

import (
	"fmt"
	"io/fs"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
)

// ParentProgram declares parent, asserts three generations and defines
// grandparent(X, Z) over two parent atoms, then queries it.
//
// Expected answer: ("abe", "bart"), ("abe", "lisa").
func ParentProgram() *ast.Program {
	return ast.NewProgram(
		ast.Declare("parent", ir.TypeString, ir.TypeString),
		ast.Fact("parent", ast.Str("abe"), ast.Str("homer")),
		ast.Fact("parent", ast.Str("homer"), ast.Str("bart")),
		ast.Fact("parent", ast.Str("homer"), ast.Str("lisa")),
		ast.NewRule("grandparent", []string{"X", "Z"},
			ast.Rel("parent", ast.Free("X"), ast.Free("Y")),
			ast.Rel("parent", ast.Free("Y"), ast.Free("Z")),
		),
		ast.Ask("grandparent", ast.Free("X"), ast.Free("Z")),
	)
}

// CousinProgram writes its IE relation before the relation binding its
// input, so the rule only runs after body reordering.
//
// Expected answer: ("x1 y22", [1, 2)), ("x1 y22", [4, 6)).
func CousinProgram() *ast.Program {
	return ast.NewProgram(
		ast.Declare("doc", ir.TypeString),
		ast.Fact("doc", ast.Str("x1 y22")),
		ast.NewRule("digits", []string{"D", "S"},
			ast.IE("rgx", ast.Terms(ast.Free("D"), ast.Str(`\d+`)), ast.Terms(ast.Free("S"))),
			ast.Rel("doc", ast.Free("D")),
		),
		ast.Ask("digits", ast.Free("D"), ast.Free("S")),
	)
}

// UnsafeProgram holds a rule whose IE input is never bound.
func UnsafeProgram() *ast.Program {
	return ast.NewProgram(
		ast.NewRule("bad", []string{"Y"},
			ast.IE("rgx_string", ast.Terms(ast.Free("Z"), ast.Str("a")), ast.Terms(ast.Free("Y"))),
		),
	)
}

// ReadFiles returns a file reader serving the given contents by path.
// Unknown paths fail with fs.ErrNotExist.
func ReadFiles(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
		}
		return []byte(content), nil
	}
}
