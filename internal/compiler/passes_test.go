package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/symtab"
)

func check(t *testing.T, symbols *symtab.Table, stmts ...ast.Statement) (*Analysis, error) {
	t.Helper()
	if symbols == nil {
		symbols = symtab.New(nil)
	}
	a := NewAnalysis(ast.NewProgram(stmts...), symbols)
	return a, Check(a)
}

func TestCheckErrorKinds(t *testing.T) {
	parent := ast.Declare("parent", ir.TypeString, ir.TypeString)

	tests := []struct {
		name  string
		stmts []ast.Statement
		kind  ErrorKind
	}{
		{
			name:  "undefined variable in fact",
			stmts: []ast.Statement{parent, ast.Fact("parent", ast.Ref("x"), ast.Str("a"))},
			kind:  UndefinedVariable,
		},
		{
			name:  "assignment from undefined variable",
			stmts: []ast.Statement{ast.Assign("a", ast.Ref("b"))},
			kind:  UndefinedVariable,
		},
		{
			name:  "variable used before assignment",
			stmts: []ast.Statement{parent, ast.Ask("parent", ast.Ref("x"), ast.Free("Y")), ast.Assign("x", ast.Str("a"))},
			kind:  UndefinedVariable,
		},
		{
			name:  "reserved declaration name",
			stmts: []ast.Statement{ast.Declare(ir.TempPrefix+"0", ir.TypeInt)},
			kind:  ReservedNameError,
		},
		{
			name:  "undefined relation",
			stmts: []ast.Statement{ast.Fact("nope", ast.Int(1))},
			kind:  UndefinedRelation,
		},
		{
			name:  "fact arity",
			stmts: []ast.Statement{parent, ast.Fact("parent", ast.Str("a"))},
			kind:  ArityMismatch,
		},
		{
			name:  "query arity",
			stmts: []ast.Statement{parent, ast.Ask("parent", ast.Free("X"), ast.Free("Y"), ast.Free("Z"))},
			kind:  ArityMismatch,
		},
		{
			name:  "redeclaration",
			stmts: []ast.Statement{parent, ast.Declare("parent", ir.TypeInt)},
			kind:  RelationRedefinition,
		},
		{
			name: "rule head redefines declared relation",
			stmts: []ast.Statement{parent,
				ast.NewRule("parent", []string{"X"}, ast.Rel("parent", ast.Free("X"), ast.Free("Y")))},
			kind: RelationRedefinition,
		},
		{
			name: "recursive rule body",
			stmts: []ast.Statement{parent,
				ast.NewRule("anc", []string{"X"}, ast.Rel("anc", ast.Free("X")))},
			kind: UndefinedRelation,
		},
		{
			name: "undefined ie function",
			stmts: []ast.Statement{parent,
				ast.NewRule("r", []string{"Y"}, ast.Rel("parent", ast.Free("X"), ast.Free("Z")),
					ast.IE("nosuch", ast.Terms(ast.Free("X")), ast.Terms(ast.Free("Y"))))},
			kind: UndefinedIEFunction,
		},
		{
			name: "ie input arity",
			stmts: []ast.Statement{parent,
				ast.NewRule("r", []string{"Y"}, ast.Rel("parent", ast.Free("X"), ast.Free("Z")),
					ast.IE("rgx", ast.Terms(ast.Free("X")), ast.Terms(ast.Free("Y"))))},
			kind: ArityMismatch,
		},
		{
			name:  "fact type mismatch",
			stmts: []ast.Statement{parent, ast.Fact("parent", ast.Str("bob"), ast.Int(5))},
			kind:  TermsNotProperlyTypedError,
		},
		{
			name:  "query type mismatch",
			stmts: []ast.Statement{parent, ast.Ask("parent", ast.Str("bob"), ast.Int(5))},
			kind:  TermsNotProperlyTypedError,
		},
		{
			name: "variable type mismatch",
			stmts: []ast.Statement{parent, ast.Assign("n", ast.Int(3)),
				ast.Retract("parent", ast.Ref("n"), ast.Str("a"))},
			kind: TermsNotProperlyTypedError,
		},
		{
			name: "invalid pattern",
			stmts: []ast.Statement{parent,
				ast.NewRule("r", []string{"S"}, ast.Rel("parent", ast.Free("X"), ast.Free("Z")),
					ast.IE("rgx", ast.Terms(ast.Free("X"), ast.Str("(")), ast.Terms(ast.Free("S"))))},
			kind: InvalidIECall,
		},
		{
			name: "ie output arity",
			stmts: []ast.Statement{parent,
				ast.NewRule("r", []string{"S"}, ast.Rel("parent", ast.Free("X"), ast.Free("Z")),
					ast.IE("rgx", ast.Terms(ast.Free("X"), ast.Str("(a)(b)")), ast.Terms(ast.Free("S"))))},
			kind: ArityMismatch,
		},
		{
			name:  "read path not a string",
			stmts: []ast.Statement{ast.Assign("p", ast.Int(1)), ast.Read("doc", ast.Ref("p"))},
			kind:  UnreadableFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := check(t, nil, tt.stmts...)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err), "got %v", err)
			assert.True(t, IsKind(err, tt.kind))
		})
	}
}

func TestCheckRestoresSymbolsOnError(t *testing.T) {
	symbols := symtab.New(nil)
	_, err := check(t, symbols,
		ast.Assign("x", ast.Int(1)),
		ast.Declare("a", ir.TypeInt),
		ast.Fact("a", ast.Str("wrong")))
	require.Error(t, err)

	assert.Empty(t, symbols.Relations())
	assert.False(t, symbols.HasVariable("x"))
}

func TestCheckSeesEarlierPrograms(t *testing.T) {
	symbols := symtab.New(nil)
	require.NoError(t, symbols.SetSchema("parent", ir.Schema{ir.TypeString, ir.TypeString}))
	symbols.SetVariable("who", ir.String("bob"))

	_, err := check(t, symbols, ast.Fact("parent", ast.Ref("who"), ast.Str("greg")))
	require.NoError(t, err)

	_, err = check(t, symbols, ast.Declare("parent", ir.TypeInt))
	assert.True(t, IsKind(err, RelationRedefinition))
}

func TestCheckReadsFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("hello"), 0o600))

	symbols := symtab.New(nil)
	prog := ast.NewProgram(
		ast.Assign("name", ast.Str("doc.txt")),
		ast.Read("text", ast.Ref("name")),
	)
	a := NewAnalysis(prog, symbols, WithBaseDir(dir))
	require.NoError(t, Check(a))

	read := prog.Statements[1].(*ast.ReadAssignment)
	assert.Equal(t, "hello", a.Files[read])
}

func TestCheckUnreadableFile(t *testing.T) {
	failing := WithReadFile(func(string) ([]byte, error) { return nil, errors.New("permission denied") })
	a := NewAnalysis(ast.NewProgram(ast.Read("text", ast.Str("/secret"))), symtab.New(nil), failing)
	err := Check(a)
	require.Error(t, err)
	assert.True(t, IsKind(err, UnreadableFile))
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), ErrUnreadableFile)
}

func TestSemanticErrorFormat(t *testing.T) {
	err := newError(UndefinedRelation, ast.Pos{Line: 3, Column: 5}, "relation %q is not defined", "x")
	assert.Equal(t, `[E203] line 3:5: UndefinedRelation: relation "x" is not defined`, err.Error())

	err = newError(UndefinedRelation, ast.Pos{}, "oops")
	assert.Equal(t, `[E203] UndefinedRelation: oops`, err.Error())
}
