// Package querysql compiles QueryIR trees to parameterized SQLite SQL.
//
// Every relation is read through a Resolver that maps relation names to
// SQL sources (a table or a common table expression). Columns of every
// source are named c0, c1, ...; a relation of arity zero still has one
// placeholder column c0 so that it can be represented in SQL.
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
)

// Resolver returns the quoted SQL source name for a relation.
type Resolver func(relation string) (string, error)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: top-level reads include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	Resolve Resolver
}

// NewSQLCompiler creates a compiler reading relations through resolve.
func NewSQLCompiler(resolve Resolver) *SQLCompiler {
	return &SQLCompiler{Resolve: resolve}
}

// Column returns the SQL column name of position i.
func Column(i int) string {
	return "c" + strconv.Itoa(i)
}

// PhysicalArity is the number of SQL columns a relation of the given arity uses.
func PhysicalArity(arity int) int {
	if arity == 0 {
		return 1
	}
	return arity
}

// Quote quotes an SQL identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Param converts a value to its SQL parameter. Spans are stored as their
// "[start, stop)" literal and strings in NFC.
func Param(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return ir.NormalizeString(string(val)), nil
	case ir.Int:
		return int64(val), nil
	case ir.Span:
		return val.Literal(), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// Compile converts a query to parameterized SQL.
//
// A *queryir.Select compiles to a full-row read of its relation, ordered by
// every column. A *queryir.Project compiles to the SELECT DISTINCT that
// defines a rule's head rows, with columns c0..cn-1.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil query")
	case *queryir.Select:
		return c.compileSelect(query)
	case *queryir.Project:
		return c.compileProject(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a full-row read.
// MANDATORY: Includes ORDER BY.
func (c *SQLCompiler) compileSelect(s *queryir.Select) (string, []any, error) {
	var b scopeBuilder
	if err := b.add(c, s); err != nil {
		return "", nil, err
	}
	n := PhysicalArity(s.Arity)
	cols := make([]string, n)
	for i := range cols {
		cols[i] = "t0." + Column(i)
	}
	sql := "SELECT " + strings.Join(cols, ", ") + b.fromWhere() + " ORDER BY " + stableOrderKey(cols)
	return sql, b.params(), nil
}

// compileProject compiles a rule body into its head rows.
func (c *SQLCompiler) compileProject(p *queryir.Project) (string, []any, error) {
	var b scopeBuilder
	for _, s := range queryir.Selects(p.Input) {
		if err := b.add(c, s); err != nil {
			return "", nil, err
		}
	}

	var head []string
	var headParams []any
	for i, t := range p.Head {
		if t.IsFreeVar() {
			col, ok := b.first[t.FreeVar]
			if !ok {
				return "", nil, fmt.Errorf("head variable %s is not bound by the body", t.FreeVar)
			}
			head = append(head, col+" AS "+Column(i))
			continue
		}
		param, err := Param(t.Value)
		if err != nil {
			return "", nil, fmt.Errorf("head column %d: %w", i, err)
		}
		head = append(head, "? AS "+Column(i))
		headParams = append(headParams, param)
	}
	if len(head) == 0 {
		head = []string{"0 AS " + Column(0)}
	}

	sql := "SELECT DISTINCT " + strings.Join(head, ", ") + b.fromWhere()
	return sql, append(headParams, b.params()...), nil
}

// stableOrderKey returns the ORDER BY list for a full-row read.
// COLLATE BINARY ensures deterministic text ordering across SQLite versions.
func stableOrderKey(cols []string) string {
	keys := make([]string, len(cols))
	for i, col := range cols {
		keys[i] = col + " COLLATE BINARY"
	}
	return strings.Join(keys, ", ")
}

// scopeBuilder accumulates the FROM and WHERE clauses of one SELECT.
type scopeBuilder struct {
	from        []string
	where       []string
	whereParams []any
	first       map[string]string // variable → column of its first binding
}

func (b *scopeBuilder) add(c *SQLCompiler, s *queryir.Select) error {
	if c.Resolve == nil {
		return fmt.Errorf("compiler has no resolver")
	}
	if b.first == nil {
		b.first = make(map[string]string)
	}
	src, err := c.Resolve(s.From)
	if err != nil {
		return err
	}
	alias := "t" + strconv.Itoa(len(b.from))
	b.from = append(b.from, src+" AS "+alias)
	col := func(i int) string { return alias + "." + Column(i) }

	for _, p := range queryir.Conditions(s.Filter) {
		switch pred := p.(type) {
		case *queryir.Equals:
			param, err := Param(pred.Value)
			if err != nil {
				return fmt.Errorf("%s column %d: %w", s.From, pred.Column, err)
			}
			b.where = append(b.where, col(pred.Column)+" = ?")
			b.whereParams = append(b.whereParams, param)
		case *queryir.SameColumn:
			b.where = append(b.where, col(pred.Left)+" = "+col(pred.Right))
		default:
			return fmt.Errorf("unsupported predicate type: %T", p)
		}
	}
	for _, bnd := range s.Bindings {
		if prev, ok := b.first[bnd.Var]; ok {
			b.where = append(b.where, prev+" = "+col(bnd.Column))
			continue
		}
		b.first[bnd.Var] = col(bnd.Column)
	}
	return nil
}

func (b *scopeBuilder) fromWhere() string {
	sql := " FROM " + strings.Join(b.from, ", ")
	if len(b.where) > 0 {
		sql += " WHERE " + strings.Join(b.where, " AND ")
	}
	return sql
}

func (b *scopeBuilder) params() []any {
	return b.whereParams
}
