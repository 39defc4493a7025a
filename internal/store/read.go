package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
	"github.com/roach88/rgxlog/internal/querysql"
)

// Query returns the matching rows of q.Name, deduplicated and ordered by
// ir.CompareTuples.
func (s *Store) Query(ctx context.Context, q ir.Relation) ([]ir.Tuple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, ok := s.schemas[q.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownRelation, q.Name)
	}
	if len(schema) != q.Arity() {
		return nil, fmt.Errorf("%s has arity %d, queried with %d terms", q.Name, len(schema), q.Arity())
	}

	stmt, params, err := s.compileQuery(q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	s.logger.Debug("sql query", "relation", q.Name, "sql", stmt)

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	defer rows.Close()

	var out []ir.Tuple
	for rows.Next() {
		raw := make([]any, querysql.PhysicalArity(len(schema)))
		dest := make([]any, len(raw))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Name, err)
		}
		tuple, err := unmarshalTuple(raw, schema)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", q.Name, err)
		}
		out = append(out, tuple)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	slices.SortStableFunc(out, ir.CompareTuples)
	return out, nil
}

// compileQuery builds the WITH clause for every derived relation q depends
// on, followed by the filtered read of q itself.
func (s *Store) compileQuery(q ir.Relation) (string, []any, error) {
	order, err := s.dependencies(q.Name)
	if err != nil {
		return "", nil, err
	}
	compiler := querysql.NewSQLCompiler(s.resolve)

	var ctes []string
	var params []any
	for _, name := range order {
		var parts []string
		if s.tables[name] {
			n := querysql.PhysicalArity(len(s.schemas[name]))
			parts = append(parts, fmt.Sprintf("SELECT %s FROM %s", columnList(n), tableName(name)))
		}
		for _, rule := range s.rules[name] {
			sql, ruleParams, err := compiler.Compile(rule)
			if err != nil {
				return "", nil, fmt.Errorf("compile rule for %s: %w", name, err)
			}
			parts = append(parts, sql)
			params = append(params, ruleParams...)
		}
		ctes = append(ctes, cteName(name)+" AS ("+strings.Join(parts, " UNION ")+")")
	}

	read, readParams, err := compiler.Compile(queryir.FromRelation(q))
	if err != nil {
		return "", nil, err
	}
	if len(ctes) == 0 {
		return read, readParams, nil
	}
	return "WITH " + strings.Join(ctes, ", ") + " " + read, append(params, readParams...), nil
}

// resolve maps a relation to its SQL source.
func (s *Store) resolve(relation string) (string, error) {
	if len(s.rules[relation]) > 0 {
		return cteName(relation), nil
	}
	if s.tables[relation] {
		return tableName(relation), nil
	}
	return "", fmt.Errorf("%w: %s", backend.ErrUnknownRelation, relation)
}

// dependencies returns the derived relations reachable from name, each
// after the relations it reads.
func (s *Store) dependencies(name string) ([]string, error) {
	var order []string
	done := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(string) error
	visit = func(rel string) error {
		if done[rel] || len(s.rules[rel]) == 0 {
			return nil
		}
		if visiting[rel] {
			return fmt.Errorf("recursive definition of %s is not supported", rel)
		}
		visiting[rel] = true
		for _, rule := range s.rules[rel] {
			for _, sel := range queryir.Selects(rule) {
				if err := visit(sel.From); err != nil {
					return err
				}
			}
		}
		visiting[rel] = false
		done[rel] = true
		order = append(order, rel)
		return nil
	}
	if err := visit(name); err != nil {
		return nil, err
	}
	return order, nil
}
