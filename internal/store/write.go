package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
	"github.com/roach88/rgxlog/internal/querysql"
)

// DeclareRelation creates the table of a base relation and records it in
// the catalog.
func (s *Store) DeclareRelation(ctx context.Context, decl ir.RelationDeclaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schemas[decl.Name]; ok {
		return fmt.Errorf("%w: %s", backend.ErrRelationExists, decl.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("declare %s: %w", decl.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableSQL(decl.Name, decl.Schema)); err != nil {
		return fmt.Errorf("declare %s: %w", decl.Name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO rgxlog_relations (name, schema, temp)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, decl.Name, decl.Schema.String(), ir.IsReserved(decl.Name))
	if err != nil {
		return fmt.Errorf("declare %s: %w", decl.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("declare %s: %w", decl.Name, err)
	}

	s.schemas[decl.Name] = decl.Schema.Clone()
	s.tables[decl.Name] = true
	s.logger.Debug("declare relation", "relation", decl.String())
	return nil
}

// factParams checks a fact against its table and converts it to parameters.
func (s *Store) factParams(fact ir.Relation) ([]any, error) {
	if !s.tables[fact.Name] {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownRelation, fact.Name)
	}
	tuple, err := backend.FactTuple(fact)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fact, err)
	}
	schema := s.schemas[fact.Name]
	if !tuple.Types().Equal(schema) {
		return nil, fmt.Errorf("fact %s does not match schema %s%s", fact, fact.Name, schema)
	}
	return marshalTuple(tuple)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func columnList(n int) string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = querysql.Column(i)
	}
	return strings.Join(cols, ", ")
}

// AddFact inserts a ground tuple.
// Uses ON CONFLICT DO NOTHING for idempotency - duplicate tuples are silently ignored.
func (s *Store) AddFact(ctx context.Context, fact ir.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.factParams(fact)
	if err != nil {
		return err
	}
	n := len(params)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		tableName(fact.Name), columnList(n), placeholders(n))
	if _, err := s.db.ExecContext(ctx, stmt, params...); err != nil {
		return fmt.Errorf("add fact %s: %w", fact, err)
	}
	return nil
}

// RemoveFact deletes a ground tuple. Removing an absent tuple is a no-op.
func (s *Store) RemoveFact(ctx context.Context, fact ir.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.factParams(fact)
	if err != nil {
		return err
	}
	conds := make([]string, len(params))
	for i := range params {
		conds[i] = querysql.Column(i) + " = ?"
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", tableName(fact.Name), strings.Join(conds, " AND "))
	if _, err := s.db.ExecContext(ctx, stmt, params...); err != nil {
		return fmt.Errorf("remove fact %s: %w", fact, err)
	}
	s.logger.Debug("remove fact", "fact", fact.String())
	return nil
}

// AddRule adds one disjunct to the definition of head. The rule is
// compiled into SQL when a query reads head.
func (s *Store) AddRule(ctx context.Context, head ir.Relation, body []ir.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rel := range body {
		schema, ok := s.schemas[rel.Name]
		if !ok {
			return fmt.Errorf("%w: %s", backend.ErrUnknownRelation, rel.Name)
		}
		if len(schema) != rel.Arity() {
			return fmt.Errorf("%s has arity %d, used with %d terms", rel.Name, len(schema), rel.Arity())
		}
	}
	if schema, ok := s.schemas[head.Name]; ok && len(schema) != head.Arity() {
		return fmt.Errorf("%s has arity %d, defined with %d terms", head.Name, len(schema), head.Arity())
	}
	query, err := queryir.FromRule(head, body)
	if err != nil {
		return err
	}
	s.rules[head.Name] = append(s.rules[head.Name], query)
	if _, ok := s.schemas[head.Name]; !ok {
		s.schemas[head.Name] = head.Types.Clone()
	}
	return nil
}

// RemoveTempResult drops a temporary relation, its table and its rules.
func (s *Store) RemoveTempResult(ctx context.Context, rel ir.Relation) error {
	if !ir.IsReserved(rel.Name) {
		return fmt.Errorf("%s is not a temporary relation", rel.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[rel.Name] {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+tableName(rel.Name)); err != nil {
			return fmt.Errorf("drop %s: %w", rel.Name, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM rgxlog_relations WHERE name = ?`, rel.Name); err != nil {
			return fmt.Errorf("drop %s: %w", rel.Name, err)
		}
	}
	delete(s.tables, rel.Name)
	delete(s.rules, rel.Name)
	delete(s.schemas, rel.Name)
	return nil
}
