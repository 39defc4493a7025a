package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
	"github.com/roach88/rgxlog/internal/queryir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - No catalog
// 1 - rgxlog_relations catalog
const currentSchemaVersion = 1

// Store is a backend.Backend on top of SQLite.
//
// Thread-safety: all methods are serialized by an internal mutex; the
// connection pool is limited to a single connection.
type Store struct {
	db     *sql.DB
	namer  *backend.Namer
	logger *slog.Logger

	mu      sync.Mutex
	schemas map[string]ir.Schema // every relation, base or derived
	tables  map[string]bool      // relations backed by a table
	rules   map[string][]*queryir.Project
}

// Option configures a Store.
type Option func(*Store)

// WithNamer shares the temporary relation namer of an engine session.
func WithNamer(namer *backend.Namer) Option {
	return func(s *Store) {
		s.namer = namer
	}
}

// WithLogger sets the logger for SQL tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

var _ backend.Backend = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, then drops the
// relations of any previous session.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Use ":memory:" for a private in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and an in-memory
	// database lives on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := resetCatalog(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reset catalog: %w", err)
	}

	s := &Store{
		db:      db,
		logger:  slog.Default(),
		schemas: make(map[string]ir.Schema),
		tables:  make(map[string]bool),
		rules:   make(map[string][]*queryir.Project),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.namer == nil {
		s.namer = backend.NewNamer()
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ComputeRuleBodyRelation projects rel onto its free variables.
func (s *Store) ComputeRuleBodyRelation(ctx context.Context, rel ir.Relation) (ir.Relation, error) {
	return backend.Project(ctx, s, s.namer, rel)
}

// ComputeRuleBodyIERelation materializes an IE relation with backend.ComputeIE.
func (s *Store) ComputeRuleBodyIERelation(ctx context.Context, rel ir.IERelation, fn *iefunc.Function, bounding *ir.Relation) (ir.Relation, error) {
	return backend.ComputeIE(ctx, s, s.namer, rel, fn, bounding)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the catalog if it doesn't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// resetCatalog drops every relation recorded by a previous session.
func resetCatalog(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM rgxlog_relations ORDER BY name COLLATE BINARY`)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan catalog: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + tableName(name)); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	if _, err := db.Exec(`DELETE FROM rgxlog_relations`); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
