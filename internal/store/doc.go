// Package store provides the SQLite backend.
//
// Base relations are tables with one column per term (c0, c1, ...) and a
// UNIQUE constraint over all columns, so inserts are idempotent. Derived
// relations are kept as QueryIR rules and compiled on every query into a
// WITH clause: one common table expression per derived relation, in
// dependency order, each the UNION of its rules' SELECT DISTINCT.
//
// # Value Encoding
//
//   - string  → TEXT, NFC normalized
//   - integer → INTEGER
//   - span    → TEXT "[start, stop)"
//
// Column types are fixed by the relation schema, so a span never compares
// against a string.
//
// # Critical Patterns
//
// Deterministic Query Results
//   - Every read includes ORDER BY over all columns, COLLATE BINARY
//   - Rows are then sorted with ir.CompareTuples so spans and integers
//     order numerically, exactly like the other backends
//
// Parameterized SQL
//   - Values are NEVER interpolated into SQL text
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// A catalog table records every relation the session created. Opening an
// existing database drops the previous session's relations.
package store
