package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SessionIDGenerator generates session identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session IDs.
//
// UUIDv7 embeds a millisecond timestamp, so sessions sort by start time in
// logs.
//
// Thread-safe: uuid.NewV7() is safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
//
// Panics if the system random source fails, which the uuid package treats
// as unrecoverable.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined session IDs for deterministic tests.
//
// Thread-safe: uses mutex for concurrent access.
//
// Panics when all IDs have been consumed, so a test that creates more
// sessions than it planned fails loudly.
type FixedGenerator struct {
	mu    sync.Mutex
	ids   []string
	index int
}

// NewFixedGenerator creates a generator that returns the given IDs in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.index >= len(g.ids) {
		panic(fmt.Sprintf("FixedGenerator exhausted: generated %d IDs, no more available", len(g.ids)))
	}
	id := g.ids[g.index]
	g.index++
	return id
}
