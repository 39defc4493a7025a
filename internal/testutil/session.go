package testutil

// FixedSessionGenerator generates the same session ID every time.
//
// Session IDs end up in log lines and runtime errors; a fixed ID keeps
// those byte-identical across runs.
//
// Unlike engine.FixedGenerator which returns IDs in sequence and panics
// when exhausted, this generator can back any number of sessions.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a new fixed session ID generator.
//
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session ID.
//
// Implements engine.SessionIDGenerator interface.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
