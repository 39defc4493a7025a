package backend

import (
	"strconv"
	"sync/atomic"

	"github.com/roach88/rgxlog/internal/ir"
)

// Namer hands out unique names for temporary relations.
//
// Names are the reserved prefix followed by a strictly increasing counter,
// so they can never collide with user relations. One Namer is shared by an
// engine session and its backend.
//
// Thread-safety: Namer is safe for concurrent use (atomic operations).
type Namer struct {
	seq atomic.Int64
}

// NewNamer creates a namer starting at 0.
func NewNamer() *Namer {
	return &Namer{}
}

// Next returns the next unused name.
func (n *Namer) Next() string {
	return ir.TempPrefix + strconv.FormatInt(n.seq.Add(1), 10)
}

// Current returns the number of names handed out so far.
func (n *Namer) Current() int64 {
	return n.seq.Load()
}
