package store

import (
	"sync"

	"github.com/google/uuid"
)

// GUIDGenerator generates global identifiers for new nodes.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type GUIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 guids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so guids sort by
// creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined guids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu    sync.Mutex
	guids []string
	idx   int
}

// NewFixedGenerator creates a generator that returns guids in order.
//
// Example:
//
//	gen := NewFixedGenerator("root", "fco", "node-1")
//	gen.Generate() // "root"
//	gen.Generate() // "fco"
//	gen.Generate() // "node-1"
//	gen.Generate() // panic: all guids exhausted
func NewFixedGenerator(guids ...string) *FixedGenerator {
	return &FixedGenerator{guids: guids}
}

// Generate returns the next predetermined guid.
//
// Panics if all guids have been consumed, to catch a test that creates more
// nodes than it expected.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.guids) {
		panic("FixedGenerator: all guids exhausted")
	}
	guid := g.guids[g.idx]
	g.idx++
	return guid
}
