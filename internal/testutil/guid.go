// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialGUIDs generates prefix1, prefix2, ... in order.
//
// A fresh store consumes the first two guids for the root and the prototype
// node, so the first node a test creates gets prefix3.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialGUIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialGUIDs creates a generator. An empty prefix defaults to "g".
func NewSequentialGUIDs(prefix string) *SequentialGUIDs {
	if prefix == "" {
		prefix = "g"
	}
	return &SequentialGUIDs{prefix: prefix}
}

// Generate returns the next guid.
func (g *SequentialGUIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s%d", g.prefix, g.seq)
}

// Issued returns how many guids have been generated.
func (g *SequentialGUIDs) Issued() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. After Reset, the next guid is prefix1.
func (g *SequentialGUIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
