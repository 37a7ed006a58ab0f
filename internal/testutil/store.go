package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/treesync/internal/store"
)

// OpenStore opens a store in a temp dir with sequential guids.
// The store is closed when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithGUIDGenerator(NewSequentialGUIDs("g")))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
