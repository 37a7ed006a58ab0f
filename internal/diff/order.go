package diff

import (
	"sort"

	"github.com/roach88/treesync/internal/document"
)

// rank orders categories so that a change never runs before the data it
// depends on: pointer meta, then set membership, then per-member data.
func rank(category string) int {
	switch category {
	case document.PointerMeta:
		return 0
	case document.Sets:
		return 1
	case document.MemberAttributes, document.MemberRegistry:
		return 2
	default:
		return 3
	}
}

// Order returns changes sorted by category rank. Changes within a rank keep
// their relative order; changes is not modified.
func Order(changes []Change) []Change {
	out := make([]Change, len(changes))
	copy(out, changes)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Category()) < rank(out[j].Category())
	})
	return out
}
