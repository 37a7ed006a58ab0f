// Package engine implements the treesync bidirectional sync engine.
//
// The engine moves a subtree of the graph store to and from its canonical
// document form, and brings the store in line with an edited document.
//
// ARCHITECTURE:
//
// Export:
// Serialize reads one node's own data and children through graph.Reader
// and produces a document. Every node reference is written as the
// referenced node's store path, so exports are stable for a fixed store.
//
// Reconcile:
// 1. Serialize the node shallowly (no children)
// 2. diff.Compute the shallow form against the target document
// 3. Classify each change into a typed Patch
// 4. The Dispatcher applies each patch through graph.Writer, in diff order
// 5. Children are matched by reference: unmatched current children are
//    deleted, unmatched target children are created, then every target
//    child is reconciled recursively
//
// Member-data patches that are too shallow for a single write are expanded
// one level at a time through a FIFO change queue until every change names
// a single member datum.
//
// Errors:
// Every sync failure is a *SyncError with a SyncErrorCode. Reconcile stops
// at the first error; writes already applied are not rolled back.
//
// The engine is single-threaded and holds no state between calls beyond
// its store and base node, so an Engine must not be shared by concurrent
// reconciles against the same subtree.
package engine
