// Package store provides a SQLite-backed graph model store.
//
// A Store implements graph.Store. Nodes are addressed by path: "" is the
// root, "/1" the prototype node every created node derives from, and every
// other path is its parent's path + "/" + relid ("/2/7" is a child of "/2").
// Relids come from a single counter and are never reused.
//
// Opening a new database creates:
//   - the root node
//   - the prototype node "/1" named "FCO"
//   - the root's MetaAspectSet, holding "/1"
//
// # Values
//
// Attributes, attribute meta, registry entries and member data are stored
// as canonical JSON text (see ir.MarshalCanonical). Reads return ir values.
//
// # Missing data
//
// Reads and deletes of missing rows return an error wrapping
// graph.ErrNotFound. Attribute is the exception: it reports absence with its
// bool result and falls back along the base chain.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Cascading deletes of subtrees and memberships
package store
