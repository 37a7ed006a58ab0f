// Package graph defines the contract between the sync engine and a
// hierarchical graph-model store.
//
// The engine never sees a concrete store. It holds transient Node handles and
// performs every read and write through Store, one call at a time. Each call
// takes a context and may block; none of them run concurrently.
//
// A node has:
//   - identity: a guid and a store-local path ("" for the root, "/1/7" below it)
//   - attributes, attribute meta, pointers, pointer meta, registry entries
//   - named, ordered sets of members; each (set, member) pair owns its own
//     attributes and registry entries
//   - ordered children; the parent is fixed at creation
package graph

import (
	"context"
	"errors"

	"github.com/roach88/treesync/internal/ir"
)

// Well-known names shared by the engine and stores.
const (
	// NameAttribute is the attribute symbolic references match on.
	NameAttribute = "name"

	// MetaAspectSet is the set on the root node whose members form the global
	// meta-node registry.
	MetaAspectSet = "MetaAspectSet"

	// RootPath is the path of the root node.
	RootPath = ""
)

// ErrNotFound marks a node, field or membership that does not exist.
var ErrNotFound = errors.New("not found")

// Node is a transient handle on a store node.
// Two handles denote the same node when their paths are equal.
type Node interface {
	Path() string
	GUID() string
}

// SameNode reports whether a and b denote the same node.
func SameNode(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Path() == b.Path()
}

// PointerLimits is a {min, max} cardinality pair. -1 means unbounded.
type PointerLimits struct {
	Min int64
	Max int64
}

// Reader is the read half of the store contract.
// Own* listings never include inherited names; value reads may.
type Reader interface {
	Root(ctx context.Context) (Node, error)
	// LoadByPath returns ErrNotFound when no node has the path.
	LoadByPath(ctx context.Context, path string) (Node, error)
	LoadChildren(ctx context.Context, n Node) ([]Node, error)
	// MetaNodes returns the members of the global meta-node registry.
	MetaNodes(ctx context.Context) ([]Node, error)

	OwnAttributeNames(ctx context.Context, n Node) ([]string, error)
	// Attribute returns the attribute value, falling back along the base
	// chain. The bool is false when neither the node nor a base has it.
	Attribute(ctx context.Context, n Node, name string) (ir.IRValue, bool, error)

	OwnValidAttributeNames(ctx context.Context, n Node) ([]string, error)
	AttributeMeta(ctx context.Context, n Node, name string) (ir.IRValue, error)

	OwnPointerNames(ctx context.Context, n Node) ([]string, error)
	// PointerPath returns the target path; ok is false for a pointer that
	// exists without a target.
	PointerPath(ctx context.Context, n Node, name string) (path string, ok bool, err error)

	OwnValidPointerNames(ctx context.Context, n Node) ([]string, error)
	// PointerMeta returns {"min": m, "max": M, "<target path>": {"min", "max"}...}.
	PointerMeta(ctx context.Context, n Node, name string) (ir.IRObject, error)

	OwnRegistryNames(ctx context.Context, n Node) ([]string, error)
	Registry(ctx context.Context, n Node, name string) (ir.IRValue, error)

	OwnSetNames(ctx context.Context, n Node) ([]string, error)
	// MemberPaths lists members in insertion order.
	MemberPaths(ctx context.Context, n Node, set string) ([]string, error)
	MemberAttributeNames(ctx context.Context, n Node, set, member string) ([]string, error)
	MemberAttribute(ctx context.Context, n Node, set, member, name string) (ir.IRValue, error)
	MemberRegistryNames(ctx context.Context, n Node, set, member string) ([]string, error)
	MemberRegistry(ctx context.Context, n Node, set, member, name string) (ir.IRValue, error)
}

// Writer is the mutating half of the store contract.
type Writer interface {
	SetAttribute(ctx context.Context, n Node, name string, v ir.IRValue) error
	DelAttribute(ctx context.Context, n Node, name string) error
	SetAttributeMeta(ctx context.Context, n Node, name string, v ir.IRValue) error
	DelAttributeMeta(ctx context.Context, n Node, name string) error

	// SetPointer points name at target; a nil target sets an empty pointer.
	SetPointer(ctx context.Context, n Node, name string, target Node) error
	DelPointer(ctx context.Context, n Node, name string) error

	// SetPointerMetaLimits takes both bounds together.
	SetPointerMetaLimits(ctx context.Context, n Node, name string, limits PointerLimits) error
	SetPointerMetaTarget(ctx context.Context, n Node, name string, target Node, limits PointerLimits) error
	DelPointerMeta(ctx context.Context, n Node, name string) error
	DelPointerMetaTarget(ctx context.Context, n Node, name, targetPath string) error

	SetRegistry(ctx context.Context, n Node, name string, v ir.IRValue) error
	DelRegistry(ctx context.Context, n Node, name string) error

	CreateSet(ctx context.Context, n Node, set string) error
	DelSet(ctx context.Context, n Node, set string) error
	AddMember(ctx context.Context, n Node, set string, member Node) error
	// DelMember removes the member and the (set, member) data with it.
	DelMember(ctx context.Context, n Node, set, member string) error
	SetMemberAttribute(ctx context.Context, n Node, set, member, name string, v ir.IRValue) error
	DelMemberAttribute(ctx context.Context, n Node, set, member, name string) error
	SetMemberRegistry(ctx context.Context, n Node, set, member, name string, v ir.IRValue) error
	DelMemberRegistry(ctx context.Context, n Node, set, member, name string) error

	// CreateNode instantiates base under parent.
	CreateNode(ctx context.Context, base, parent Node) (Node, error)
	// DeleteNode removes n and its subtree.
	DeleteNode(ctx context.Context, n Node) error
}

// Store is the full contract consumed by the engine.
type Store interface {
	Reader
	Writer
}
