package graph

import (
	"context"
	"strconv"

	"github.com/roach88/treesync/internal/ir"
)

// Mutation is one mutating store call observed by a Recorder.
type Mutation struct {
	Op   string   `json:"op"`
	Node string   `json:"node"`
	Args []string `json:"args,omitempty"`
}

// Recorder wraps a Store and records every successful mutating call.
// Reads pass straight through.
type Recorder struct {
	Store
	mutations []Mutation
}

// NewRecorder wraps s.
func NewRecorder(s Store) *Recorder {
	return &Recorder{Store: s}
}

// Mutations returns the calls recorded so far, oldest first.
func (r *Recorder) Mutations() []Mutation {
	out := make([]Mutation, len(r.mutations))
	copy(out, r.mutations)
	return out
}

// Count returns the number of recorded calls.
func (r *Recorder) Count() int { return len(r.mutations) }

// Reset forgets recorded calls.
func (r *Recorder) Reset() { r.mutations = nil }

func (r *Recorder) record(err error, op string, n Node, args ...string) error {
	if err != nil {
		return err
	}
	path := ""
	if n != nil {
		path = n.Path()
	}
	r.mutations = append(r.mutations, Mutation{Op: op, Node: path, Args: args})
	return nil
}

func valueArg(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "<invalid>"
	}
	return string(data)
}

func nodeArg(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.Path()
}

func limitsArgs(l PointerLimits) []string {
	return []string{strconv.FormatInt(l.Min, 10), strconv.FormatInt(l.Max, 10)}
}

func (r *Recorder) SetAttribute(ctx context.Context, n Node, name string, v ir.IRValue) error {
	return r.record(r.Store.SetAttribute(ctx, n, name, v), "SetAttribute", n, name, valueArg(v))
}

func (r *Recorder) DelAttribute(ctx context.Context, n Node, name string) error {
	return r.record(r.Store.DelAttribute(ctx, n, name), "DelAttribute", n, name)
}

func (r *Recorder) SetAttributeMeta(ctx context.Context, n Node, name string, v ir.IRValue) error {
	return r.record(r.Store.SetAttributeMeta(ctx, n, name, v), "SetAttributeMeta", n, name, valueArg(v))
}

func (r *Recorder) DelAttributeMeta(ctx context.Context, n Node, name string) error {
	return r.record(r.Store.DelAttributeMeta(ctx, n, name), "DelAttributeMeta", n, name)
}

func (r *Recorder) SetPointer(ctx context.Context, n Node, name string, target Node) error {
	return r.record(r.Store.SetPointer(ctx, n, name, target), "SetPointer", n, name, nodeArg(target))
}

func (r *Recorder) DelPointer(ctx context.Context, n Node, name string) error {
	return r.record(r.Store.DelPointer(ctx, n, name), "DelPointer", n, name)
}

func (r *Recorder) SetPointerMetaLimits(ctx context.Context, n Node, name string, limits PointerLimits) error {
	return r.record(r.Store.SetPointerMetaLimits(ctx, n, name, limits), "SetPointerMetaLimits", n,
		append([]string{name}, limitsArgs(limits)...)...)
}

func (r *Recorder) SetPointerMetaTarget(ctx context.Context, n Node, name string, target Node, limits PointerLimits) error {
	return r.record(r.Store.SetPointerMetaTarget(ctx, n, name, target, limits), "SetPointerMetaTarget", n,
		append([]string{name, nodeArg(target)}, limitsArgs(limits)...)...)
}

func (r *Recorder) DelPointerMeta(ctx context.Context, n Node, name string) error {
	return r.record(r.Store.DelPointerMeta(ctx, n, name), "DelPointerMeta", n, name)
}

func (r *Recorder) DelPointerMetaTarget(ctx context.Context, n Node, name, targetPath string) error {
	return r.record(r.Store.DelPointerMetaTarget(ctx, n, name, targetPath), "DelPointerMetaTarget", n, name, targetPath)
}

func (r *Recorder) SetRegistry(ctx context.Context, n Node, name string, v ir.IRValue) error {
	return r.record(r.Store.SetRegistry(ctx, n, name, v), "SetRegistry", n, name, valueArg(v))
}

func (r *Recorder) DelRegistry(ctx context.Context, n Node, name string) error {
	return r.record(r.Store.DelRegistry(ctx, n, name), "DelRegistry", n, name)
}

func (r *Recorder) CreateSet(ctx context.Context, n Node, set string) error {
	return r.record(r.Store.CreateSet(ctx, n, set), "CreateSet", n, set)
}

func (r *Recorder) DelSet(ctx context.Context, n Node, set string) error {
	return r.record(r.Store.DelSet(ctx, n, set), "DelSet", n, set)
}

func (r *Recorder) AddMember(ctx context.Context, n Node, set string, member Node) error {
	return r.record(r.Store.AddMember(ctx, n, set, member), "AddMember", n, set, nodeArg(member))
}

func (r *Recorder) DelMember(ctx context.Context, n Node, set, member string) error {
	return r.record(r.Store.DelMember(ctx, n, set, member), "DelMember", n, set, member)
}

func (r *Recorder) SetMemberAttribute(ctx context.Context, n Node, set, member, name string, v ir.IRValue) error {
	return r.record(r.Store.SetMemberAttribute(ctx, n, set, member, name, v), "SetMemberAttribute", n,
		set, member, name, valueArg(v))
}

func (r *Recorder) DelMemberAttribute(ctx context.Context, n Node, set, member, name string) error {
	return r.record(r.Store.DelMemberAttribute(ctx, n, set, member, name), "DelMemberAttribute", n, set, member, name)
}

func (r *Recorder) SetMemberRegistry(ctx context.Context, n Node, set, member, name string, v ir.IRValue) error {
	return r.record(r.Store.SetMemberRegistry(ctx, n, set, member, name, v), "SetMemberRegistry", n,
		set, member, name, valueArg(v))
}

func (r *Recorder) DelMemberRegistry(ctx context.Context, n Node, set, member, name string) error {
	return r.record(r.Store.DelMemberRegistry(ctx, n, set, member, name), "DelMemberRegistry", n, set, member, name)
}

func (r *Recorder) CreateNode(ctx context.Context, base, parent Node) (Node, error) {
	n, err := r.Store.CreateNode(ctx, base, parent)
	if err != nil {
		return nil, err
	}
	r.mutations = append(r.mutations, Mutation{Op: "CreateNode", Node: n.Path(), Args: []string{nodeArg(base), nodeArg(parent)}})
	return n, nil
}

func (r *Recorder) DeleteNode(ctx context.Context, n Node) error {
	return r.record(r.Store.DeleteNode(ctx, n), "DeleteNode", n)
}

var _ Store = (*Recorder)(nil)
