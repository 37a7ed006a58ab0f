package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// Resolve looks up the node a reference string names.
//
//   - "/a/b": the node with that store path, anywhere in the store
//   - "@meta:<v>": the first meta-registry node whose name is v
//   - "@name:<v>": the first direct child of scope whose name is v
//   - a bare guid: the direct child of scope with that guid
//
// The bool is false when nothing matches. An unrecognized tag is an
// UNKNOWN_REFERENCE_TAG error. scope may be nil when ref is a path or a
// meta reference.
func (e *Engine) Resolve(ctx context.Context, scope graph.Node, ref string) (graph.Node, bool, error) {
	r, err := graph.ParseReference(ref)
	if err != nil {
		return nil, false, NewUnknownReferenceTagError(ref, err)
	}

	switch r.Kind {
	case graph.RefPath:
		n, err := e.store.LoadByPath(ctx, r.Value)
		if errors.Is(err, graph.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("resolve %q: %w", ref, err)
		}
		return n, true, nil

	case graph.RefMeta:
		nodes, err := e.store.MetaNodes(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("resolve %q: %w", ref, err)
		}
		return e.findByName(ctx, nodes, r.Value)

	case graph.RefName, graph.RefGUID:
		if scope == nil {
			return nil, false, nil
		}
		children, err := e.store.LoadChildren(ctx, scope)
		if err != nil {
			return nil, false, fmt.Errorf("resolve %q: %w", ref, err)
		}
		if r.Kind == graph.RefName {
			return e.findByName(ctx, children, r.Value)
		}
		for _, c := range children {
			if c.GUID() == r.Value {
				return c, true, nil
			}
		}
		return nil, false, nil
	}
	return nil, false, nil
}

// ResolveOrFail is Resolve with a REFERENCE_NOT_FOUND error for no match.
func (e *Engine) ResolveOrFail(ctx context.Context, scope graph.Node, ref string) (graph.Node, error) {
	n, ok, err := e.Resolve(ctx, scope, ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewReferenceNotFoundError(ref)
	}
	return n, nil
}

// ResolveCanonicalID resolves ref and returns the store path of the node.
func (e *Engine) ResolveCanonicalID(ctx context.Context, scope graph.Node, ref string) (string, error) {
	n, err := e.ResolveOrFail(ctx, scope, ref)
	if err != nil {
		return "", err
	}
	return n.Path(), nil
}

func (e *Engine) findByName(ctx context.Context, nodes []graph.Node, name string) (graph.Node, bool, error) {
	for _, n := range nodes {
		v, ok, err := e.store.Attribute(ctx, n, graph.NameAttribute)
		if err != nil {
			return nil, false, fmt.Errorf("read name of %s: %w", n.Path(), err)
		}
		if ok && ir.Equal(v, ir.Normalize(ir.IRString(name))) {
			return n, true, nil
		}
	}
	return nil, false, nil
}
