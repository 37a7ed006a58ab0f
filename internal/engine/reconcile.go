package engine

import (
	"context"
	"fmt"

	"github.com/roach88/treesync/internal/diff"
	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// Summary counts what a reconcile did.
type Summary struct {
	// Nodes is the number of nodes reconciled, including the top one.
	Nodes int `json:"nodes"`
	// Changes is the number of top-level changes dispatched, before member
	// data expansion.
	Changes int `json:"changes"`
	// Created is the number of nodes created.
	Created int `json:"created"`
	// Deleted is the number of nodes deleted (subtree roots only).
	Deleted int `json:"deleted"`
}

// Reconcile mutates the subtree rooted at n until it serializes to target,
// ignoring ids and child order.
//
// For each target child, in order, the child's id is resolved as a reference
// with n as scope; when nothing matches a new child is created. The child is
// reconciled recursively before n's own fields are diffed and patched.
// Existing children that no target child matched are deleted last.
//
// Children are processed strictly one at a time. The first error aborts the
// traversal and leaves earlier mutations in place.
func (e *Engine) Reconcile(ctx context.Context, n graph.Node, target *document.Document) (Summary, error) {
	var sum Summary
	if err := e.reconcile(ctx, n, target, &sum); err != nil {
		return sum, err
	}
	e.logger.Info("reconcile complete",
		"node", displayPath(n),
		"nodes", sum.Nodes,
		"changes", sum.Changes,
		"created", sum.Created,
		"deleted", sum.Deleted)
	return sum, nil
}

func (e *Engine) reconcile(ctx context.Context, n graph.Node, target *document.Document, sum *Summary) error {
	sum.Nodes++

	current, err := e.store.LoadChildren(ctx, n)
	if err != nil {
		return fmt.Errorf("reconcile %s: load children: %w", displayPath(n), err)
	}
	remaining := make([]graph.Node, len(current))
	copy(remaining, current)

	for _, childDoc := range target.Children {
		child, ok, err := e.Resolve(ctx, n, childDoc.ID)
		if err != nil {
			return err
		}
		if !ok {
			if child, err = e.CreateChild(ctx, n, childDoc.ID); err != nil {
				return err
			}
			sum.Created++
		}
		remaining = withoutNode(remaining, child)

		if err := e.reconcile(ctx, child, childDoc, sum); err != nil {
			return err
		}
	}

	changes, err := e.Plan(ctx, n, target)
	if err != nil {
		return err
	}
	if err := e.Dispatcher(n).ApplyAll(ctx, changes); err != nil {
		return err
	}
	sum.Changes += len(changes)

	for i := len(remaining) - 1; i >= 0; i-- {
		stale := remaining[i]
		e.logger.Debug("deleting node", "node", displayPath(stale), "parent", displayPath(n))
		if err := e.store.DeleteNode(ctx, stale); err != nil {
			return fmt.Errorf("delete node %s: %w", displayPath(stale), err)
		}
		sum.Deleted++
	}
	return nil
}

// Plan returns the ordered field changes a reconcile would apply to n itself.
// Children are not considered and nothing is mutated.
func (e *Engine) Plan(ctx context.Context, n graph.Node, target *document.Document) ([]diff.Change, error) {
	current, err := e.Serialize(ctx, n, true)
	if err != nil {
		return nil, err
	}
	return diff.Order(diff.Diff(current, target)), nil
}

// Import creates a new child of parent and reconciles it against target.
// The new node is counted in the summary only when the reconcile succeeds.
func (e *Engine) Import(ctx context.Context, parent graph.Node, target *document.Document) (graph.Node, Summary, error) {
	n, err := e.CreateChild(ctx, parent, "")
	if err != nil {
		return nil, Summary{}, err
	}
	sum, err := e.Reconcile(ctx, n, target)
	if err != nil {
		return n, sum, err
	}
	sum.Created++
	return n, sum, nil
}

// CreateChild instantiates the base node under parent.
//
// For "@name:<v>" the new node's name is set to v. For "@meta:<v>" the name
// is set, the node is added to the meta registry and the registry is read
// back; a registry that does not list the node is a CONSISTENCY_VIOLATION.
// Any other reference form creates an unnamed node.
func (e *Engine) CreateChild(ctx context.Context, parent graph.Node, ref string) (graph.Node, error) {
	r, err := graph.ParseReference(ref)
	if err != nil {
		return nil, NewUnknownReferenceTagError(ref, err)
	}
	base, err := e.Base(ctx)
	if err != nil {
		return nil, err
	}

	n, err := e.store.CreateNode(ctx, base, parent)
	if err != nil {
		return nil, fmt.Errorf("create node under %s: %w", displayPath(parent), err)
	}
	e.logger.Debug("created node", "node", displayPath(n), "parent", displayPath(parent), "ref", ref)

	switch r.Kind {
	case graph.RefName:
		if err := e.store.SetAttribute(ctx, n, graph.NameAttribute, ir.IRString(r.Value)); err != nil {
			return nil, fmt.Errorf("name node %s: %w", n.Path(), err)
		}
	case graph.RefMeta:
		if err := e.store.SetAttribute(ctx, n, graph.NameAttribute, ir.IRString(r.Value)); err != nil {
			return nil, fmt.Errorf("name node %s: %w", n.Path(), err)
		}
		if err := e.registerMeta(ctx, n, ref); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (e *Engine) registerMeta(ctx context.Context, n graph.Node, ref string) error {
	root, err := e.store.Root(ctx)
	if err != nil {
		return fmt.Errorf("load root: %w", err)
	}
	if err := e.store.AddMember(ctx, root, graph.MetaAspectSet, n); err != nil {
		return fmt.Errorf("register meta node %s: %w", n.Path(), err)
	}
	metas, err := e.store.MetaNodes(ctx)
	if err != nil {
		return fmt.Errorf("read meta registry: %w", err)
	}
	for _, m := range metas {
		if graph.SameNode(m, n) {
			return nil
		}
	}
	return NewConsistencyError(ref, fmt.Sprintf("new node %s is not in the meta registry", n.Path()))
}

func withoutNode(nodes []graph.Node, n graph.Node) []graph.Node {
	for i, c := range nodes {
		if graph.SameNode(c, n) {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}
