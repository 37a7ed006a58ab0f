package engine

import (
	"context"
	"fmt"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// Serialize converts n into a canonical document. Only data the node owns is
// read; inherited fields are not exported. Pointer targets and set members
// are written as store paths. Unless shallow, children are serialized
// recursively in store order.
//
// Serialize never mutates the store.
func (e *Engine) Serialize(ctx context.Context, n graph.Node, shallow bool) (*document.Document, error) {
	doc, err := e.serializeFields(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", displayPath(n), err)
	}
	if shallow {
		return doc, nil
	}

	children, err := e.store.LoadChildren(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: load children: %w", displayPath(n), err)
	}
	for _, c := range children {
		child, err := e.Serialize(ctx, c, false)
		if err != nil {
			return nil, err
		}
		doc.Children = append(doc.Children, child)
	}
	return doc, nil
}

func (e *Engine) serializeFields(ctx context.Context, n graph.Node) (*document.Document, error) {
	s := e.store
	doc := document.New(n.GUID())

	names, err := s.OwnAttributeNames(ctx, n)
	if err != nil {
		return nil, err
	}
	attrs := doc.Category(document.Attributes)
	for _, name := range names {
		v, _, err := s.Attribute(ctx, n, name)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		attrs[name] = v
	}

	names, err = s.OwnValidAttributeNames(ctx, n)
	if err != nil {
		return nil, err
	}
	attrMeta := doc.Category(document.AttributeMeta)
	for _, name := range names {
		v, err := s.AttributeMeta(ctx, n, name)
		if err != nil {
			return nil, fmt.Errorf("attribute meta %q: %w", name, err)
		}
		attrMeta[name] = v
	}

	names, err = s.OwnPointerNames(ctx, n)
	if err != nil {
		return nil, err
	}
	pointers := doc.Category(document.Pointers)
	for _, name := range names {
		target, ok, err := s.PointerPath(ctx, n, name)
		if err != nil {
			return nil, fmt.Errorf("pointer %q: %w", name, err)
		}
		if ok {
			pointers[name] = ir.IRString(target)
		} else {
			pointers[name] = ir.IRNull{}
		}
	}

	names, err = s.OwnValidPointerNames(ctx, n)
	if err != nil {
		return nil, err
	}
	pointerMeta := doc.Category(document.PointerMeta)
	for _, name := range names {
		v, err := s.PointerMeta(ctx, n, name)
		if err != nil {
			return nil, fmt.Errorf("pointer meta %q: %w", name, err)
		}
		pointerMeta[name] = v
	}

	names, err = s.OwnRegistryNames(ctx, n)
	if err != nil {
		return nil, err
	}
	registry := doc.Category(document.Registry)
	for _, name := range names {
		v, err := s.Registry(ctx, n, name)
		if err != nil {
			return nil, fmt.Errorf("registry %q: %w", name, err)
		}
		registry[name] = v
	}

	names, err = s.OwnSetNames(ctx, n)
	if err != nil {
		return nil, err
	}
	sets := doc.Category(document.Sets)
	memberAttrs := doc.Category(document.MemberAttributes)
	memberReg := doc.Category(document.MemberRegistry)
	for _, set := range names {
		members, err := s.MemberPaths(ctx, n, set)
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", set, err)
		}
		list := make(ir.IRArray, len(members))
		setAttrs := make(ir.IRObject, len(members))
		setReg := make(ir.IRObject, len(members))
		for i, member := range members {
			list[i] = ir.IRString(member)
			if setAttrs[member], err = e.memberData(ctx, n, set, member, s.MemberAttributeNames, s.MemberAttribute); err != nil {
				return nil, fmt.Errorf("set %q member %s attributes: %w", set, member, err)
			}
			if setReg[member], err = e.memberData(ctx, n, set, member, s.MemberRegistryNames, s.MemberRegistry); err != nil {
				return nil, fmt.Errorf("set %q member %s registry: %w", set, member, err)
			}
		}
		sets[set] = list
		memberAttrs[set] = setAttrs
		memberReg[set] = setReg
	}

	return doc, nil
}

type memberNamesFunc func(ctx context.Context, n graph.Node, set, member string) ([]string, error)

type memberValueFunc func(ctx context.Context, n graph.Node, set, member, name string) (ir.IRValue, error)

func (e *Engine) memberData(ctx context.Context, n graph.Node, set, member string, names memberNamesFunc, value memberValueFunc) (ir.IRValue, error) {
	keys, err := names(ctx, n, set, member)
	if err != nil {
		return nil, err
	}
	out := make(ir.IRObject, len(keys))
	for _, k := range keys {
		v, err := value(ctx, n, set, member, k)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func displayPath(n graph.Node) string {
	if n == nil {
		return "<nil>"
	}
	if n.Path() == graph.RootPath {
		return "<root>"
	}
	return n.Path()
}
