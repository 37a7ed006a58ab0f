package engine

import (
	"context"
	"strconv"

	"github.com/roach88/treesync/internal/diff"
	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/ir"
)

// Patch is a diff change classified by category and path shape.
// The set of variants is closed; each one is handled by a PatchVisitor method.
type Patch interface {
	// Change returns the change the patch was classified from.
	Change() diff.Change
	// Accept calls the visitor method for the variant.
	Accept(ctx context.Context, v PatchVisitor) error
}

// PatchVisitor handles every patch variant.
type PatchVisitor interface {
	VisitCategory(ctx context.Context, p *CategoryPatch) error
	VisitAttribute(ctx context.Context, p *AttributePatch) error
	VisitAttributeMeta(ctx context.Context, p *AttributeMetaPatch) error
	VisitPointer(ctx context.Context, p *PointerPatch) error
	VisitPointerMeta(ctx context.Context, p *PointerMetaPatch) error
	VisitRegistry(ctx context.Context, p *RegistryPatch) error
	VisitSet(ctx context.Context, p *SetPatch) error
	VisitMemberAttribute(ctx context.Context, p *MemberAttributePatch) error
	VisitMemberRegistry(ctx context.Context, p *MemberRegistryPatch) error
}

type patchBase struct {
	change diff.Change
}

func (b patchBase) Change() diff.Change { return b.change }

// IsDelete reports whether the patch removes data.
func (b patchBase) IsDelete() bool { return b.change.Kind == diff.Delete }

// Value is the put value; null for deletes.
func (b patchBase) Value() ir.IRValue {
	if b.change.Value == nil {
		return ir.IRNull{}
	}
	return b.change.Value
}

// CategoryPatch is a delete addressing a whole category. It is a no-op.
type CategoryPatch struct {
	patchBase
	Category string
}

func (p *CategoryPatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitCategory(ctx, p)
}

// AttributePatch is [attributes, name].
type AttributePatch struct {
	patchBase
	Name string
}

func (p *AttributePatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitAttribute(ctx, p)
}

// AttributeMetaPatch is [attribute_meta, name, nested...].
type AttributeMetaPatch struct {
	patchBase
	Name   string
	Nested ir.Path
}

func (p *AttributeMetaPatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitAttributeMeta(ctx, p)
}

// PointerPatch is [pointers, name].
type PointerPatch struct {
	patchBase
	Name string
}

func (p *PointerPatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitPointer(ctx, p)
}

// Pointer limit keys inside a pointer meta record.
const (
	BoundMin = "min"
	BoundMax = "max"
)

// PointerMetaPatch is one of
//
//	[pointer_meta, name]
//	[pointer_meta, name, "min"|"max"]
//	[pointer_meta, name, target, nested...]
type PointerMetaPatch struct {
	patchBase
	Name string
	// Bound is "min" or "max" when the patch addresses an overall limit.
	Bound string
	// Target is the reference of the per-target record the patch addresses.
	Target string
	Nested ir.Path
}

func (p *PointerMetaPatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitPointerMeta(ctx, p)
}

// RegistryPatch is [registry, name, nested...].
type RegistryPatch struct {
	patchBase
	Name   string
	Nested ir.Path
}

func (p *RegistryPatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitRegistry(ctx, p)
}

// SetPatch is [sets, name] or [sets, name, index].
type SetPatch struct {
	patchBase
	Set      string
	Index    int
	HasIndex bool
}

func (p *SetPatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitSet(ctx, p)
}

// MemberPatch is [category, set, member?, name?, nested...] for per-member
// data. Member and Name are empty when the path stops before them.
type MemberPatch struct {
	patchBase
	Set    string
	Member string
	Name   string
	Nested ir.Path
}

// Complete reports whether the patch names both a member and an entry.
func (p MemberPatch) Complete() bool {
	return p.Member != "" && p.Name != ""
}

// MemberAttributePatch addresses member_attributes.
type MemberAttributePatch struct {
	MemberPatch
}

func (p *MemberAttributePatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitMemberAttribute(ctx, p)
}

// MemberRegistryPatch addresses member_registry.
type MemberRegistryPatch struct {
	MemberPatch
}

func (p *MemberRegistryPatch) Accept(ctx context.Context, v PatchVisitor) error {
	return v.VisitMemberRegistry(ctx, p)
}

// Classify maps a change onto its patch variant. Unknown categories are
// UNSUPPORTED_CATEGORY errors; paths a handler cannot consume are
// UNSUPPORTED_SHAPE errors.
func Classify(c diff.Change) (Patch, error) {
	if len(c.Path) == 0 {
		return nil, NewUnsupportedShapeError(c.Path, "change has an empty path")
	}
	cat := c.Category()
	if !document.IsCategory(cat) {
		return nil, NewUnsupportedCategoryError(cat, c.Path)
	}
	base := patchBase{change: c}
	if len(c.Path) == 1 {
		if c.Kind == diff.Delete {
			return &CategoryPatch{patchBase: base, Category: cat}, nil
		}
		return nil, NewUnsupportedShapeError(c.Path, "%s: put needs a field name", cat)
	}
	name := c.Path[1].Key()
	rest := c.Path[2:]
	del := c.Kind == diff.Delete

	switch cat {
	case document.Attributes:
		if len(rest) > 0 {
			return nil, NewUnsupportedShapeError(c.Path, "nested attribute values are not supported")
		}
		return &AttributePatch{patchBase: base, Name: name}, nil

	case document.AttributeMeta:
		if del && len(rest) > 0 {
			return nil, NewUnsupportedShapeError(c.Path, "nested attribute meta deletes are not supported")
		}
		return &AttributeMetaPatch{patchBase: base, Name: name, Nested: rest}, nil

	case document.Pointers:
		if len(rest) > 0 {
			return nil, NewUnsupportedShapeError(c.Path, "pointer paths take exactly one name")
		}
		return &PointerPatch{patchBase: base, Name: name}, nil

	case document.PointerMeta:
		p := &PointerMetaPatch{patchBase: base, Name: name}
		if len(rest) == 0 {
			return p, nil
		}
		switch key := rest[0].Key(); key {
		case BoundMin, BoundMax:
			if len(rest) > 1 {
				return nil, NewUnsupportedShapeError(c.Path, "pointer limits are scalars")
			}
			p.Bound = key
		default:
			if del && len(rest) > 1 {
				return nil, NewUnsupportedShapeError(c.Path, "nested pointer target deletes are not supported")
			}
			p.Target = key
			p.Nested = rest[1:]
		}
		return p, nil

	case document.Registry:
		if del && len(rest) > 0 {
			return nil, NewUnsupportedShapeError(c.Path, "nested registry deletes are not supported")
		}
		return &RegistryPatch{patchBase: base, Name: name, Nested: rest}, nil

	case document.Sets:
		p := &SetPatch{patchBase: base, Set: name}
		if len(rest) == 0 {
			return p, nil
		}
		if len(rest) > 1 {
			return nil, NewUnsupportedShapeError(c.Path, "set paths end at a member index")
		}
		idx, ok := segmentIndex(rest[0])
		if !ok {
			return nil, NewUnsupportedShapeError(c.Path, "set member position %s is not an index", rest[0])
		}
		p.Index, p.HasIndex = idx, true
		return p, nil

	case document.MemberAttributes, document.MemberRegistry:
		mp := MemberPatch{patchBase: base, Set: name}
		if len(rest) > 0 {
			mp.Member = rest[0].Key()
		}
		if len(rest) > 1 {
			mp.Name = rest[1].Key()
		}
		if len(rest) > 2 {
			mp.Nested = rest[2:]
		}
		if cat == document.MemberAttributes {
			if len(mp.Nested) > 0 {
				return nil, NewUnsupportedShapeError(c.Path, "nested member attribute values are not supported")
			}
			return &MemberAttributePatch{MemberPatch: mp}, nil
		}
		if del && len(mp.Nested) > 0 {
			return nil, NewUnsupportedShapeError(c.Path, "nested member registry deletes are not supported")
		}
		return &MemberRegistryPatch{MemberPatch: mp}, nil
	}

	return nil, NewUnsupportedCategoryError(cat, c.Path)
}

// segmentIndex accepts an index segment or a key spelled as a non-negative
// decimal number.
func segmentIndex(s ir.Segment) (int, bool) {
	if i, ok := s.Index(); ok {
		return i, true
	}
	i, err := strconv.Atoi(s.Key())
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
