package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/treesync/internal/diff"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// Dispatcher applies changes to one node. References inside change values
// and paths are resolved with the node as scope.
type Dispatcher struct {
	engine *Engine
	node   graph.Node
	queue  *changeQueue
}

var _ PatchVisitor = (*Dispatcher)(nil)

// Dispatcher returns a dispatcher that applies changes to n.
func (e *Engine) Dispatcher(n graph.Node) *Dispatcher {
	return &Dispatcher{engine: e, node: n, queue: newChangeQueue()}
}

// ApplyChange applies c to n.
func (e *Engine) ApplyChange(ctx context.Context, n graph.Node, c diff.Change) error {
	return e.Dispatcher(n).Apply(ctx, c)
}

// Apply classifies and applies c, together with any changes it expands into.
// The first failure stops the dispatcher; earlier mutations stay applied.
func (d *Dispatcher) Apply(ctx context.Context, c diff.Change) error {
	d.queue.Enqueue(c)
	for {
		next, ok := d.queue.TryDequeue()
		if !ok {
			return nil
		}
		p, err := Classify(next)
		if err != nil {
			d.queue = newChangeQueue()
			return err
		}
		d.engine.logger.Debug("applying change",
			"node", displayPath(d.node),
			"kind", next.Kind,
			"path", next.Path.String())
		if err := p.Accept(ctx, d); err != nil {
			d.queue = newChangeQueue()
			return err
		}
	}
}

// ApplyAll applies changes in order.
func (d *Dispatcher) ApplyAll(ctx context.Context, changes []diff.Change) error {
	for _, c := range changes {
		if err := d.Apply(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) store() graph.Store { return d.engine.store }

func (d *Dispatcher) VisitCategory(ctx context.Context, p *CategoryPatch) error {
	d.engine.logger.Debug("ignoring category delete", "category", p.Category)
	return nil
}

func (d *Dispatcher) VisitAttribute(ctx context.Context, p *AttributePatch) error {
	if p.IsDelete() {
		return wrapStore(d.store().DelAttribute(ctx, d.node, p.Name), "delete attribute %q", p.Name)
	}
	return wrapStore(d.store().SetAttribute(ctx, d.node, p.Name, p.Value()), "set attribute %q", p.Name)
}

func (d *Dispatcher) VisitAttributeMeta(ctx context.Context, p *AttributeMetaPatch) error {
	s := d.store()
	if p.IsDelete() {
		return wrapStore(s.DelAttributeMeta(ctx, d.node, p.Name), "delete attribute meta %q", p.Name)
	}
	value := p.Value()
	if len(p.Nested) > 0 {
		current, err := optional(s.AttributeMeta(ctx, d.node, p.Name))
		if err != nil {
			return fmt.Errorf("read attribute meta %q: %w", p.Name, err)
		}
		if value, err = setNested(current, p.Nested, value, p.Change().Path); err != nil {
			return err
		}
	}
	return wrapStore(s.SetAttributeMeta(ctx, d.node, p.Name, value), "set attribute meta %q", p.Name)
}

func (d *Dispatcher) VisitPointer(ctx context.Context, p *PointerPatch) error {
	s := d.store()
	if p.IsDelete() {
		return wrapStore(s.DelPointer(ctx, d.node, p.Name), "delete pointer %q", p.Name)
	}
	var target graph.Node
	switch v := p.Value().(type) {
	case ir.IRNull:
	case ir.IRString:
		n, err := d.engine.ResolveOrFail(ctx, d.node, string(v))
		if err != nil {
			return err
		}
		target = n
	default:
		return NewUnsupportedShapeError(p.Change().Path, "pointer target must be a reference string, got %s", ir.TypeName(v))
	}
	return wrapStore(s.SetPointer(ctx, d.node, p.Name, target), "set pointer %q", p.Name)
}

func (d *Dispatcher) VisitPointerMeta(ctx context.Context, p *PointerMetaPatch) error {
	s := d.store()
	path := p.Change().Path

	if p.IsDelete() {
		switch {
		case p.Bound != "":
			meta, err := s.PointerMeta(ctx, d.node, p.Name)
			if err != nil {
				return fmt.Errorf("read pointer meta %q: %w", p.Name, err)
			}
			meta[p.Bound] = ir.IRInt(-1)
			return wrapStore(s.SetPointerMetaLimits(ctx, d.node, p.Name, limitsOf(meta)), "set pointer limits %q", p.Name)
		case p.Target != "":
			return wrapStore(s.DelPointerMetaTarget(ctx, d.node, p.Name, p.Target), "delete pointer target %q of %q", p.Target, p.Name)
		default:
			return wrapStore(s.DelPointerMeta(ctx, d.node, p.Name), "delete pointer meta %q", p.Name)
		}
	}

	switch {
	case p.Bound != "":
		meta, err := optional(s.PointerMeta(ctx, d.node, p.Name))
		if err != nil {
			return fmt.Errorf("read pointer meta %q: %w", p.Name, err)
		}
		obj, _ := meta.(ir.IRObject)
		if obj == nil {
			obj = ir.IRObject{}
		}
		obj[p.Bound] = p.Value()
		return wrapStore(s.SetPointerMetaLimits(ctx, d.node, p.Name, limitsOf(obj)), "set pointer limits %q", p.Name)

	case p.Target != "":
		meta, err := optional(s.PointerMeta(ctx, d.node, p.Name))
		if err != nil {
			return fmt.Errorf("read pointer meta %q: %w", p.Name, err)
		}
		updated, err := setNested(meta, path[2:], p.Value(), path)
		if err != nil {
			return err
		}
		records, _ := updated.(ir.IRObject)
		targetMeta, _ := records[p.Target].(ir.IRObject)
		target, err := d.engine.ResolveOrFail(ctx, d.node, p.Target)
		if err != nil {
			return err
		}
		return wrapStore(s.SetPointerMetaTarget(ctx, d.node, p.Name, target, limitsOf(targetMeta)), "set pointer target %q of %q", p.Target, p.Name)

	default:
		meta, ok := p.Value().(ir.IRObject)
		if !ok {
			return NewUnsupportedShapeError(path, "pointer meta must be an object, got %s", ir.TypeName(p.Value()))
		}
		if err := s.SetPointerMetaLimits(ctx, d.node, p.Name, limitsOf(meta)); err != nil {
			return fmt.Errorf("set pointer limits %q: %w", p.Name, err)
		}
		for _, key := range meta.SortedKeys() {
			if key == BoundMin || key == BoundMax {
				continue
			}
			targetMeta, _ := meta[key].(ir.IRObject)
			target, err := d.engine.ResolveOrFail(ctx, d.node, key)
			if err != nil {
				return err
			}
			if err := s.SetPointerMetaTarget(ctx, d.node, p.Name, target, limitsOf(targetMeta)); err != nil {
				return fmt.Errorf("set pointer target %q of %q: %w", key, p.Name, err)
			}
		}
		return nil
	}
}

func (d *Dispatcher) VisitRegistry(ctx context.Context, p *RegistryPatch) error {
	s := d.store()
	if p.IsDelete() {
		return wrapStore(s.DelRegistry(ctx, d.node, p.Name), "delete registry %q", p.Name)
	}
	value := p.Value()
	if len(p.Nested) > 0 {
		current, err := optional(s.Registry(ctx, d.node, p.Name))
		if err != nil {
			return fmt.Errorf("read registry %q: %w", p.Name, err)
		}
		if value, err = setNested(current, p.Nested, value, p.Change().Path); err != nil {
			return err
		}
	}
	return wrapStore(s.SetRegistry(ctx, d.node, p.Name, value), "set registry %q", p.Name)
}

func (d *Dispatcher) VisitSet(ctx context.Context, p *SetPatch) error {
	s := d.store()
	if p.IsDelete() {
		if !p.HasIndex {
			return wrapStore(s.DelSet(ctx, d.node, p.Set), "delete set %q", p.Set)
		}
		members, err := s.MemberPaths(ctx, d.node, p.Set)
		if err != nil {
			return fmt.Errorf("read set %q: %w", p.Set, err)
		}
		if p.Index >= len(members) {
			return NewReferenceNotFoundError(fmt.Sprintf("%s[%d]", p.Set, p.Index))
		}
		member := members[p.Index]
		return wrapStore(s.DelMember(ctx, d.node, p.Set, member), "delete member %s of %q", member, p.Set)
	}

	if p.HasIndex {
		ref, ok := p.Value().(ir.IRString)
		if !ok {
			return NewUnsupportedShapeError(p.Change().Path, "set member must be a reference string, got %s", ir.TypeName(p.Value()))
		}
		members, err := s.MemberPaths(ctx, d.node, p.Set)
		if err != nil {
			return fmt.Errorf("read set %q: %w", p.Set, err)
		}
		_, err = d.addMember(ctx, p.Set, string(ref), members)
		return err
	}

	refs, ok := p.Value().(ir.IRArray)
	if !ok {
		return NewUnsupportedShapeError(p.Change().Path, "set value must be a list of references, got %s", ir.TypeName(p.Value()))
	}
	if err := s.CreateSet(ctx, d.node, p.Set); err != nil {
		return fmt.Errorf("create set %q: %w", p.Set, err)
	}
	var members []string
	for i, item := range refs {
		ref, ok := item.(ir.IRString)
		if !ok {
			return NewUnsupportedShapeError(p.Change().Path.Append(ir.Index(i)), "set member must be a reference string, got %s", ir.TypeName(item))
		}
		added, err := d.addMember(ctx, p.Set, string(ref), members)
		if err != nil {
			return err
		}
		members = append(members, added)
	}
	return nil
}

// addMember resolves ref and adds it to set unless it is in members already.
// It returns the member's store path.
func (d *Dispatcher) addMember(ctx context.Context, set, ref string, members []string) (string, error) {
	member, err := d.engine.ResolveOrFail(ctx, d.node, ref)
	if err != nil {
		return "", err
	}
	if contains(members, member.Path()) {
		return member.Path(), nil
	}
	if err := d.store().AddMember(ctx, d.node, set, member); err != nil {
		return "", fmt.Errorf("add member %s to %q: %w", member.Path(), set, err)
	}
	return member.Path(), nil
}

func (d *Dispatcher) VisitMemberAttribute(ctx context.Context, p *MemberAttributePatch) error {
	s := d.store()
	return d.visitMember(ctx, p.MemberPatch, memberOps{
		names: s.MemberAttributeNames,
		get:   s.MemberAttribute,
		set:   s.SetMemberAttribute,
		del:   s.DelMemberAttribute,
		label: "member attribute",
	})
}

func (d *Dispatcher) VisitMemberRegistry(ctx context.Context, p *MemberRegistryPatch) error {
	s := d.store()
	return d.visitMember(ctx, p.MemberPatch, memberOps{
		names: s.MemberRegistryNames,
		get:   s.MemberRegistry,
		set:   s.SetMemberRegistry,
		del:   s.DelMemberRegistry,
		label: "member registry",
	})
}

type memberOps struct {
	names memberNamesFunc
	get   memberValueFunc
	set   func(ctx context.Context, n graph.Node, set, member, name string, v ir.IRValue) error
	del   func(ctx context.Context, n graph.Node, set, member, name string) error
	label string
}

func (d *Dispatcher) visitMember(ctx context.Context, p MemberPatch, ops memberOps) error {
	if !p.IsDelete() {
		if !p.Complete() {
			expanded, err := Expand(p)
			if err != nil {
				return err
			}
			d.queue.Enqueue(expanded...)
			return nil
		}
		member, err := d.engine.ResolveCanonicalID(ctx, d.node, p.Member)
		if err != nil {
			return err
		}
		value := p.Value()
		if len(p.Nested) > 0 {
			current, err := optional(ops.get(ctx, d.node, p.Set, member, p.Name))
			if err != nil {
				return fmt.Errorf("read %s %q: %w", ops.label, p.Name, err)
			}
			if value, err = setNested(current, p.Nested, value, p.Change().Path); err != nil {
				return err
			}
		}
		return wrapStore(ops.set(ctx, d.node, p.Set, member, p.Name, value), "set %s %q of %s", ops.label, p.Name, member)
	}

	live, err := d.liveMembers(ctx, p.Set)
	if err != nil {
		return err
	}
	var members []string
	if p.Member == "" {
		members = live
	} else {
		member, err := d.memberPath(ctx, p.Member)
		if err != nil {
			return err
		}
		if !contains(live, member) {
			d.engine.logger.Debug("member left the set, nothing to delete",
				"set", p.Set, "member", member)
			return nil
		}
		members = []string{member}
	}

	for _, member := range members {
		names := []string{p.Name}
		if p.Name == "" {
			if names, err = ops.names(ctx, d.node, p.Set, member); err != nil {
				return fmt.Errorf("list %s names of %s: %w", ops.label, member, err)
			}
		}
		for _, name := range names {
			if err := ops.del(ctx, d.node, p.Set, member, name); err != nil {
				return fmt.Errorf("delete %s %q of %s: %w", ops.label, name, member, err)
			}
		}
	}
	return nil
}

// liveMembers returns the members of set, or nothing when the set is gone.
func (d *Dispatcher) liveMembers(ctx context.Context, set string) ([]string, error) {
	members, err := d.store().MemberPaths(ctx, d.node, set)
	if errors.Is(err, graph.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read set %q: %w", set, err)
	}
	return members, nil
}

// memberPath returns ref as a store path. Paths are taken as they are, since
// the node they named may already be gone.
func (d *Dispatcher) memberPath(ctx context.Context, ref string) (string, error) {
	r, err := graph.ParseReference(ref)
	if err != nil {
		return "", NewUnknownReferenceTagError(ref, err)
	}
	if r.Kind == graph.RefPath {
		return r.Value, nil
	}
	n, ok, err := d.engine.Resolve(ctx, d.node, ref)
	if err != nil || !ok {
		return "", err
	}
	return n.Path(), nil
}

// limitsOf reads {min, max} from a pointer meta record; a missing or
// non-integral bound is -1 (unbounded).
func limitsOf(meta ir.IRObject) graph.PointerLimits {
	return graph.PointerLimits{Min: bound(meta, BoundMin), Max: bound(meta, BoundMax)}
}

func bound(meta ir.IRObject, key string) int64 {
	switch v := meta[key].(type) {
	case ir.IRInt:
		return int64(v)
	case ir.IRFloat:
		if float64(v) == float64(int64(v)) {
			return int64(v)
		}
	}
	return -1
}

// optional turns a graph.ErrNotFound read into an absent value.
func optional(v ir.IRValue, err error) (ir.IRValue, error) {
	if errors.Is(err, graph.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func setNested(current ir.IRValue, nested ir.Path, value ir.IRValue, full ir.Path) (ir.IRValue, error) {
	out, err := ir.SetNested(ir.Clone(current), nested, value)
	if err != nil {
		return nil, NewUnsupportedShapeError(full, "cannot set nested value: %v", err)
	}
	return out, nil
}

func wrapStore(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
