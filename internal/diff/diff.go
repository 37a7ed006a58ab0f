// Package diff computes the ordered put/delete changes that turn the fields of
// one canonical document into the fields of another.
//
// Only the category entries of a document take part; id and children are
// excluded. Within a category the comparison is structural:
//   - objects are compared key by key in canonical key order; a key only in
//     the current side yields a delete, a key only in the target a put;
//   - arrays are compared index by index; extra target elements are put in
//     ascending order, extra current elements are deleted in descending order
//     so that index-addressed deletes never observe a shift;
//   - anything else yields a put of the whole target value when it differs.
//
// Set member lists are compared by membership instead: current members the
// target does not list are deleted by index, highest index first, and only
// then are the target members the current list lacks put at their target
// index. A reordered member list yields no changes.
//
// Some categories are only consumed at a fixed depth. Attribute, pointer and
// member attribute values are always put whole. Attribute meta, registry and
// member registry values accept nested puts, but a nested delete inside one
// of them turns into a put of the whole value.
package diff

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/ir"
)

// Kind is the operation of a change.
type Kind string

const (
	Put    Kind = "put"
	Delete Kind = "delete"
)

// Change is one put or delete at a path into a document's fields.
// Path[0] names the category.
type Change struct {
	Kind  Kind
	Path  ir.Path
	Value ir.IRValue
}

// Category returns the first path segment, or "" for an empty path.
func (c Change) Category() string {
	if len(c.Path) == 0 {
		return ""
	}
	return c.Path[0].Key()
}

func (c Change) String() string {
	if c.Kind == Delete {
		return fmt.Sprintf("delete %s", c.Path)
	}
	v, err := ir.MarshalCanonical(c.Value)
	if err != nil {
		v = []byte("<invalid>")
	}
	return fmt.Sprintf("put %s = %s", c.Path, v)
}

// IRValue returns the change as {"kind", "path", "value"?}.
func (c Change) IRValue() ir.IRObject {
	segs := make(ir.IRArray, len(c.Path))
	for i, s := range c.Path {
		if idx, ok := s.Index(); ok {
			segs[i] = ir.IRInt(idx)
		} else {
			segs[i] = ir.IRString(s.Key())
		}
	}
	out := ir.IRObject{
		"kind": ir.IRString(c.Kind),
		"path": segs,
	}
	if c.Kind == Put {
		v := c.Value
		if v == nil {
			v = ir.IRNull{}
		}
		out["value"] = v
	}
	return out
}

// MarshalJSON encodes the change record canonically.
func (c Change) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(c.IRValue())
}

// UnmarshalJSON decodes a change record.
func (c *Change) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  Kind            `json:"kind"`
		Path  ir.Path         `json:"path"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case Put, Delete:
	default:
		return fmt.Errorf("unknown change kind %q", raw.Kind)
	}
	out := Change{Kind: raw.Kind, Path: raw.Path}
	if raw.Kind == Put {
		out.Value = ir.IRNull{}
		if len(raw.Value) > 0 {
			v, err := ir.UnmarshalIRValue(raw.Value)
			if err != nil {
				return fmt.Errorf("change value: %w", err)
			}
			out.Value = v
		}
	}
	*c = out
	return nil
}

// Diff returns the changes from current to target, ignoring id and children.
// Target strings are compared in NFC, the form the store keeps.
func Diff(current, target *document.Document) []Change {
	return Values(fields(current), withLimitDefaults(ir.NormalizeObject(fields(target))))
}

// unbounded is the pointer limit a store reports for a missing min or max.
const unbounded = ir.IRInt(-1)

// withLimitDefaults fills missing pointer limits in fields, both the overall
// ones and those of each target record, so that a document that leaves them
// out compares equal to its stored form. fields is modified in place.
func withLimitDefaults(fields ir.IRObject) ir.IRObject {
	metas, ok := fields[document.PointerMeta].(ir.IRObject)
	if !ok {
		return fields
	}
	for _, m := range metas {
		meta, ok := m.(ir.IRObject)
		if !ok {
			continue
		}
		fillLimits(meta)
		for key, rec := range meta {
			if key == "min" || key == "max" {
				continue
			}
			if record, ok := rec.(ir.IRObject); ok {
				fillLimits(record)
			}
		}
	}
	return fields
}

func fillLimits(obj ir.IRObject) {
	for _, bound := range []string{"min", "max"} {
		if _, ok := obj[bound]; !ok {
			obj[bound] = unbounded
		}
	}
}

// Values returns the changes that turn current into target.
func Values(current, target ir.IRValue) []Change {
	var out []Change
	walk(nil, current, target, &out)
	return out
}

func fields(d *document.Document) ir.IRObject {
	if d == nil || d.Fields == nil {
		return ir.IRObject{}
	}
	return d.Fields
}

// wholeAt is the depth at which a category's values are replaced whole.
var wholeAt = map[string]int{
	document.Attributes:       2,
	document.Pointers:         2,
	document.MemberAttributes: 4,
}

// collapseAt is the depth below which a category cannot take deletes.
var collapseAt = map[string]int{
	document.AttributeMeta:  2,
	document.PointerMeta:    3,
	document.Registry:       2,
	document.MemberRegistry: 4,
}

// membersAt is the depth at which a category holds member lists.
var membersAt = map[string]int{
	document.Sets: 2,
}

func walk(path ir.Path, a, b ir.IRValue, out *[]Change) {
	if len(path) > 0 {
		cat := path[0].Key()
		if d, ok := membersAt[cat]; ok && len(path) == d {
			av, aok := a.(ir.IRArray)
			bv, bok := b.(ir.IRArray)
			if aok && bok {
				walkMembers(path, av, bv, out)
				return
			}
		}
		if d, ok := wholeAt[cat]; ok && len(path) == d {
			if !ir.Equal(a, b) {
				*out = append(*out, Change{Kind: Put, Path: path, Value: ir.Clone(b)})
			}
			return
		}
		if d, ok := collapseAt[cat]; ok && len(path) == d {
			var sub []Change
			structural(path, a, b, &sub)
			for _, c := range sub {
				if c.Kind == Delete {
					*out = append(*out, Change{Kind: Put, Path: path, Value: ir.Clone(b)})
					return
				}
			}
			*out = append(*out, sub...)
			return
		}
	}
	structural(path, a, b, out)
}

func structural(path ir.Path, a, b ir.IRValue, out *[]Change) {
	switch bv := b.(type) {
	case ir.IRObject:
		if av, ok := a.(ir.IRObject); ok {
			walkObject(path, av, bv, out)
			return
		}
	case ir.IRArray:
		if av, ok := a.(ir.IRArray); ok {
			walkArray(path, av, bv, out)
			return
		}
	}
	if !ir.Equal(a, b) {
		*out = append(*out, Change{Kind: Put, Path: path, Value: ir.Clone(b)})
	}
}

func walkObject(path ir.Path, a, b ir.IRObject, out *[]Change) {
	union := make(ir.IRObject, len(a)+len(b))
	for k := range a {
		union[k] = nil
	}
	for k := range b {
		union[k] = nil
	}
	for _, k := range union.SortedKeys() {
		av, inA := a[k]
		bv, inB := b[k]
		p := path.Append(ir.Key(k))
		switch {
		case inA && inB:
			walk(p, av, bv, out)
		case inA:
			*out = append(*out, Change{Kind: Delete, Path: p})
		default:
			*out = append(*out, Change{Kind: Put, Path: p, Value: ir.Clone(bv)})
		}
	}
}

func walkArray(path ir.Path, a, b ir.IRArray, out *[]Change) {
	common := min(len(a), len(b))
	for i := 0; i < common; i++ {
		walk(path.Append(ir.Index(i)), a[i], b[i], out)
	}
	for i := common; i < len(b); i++ {
		*out = append(*out, Change{Kind: Put, Path: path.Append(ir.Index(i)), Value: ir.Clone(b[i])})
	}
	for i := len(a) - 1; i >= common; i-- {
		*out = append(*out, Change{Kind: Delete, Path: path.Append(ir.Index(i))})
	}
}

func walkMembers(path ir.Path, a, b ir.IRArray, out *[]Change) {
	wanted := make(map[string]int, len(b))
	for _, v := range b {
		wanted[memberKey(v)]++
	}
	kept := make(map[string]int, len(a))
	var stale []int
	for i, v := range a {
		k := memberKey(v)
		if wanted[k] > 0 {
			wanted[k]--
			kept[k]++
			continue
		}
		stale = append(stale, i)
	}
	for i := len(stale) - 1; i >= 0; i-- {
		*out = append(*out, Change{Kind: Delete, Path: path.Append(ir.Index(stale[i]))})
	}
	for j, v := range b {
		k := memberKey(v)
		if kept[k] > 0 {
			kept[k]--
			continue
		}
		*out = append(*out, Change{Kind: Put, Path: path.Append(ir.Index(j)), Value: ir.Clone(v)})
	}
}

func memberKey(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
