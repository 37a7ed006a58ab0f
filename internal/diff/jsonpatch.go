package diff

import (
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/roach88/treesync/internal/ir"
)

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Pointer renders path as an RFC 6901 JSON pointer.
func Pointer(path ir.Path) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(seg.Key()))
	}
	return b.String()
}

// PatchOps renders changes as RFC 6902 operations against current. A put
// becomes "replace" when its path already exists at that point of the
// sequence and "add" otherwise; a put into a set member list is always an
// inserting "add". A delete becomes "remove".
func PatchOps(current ir.IRValue, changes []Change) (ir.IRArray, error) {
	work := ir.Clone(current)
	ops := make(ir.IRArray, 0, len(changes))
	for _, c := range changes {
		if len(c.Path) == 0 {
			return nil, fmt.Errorf("change without a path")
		}
		op := ir.IRObject{"path": ir.IRString(Pointer(c.Path))}
		var err error
		switch c.Kind {
		case Put:
			value := c.Value
			if value == nil {
				value = ir.IRNull{}
			}
			op["value"] = value
			if isMemberPut(work, c.Path) {
				op["op"] = ir.IRString("add")
				work, err = insertNested(work, c.Path, ir.Clone(value))
				break
			}
			if _, exists := ir.GetNested(work, c.Path); exists {
				op["op"] = ir.IRString("replace")
			} else {
				op["op"] = ir.IRString("add")
			}
			work, err = ir.SetNested(work, c.Path, ir.Clone(value))
		case Delete:
			op["op"] = ir.IRString("remove")
			work, err = removeNested(work, c.Path)
		default:
			err = fmt.Errorf("unknown change kind %q", c.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Path, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ToJSONPatch renders changes as an RFC 6902 patch document.
func ToJSONPatch(current ir.IRValue, changes []Change) ([]byte, error) {
	ops, err := PatchOps(current, changes)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(ops)
}

// ApplyJSONPatch renders changes as a JSON patch and applies it to current.
func ApplyJSONPatch(current ir.IRValue, changes []Change) (ir.IRValue, error) {
	data, err := ToJSONPatch(current, changes)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	doc, err := ir.MarshalCanonical(current)
	if err != nil {
		return nil, err
	}
	out, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	return ir.UnmarshalIRValue(out)
}

func removeNested(root ir.IRValue, path ir.Path) (ir.IRValue, error) {
	parent, ok := ir.GetNested(root, path[:len(path)-1])
	if !ok {
		return nil, fmt.Errorf("no parent to remove from")
	}
	last := path[len(path)-1]
	switch node := parent.(type) {
	case ir.IRObject:
		if _, ok := node[last.Key()]; !ok {
			return nil, fmt.Errorf("no member %s to remove", last)
		}
		delete(node, last.Key())
		return root, nil
	case ir.IRArray:
		i, ok := last.Index()
		if !ok || i < 0 || i >= len(node) {
			return nil, fmt.Errorf("no element %s to remove", last)
		}
		shrunk := append(node[:i:i], node[i+1:]...)
		if len(path) == 1 {
			return shrunk, nil
		}
		return ir.SetNested(root, path[:len(path)-1], shrunk)
	default:
		return nil, fmt.Errorf("cannot remove from %s", ir.TypeName(parent))
	}
}

func isMemberPut(root ir.IRValue, path ir.Path) bool {
	d, ok := membersAt[path[0].Key()]
	if !ok || len(path) != d+1 || !path[d].IsIndex() {
		return false
	}
	parent, _ := ir.GetNested(root, path[:d])
	_, isList := parent.(ir.IRArray)
	return isList
}

func insertNested(root ir.IRValue, path ir.Path, value ir.IRValue) (ir.IRValue, error) {
	parent, _ := ir.GetNested(root, path[:len(path)-1])
	list := parent.(ir.IRArray)
	i, _ := path[len(path)-1].Index()
	if i < 0 || i > len(list) {
		return nil, fmt.Errorf("index %d out of range (len %d)", i, len(list))
	}
	grown := make(ir.IRArray, 0, len(list)+1)
	grown = append(grown, list[:i]...)
	grown = append(grown, value)
	grown = append(grown, list[i:]...)
	return ir.SetNested(root, path[:len(path)-1], grown)
}
