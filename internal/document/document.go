// Package document defines the canonical JSON document that mirrors one node
// of the graph model.
//
// A document is an object with an informational "id", one entry per field
// category and a "children" list of nested documents:
//
//	{
//	  "id": "<guid>",
//	  "attributes": {"name": "Foo"},
//	  "attribute_meta": {},
//	  "pointers": {"base": "/1"},
//	  "pointer_meta": {},
//	  "registry": {},
//	  "sets": {"kids": ["/1/3", "/1/4"]},
//	  "member_attributes": {"kids": {"/1/3": {}, "/1/4": {}}},
//	  "member_registry": {"kids": {"/1/3": {}, "/1/4": {}}},
//	  "children": []
//	}
//
// Field diffing only sees the category entries; id and children are handled
// by the reconciler.
package document

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/treesync/internal/ir"
)

// Reserved document keys that are not field categories.
const (
	KeyID       = "id"
	KeyChildren = "children"
)

// Field categories.
const (
	Attributes       = "attributes"
	AttributeMeta    = "attribute_meta"
	Pointers         = "pointers"
	PointerMeta      = "pointer_meta"
	Registry         = "registry"
	Sets             = "sets"
	MemberAttributes = "member_attributes"
	MemberRegistry   = "member_registry"
)

// Categories lists every field category in document order.
var Categories = []string{
	Attributes,
	AttributeMeta,
	Pointers,
	PointerMeta,
	Registry,
	Sets,
	MemberAttributes,
	MemberRegistry,
}

// IsCategory reports whether name is a known field category.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Document is one node of a canonical JSON tree.
type Document struct {
	// ID is the node's global identifier, or a reference string naming the
	// node to reconcile against. Ignored by field diffing.
	ID string

	// Fields holds every top-level entry other than id and children, keyed by
	// category. Unknown keys are kept so their changes surface as errors
	// instead of being dropped silently.
	Fields ir.IRObject

	// Children are reconciled by recursion, in order.
	Children []*Document
}

// New returns a document with every category present and empty.
func New(id string) *Document {
	fields := make(ir.IRObject, len(Categories))
	for _, c := range Categories {
		fields[c] = ir.IRObject{}
	}
	return &Document{ID: id, Fields: fields, Children: []*Document{}}
}

// Category returns the object stored under name, or nil when the category is
// absent or not an object.
func (d *Document) Category(name string) ir.IRObject {
	if d == nil || d.Fields == nil {
		return nil
	}
	obj, _ := d.Fields[name].(ir.IRObject)
	return obj
}

// Set stores value at path inside the category name, creating the category
// if needed.
func (d *Document) Set(name string, path ir.Path, value ir.IRValue) error {
	if d.Fields == nil {
		d.Fields = ir.IRObject{}
	}
	updated, err := ir.SetNested(d.Fields[name], path, value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	d.Fields[name] = updated
	return nil
}

// Value returns the document as a JSON object. Children are always present.
func (d *Document) Value() ir.IRObject {
	out := make(ir.IRObject, len(d.Fields)+2)
	for k, v := range d.Fields {
		out[k] = v
	}
	if d.ID != "" {
		out[KeyID] = ir.IRString(d.ID)
	}
	children := make(ir.IRArray, len(d.Children))
	for i, c := range d.Children {
		children[i] = c.Value()
	}
	out[KeyChildren] = children
	return out
}

// FromValue builds a document from a decoded JSON value.
func FromValue(v ir.IRValue) (*Document, error) {
	return fromValue(v, "$")
}

func fromValue(v ir.IRValue, at string) (*Document, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("%s: document must be an object, got %s", at, ir.TypeName(v))
	}

	doc := &Document{Fields: ir.IRObject{}, Children: []*Document{}}
	for _, key := range obj.SortedKeys() {
		val := obj[key]
		switch key {
		case KeyID:
			switch id := val.(type) {
			case ir.IRString:
				doc.ID = norm.NFC.String(string(id))
			case ir.IRNull:
			default:
				return nil, fmt.Errorf("%s.id: must be a string, got %s", at, ir.TypeName(val))
			}
		case KeyChildren:
			if _, isNull := val.(ir.IRNull); isNull {
				continue
			}
			list, ok := val.(ir.IRArray)
			if !ok {
				return nil, fmt.Errorf("%s.children: must be an array, got %s", at, ir.TypeName(val))
			}
			for i, item := range list {
				child, err := fromValue(item, fmt.Sprintf("%s.children[%d]", at, i))
				if err != nil {
					return nil, err
				}
				doc.Children = append(doc.Children, child)
			}
		default:
			doc.Fields[norm.NFC.String(key)] = ir.Normalize(val)
		}
	}
	return doc, nil
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		ID:       d.ID,
		Fields:   ir.CloneObject(d.Fields),
		Children: make([]*Document, len(d.Children)),
	}
	for i, c := range d.Children {
		out.Children[i] = c.Clone()
	}
	return out
}

// Walk visits d and its descendants depth first, parents before children.
func (d *Document) Walk(fn func(*Document) error) error {
	if err := fn(d); err != nil {
		return err
	}
	for _, c := range d.Children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}
