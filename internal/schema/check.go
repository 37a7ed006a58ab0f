package schema

import (
	"fmt"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// Reference check codes (E200-E299)
const (
	ErrBadReference     = "E201" // reference string has an unknown tag
	ErrUnknownMemberSet = "E202" // member data for a set the document does not list
	ErrUnknownMember    = "E203" // member data for a reference the set does not list
	ErrDuplicateMember  = "E204" // set lists the same reference twice
)

// Finding is a reference problem found by Check.
type Finding struct {
	// Node is the id of the document the finding is in, or its position
	// ("children[1]") when the id is empty.
	Node    string `json:"node"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (f Finding) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", f.Code, f.Node, f.Field, f.Message)
}

// Check inspects the references inside a decoded document tree.
// Returns all findings (does not fail-fast). A document that passes Check can
// still fail to reconcile when a reference names a node that does not exist.
func Check(doc *document.Document) []Finding {
	var out []Finding
	checkDoc(doc, "root", &out)
	return out
}

func checkDoc(doc *document.Document, at string, out *[]Finding) {
	node := doc.ID
	if node == "" {
		node = at
	}
	add := func(field, code, format string, args ...any) {
		*out = append(*out, Finding{Node: node, Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if doc.ID != "" {
		if _, err := graph.ParseReference(doc.ID); err != nil {
			add("id", ErrBadReference, "%v", err)
		}
	}

	pointers := doc.Category(document.Pointers)
	for _, name := range pointers.SortedKeys() {
		if s, ok := pointers[name].(ir.IRString); ok {
			if _, err := graph.ParseReference(string(s)); err != nil {
				add("pointers."+name, ErrBadReference, "%v", err)
			}
		}
	}

	members := map[string]map[string]bool{}
	sets := doc.Category(document.Sets)
	for _, name := range sets.SortedKeys() {
		list, ok := sets[name].(ir.IRArray)
		if !ok {
			continue
		}
		seen := map[string]bool{}
		for i, m := range list {
			s, ok := m.(ir.IRString)
			if !ok {
				continue
			}
			field := fmt.Sprintf("sets.%s[%d]", name, i)
			if _, err := graph.ParseReference(string(s)); err != nil {
				add(field, ErrBadReference, "%v", err)
			}
			if seen[string(s)] {
				add(field, ErrDuplicateMember, "%q is already a member", string(s))
			}
			seen[string(s)] = true
		}
		members[name] = seen
	}

	for _, cat := range []string{document.MemberAttributes, document.MemberRegistry} {
		data := doc.Category(cat)
		for _, set := range data.SortedKeys() {
			byMember, ok := data[set].(ir.IRObject)
			if !ok {
				continue
			}
			listed, ok := members[set]
			if !ok {
				if _, present := doc.Fields[document.Sets]; present {
					add(cat+"."+set, ErrUnknownMemberSet, "set %q is not listed in sets", set)
				}
				continue
			}
			for _, member := range byMember.SortedKeys() {
				if !listed[member] {
					add(cat+"."+set, ErrUnknownMember, "%q is not a member of %q", member, set)
				}
			}
		}
	}

	for i, c := range doc.Children {
		checkDoc(c, fmt.Sprintf("%s.children[%d]", at, i), out)
	}
}
