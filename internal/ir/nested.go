package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a key path: an object key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a segment addressing an object member.
func Key(k string) Segment {
	return Segment{key: k}
}

// Index returns a segment addressing an array element.
func Index(i int) Segment {
	return Segment{index: i, isIndex: true}
}

// IsIndex reports whether the segment addresses an array element.
func (s Segment) IsIndex() bool { return s.isIndex }

// Key returns the object key. For index segments it returns the decimal index,
// which is how an index reads when used as a map key.
func (s Segment) Key() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// Index returns the array index and whether the segment is one.
func (s Segment) Index() (int, bool) {
	return s.index, s.isIndex
}

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return strconv.Quote(s.key)
}

// MarshalJSON encodes keys as strings and indices as numbers.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.isIndex {
		return []byte(strconv.Itoa(s.index)), nil
	}
	return MarshalCanonical(s.key)
}

// UnmarshalJSON accepts a string (key) or a non-negative integer (index).
func (s *Segment) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case IRString:
		*s = Key(string(val))
	case IRInt:
		if val < 0 {
			return fmt.Errorf("path index must be non-negative, got %d", val)
		}
		*s = Index(int(val))
	default:
		return fmt.Errorf("path segment must be a string or integer, got %s", TypeName(v))
	}
	return nil
}

// Path is an ordered list of segments.
type Path []Segment

// ParsePath builds a path from keys and indices.
func ParsePath(parts ...any) (Path, error) {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Index(v))
		case Segment:
			p = append(p, v)
		default:
			return nil, fmt.Errorf("unsupported path segment %T", part)
		}
	}
	return p, nil
}

// MustPath is ParsePath that panics; for tests and literals.
func MustPath(parts ...any) Path {
	p, err := ParsePath(parts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Append returns a new path with segs added; p is not modified.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes the path as a JSON array; a nil path encodes as [].
func (p Path) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Segment(p))
}

// GetNested returns the value at path inside root.
// Index segments address arrays; key segments address objects (an index
// segment also matches an object key of the same decimal spelling).
func GetNested(root IRValue, path Path) (IRValue, bool) {
	cur := root
	for _, seg := range path {
		switch node := cur.(type) {
		case IRObject:
			next, ok := node[seg.Key()]
			if !ok {
				return nil, false
			}
			cur = next
		case IRArray:
			i, ok := seg.Index()
			if !ok {
				n, err := strconv.Atoi(seg.key)
				if err != nil {
					return nil, false
				}
				i = n
			}
			if i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// SetNested stores value at path inside root and returns the updated root.
// Objects are updated in place; missing intermediate objects are created.
// An array index may address an existing element or the position just past
// the end (append). An empty path replaces the root.
func SetNested(root IRValue, path Path, value IRValue) (IRValue, error) {
	if len(path) == 0 {
		return value, nil
	}
	seg, rest := path[0], path[1:]

	switch node := root.(type) {
	case nil, IRNull:
		if seg.IsIndex() {
			return nil, fmt.Errorf("cannot index %s into null", seg)
		}
		child, err := SetNested(nil, rest, value)
		if err != nil {
			return nil, err
		}
		return IRObject{seg.key: child}, nil
	case IRObject:
		if node == nil {
			node = IRObject{}
		}
		child, err := SetNested(node[seg.Key()], rest, value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", seg, err)
		}
		node[seg.Key()] = child
		return node, nil
	case IRArray:
		i, ok := seg.Index()
		if !ok {
			return nil, fmt.Errorf("cannot use key %s on an array", seg)
		}
		switch {
		case i >= 0 && i < len(node):
			child, err := SetNested(node[i], rest, value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", seg, err)
			}
			node[i] = child
			return node, nil
		case i == len(node):
			child, err := SetNested(nil, rest, value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", seg, err)
			}
			return append(node, child), nil
		default:
			return nil, fmt.Errorf("index %d out of range (len %d)", i, len(node))
		}
	default:
		return nil, fmt.Errorf("cannot descend into %s at %s", TypeName(root), seg)
	}
}
