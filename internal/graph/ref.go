package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTag marks a reference string whose tag is not recognized.
var ErrUnknownTag = errors.New("unknown reference tag")

// RefKind identifies the form of a reference string.
type RefKind int

const (
	// RefNone is the empty reference; it never resolves.
	RefNone RefKind = iota
	// RefPath is an absolute store path ("/1/4").
	RefPath
	// RefName is "@name:<value>": a direct child of the scope by name.
	RefName
	// RefMeta is "@meta:<value>": a meta-registry node by name.
	RefMeta
	// RefGUID is a bare guid: a direct child of the scope by guid.
	RefGUID
)

func (k RefKind) String() string {
	switch k {
	case RefPath:
		return "path"
	case RefName:
		return "name"
	case RefMeta:
		return "meta"
	case RefGUID:
		return "guid"
	default:
		return "none"
	}
}

// Reference tags.
const (
	TagName = "@name"
	TagMeta = "@meta"
)

// Reference is a parsed reference string.
type Reference struct {
	Kind  RefKind
	Value string
	Raw   string
}

func (r Reference) String() string { return r.Raw }

// ParseReference classifies s. The value of a tagged reference is everything
// after the first colon, so names may themselves contain colons.
func ParseReference(s string) (Reference, error) {
	ref := Reference{Raw: s}
	switch {
	case s == "":
		return ref, nil
	case strings.HasPrefix(s, "/"):
		ref.Kind = RefPath
		ref.Value = s
		return ref, nil
	}

	tag, value, tagged := strings.Cut(s, ":")
	if !tagged {
		ref.Kind = RefGUID
		ref.Value = s
		return ref, nil
	}

	switch tag {
	case TagName:
		ref.Kind = RefName
	case TagMeta:
		ref.Kind = RefMeta
	default:
		return ref, fmt.Errorf("%w %q in %q", ErrUnknownTag, tag, s)
	}
	ref.Value = value
	return ref, nil
}

// NameRef builds an "@name:" reference string.
func NameRef(name string) string { return TagName + ":" + name }

// MetaRef builds an "@meta:" reference string.
func MetaRef(name string) string { return TagMeta + ":" + name }
