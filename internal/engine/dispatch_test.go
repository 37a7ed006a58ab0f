package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treesync/internal/diff"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
	"github.com/roach88/treesync/internal/store"
)

// setupNode creates /2 under the root, with children A (/2/3) and B (/2/4).
func setupNode(t *testing.T) (*Engine, *store.Store, graph.Node) {
	t.Helper()
	e, s := setupTestEngine(t)
	ctx := context.Background()
	n, err := e.CreateChild(ctx, mustRoot(t, e), "")
	require.NoError(t, err)
	for _, ref := range []string{"@name:A", "@name:B"} {
		_, err := e.CreateChild(ctx, n, ref)
		require.NoError(t, err)
	}
	return e, s, n
}

func TestApplyChange_AttributePutAndDelete(t *testing.T) {
	e, _, n := setupNode(t)
	ctx := context.Background()

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRInt(5), "attributes", "x")))
	doc, err := e.Serialize(ctx, n, true)
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(5), field(t, doc, "attributes", "x"))

	require.NoError(t, e.ApplyChange(ctx, n, del("attributes", "x")))
	doc, err = e.Serialize(ctx, n, true)
	require.NoError(t, err)
	_, ok := doc.Category("attributes")["x"]
	assert.False(t, ok, "x is removed")
}

func TestApplyChange_CategoryDeleteIsNoop(t *testing.T) {
	_, s, n := setupNode(t)
	ctx := context.Background()
	require.NoError(t, s.SetAttribute(ctx, n, "x", ir.IRInt(1)))

	rec := graph.NewRecorder(s)
	e2 := New(rec, WithLogger(discardLogger()))
	require.NoError(t, e2.ApplyChange(ctx, n, del("attributes")))
	assert.Equal(t, 0, rec.Count())

	v, ok, err := s.Attribute(ctx, n, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ir.IRInt(1), v)
}

func TestApplyChange_NestedRegistryPut(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()
	require.NoError(t, s.SetRegistry(ctx, n, "position", ir.IRObject{"x": ir.IRInt(1)}))

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRInt(2), "registry", "position", "y")))
	// A missing entry is created from nothing
	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRBool(true), "registry", "fresh", "on")))

	v, err := s.Registry(ctx, n, "position")
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRObject{"x": ir.IRInt(1), "y": ir.IRInt(2)}, v))
	v, err = s.Registry(ctx, n, "fresh")
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRObject{"on": ir.IRBool(true)}, v))
}

func TestApplyChange_NestedRegistryPutIntoScalar(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()
	require.NoError(t, s.SetRegistry(ctx, n, "flag", ir.IRBool(true)))

	err := e.ApplyChange(ctx, n, put(ir.IRInt(2), "registry", "flag", "y"))
	assert.True(t, IsUnsupportedShape(err), "got %v", err)
}

func TestApplyChange_NestedAttributeMetaPut(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()
	require.NoError(t, s.SetAttributeMeta(ctx, n, "size", ir.IRObject{"type": ir.IRString("integer")}))

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRInt(0), "attribute_meta", "size", "min")))

	v, err := s.AttributeMeta(ctx, n, "size")
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRObject{"type": ir.IRString("integer"), "min": ir.IRInt(0)}, v))
}

func TestApplyChange_PointerTargets(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRString("@name:B"), "pointers", "next")))
	path, ok, err := s.PointerPath(ctx, n, "next")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/2/4", path)

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRNull{}, "pointers", "next")))
	_, ok, err = s.PointerPath(ctx, n, "next")
	require.NoError(t, err)
	assert.False(t, ok, "null clears the target")

	err = e.ApplyChange(ctx, n, put(ir.IRInt(3), "pointers", "next"))
	assert.True(t, IsUnsupportedShape(err), "got %v", err)
}

func TestApplyChange_PointerMetaBounds(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRObject{
		"min": ir.IRInt(0), "max": ir.IRInt(1),
		"@name:A": ir.IRObject{"min": ir.IRInt(0), "max": ir.IRInt(-1)},
	}, "pointer_meta", "src")))

	// Updating one bound re-submits both
	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRInt(5), "pointer_meta", "src", "max")))
	meta, err := s.PointerMeta(ctx, n, "src")
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(0), meta["min"])
	assert.Equal(t, ir.IRInt(5), meta["max"])

	// Deleting a bound makes it unbounded
	require.NoError(t, e.ApplyChange(ctx, n, del("pointer_meta", "src", "min")))
	meta, err = s.PointerMeta(ctx, n, "src")
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(-1), meta["min"])
	assert.Equal(t, ir.IRInt(5), meta["max"])
	assert.Contains(t, meta, "/2/3")
}

func TestApplyChange_PointerMetaTargets(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()

	// A nested put into a target record creates the record
	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRInt(2), "pointer_meta", "src", "@name:B", "max")))
	meta, err := s.PointerMeta(ctx, n, "src")
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRObject{"min": ir.IRInt(-1), "max": ir.IRInt(2)}, meta["/2/4"]), "got %v", meta)

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRInt(1), "pointer_meta", "src", "/2/4", "min")))
	meta, err = s.PointerMeta(ctx, n, "src")
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRObject{"min": ir.IRInt(1), "max": ir.IRInt(2)}, meta["/2/4"]), "got %v", meta)

	require.NoError(t, e.ApplyChange(ctx, n, del("pointer_meta", "src", "/2/4")))
	meta, err = s.PointerMeta(ctx, n, "src")
	require.NoError(t, err)
	assert.NotContains(t, meta, "/2/4")

	require.NoError(t, e.ApplyChange(ctx, n, del("pointer_meta", "src")))
	names, err := s.OwnValidPointerNames(ctx, n)
	require.NoError(t, err)
	assert.Empty(t, names)

	err = e.ApplyChange(ctx, n, put(ir.IRInt(1), "pointer_meta", "src", "@name:Nobody", "min"))
	assert.True(t, IsReferenceNotFound(err), "got %v", err)
}

func TestApplyChange_SetMembers(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()

	// Duplicate references add one member
	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRArray{
		ir.IRString("@name:A"), ir.IRString("/2/3"), ir.IRString("@name:B"),
	}, "sets", "kids")))
	members, err := s.MemberPaths(ctx, n, "kids")
	require.NoError(t, err)
	assert.Equal(t, []string{"/2/3", "/2/4"}, members)

	// Index deletes address the live member list
	require.NoError(t, e.ApplyChange(ctx, n, del("sets", "kids", 0)))
	members, err = s.MemberPaths(ctx, n, "kids")
	require.NoError(t, err)
	assert.Equal(t, []string{"/2/4"}, members)

	err = e.ApplyChange(ctx, n, del("sets", "kids", 3))
	assert.True(t, IsReferenceNotFound(err), "got %v", err)

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRString("@name:A"), "sets", "kids", 1)))
	members, err = s.MemberPaths(ctx, n, "kids")
	require.NoError(t, err)
	assert.Equal(t, []string{"/2/4", "/2/3"}, members)

	err = e.ApplyChange(ctx, n, put(ir.IRInt(1), "sets", "kids", 2))
	assert.True(t, IsUnsupportedShape(err), "got %v", err)

	require.NoError(t, e.ApplyChange(ctx, n, del("sets", "kids")))
	sets, err := s.OwnSetNames(ctx, n)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestApplyChange_MemberDataDeletes(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()
	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRArray{ir.IRString("@name:A"), ir.IRString("@name:B")}, "sets", "kids")))
	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRObject{
		"@name:A": ir.IRObject{"color": ir.IRString("red"), "size": ir.IRInt(1)},
		"@name:B": ir.IRObject{"color": ir.IRString("blue")},
	}, "member_attributes", "kids")))

	names, err := s.MemberAttributeNames(ctx, n, "kids", "/2/3")
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "size"}, names)

	// One named entry
	require.NoError(t, e.ApplyChange(ctx, n, del("member_attributes", "kids", "@name:A", "size")))
	names, err = s.MemberAttributeNames(ctx, n, "kids", "/2/3")
	require.NoError(t, err)
	assert.Equal(t, []string{"color"}, names)

	// Every entry of one member
	require.NoError(t, e.ApplyChange(ctx, n, del("member_attributes", "kids", "/2/3")))
	names, err = s.MemberAttributeNames(ctx, n, "kids", "/2/3")
	require.NoError(t, err)
	assert.Empty(t, names)

	// Every entry of every member
	require.NoError(t, e.ApplyChange(ctx, n, del("member_attributes", "kids")))
	names, err = s.MemberAttributeNames(ctx, n, "kids", "/2/4")
	require.NoError(t, err)
	assert.Empty(t, names)

	// A member that left the set has nothing to delete
	require.NoError(t, e.ApplyChange(ctx, n, del("member_attributes", "kids", "/2/99")))
	// Neither does a set that is gone
	require.NoError(t, e.ApplyChange(ctx, n, del("member_registry", "gone")))
}

func TestApplyChange_MemberRegistryNestedPut(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()
	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRArray{ir.IRString("@name:A")}, "sets", "kids")))

	require.NoError(t, e.ApplyChange(ctx, n, put(ir.IRInt(3), "member_registry", "kids", "@name:A", "layout", "row")))

	v, err := s.MemberRegistry(ctx, n, "kids", "/2/3", "layout")
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRObject{"row": ir.IRInt(3)}, v))

	// Member data needs the member in the set
	err = e.ApplyChange(ctx, n, put(ir.IRInt(1), "member_attributes", "kids", "@name:B", "w"))
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestDispatcher_ApplyAllStopsAtFirstError(t *testing.T) {
	e, s, n := setupNode(t)
	ctx := context.Background()

	err := e.Dispatcher(n).ApplyAll(ctx, []diff.Change{
		put(ir.IRInt(1), "attributes", "a"),
		put(ir.IRString("@name:Nobody"), "pointers", "p"),
		put(ir.IRInt(1), "attributes", "b"),
	})
	assert.True(t, IsReferenceNotFound(err), "got %v", err)

	_, ok, err := s.Attribute(ctx, n, "a")
	require.NoError(t, err)
	assert.True(t, ok, "earlier changes stay applied")
	_, ok, err = s.Attribute(ctx, n, "b")
	require.NoError(t, err)
	assert.False(t, ok, "later changes are not applied")
}
