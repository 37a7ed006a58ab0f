package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// createTestStore creates a new store in a temp dir with deterministic guids.
func createTestStore(t *testing.T, guids ...string) *Store {
	t.Helper()
	all := append([]string{"root-guid", "fco-guid"}, guids...)
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithGUIDGenerator(NewFixedGenerator(all...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustLoad loads a node by path or fails the test.
func mustLoad(t *testing.T, s *Store, path string) graph.Node {
	t.Helper()
	n, err := s.LoadByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadByPath(%q) failed: %v", path, err)
	}
	return n
}

// mustCreate creates a node derived from the prototype under parent.
func mustCreate(t *testing.T, s *Store, parent graph.Node) graph.Node {
	t.Helper()
	n, err := s.CreateNode(context.Background(), mustLoad(t, s, BasePath), parent)
	if err != nil {
		t.Fatalf("CreateNode() failed: %v", err)
	}
	return n
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Bootstrap(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	root, err := s.Root(ctx)
	if err != nil {
		t.Fatalf("Root() failed: %v", err)
	}
	if root.Path() != "" || root.GUID() != "root-guid" {
		t.Errorf("root = (%q, %q), want (\"\", root-guid)", root.Path(), root.GUID())
	}

	fco := mustLoad(t, s, BasePath)
	if fco.GUID() != "fco-guid" {
		t.Errorf("fco guid = %q, want fco-guid", fco.GUID())
	}
	name, ok, err := s.Attribute(ctx, fco, graph.NameAttribute)
	if err != nil || !ok {
		t.Fatalf("Attribute(name) = %v, %v, %v", name, ok, err)
	}
	if !ir.Equal(name, ir.IRString(BaseName)) {
		t.Errorf("fco name = %v, want %q", name, BaseName)
	}

	metas, err := s.MetaNodes(ctx)
	if err != nil {
		t.Fatalf("MetaNodes() failed: %v", err)
	}
	if len(metas) != 1 || metas[0].Path() != BasePath {
		t.Errorf("MetaNodes() = %v, want [%s]", metas, BasePath)
	}

	children, err := s.LoadChildren(ctx, root)
	if err != nil {
		t.Fatalf("LoadChildren() failed: %v", err)
	}
	if len(children) != 1 || children[0].Path() != BasePath {
		t.Errorf("root children = %v, want [%s]", children, BasePath)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open multiple times
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	// Bootstrap must not run twice
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count); err != nil {
		t.Fatalf("count nodes: %v", err)
	}
	if count != 2 {
		t.Errorf("node count = %d, want 2", count)
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestClose_Nil(t *testing.T) {
	var s Store
	if err := s.Close(); err != nil {
		t.Errorf("Close() on zero Store = %v, want nil", err)
	}
}

func TestMarshalValue_Canonical(t *testing.T) {
	data, err := marshalValue(ir.IRObject{"b": ir.IRInt(1), "a": ir.IRString("x")})
	if err != nil {
		t.Fatalf("marshalValue() failed: %v", err)
	}
	if data != `{"a":"x","b":1}` {
		t.Errorf("marshalValue() = %s", data)
	}

	data, err = marshalValue(nil)
	if err != nil || data != "null" {
		t.Errorf("marshalValue(nil) = %q, %v; want null", data, err)
	}

	v, err := unmarshalValue(`{"a":[1,2.5,true,null]}`)
	if err != nil {
		t.Fatalf("unmarshalValue() failed: %v", err)
	}
	want := ir.IRObject{"a": ir.IRArray{ir.IRInt(1), ir.IRFloat(2.5), ir.IRBool(true), ir.IRNull{}}}
	if !ir.Equal(v, want) {
		t.Errorf("unmarshalValue() = %v, want %v", v, want)
	}
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("a")
	if got := g.Generate(); got != "a" {
		t.Fatalf("Generate() = %q, want a", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("Generate() did not panic when exhausted")
		}
	}()
	g.Generate()
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	if a == b {
		t.Errorf("Generate() returned duplicate guid %q", a)
	}
	if len(a) != 36 {
		t.Errorf("guid %q is not a hyphenated UUID", a)
	}
}
