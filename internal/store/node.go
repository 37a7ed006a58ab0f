package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/treesync/internal/graph"
)

// Node is a handle on a stored node.
type Node struct {
	path string
	guid string
}

// Path returns the node's store path.
func (n Node) Path() string { return n.path }

// GUID returns the node's global identifier.
func (n Node) GUID() string { return n.guid }

func (n Node) String() string {
	if n.path == graph.RootPath {
		return "<root>"
	}
	return n.path
}

// Root returns the root node.
func (s *Store) Root(ctx context.Context) (graph.Node, error) {
	return s.LoadByPath(ctx, graph.RootPath)
}

// LoadByPath returns the node with the given path, or graph.ErrNotFound.
func (s *Store) LoadByPath(ctx context.Context, path string) (graph.Node, error) {
	var guid string
	err := s.db.QueryRowContext(ctx, `SELECT guid FROM nodes WHERE path = ?`, path).Scan(&guid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("node %q", path)
	}
	if err != nil {
		return nil, fmt.Errorf("load node %q: %w", path, err)
	}
	return Node{path: path, guid: guid}, nil
}

// LoadChildren returns the children of n in creation order.
func (s *Store) LoadChildren(ctx context.Context, n graph.Node) ([]graph.Node, error) {
	return s.queryNodes(ctx, `
		SELECT path, guid FROM nodes
		WHERE parent = ?
		ORDER BY relid ASC
	`, n.Path())
}

// MetaNodes returns the members of the root's meta aspect set in insertion order.
func (s *Store) MetaNodes(ctx context.Context) ([]graph.Node, error) {
	return s.queryNodes(ctx, `
		SELECT n.path, n.guid FROM set_members m
		JOIN nodes n ON n.path = m.member
		WHERE m.node = '' AND m.set_name = ?
		ORDER BY m.seq ASC
	`, graph.MetaAspectSet)
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...any) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []graph.Node{}
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.path, &n.guid); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// CreateNode creates a new node derived from base under parent. The new
// node's path is the parent's path plus a fresh relid.
func (s *Store) CreateNode(ctx context.Context, base, parent graph.Node) (graph.Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("create node: parent is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create node: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := requireNode(ctx, tx, parent.Path()); err != nil {
		return nil, fmt.Errorf("create node: parent: %w", err)
	}
	var basePath any
	if base != nil {
		if err := requireNode(ctx, tx, base.Path()); err != nil {
			return nil, fmt.Errorf("create node: base: %w", err)
		}
		basePath = base.Path()
	}

	var relid int64
	if err := tx.QueryRowContext(ctx, `
		UPDATE counters SET value = value + 1 WHERE name = 'relid' RETURNING value
	`).Scan(&relid); err != nil {
		return nil, fmt.Errorf("create node: next relid: %w", err)
	}

	n := Node{
		path: parent.Path() + "/" + strconv.FormatInt(relid, 10),
		guid: s.guid.Generate(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (path, guid, parent, base, relid) VALUES (?, ?, ?, ?, ?)
	`, n.path, n.guid, parent.Path(), basePath, relid); err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create node: commit: %w", err)
	}
	return n, nil
}

// DeleteNode deletes n and its subtree. Pointers to deleted nodes are
// cleared; memberships of deleted nodes and their member data are removed.
func (s *Store) DeleteNode(ctx context.Context, n graph.Node) error {
	if n.Path() == graph.RootPath {
		return fmt.Errorf("delete node: the root cannot be deleted")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE path = ?`, n.Path())
	if err != nil {
		return fmt.Errorf("delete node %s: %w", n.Path(), err)
	}
	return expectRow(res, "node %q", n.Path())
}

// Base returns the node n derives from, or graph.ErrNotFound for a node
// without a base.
func (s *Store) Base(ctx context.Context, n graph.Node) (graph.Node, error) {
	var base sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT base FROM nodes WHERE path = ?`, n.Path()).Scan(&base)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("node %q", n.Path())
	}
	if err != nil {
		return nil, fmt.Errorf("load base of %s: %w", n.Path(), err)
	}
	if !base.Valid {
		return nil, notFound("base of %q", n.Path())
	}
	return s.LoadByPath(ctx, base.String)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func requireNode(ctx context.Context, q queryer, path string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE path = ?`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("node %q", path)
	}
	if err != nil {
		return fmt.Errorf("check node %q: %w", path, err)
	}
	return nil
}

func expectRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(format, args...)
	}
	return nil
}
