package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// OwnAttributeNames returns the attribute names set on n itself, sorted.
func (s *Store) OwnAttributeNames(ctx context.Context, n graph.Node) ([]string, error) {
	return s.queryNames(ctx, `SELECT name FROM attributes WHERE node = ? ORDER BY name`, n.Path())
}

// Attribute returns the attribute value of n, falling back along the base
// chain. The bool is false when no node in the chain has the attribute.
func (s *Store) Attribute(ctx context.Context, n graph.Node, name string) (ir.IRValue, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		WITH RECURSIVE chain(path, depth) AS (
			SELECT ?, 0
			UNION ALL
			SELECT n.base, c.depth + 1
			FROM nodes n JOIN chain c ON n.path = c.path
			WHERE n.base IS NOT NULL
		)
		SELECT a.value FROM chain c
		JOIN attributes a ON a.node = c.path AND a.name = ?
		ORDER BY c.depth ASC
		LIMIT 1
	`, n.Path(), name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read attribute %q: %w", name, err)
	}
	v, err := unmarshalValue(data)
	if err != nil {
		return nil, false, fmt.Errorf("attribute %q: %w", name, err)
	}
	return v, true, nil
}

// OwnValidAttributeNames returns the names with attribute meta on n, sorted.
func (s *Store) OwnValidAttributeNames(ctx context.Context, n graph.Node) ([]string, error) {
	return s.queryNames(ctx, `SELECT name FROM attribute_meta WHERE node = ? ORDER BY name`, n.Path())
}

// AttributeMeta returns the attribute meta descriptor for name.
func (s *Store) AttributeMeta(ctx context.Context, n graph.Node, name string) (ir.IRValue, error) {
	return s.queryValue(ctx, "attribute meta "+name,
		`SELECT value FROM attribute_meta WHERE node = ? AND name = ?`, n.Path(), name)
}

// OwnPointerNames returns the pointer names on n, sorted.
func (s *Store) OwnPointerNames(ctx context.Context, n graph.Node) ([]string, error) {
	return s.queryNames(ctx, `SELECT name FROM pointers WHERE node = ? ORDER BY name`, n.Path())
}

// PointerPath returns the target path of a pointer. ok is false for a
// pointer without a target.
func (s *Store) PointerPath(ctx context.Context, n graph.Node, name string) (string, bool, error) {
	var target sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT target FROM pointers WHERE node = ? AND name = ?`, n.Path(), name).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, notFound("pointer %q on %q", name, n.Path())
	}
	if err != nil {
		return "", false, fmt.Errorf("read pointer %q: %w", name, err)
	}
	return target.String, target.Valid, nil
}

// OwnValidPointerNames returns the pointer names with pointer meta on n, sorted.
func (s *Store) OwnValidPointerNames(ctx context.Context, n graph.Node) ([]string, error) {
	return s.queryNames(ctx, `SELECT name FROM pointer_meta WHERE node = ? ORDER BY name`, n.Path())
}

// PointerMeta returns the pointer meta descriptor:
//
//	{"min": m, "max": M, "<target path>": {"min": m, "max": M}, ...}
func (s *Store) PointerMeta(ctx context.Context, n graph.Node, name string) (ir.IRObject, error) {
	var limits graph.PointerLimits
	err := s.db.QueryRowContext(ctx,
		`SELECT min, max FROM pointer_meta WHERE node = ? AND name = ?`, n.Path(), name).
		Scan(&limits.Min, &limits.Max)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("pointer meta %q on %q", name, n.Path())
	}
	if err != nil {
		return nil, fmt.Errorf("read pointer meta %q: %w", name, err)
	}
	meta := limitsObject(limits)

	rows, err := s.db.QueryContext(ctx, `
		SELECT target, min, max FROM pointer_meta_targets
		WHERE node = ? AND name = ?
		ORDER BY target
	`, n.Path(), name)
	if err != nil {
		return nil, fmt.Errorf("read pointer meta targets %q: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var target string
		var l graph.PointerLimits
		if err := rows.Scan(&target, &l.Min, &l.Max); err != nil {
			return nil, fmt.Errorf("scan pointer meta target: %w", err)
		}
		meta[target] = limitsObject(l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pointer meta targets: %w", err)
	}
	return meta, nil
}

func limitsObject(l graph.PointerLimits) ir.IRObject {
	return ir.IRObject{"min": ir.IRInt(l.Min), "max": ir.IRInt(l.Max)}
}

// OwnRegistryNames returns the registry names on n, sorted.
func (s *Store) OwnRegistryNames(ctx context.Context, n graph.Node) ([]string, error) {
	return s.queryNames(ctx, `SELECT name FROM registry WHERE node = ? ORDER BY name`, n.Path())
}

// Registry returns a registry value.
func (s *Store) Registry(ctx context.Context, n graph.Node, name string) (ir.IRValue, error) {
	return s.queryValue(ctx, "registry "+name,
		`SELECT value FROM registry WHERE node = ? AND name = ?`, n.Path(), name)
}

// OwnSetNames returns the set names on n, sorted.
func (s *Store) OwnSetNames(ctx context.Context, n graph.Node) ([]string, error) {
	return s.queryNames(ctx, `SELECT name FROM sets WHERE node = ? ORDER BY name`, n.Path())
}

// MemberPaths lists the members of a set in insertion order.
func (s *Store) MemberPaths(ctx context.Context, n graph.Node, set string) ([]string, error) {
	if err := s.requireSet(ctx, n, set); err != nil {
		return nil, err
	}
	return s.queryNames(ctx, `
		SELECT member FROM set_members
		WHERE node = ? AND set_name = ?
		ORDER BY seq ASC
	`, n.Path(), set)
}

// MemberAttributeNames returns the attribute names of a (set, member) pair, sorted.
func (s *Store) MemberAttributeNames(ctx context.Context, n graph.Node, set, member string) ([]string, error) {
	if err := s.requireMember(ctx, n, set, member); err != nil {
		return nil, err
	}
	return s.queryNames(ctx, `
		SELECT name FROM member_attributes
		WHERE node = ? AND set_name = ? AND member = ?
		ORDER BY name
	`, n.Path(), set, member)
}

// MemberAttribute returns an attribute of a (set, member) pair.
func (s *Store) MemberAttribute(ctx context.Context, n graph.Node, set, member, name string) (ir.IRValue, error) {
	return s.queryValue(ctx, "member attribute "+name, `
		SELECT value FROM member_attributes
		WHERE node = ? AND set_name = ? AND member = ? AND name = ?
	`, n.Path(), set, member, name)
}

// MemberRegistryNames returns the registry names of a (set, member) pair, sorted.
func (s *Store) MemberRegistryNames(ctx context.Context, n graph.Node, set, member string) ([]string, error) {
	if err := s.requireMember(ctx, n, set, member); err != nil {
		return nil, err
	}
	return s.queryNames(ctx, `
		SELECT name FROM member_registry
		WHERE node = ? AND set_name = ? AND member = ?
		ORDER BY name
	`, n.Path(), set, member)
}

// MemberRegistry returns a registry value of a (set, member) pair.
func (s *Store) MemberRegistry(ctx context.Context, n graph.Node, set, member, name string) (ir.IRValue, error) {
	return s.queryValue(ctx, "member registry "+name, `
		SELECT value FROM member_registry
		WHERE node = ? AND set_name = ? AND member = ? AND name = ?
	`, n.Path(), set, member, name)
}

func (s *Store) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

func (s *Store) queryValue(ctx context.Context, what, query string, args ...any) (ir.IRValue, error) {
	var data string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("%s", what)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	v, err := unmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

func (s *Store) requireSet(ctx context.Context, n graph.Node, set string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sets WHERE node = ? AND name = ?`, n.Path(), set).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("set %q on %q", set, n.Path())
	}
	if err != nil {
		return fmt.Errorf("check set %q: %w", set, err)
	}
	return nil
}

func (s *Store) requireMember(ctx context.Context, n graph.Node, set, member string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM set_members WHERE node = ? AND set_name = ? AND member = ?
	`, n.Path(), set, member).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("member %q of set %q on %q", member, set, n.Path())
	}
	if err != nil {
		return fmt.Errorf("check member %q: %w", member, err)
	}
	return nil
}
