package store

import (
	"context"
	"fmt"

	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// SetAttribute upserts an attribute on n.
func (s *Store) SetAttribute(ctx context.Context, n graph.Node, name string, v ir.IRValue) error {
	return s.upsertValue(ctx, "attributes", n, name, v)
}

// DelAttribute removes an attribute from n.
func (s *Store) DelAttribute(ctx context.Context, n graph.Node, name string) error {
	return s.deleteRow(ctx, fmt.Sprintf("attribute %q", name),
		`DELETE FROM attributes WHERE node = ? AND name = ?`, n.Path(), name)
}

// SetAttributeMeta upserts an attribute meta descriptor on n.
func (s *Store) SetAttributeMeta(ctx context.Context, n graph.Node, name string, v ir.IRValue) error {
	return s.upsertValue(ctx, "attribute_meta", n, name, v)
}

// DelAttributeMeta removes an attribute meta descriptor from n.
func (s *Store) DelAttributeMeta(ctx context.Context, n graph.Node, name string) error {
	return s.deleteRow(ctx, fmt.Sprintf("attribute meta %q", name),
		`DELETE FROM attribute_meta WHERE node = ? AND name = ?`, n.Path(), name)
}

// SetPointer points name at target. A nil target stores a pointer without
// a target.
func (s *Store) SetPointer(ctx context.Context, n graph.Node, name string, target graph.Node) error {
	if err := requireNode(ctx, s.db, n.Path()); err != nil {
		return err
	}
	var targetPath any
	if target != nil {
		if err := requireNode(ctx, s.db, target.Path()); err != nil {
			return fmt.Errorf("pointer %q target: %w", name, err)
		}
		targetPath = target.Path()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pointers (node, name, target) VALUES (?, ?, ?)
		ON CONFLICT (node, name) DO UPDATE SET target = excluded.target
	`, n.Path(), name, targetPath)
	if err != nil {
		return fmt.Errorf("set pointer %q: %w", name, err)
	}
	return nil
}

// DelPointer removes a pointer from n.
func (s *Store) DelPointer(ctx context.Context, n graph.Node, name string) error {
	return s.deleteRow(ctx, fmt.Sprintf("pointer %q", name),
		`DELETE FROM pointers WHERE node = ? AND name = ?`, n.Path(), name)
}

// SetPointerMetaLimits upserts the global {min, max} of a pointer meta.
// Existing per-target limits are kept.
func (s *Store) SetPointerMetaLimits(ctx context.Context, n graph.Node, name string, limits graph.PointerLimits) error {
	if err := requireNode(ctx, s.db, n.Path()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pointer_meta (node, name, min, max) VALUES (?, ?, ?, ?)
		ON CONFLICT (node, name) DO UPDATE SET min = excluded.min, max = excluded.max
	`, n.Path(), name, limits.Min, limits.Max)
	if err != nil {
		return fmt.Errorf("set pointer meta %q: %w", name, err)
	}
	return nil
}

// SetPointerMetaTarget upserts the limits of one allowed target. A pointer
// meta without global limits is created unbounded.
func (s *Store) SetPointerMetaTarget(ctx context.Context, n graph.Node, name string, target graph.Node, limits graph.PointerLimits) error {
	if target == nil {
		return fmt.Errorf("set pointer meta %q target: target is required", name)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set pointer meta %q target: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := requireNode(ctx, tx, n.Path()); err != nil {
		return err
	}
	if err := requireNode(ctx, tx, target.Path()); err != nil {
		return fmt.Errorf("pointer meta %q target: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pointer_meta (node, name, min, max) VALUES (?, ?, -1, -1)
		ON CONFLICT (node, name) DO NOTHING
	`, n.Path(), name); err != nil {
		return fmt.Errorf("set pointer meta %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pointer_meta_targets (node, name, target, min, max) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (node, name, target) DO UPDATE SET min = excluded.min, max = excluded.max
	`, n.Path(), name, target.Path(), limits.Min, limits.Max); err != nil {
		return fmt.Errorf("set pointer meta %q target: %w", name, err)
	}
	return tx.Commit()
}

// DelPointerMeta removes a pointer meta and all its targets.
func (s *Store) DelPointerMeta(ctx context.Context, n graph.Node, name string) error {
	return s.deleteRow(ctx, fmt.Sprintf("pointer meta %q", name),
		`DELETE FROM pointer_meta WHERE node = ? AND name = ?`, n.Path(), name)
}

// DelPointerMetaTarget removes one allowed target from a pointer meta.
func (s *Store) DelPointerMetaTarget(ctx context.Context, n graph.Node, name, targetPath string) error {
	return s.deleteRow(ctx, fmt.Sprintf("pointer meta %q target %q", name, targetPath), `
		DELETE FROM pointer_meta_targets WHERE node = ? AND name = ? AND target = ?
	`, n.Path(), name, targetPath)
}

// SetRegistry upserts a registry entry on n.
func (s *Store) SetRegistry(ctx context.Context, n graph.Node, name string, v ir.IRValue) error {
	return s.upsertValue(ctx, "registry", n, name, v)
}

// DelRegistry removes a registry entry from n.
func (s *Store) DelRegistry(ctx context.Context, n graph.Node, name string) error {
	return s.deleteRow(ctx, fmt.Sprintf("registry %q", name),
		`DELETE FROM registry WHERE node = ? AND name = ?`, n.Path(), name)
}

// CreateSet creates an empty set. Creating an existing set is a no-op.
func (s *Store) CreateSet(ctx context.Context, n graph.Node, set string) error {
	if err := requireNode(ctx, s.db, n.Path()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sets (node, name) VALUES (?, ?)
		ON CONFLICT (node, name) DO NOTHING
	`, n.Path(), set)
	if err != nil {
		return fmt.Errorf("create set %q: %w", set, err)
	}
	return nil
}

// DelSet removes a set with its members and their data.
func (s *Store) DelSet(ctx context.Context, n graph.Node, set string) error {
	return s.deleteRow(ctx, fmt.Sprintf("set %q", set),
		`DELETE FROM sets WHERE node = ? AND name = ?`, n.Path(), set)
}

// AddMember appends member to a set. Adding an existing member is a no-op
// and keeps its position.
func (s *Store) AddMember(ctx context.Context, n graph.Node, set string, member graph.Node) error {
	if member == nil {
		return fmt.Errorf("add member to set %q: member is required", set)
	}
	if err := s.requireSet(ctx, n, set); err != nil {
		return err
	}
	if err := requireNode(ctx, s.db, member.Path()); err != nil {
		return fmt.Errorf("member of set %q: %w", set, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO set_members (node, set_name, member, seq)
		SELECT ?, ?, ?, COALESCE(MAX(seq), 0) + 1
		FROM set_members WHERE node = ? AND set_name = ?
		ON CONFLICT (node, set_name, member) DO NOTHING
	`, n.Path(), set, member.Path(), n.Path(), set)
	if err != nil {
		return fmt.Errorf("add member to set %q: %w", set, err)
	}
	return nil
}

// DelMember removes a member and its member data from a set.
func (s *Store) DelMember(ctx context.Context, n graph.Node, set, member string) error {
	return s.deleteRow(ctx, fmt.Sprintf("member %q of set %q", member, set), `
		DELETE FROM set_members WHERE node = ? AND set_name = ? AND member = ?
	`, n.Path(), set, member)
}

// SetMemberAttribute upserts an attribute of a (set, member) pair.
func (s *Store) SetMemberAttribute(ctx context.Context, n graph.Node, set, member, name string, v ir.IRValue) error {
	return s.upsertMemberValue(ctx, "member_attributes", n, set, member, name, v)
}

// DelMemberAttribute removes an attribute of a (set, member) pair.
func (s *Store) DelMemberAttribute(ctx context.Context, n graph.Node, set, member, name string) error {
	return s.deleteRow(ctx, fmt.Sprintf("member attribute %q", name), `
		DELETE FROM member_attributes
		WHERE node = ? AND set_name = ? AND member = ? AND name = ?
	`, n.Path(), set, member, name)
}

// SetMemberRegistry upserts a registry entry of a (set, member) pair.
func (s *Store) SetMemberRegistry(ctx context.Context, n graph.Node, set, member, name string, v ir.IRValue) error {
	return s.upsertMemberValue(ctx, "member_registry", n, set, member, name, v)
}

// DelMemberRegistry removes a registry entry of a (set, member) pair.
func (s *Store) DelMemberRegistry(ctx context.Context, n graph.Node, set, member, name string) error {
	return s.deleteRow(ctx, fmt.Sprintf("member registry %q", name), `
		DELETE FROM member_registry
		WHERE node = ? AND set_name = ? AND member = ? AND name = ?
	`, n.Path(), set, member, name)
}

// upsertValue writes a (node, name, value) row. table is one of the
// package's own table names, never user input.
func (s *Store) upsertValue(ctx context.Context, table string, n graph.Node, name string, v ir.IRValue) error {
	if err := requireNode(ctx, s.db, n.Path()); err != nil {
		return err
	}
	data, err := marshalValue(v)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (node, name, value) VALUES (?, ?, ?)
		ON CONFLICT (node, name) DO UPDATE SET value = excluded.value
	`, table)
	if _, err := s.db.ExecContext(ctx, query, n.Path(), name, data); err != nil {
		return fmt.Errorf("write %s %q: %w", table, name, err)
	}
	return nil
}

func (s *Store) upsertMemberValue(ctx context.Context, table string, n graph.Node, set, member, name string, v ir.IRValue) error {
	if err := s.requireMember(ctx, n, set, member); err != nil {
		return err
	}
	data, err := marshalValue(v)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (node, set_name, member, name, value) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (node, set_name, member, name) DO UPDATE SET value = excluded.value
	`, table)
	if _, err := s.db.ExecContext(ctx, query, n.Path(), set, member, name, data); err != nil {
		return fmt.Errorf("write %s %q: %w", table, name, err)
	}
	return nil
}

func (s *Store) deleteRow(ctx context.Context, what, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	return expectRow(res, "%s", what)
}
