package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on set_members.member for member cascades
const currentSchemaVersion = 1

// Well-known nodes created when a database is first opened.
const (
	// BasePath is the path of the prototype node every created node derives from.
	BasePath = "/1"
	// BaseName is the name attribute of the prototype node.
	BaseName = "FCO"
)

// Store is a graph.Store backed by SQLite.
// Uses SQLite with WAL mode and a single connection.
type Store struct {
	db   *sql.DB
	guid GUIDGenerator
}

var _ graph.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithGUIDGenerator sets the generator for new node guids.
//
// Default: UUIDv7Generator
// Use a FixedGenerator or testutil.SequentialGUIDs for deterministic tests.
func WithGUIDGenerator(g GUIDGenerator) Option {
	return func(s *Store) {
		s.guid = g
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas, migrations and the bootstrap nodes automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement (cascading deletes depend on it)
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, guid: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.bootstrap(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the member index for databases created before it was
// part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_set_members_member ON set_members(member)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// bootstrap creates the root node, the prototype node and the meta registry
// set on first open. It is a no-op for an initialized database.
func (s *Store) bootstrap(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE path = ''`).Scan(&n); err != nil {
		return fmt.Errorf("check root: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	name, err := marshalValue(ir.IRString(BaseName))
	if err != nil {
		return err
	}
	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO counters (name, value) VALUES ('relid', 1)`, nil},
		{`INSERT INTO nodes (path, guid, parent, base, relid) VALUES ('', ?, NULL, NULL, 0)`, []any{s.guid.Generate()}},
		{`INSERT INTO nodes (path, guid, parent, base, relid) VALUES (?, ?, '', NULL, 1)`, []any{BasePath, s.guid.Generate()}},
		{`INSERT INTO attributes (node, name, value) VALUES (?, ?, ?)`, []any{BasePath, graph.NameAttribute, name}},
		{`INSERT INTO sets (node, name) VALUES ('', ?)`, []any{graph.MetaAspectSet}},
		{`INSERT INTO set_members (node, set_name, member, seq) VALUES ('', ?, ?, 1)`, []any{graph.MetaAspectSet, BasePath}},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	return tx.Commit()
}

// notFound wraps graph.ErrNotFound with a description of what is missing.
func notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), graph.ErrNotFound)
}

// IsNotFound reports whether err marks missing data.
func IsNotFound(err error) bool {
	return errors.Is(err, graph.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
