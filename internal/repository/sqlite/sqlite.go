// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without a C compiler
// and ":memory:" databases make every test hermetic.
//
// SCHEMA:
// The schema lives in migrations/*.sql, embedded into the binary and applied by
// golang-migrate on startup. golang-migrate records the applied version in a
// schema_migrations table, so New is safe to call against an existing file.
//
// ONE CONNECTION:
// The pool is capped at a single connection. SQLite serializes writers anyway,
// and ":memory:" databases exist per connection. Code in this package must
// therefore never issue a query while a *sql.Rows is still open, and must use the
// *sql.Tx (not db.conn) for every statement inside a transaction.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sql.DB connection pool and implements the user, article and
// comment repositories.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and migrates it to the latest schema.
//
// dbPath examples:
//   - "data/conduit.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed during a write. ":memory:" silently ignores it.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. favorites and follows rely on
	// ON DELETE CASCADE.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return newWithConn(conn), nil
}

// newWithConn wraps an already-open pool without touching the schema.
// Tests use it to drive the store against sqlmock.
func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrateUp applies every pending migration from migrationsFS.
//
// The migrate.Migrate is deliberately not closed: closing it closes the
// database driver, which closes conn.
func migrateUp(conn *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given "table.column".
func isUniqueViolation(err error, column string) bool {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE && strings.Contains(se.Error(), column)
}

// now returns the current time in UTC. Timestamps are stored in UTC so that
// ORDER BY created_at sorts chronologically.
func now() time.Time {
	return time.Now().UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
