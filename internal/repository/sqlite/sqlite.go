// Package sqlite implements the repository interfaces on an embedded SQLite
// database via the pure-Go modernc.org/sqlite driver, so the binary needs no
// C toolchain and tests can run against ":memory:".
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an ephemeral database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads during a write, which a request-serving
	// process needs.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	// The UNIQUE constraint on gh_id is the authoritative duplicate signal:
	// the intake pre-check is advisory, the constraint holds under races.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS applications (
			id            TEXT PRIMARY KEY,
			gh_id         INTEGER NOT NULL UNIQUE,
			username      TEXT NOT NULL,
			judge         INTEGER NOT NULL DEFAULT 0,
			emails        TEXT NOT NULL DEFAULT '[]',
			dbo_handle    TEXT NOT NULL,
			stream_handle TEXT NOT NULL DEFAULT '',
			irc_handle    TEXT NOT NULL DEFAULT '',
			game_handle   TEXT NOT NULL DEFAULT '',
			contact_email TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_applications_created_at ON applications(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating applications table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS time_entries (
			id             TEXT PRIMARY KEY,
			application_id TEXT NOT NULL UNIQUE REFERENCES applications(id) ON DELETE CASCADE,
			t1             INTEGER NOT NULL DEFAULT 0,
			t2             INTEGER NOT NULL DEFAULT 0,
			t3             INTEGER NOT NULL DEFAULT 0,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating time_entries table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS commits (
			id             TEXT PRIMARY KEY,
			application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
			sha            TEXT NOT NULL,
			message        TEXT NOT NULL DEFAULT '',
			committed_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_commits_application_id ON commits(application_id);
	`)
	if err != nil {
		return fmt.Errorf("creating commits table: %w", err)
	}

	// (action, repo_name) uniqueness is what makes both the single and the
	// bulk ledger writes idempotent.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS repo_actions (
			id         TEXT PRIMARY KEY,
			repo_name  TEXT NOT NULL,
			action     TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(action, repo_name)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating repo_actions table: %w", err)
	}

	return nil
}
