package persistence

import (
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"
)

// sqliteSchema mirrors migrations/ for the embedded store. Timestamps are unix
// nanoseconds; proof_files is a JSON array or NULL.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'faculty', 'admin')),
    department    TEXT NOT NULL DEFAULT '',
    pin           TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'active',
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS issues (
    id                 TEXT PRIMARY KEY,
    issue_id           TEXT UNIQUE,
    user_id            TEXT NOT NULL REFERENCES users(id),
    type               TEXT NOT NULL CHECK (type IN ('issue', 'feedback', 'suggestion')),
    category           TEXT NOT NULL,
    specify_category   TEXT NOT NULL DEFAULT '',
    description        TEXT NOT NULL,
    sent_to            TEXT NOT NULL DEFAULT '',
    faculty_name       TEXT NOT NULL DEFAULT '',
    anonymous          INTEGER NOT NULL DEFAULT 0,
    proof_files        TEXT,
    status             TEXT NOT NULL DEFAULT 'open'
                       CHECK (status IN ('open', 'submitted', 'in_progress', 'resolved', 'rejected')),
    escalated          INTEGER NOT NULL DEFAULT 0,
    escalated_to       TEXT,
    escalation_reason  TEXT,
    escalated_at       INTEGER,
    resolution_message TEXT,
    resolved_at        INTEGER,
    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_user_status ON issues (user_id, status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_issues_status ON issues (status, created_at DESC);

CREATE TRIGGER IF NOT EXISTS issues_escalated_monotonic
BEFORE UPDATE OF escalated ON issues
WHEN OLD.escalated = 1 AND NEW.escalated = 0
BEGIN
    SELECT RAISE(ABORT, 'escalation cannot be reverted');
END;
`

// OpenSQLite opens a SQLite database connection and configures pragmas.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// EnsureSQLiteSchema creates tables, indexes and triggers when missing.
func EnsureSQLiteSchema(db *sql.DB) error {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// NewTestSQLite creates a fresh in-memory SQLite database with the schema applied.
func NewTestSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := EnsureSQLiteSchema(db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
