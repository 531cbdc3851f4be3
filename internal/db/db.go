// Package db provides SQLite storage for years, projects and tasks.
//
// The database is stored at ~/.bidtrack/bidtrack.db by default.
// Use Open() to connect and Init() to create the schema.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned (wrapped) when a row lookup by id finds nothing.
var ErrNotFound = errors.New("not found")

// Embedded project sections are stored as JSON documents; they are always
// read and written together with their project.
const schema = `
CREATE TABLE IF NOT EXISTS years (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	year INTEGER NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	year INTEGER NOT NULL,
	project_number TEXT NOT NULL,
	project_name TEXT NOT NULL,
	category TEXT NOT NULL,
	estimated_amount REAL NOT NULL DEFAULT 0,
	budget_price REAL NOT NULL DEFAULT 0,
	tender_date TEXT NOT NULL DEFAULT '',
	award_notice TEXT NOT NULL DEFAULT '{}',
	contract TEXT NOT NULL DEFAULT '{}',
	construction_material TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_date TEXT NOT NULL DEFAULT '',
	deadline_days INTEGER NOT NULL DEFAULT 0,
	deadline_date TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'low',
	status TEXT NOT NULL DEFAULT 'pending',
	project_id INTEGER,
	project_number TEXT NOT NULL DEFAULT '',
	is_project_task INTEGER NOT NULL DEFAULT 0,
	source_kind TEXT,
	source_key TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_projects_year ON projects(year);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_source ON tasks(project_id, source_kind, source_key);
`

// DB wraps a SQL database connection with tracker-specific operations.
type DB struct {
	*sql.DB
}

// DefaultPath returns the default database path (~/.bidtrack/bidtrack.db)
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".bidtrack", "bidtrack.db"), nil
}

// Open opens or creates the database at the given path
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; keeps PRAGMAs and transactions on the same connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}

// Init creates the schema.
func (db *DB) Init() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// nullString maps "" to NULL for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
