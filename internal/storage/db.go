// Package storage backs the FTS5 lexical prefilter and the search metrics
// store with a SQLite database at .rpg/rpg.db.
package storage

import (
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	rpgerr "rpg/internal/errors"
	"rpg/internal/paths"
)

// DB wraps the SQLite connection.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens or creates .rpg/rpg.db with WAL and the schema installed.
func Open(repoRoot string, logger *slog.Logger) (*DB, error) {
	if _, err := paths.EnsureRpgDir(repoRoot); err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to create .rpg directory", err)
	}

	conn, err := sql.Open("sqlite", paths.DatabaseFile(repoRoot))
	if err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to open rpg.db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to set pragma", err)
		}
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) initSchema() error {
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS features_fts USING fts5(
			entity_id UNINDEXED,
			name,
			features,
			file_path
		)`,
		`CREATE TABLE IF NOT EXISTS search_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			mode TEXT NOT NULL,
			result_count INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
	for _, stmt := range statements {
		if _, err := d.conn.Exec(stmt); err != nil {
			return rpgerr.Wrap(rpgerr.CorruptStore, "failed to create schema", err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
