package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migration moves the schema from version-1 to version. The version is
// kept in SQLite's user_version header field.
type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "session_reports",
		// payload is the zstd-compressed deterministic JSON of the report
		statements: []string{
			`CREATE TABLE IF NOT EXISTS session_reports (
				id TEXT PRIMARY KEY,
				repo TEXT NOT NULL,
				language TEXT NOT NULL,
				created_at TEXT NOT NULL,
				commits INTEGER NOT NULL DEFAULT 0,
				hit_count INTEGER NOT NULL DEFAULT 0,
				payload BLOB NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_session_reports_repo ON session_reports(repo, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_session_reports_language ON session_reports(language, created_at)`,
		},
	},
	{
		version: 2,
		name:    "report_hits",
		// one row per concept hit, with an FTS5 index over snippets kept in
		// sync by triggers; reports archived at version 1 have no hit rows
		statements: []string{
			`CREATE TABLE IF NOT EXISTS report_hits (
				rowid INTEGER PRIMARY KEY AUTOINCREMENT,
				report_id TEXT NOT NULL REFERENCES session_reports(id) ON DELETE CASCADE,
				concept_id TEXT NOT NULL,
				path TEXT,
				snippet TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_report_hits_report ON report_hits(report_id)`,
			`CREATE INDEX IF NOT EXISTS idx_report_hits_concept ON report_hits(concept_id)`,
			`CREATE VIRTUAL TABLE IF NOT EXISTS hits_fts USING fts5(
				concept_id,
				snippet,
				content='report_hits',
				content_rowid='rowid'
			)`,
			`CREATE TRIGGER IF NOT EXISTS hits_fts_ai AFTER INSERT ON report_hits BEGIN
				INSERT INTO hits_fts(rowid, concept_id, snippet)
				VALUES (new.rowid, new.concept_id, new.snippet);
			END`,
			`CREATE TRIGGER IF NOT EXISTS hits_fts_ad AFTER DELETE ON report_hits BEGIN
				INSERT INTO hits_fts(hits_fts, rowid, concept_id, snippet)
				VALUES ('delete', old.rowid, old.concept_id, old.snippet);
			END`,
			`INSERT INTO hits_fts(hits_fts) VALUES('rebuild')`,
		},
	},
}

func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

func (db *DB) userVersion(ctx context.Context) (int, error) {
	var v int
	err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

// migrate applies every migration newer than the database in a single
// transaction. A database from a newer build is refused.
func (db *DB) migrate(ctx context.Context) error {
	current, err := db.userVersion(ctx)
	if err != nil {
		return err
	}
	target := schemaVersion()
	switch {
	case current == target:
		db.logger.Debug("Archive schema up to date", "version", current)
		return nil
	case current > target:
		return fmt.Errorf("archive schema version %d is newer than supported version %d", current, target)
	}

	db.logger.Info("Migrating archive", "path", db.path, "from", current, "to", target)
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, m := range migrations {
			if m.version <= current {
				continue
			}
			if err := applyMigration(ctx, tx, m); err != nil {
				return err
			}
		}
		// PRAGMA does not take bound parameters
		_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target))
		return err
	})
}

func applyMigration(ctx context.Context, tx *sql.Tx, m migration) error {
	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}
