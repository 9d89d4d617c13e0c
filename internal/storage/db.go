// Package storage archives session reports in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"devjourney/internal/slogutil"
)

// pragmas are applied by the driver on every new connection.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"temp_store(MEMORY)",
}

// DB is the archive database handle.
type DB struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens the database at path, creating it and its directory when
// missing, and brings the schema up to date.
func Open(path string, logger *slog.Logger) (*DB, error) {
	logger = slogutil.Component(logger, "archive")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	q := url.Values{"_pragma": pragmas}
	conn, err := sql.Open("sqlite", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// analyses of several languages write concurrently; serialize them here
	// rather than on SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, path: path, logger: logger}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate archive %s: %w", path, err)
	}
	return db, nil
}

func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Path is the database file.
func (db *DB) Path() string {
	return db.path
}

// WithTx runs fn in a transaction, committing only when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Error("Rollback failed", "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
