package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"devjourney/internal/output"
	"devjourney/internal/session"
)

// ErrNotFound is returned by Get for an unknown report id.
var ErrNotFound = stderrors.New("report not found")

// DefaultListLimit is used when Filter.Limit is not positive.
const DefaultListLimit = 20

// Archive stores session reports. It implements session.Sink.
type Archive struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Repo     string
	Language string
	Since    time.Time
	Limit    int
}

// Summary is one archived report without its payload.
type Summary struct {
	ID        string    `json:"id"`
	Repo      string    `json:"repo"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
	Commits   int       `json:"commits"`
	HitCount  int       `json:"hitCount"`
}

// NewArchive wraps an open database.
func NewArchive(db *DB) (*Archive, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Archive{db: db, enc: enc, dec: dec}, nil
}

// Close releases the codecs. The database stays open.
func (a *Archive) Close() error {
	a.dec.Close()
	return a.enc.Close()
}

// Put stores a report, replacing any report with the same id.
func (a *Archive) Put(ctx context.Context, r *session.Report) error {
	payload, err := output.DeterministicEncode(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	compressed := a.enc.EncodeAll(payload, nil)

	return a.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM report_hits WHERE report_id = ?", r.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM session_reports WHERE id = ?", r.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_reports (id, repo, language, created_at, commits, hit_count, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.Repo, r.Language, formatTime(r.CreatedAt), r.Commits, len(r.Hits), compressed)
		if err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}

		for _, h := range r.Hits {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO report_hits (report_id, concept_id, path, snippet)
				VALUES (?, ?, ?, ?)
			`, r.ID, h.ConceptID, h.Path, h.Snippet)
			if err != nil {
				return fmt.Errorf("failed to insert hit: %w", err)
			}
		}
		return nil
	})
}

// List returns report summaries, newest first.
func (a *Archive) List(ctx context.Context, f Filter) ([]Summary, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Repo != "" {
		where = append(where, "repo = ?")
		args = append(args, f.Repo)
	}
	if f.Language != "" {
		where = append(where, "language = ?")
		args = append(args, f.Language)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(f.Since))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := "SELECT id, repo, language, created_at, commits, hit_count FROM session_reports"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var created string
		if err := rows.Scan(&s.ID, &s.Repo, &s.Language, &created, &s.Commits, &s.HitCount); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get loads one full report.
func (a *Archive) Get(ctx context.Context, id string) (*session.Report, error) {
	var compressed []byte
	err := a.db.conn.QueryRowContext(ctx, "SELECT payload FROM session_reports WHERE id = ?", id).Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", id, err)
	}

	payload, err := a.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress report %s: %w", id, err)
	}
	var r session.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &r, nil
}

// Prune deletes reports created before cutoff and returns how many went.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := a.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM report_hits WHERE report_id IN
				(SELECT id FROM session_reports WHERE created_at < ?)
		`, formatTime(cutoff))
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM session_reports WHERE created_at < ?", formatTime(cutoff))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
