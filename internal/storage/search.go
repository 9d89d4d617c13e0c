package storage

import (
	"context"
	"strings"
)

// HitResult is one archived hit matching a search.
type HitResult struct {
	ReportID  string `json:"reportId"`
	Repo      string `json:"repo"`
	Language  string `json:"language"`
	CreatedAt string `json:"createdAt"`
	ConceptID string `json:"conceptId"`
	Path      string `json:"path,omitempty"`
	Snippet   string `json:"snippet"`
	MatchType string `json:"matchType"` // "exact", "prefix", "substring"
}

// SearchHits finds archived snippets. Phrase matches come first, then
// prefix matches, then plain substring matches.
func (a *Archive) SearchHits(ctx context.Context, query string, limit int) ([]HitResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	steps := []struct {
		matchType string
		run       func(int) ([]hitRow, error)
	}{
		{"exact", func(n int) ([]hitRow, error) { return a.searchFTS(ctx, phrase, n) }},
		{"prefix", func(n int) ([]hitRow, error) { return a.searchFTS(ctx, phrase+"*", n) }},
		{"substring", func(n int) ([]hitRow, error) { return a.searchLike(ctx, query, n) }},
	}

	var results []HitResult
	seen := make(map[int64]bool)
	for _, step := range steps {
		if len(results) >= limit {
			break
		}
		rows, err := step.run(limit)
		if err != nil {
			// a malformed FTS expression falls through to the next step
			a.db.logger.Debug("Hit search step failed", "step", step.matchType, "error", err.Error())
			continue
		}
		for _, r := range rows {
			if seen[r.rowid] || len(results) >= limit {
				continue
			}
			seen[r.rowid] = true
			r.result.MatchType = step.matchType
			results = append(results, r.result)
		}
	}
	return results, nil
}

type hitRow struct {
	rowid  int64
	result HitResult
}

const hitColumns = `h.rowid, h.report_id, r.repo, r.language, r.created_at, h.concept_id, COALESCE(h.path, ''), COALESCE(h.snippet, '')`

func (a *Archive) searchFTS(ctx context.Context, expr string, limit int) ([]hitRow, error) {
	return a.queryHits(ctx, `
		SELECT `+hitColumns+`
		FROM hits_fts f
		JOIN report_hits h ON f.rowid = h.rowid
		JOIN session_reports r ON r.id = h.report_id
		WHERE hits_fts MATCH ?
		ORDER BY bm25(hits_fts), r.created_at DESC
		LIMIT ?
	`, expr, limit)
}

func (a *Archive) searchLike(ctx context.Context, query string, limit int) ([]hitRow, error) {
	pattern := "%" + query + "%"
	return a.queryHits(ctx, `
		SELECT `+hitColumns+`
		FROM report_hits h
		JOIN session_reports r ON r.id = h.report_id
		WHERE h.snippet LIKE ? OR h.concept_id LIKE ?
		ORDER BY r.created_at DESC, h.rowid
		LIMIT ?
	`, pattern, pattern, limit)
}

func (a *Archive) queryHits(ctx context.Context, query string, args ...interface{}) ([]hitRow, error) {
	rows, err := a.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hitRow
	for rows.Next() {
		var r hitRow
		if err := rows.Scan(&r.rowid, &r.result.ReportID, &r.result.Repo, &r.result.Language,
			&r.result.CreatedAt, &r.result.ConceptID, &r.result.Path, &r.result.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
