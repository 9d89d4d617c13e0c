// Package session runs the concept pipeline for one repository and time
// window: normalize, match, merge into the journey, recommend, report.
package session

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"devjourney/internal/catalog"
	"devjourney/internal/errors"
	"devjourney/internal/evidence"
	"devjourney/internal/journey"
	"devjourney/internal/matcher"
	"devjourney/internal/recommend"
	"devjourney/internal/slogutil"
)

// WarnRepeatedWindow is attached when the same evidence from the same
// repository was merged before. The session is still counted.
const WarnRepeatedWindow = "window already analysed, counted again"

// Sink receives finished reports, e.g. an archive.
type Sink interface {
	Put(ctx context.Context, r *Report) error
}

// Options tunes the aggregator.
type Options struct {
	MaxSnippetChars int
	RecommendLimit  int
	// Concurrency bounds how many inputs AnalyzeAll runs at once.
	Concurrency int
	Now         func() time.Time
}

// Input is the evidence for one repository and window.
type Input struct {
	Repo    string
	Window  Window
	Records []evidence.ChangeRecord
	// Commits is used when records carry no commit ids.
	Commits int
}

// Aggregator produces session reports. It is safe for concurrent use.
type Aggregator struct {
	catalog *catalog.Catalog
	store   *journey.Store
	archive Sink
	opts    Options
	logger  *slog.Logger
}

// New creates an aggregator. archive and logger may be nil.
func New(cat *catalog.Catalog, store *journey.Store, archive Sink, opts Options, logger *slog.Logger) *Aggregator {
	if opts.RecommendLimit <= 0 {
		opts.RecommendLimit = recommend.DefaultLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		catalog: cat,
		store:   store,
		archive: archive,
		opts:    opts,
		logger:  slogutil.Component(logger, "session"),
	}
}

// Analyze runs the pipeline once per language found in the input, languages
// in parallel. Reports come back in the order languages first appear. If a
// language fails, the reports of the others are still returned with the error.
func (a *Aggregator) Analyze(ctx context.Context, in Input) ([]*Report, error) {
	batches := evidence.GroupByLanguage(in.Records)
	reports := make([]*Report, len(batches))

	g, gCtx := errgroup.WithContext(ctx)
	for i, b := range batches {
		g.Go(func() error {
			r, err := a.analyzeLanguage(gCtx, in, b)
			if err != nil {
				return fmt.Errorf("%s: %w", b.Language, err)
			}
			reports[i] = r
			return nil
		})
	}
	err := g.Wait()

	out := make([]*Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, err
}

// AnalyzeAll analyses several inputs, at most Options.Concurrency at a time.
// A failing input does not stop the others; all errors are joined.
func (a *Aggregator) AnalyzeAll(ctx context.Context, inputs []Input) ([]*Report, error) {
	var (
		mu      sync.Mutex
		reports []*Report
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for _, in := range inputs {
		g.Go(func() error {
			rs, err := a.Analyze(ctx, in)
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, rs...)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", in.Repo, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, stderrors.Join(errs...)
}

func (a *Aggregator) analyzeLanguage(ctx context.Context, in Input, b evidence.Batch) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := a.logger.With("repo", in.Repo, "language", b.Language)

	report := &Report{
		ID:           uuid.New().String(),
		Repo:         in.Repo,
		Language:     b.Language,
		LanguageName: b.Language,
		Window:       in.Window,
		CreatedAt:    a.opts.Now().UTC(),
		Commits:      countCommits(b.Records, in.Commits),
	}

	units := make([]evidence.Unit, len(b.Records))
	for i, rec := range b.Records {
		units[i] = evidence.Normalize(rec)
	}
	report.Stats = statsFor(units)

	defs, err := a.catalog.DefinitionsFor(b.Language)
	if err != nil {
		if !errors.HasCode(err, errors.UnsupportedLanguage) {
			return nil, err
		}
		logger.Info("No concept catalog, skipping concept tracking")
		report.Warnings = append(report.Warnings, fmt.Sprintf("no concept catalog for %s; concept tracking skipped", b.Language))
		return report, nil
	}
	table, _ := a.catalog.Table(b.Language)
	report.Tracked = true
	report.LanguageName = table.Language

	hits := matcher.Match(units, defs, matcher.Options{MaxSnippetChars: a.opts.MaxSnippetChars})
	report.Hits = hits
	report.Stats.Concepts = len(hits)
	report.Fingerprint = Fingerprint(units)

	meta := journey.SessionMeta{
		ID:          report.ID,
		Date:        report.CreatedAt,
		Repo:        in.Repo,
		Commits:     report.Commits,
		Fingerprint: report.Fingerprint,
	}
	var repeated bool
	res, err := a.store.Update(table.Language, func(rec *journey.Record) (*journey.Record, error) {
		repeated = rec.HasFingerprint(in.Repo, meta.Fingerprint)
		return journey.Merge(rec, hits, meta), nil
	})
	if err != nil {
		return nil, err
	}

	if res.Corrupt != nil {
		logger.Warn("Journey was unreadable, started a fresh one", "backup", res.BackupPath, "error", res.Corrupt.Error())
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("journey for %s could not be read; it was moved to %s and a fresh journey was started", table.Language, res.BackupPath))
	}
	if repeated {
		logger.Warn("Window already analysed", "fingerprint", report.Fingerprint)
		report.Warnings = append(report.Warnings, WarnRepeatedWindow)
	}

	report.Transitions = transitions(defs, hits, res.Previous, res.Current)
	report.Recommendations = recommend.Recommend(defs, res.Current, hits, a.opts.RecommendLimit)

	logger.Info("Session analysed",
		"hits", len(hits),
		"transitions", len(report.Transitions),
		"recommendations", len(report.Recommendations))

	if a.archive != nil {
		if err := a.archive.Put(ctx, report); err != nil {
			logger.Warn("Failed to archive session report", "id", report.ID, "error", err.Error())
		}
	}
	return report, nil
}

func transitions(defs []catalog.Definition, hits []matcher.Hit, before, after *journey.Record) []Transition {
	names := make(map[string]string, len(defs))
	for _, d := range defs {
		names[d.ID] = d.Name
	}
	prev, cur := before.Snapshot(), after.Snapshot()
	var out []Transition
	for _, h := range hits {
		from, to := prev[h.ConceptID], cur[h.ConceptID]
		if from == to {
			continue
		}
		out = append(out, Transition{ConceptID: h.ConceptID, Name: names[h.ConceptID], From: from, To: to})
	}
	return out
}

func statsFor(units []evidence.Unit) Stats {
	s := Stats{Records: len(units)}
	for _, u := range units {
		if u.Empty() {
			s.EmptyUnits++
			continue
		}
		s.Units++
		s.AddedLines += len(u.Added)
		s.RemovedLines += len(u.Removed)
	}
	return s
}

func countCommits(records []evidence.ChangeRecord, fallback int) int {
	seen := make(map[string]bool)
	for _, r := range records {
		if r.Commit != "" {
			seen[r.Commit] = true
		}
	}
	if len(seen) == 0 {
		return fallback
	}
	return len(seen)
}

// Fingerprint is the hex BLAKE2b-256 digest of the normalized evidence.
// Identical evidence in the same order yields the same fingerprint.
func Fingerprint(units []evidence.Unit) string {
	h, _ := blake2b.New256(nil)
	for _, u := range units {
		_, _ = h.Write([]byte(u.Path))
		_, _ = h.Write([]byte{0})
		for _, l := range u.Added {
			_, _ = h.Write([]byte("+" + l + "\n"))
		}
		for _, l := range u.Removed {
			_, _ = h.Write([]byte("-" + l + "\n"))
		}
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
