package main

import (
	"sort"
	"time"

	"devjourney/internal/catalog"
	"devjourney/internal/errors"
	"devjourney/internal/journey"
	"devjourney/internal/output"
	"devjourney/internal/recommend"
	"devjourney/internal/session"
	"devjourney/internal/storage"
	"devjourney/internal/workspace"
)

const (
	// recentSessionCount is how many sessions journey views include.
	recentSessionCount = 20
	// activeRepoWindow is how far back journey views rank active repos.
	activeRepoWindow = 30 * 24 * time.Hour
)

// AnalyzeResponseCLI is the result of an analyze run.
type AnalyzeResponseCLI struct {
	Reports []*session.Report `json:"reports"`
	Errors  []ErrorCLI        `json:"errors,omitempty"`
}

// ErrorCLI is a failure that did not stop the rest of the run.
type ErrorCLI struct {
	Code    errors.ErrorCode `json:"code,omitempty"`
	Message string           `json:"message"`
}

func buildError(err error) ErrorCLI {
	return ErrorCLI{Code: errors.CodeOf(err), Message: err.Error()}
}

// ConceptProgressCLI is one concept's line in a journey view.
type ConceptProgressCLI struct {
	ConceptID  string             `json:"conceptId"`
	Name       string             `json:"name"`
	Difficulty catalog.Difficulty `json:"difficulty,omitempty"`
	TimesSeen  int                `json:"timesSeen"`
	Stage      journey.Stage      `json:"stage"`
	FirstSeen  time.Time          `json:"firstSeen,omitempty"`
	LastSeen   time.Time          `json:"lastSeen,omitempty"`
	// Uncatalogued is set for ledger concepts the catalog no longer defines.
	Uncatalogued bool `json:"uncatalogued,omitempty"`
}

// SessionCLI is one entry of the session log.
type SessionCLI struct {
	Date     time.Time `json:"date"`
	Repo     string    `json:"repo"`
	Commits  int       `json:"commits"`
	Concepts []string  `json:"concepts"`
}

// JourneyResponseCLI is the detailed view of one language's journey.
type JourneyResponseCLI struct {
	Language       string               `json:"language"`
	LanguageName   string               `json:"languageName"`
	Level          catalog.Difficulty   `json:"level,omitempty"`
	Sessions       int                  `json:"sessions"`
	ConceptsSeen   int                  `json:"conceptsSeen"`
	CatalogSize    int                  `json:"catalogSize"`
	MasteryPercent float64              `json:"masteryPercent"`
	Concepts       []ConceptProgressCLI `json:"concepts"`
	Streak         int                  `json:"streak"`
	ActiveRepos    []RepoActivityCLI    `json:"activeRepos"`
	RecentSessions []SessionCLI         `json:"recentSessions"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// RepoActivityCLI is a repository's share of recent sessions.
type RepoActivityCLI struct {
	Repo     string    `json:"repo"`
	Sessions int       `json:"sessions"`
	LastSeen time.Time `json:"lastSeen"`
}

// JourneySummaryCLI is one line of journey list.
type JourneySummaryCLI struct {
	Language       string    `json:"language"`
	Sessions       int       `json:"sessions"`
	Introduced     int       `json:"introduced"`
	Practicing     int       `json:"practicing"`
	Mastered       int       `json:"mastered"`
	CatalogSize    int       `json:"catalogSize"`
	MasteryPercent float64   `json:"masteryPercent"`
	LastSession    time.Time `json:"lastSession,omitempty"`
	Corrupt        bool      `json:"corrupt,omitempty"`
}

// JourneyListResponseCLI lists every language with a journey.
type JourneyListResponseCLI struct {
	Journeys []JourneySummaryCLI `json:"journeys"`
}

// RecommendResponseCLI holds recommendations computed from the ledger alone.
type RecommendResponseCLI struct {
	Language        string                     `json:"language"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

// CatalogConceptCLI describes one catalog concept.
type CatalogConceptCLI struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Difficulty catalog.Difficulty `json:"difficulty"`
	Rules      int                `json:"rules"`
	Next       []string           `json:"next,omitempty"`
}

// CatalogLanguageCLI describes one language table.
type CatalogLanguageCLI struct {
	Language string              `json:"language"`
	Slug     string              `json:"slug"`
	Source   string              `json:"source"`
	Concepts int                 `json:"concepts"`
	Details  []CatalogConceptCLI `json:"details,omitempty"`
}

// CatalogResponseCLI is the output of catalog list and catalog validate.
type CatalogResponseCLI struct {
	Valid     bool                 `json:"valid,omitempty"`
	Languages []CatalogLanguageCLI `json:"languages"`
}

// RepoCLI is one workspace repository.
type RepoCLI struct {
	Name           string              `json:"name"`
	Path           string              `json:"path"`
	Tags           []string            `json:"tags,omitempty"`
	State          workspace.RepoState `json:"state"`
	AddedAt        time.Time           `json:"addedAt"`
	LastAnalyzedAt time.Time           `json:"lastAnalyzedAt,omitempty"`
}

// ReposResponseCLI lists workspace repositories.
type ReposResponseCLI struct {
	Repos []RepoCLI `json:"repos"`
}

// HistoryResponseCLI lists archived reports.
type HistoryResponseCLI struct {
	Reports []storage.Summary `json:"reports"`
}

// SearchResponseCLI holds archive search results.
type SearchResponseCLI struct {
	Query   string              `json:"query"`
	Results []storage.HitResult `json:"results"`
}

// PruneResponseCLI reports how many archived reports were deleted.
type PruneResponseCLI struct {
	Before  time.Time `json:"before"`
	Deleted int64     `json:"deleted"`
}

// VersionResponseCLI carries build information.
type VersionResponseCLI struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Modified  bool   `json:"modified,omitempty"`
}

// buildJourneyResponse joins a ledger with the language's catalog table.
// Catalog concepts come first in catalog order, then ledger concepts the
// catalog does not define, sorted by id.
func buildJourneyResponse(table *catalog.Table, rec *journey.Record, now time.Time) *JourneyResponseCLI {
	resp := &JourneyResponseCLI{
		Language:     rec.Language,
		LanguageName: rec.Language,
		Sessions:     len(rec.Sessions),
		ConceptsSeen: len(rec.Concepts),
	}

	mastered := 0
	if table != nil {
		resp.Language = table.Slug
		resp.LanguageName = table.Language
		resp.CatalogSize = len(table.Definitions)
		for _, d := range table.Definitions {
			cp := progress(d.ID, rec)
			cp.Name = d.Name
			cp.Difficulty = d.Difficulty
			if cp.TimesSeen > 0 && d.Difficulty > resp.Level {
				resp.Level = d.Difficulty
			}
			if cp.Stage == journey.Mastered {
				mastered++
			}
			resp.Concepts = append(resp.Concepts, cp)
		}
	}
	for _, id := range rec.ConceptIDs() {
		if _, ok := table.Lookup(id); ok {
			continue
		}
		cp := progress(id, rec)
		cp.Name = id
		cp.Uncatalogued = true
		resp.Concepts = append(resp.Concepts, cp)
	}
	if resp.Concepts == nil {
		resp.Concepts = []ConceptProgressCLI{}
	}
	resp.MasteryPercent = output.Percent(mastered, resp.CatalogSize)
	resp.RecentSessions = recentSessions(rec, recentSessionCount)
	resp.Streak = rec.Streak(now)
	resp.ActiveRepos = []RepoActivityCLI{}
	for _, a := range rec.ActiveRepos(now.Add(-activeRepoWindow)) {
		resp.ActiveRepos = append(resp.ActiveRepos, RepoActivityCLI{Repo: a.Repo, Sessions: a.Sessions, LastSeen: a.LastSeen})
	}
	return resp
}

func progress(id string, rec *journey.Record) ConceptProgressCLI {
	st := rec.Concepts[id]
	return ConceptProgressCLI{
		ConceptID: id,
		TimesSeen: st.TimesSeen,
		Stage:     journey.StageOf(st.TimesSeen),
		FirstSeen: st.FirstSeen,
		LastSeen:  st.LastSeen,
	}
}

// recentSessions returns up to n sessions, newest first.
func recentSessions(rec *journey.Record, n int) []SessionCLI {
	out := []SessionCLI{}
	for i := len(rec.Sessions) - 1; i >= 0 && len(out) < n; i-- {
		s := rec.Sessions[i]
		ids := s.ConceptIDs
		if ids == nil {
			ids = []string{}
		}
		out = append(out, SessionCLI{Date: s.Date, Repo: s.Repo, Commits: s.Commits, Concepts: ids})
	}
	return out
}

// summarizeJourney counts stages for journey list.
func summarizeJourney(language string, table *catalog.Table, rec *journey.Record) JourneySummaryCLI {
	sum := JourneySummaryCLI{Language: language, Sessions: len(rec.Sessions)}
	for _, st := range rec.Concepts {
		switch journey.StageOf(st.TimesSeen) {
		case journey.Introduced:
			sum.Introduced++
		case journey.Practicing:
			sum.Practicing++
		case journey.Mastered:
			sum.Mastered++
		}
	}
	if table != nil {
		sum.CatalogSize = len(table.Definitions)
		mastered := 0
		for _, d := range table.Definitions {
			if rec.Stage(d.ID) == journey.Mastered {
				mastered++
			}
		}
		sum.MasteryPercent = output.Percent(mastered, sum.CatalogSize)
	}
	for _, s := range rec.Sessions {
		if s.Date.After(sum.LastSession) {
			sum.LastSession = s.Date
		}
	}
	return sum
}

func buildCatalogLanguage(t *catalog.Table, details bool) CatalogLanguageCLI {
	out := CatalogLanguageCLI{
		Language: t.Language,
		Slug:     t.Slug,
		Source:   t.Source,
		Concepts: len(t.Definitions),
	}
	if !details {
		return out
	}
	for _, d := range t.Definitions {
		out.Details = append(out.Details, CatalogConceptCLI{
			ID:         d.ID,
			Name:       d.Name,
			Difficulty: d.Difficulty,
			Rules:      len(d.Rules),
			Next:       d.Next,
		})
	}
	return out
}

func buildRepos(repos []workspace.Repo) *ReposResponseCLI {
	resp := &ReposResponseCLI{Repos: []RepoCLI{}}
	for _, r := range repos {
		item := RepoCLI{
			Name:    r.Name,
			Path:    r.Path,
			Tags:    r.Tags,
			State:   workspace.State(r),
			AddedAt: r.AddedAt,
		}
		if r.LastAnalyzedAt != nil {
			item.LastAnalyzedAt = *r.LastAnalyzedAt
		}
		resp.Repos = append(resp.Repos, item)
	}
	sort.Slice(resp.Repos, func(i, j int) bool { return resp.Repos[i].Name < resp.Repos[j].Name })
	return resp
}
