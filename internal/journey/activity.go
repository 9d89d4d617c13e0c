package journey

import (
	"sort"
	"time"
)

// Streak counts consecutive UTC days with at least one session, ending on
// now's day. A streak whose last session was yesterday is still running.
func (r *Record) Streak(now time.Time) int {
	days := make(map[string]bool, len(r.Sessions))
	for _, s := range r.Sessions {
		days[s.Date.UTC().Format(time.DateOnly)] = true
	}

	day := now.UTC()
	if !days[day.Format(time.DateOnly)] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for days[day.Format(time.DateOnly)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// RepoActivity is how many logged sessions came from one repository.
type RepoActivity struct {
	Repo     string
	Sessions int
	LastSeen time.Time
}

// ActiveRepos counts sessions at or after since per repository, busiest
// first, then most recent, then by name. Sessions without a repo are skipped.
func (r *Record) ActiveRepos(since time.Time) []RepoActivity {
	byRepo := make(map[string]*RepoActivity)
	for _, s := range r.Sessions {
		if s.Repo == "" || s.Date.Before(since) {
			continue
		}
		a, ok := byRepo[s.Repo]
		if !ok {
			a = &RepoActivity{Repo: s.Repo}
			byRepo[s.Repo] = a
		}
		a.Sessions++
		if s.Date.After(a.LastSeen) {
			a.LastSeen = s.Date
		}
	}

	out := make([]RepoActivity, 0, len(byRepo))
	for _, a := range byRepo {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sessions != out[j].Sessions {
			return out[i].Sessions > out[j].Sessions
		}
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Repo < out[j].Repo
	})
	return out
}
