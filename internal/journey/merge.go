package journey

import (
	"time"

	"devjourney/internal/matcher"
)

// SessionMeta describes the run being merged.
type SessionMeta struct {
	ID          string
	Date        time.Time
	Repo        string
	Commits     int
	Fingerprint string
}

// Merge returns a new record with the hits folded in; r is not modified.
// Each distinct concept id counts once no matter how many hits name it.
// One session entry is appended even when there are no hits. Merging the
// same run twice counts it twice.
func Merge(r *Record, hits []matcher.Hit, meta SessionMeta) *Record {
	out := r.Clone()
	date := meta.Date.UTC().Truncate(time.Second)

	ids := make([]string, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if h.ConceptID == "" || seen[h.ConceptID] {
			continue
		}
		seen[h.ConceptID] = true
		ids = append(ids, h.ConceptID)

		st := out.Concepts[h.ConceptID]
		st.TimesSeen++
		if st.FirstSeen.IsZero() {
			st.FirstSeen = date
		}
		st.LastSeen = date
		out.Concepts[h.ConceptID] = st
	}

	out.Sessions = append(out.Sessions, SessionEntry{
		ID:          meta.ID,
		Date:        date,
		Repo:        meta.Repo,
		ConceptIDs:  ids,
		Commits:     meta.Commits,
		Fingerprint: meta.Fingerprint,
	})
	return out
}
