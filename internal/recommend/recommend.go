// Package recommend ranks the concepts a learner should tackle next by
// walking the catalog's successor graph from what they have already done.
package recommend

import (
	"sort"

	"devjourney/internal/catalog"
	"devjourney/internal/journey"
	"devjourney/internal/matcher"
)

// DefaultLimit is the number of recommendations returned when limit <= 0.
const DefaultLimit = 3

// Reason explains how a recommendation was chosen.
type Reason string

const (
	// ReasonReady means every prerequisite is at least practicing
	ReasonReady Reason = "ready"
	// ReasonNext means the concept follows something hit or mastered, but a prerequisite still lags
	ReasonNext Reason = "next"
	// ReasonFallback means no successor was available and the concept was picked by difficulty
	ReasonFallback Reason = "fallback"
)

// Recommendation is one suggested concept.
type Recommendation struct {
	ConceptID     string             `json:"conceptId"`
	Name          string             `json:"name"`
	Difficulty    catalog.Difficulty `json:"difficulty"`
	Description   string             `json:"description,omitempty"`
	Stage         journey.Stage      `json:"stage"`
	Reason        Reason             `json:"reason"`
	Prerequisites []string           `json:"prerequisites,omitempty"`
}

// Recommend returns up to limit concepts to learn next, never a mastered
// concept and never the same concept twice. Candidates are the successors
// of concepts hit this session or already mastered; those whose
// prerequisites are all at least practicing rank first, then catalog order.
// When there are no candidates the fallback is the easiest never-seen
// concepts, or the easiest unmastered ones when nothing is unseen. The
// result is empty only when every concept is mastered.
func Recommend(defs []catalog.Definition, rec *journey.Record, hits []matcher.Hit, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(defs) == 0 {
		return nil
	}

	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.ID] = i
	}
	prereqs := predecessors(defs)

	sources := make(map[string]bool)
	for _, h := range hits {
		sources[h.ConceptID] = true
	}
	for _, d := range defs {
		if rec.Stage(d.ID) == journey.Mastered {
			sources[d.ID] = true
		}
	}

	type candidate struct {
		pos   int
		ready bool
	}
	var candidates []candidate
	added := make(map[string]bool)
	for _, d := range defs {
		if !sources[d.ID] {
			continue
		}
		for _, next := range d.Next {
			pos, ok := index[next]
			if !ok || added[next] || rec.Stage(next) == journey.Mastered {
				continue
			}
			added[next] = true
			candidates = append(candidates, candidate{pos: pos, ready: isReady(rec, prereqs[next])})
		}
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].ready != candidates[j].ready {
				return candidates[i].ready
			}
			return candidates[i].pos < candidates[j].pos
		})
		out := make([]Recommendation, 0, min(limit, len(candidates)))
		for _, c := range candidates[:min(limit, len(candidates))] {
			reason := ReasonNext
			if c.ready {
				reason = ReasonReady
			}
			out = append(out, build(defs[c.pos], rec, prereqs, reason))
		}
		return out
	}

	return fallback(defs, rec, prereqs, limit)
}

func fallback(defs []catalog.Definition, rec *journey.Record, prereqs map[string][]string, limit int) []Recommendation {
	var pool []int
	for i, d := range defs {
		if rec.TimesSeen(d.ID) == 0 {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i, d := range defs {
			if rec.Stage(d.ID) != journey.Mastered {
				pool = append(pool, i)
			}
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return defs[pool[i]].Difficulty < defs[pool[j]].Difficulty
	})

	out := make([]Recommendation, 0, min(limit, len(pool)))
	for _, i := range pool[:min(limit, len(pool))] {
		out = append(out, build(defs[i], rec, prereqs, ReasonFallback))
	}
	return out
}

// predecessors inverts the successor edges, keeping catalog order.
func predecessors(defs []catalog.Definition) map[string][]string {
	out := make(map[string][]string)
	for _, d := range defs {
		for _, next := range d.Next {
			out[next] = append(out[next], d.ID)
		}
	}
	return out
}

func isReady(rec *journey.Record, prereqs []string) bool {
	for _, p := range prereqs {
		if rec.Stage(p) < journey.Practicing {
			return false
		}
	}
	return true
}

func build(d catalog.Definition, rec *journey.Record, prereqs map[string][]string, reason Reason) Recommendation {
	return Recommendation{
		ConceptID:     d.ID,
		Name:          d.Name,
		Difficulty:    d.Difficulty,
		Description:   d.Description,
		Stage:         rec.Stage(d.ID),
		Reason:        reason,
		Prerequisites: append([]string(nil), prereqs[d.ID]...),
	}
}
