// Package journey persists the per-language mastery ledger: how often each
// concept has been seen and the log of sessions that saw them.
package journey

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Stage is the mastery stage derived from a concept's times-seen counter.
type Stage int

const (
	Absent Stage = iota
	Introduced
	Practicing
	Mastered
)

// StageOf maps a counter to its stage: 0 absent, 1 introduced, 2 practicing, 3+ mastered.
func StageOf(timesSeen int) Stage {
	switch {
	case timesSeen <= 0:
		return Absent
	case timesSeen == 1:
		return Introduced
	case timesSeen == 2:
		return Practicing
	default:
		return Mastered
	}
}

func (s Stage) String() string {
	switch s {
	case Introduced:
		return "introduced"
	case Practicing:
		return "practicing"
	case Mastered:
		return "mastered"
	default:
		return "absent"
	}
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	switch string(text) {
	case "absent":
		*s = Absent
	case "introduced":
		*s = Introduced
	case "practicing":
		*s = Practicing
	case "mastered":
		*s = Mastered
	default:
		return fmt.Errorf("unknown stage %q", text)
	}
	return nil
}

// ConceptStats is the ledger entry for one concept.
type ConceptStats struct {
	TimesSeen int
	FirstSeen time.Time
	LastSeen  time.Time

	extra map[string]json.RawMessage
}

// SessionEntry is one analysed session in the ledger's log.
type SessionEntry struct {
	ID          string
	Date        time.Time
	Repo        string
	ConceptIDs  []string
	Commits     int
	Fingerprint string

	extra map[string]json.RawMessage
}

// Record is the persisted journey for one language. Fields this package
// does not know about are carried through load and save unchanged.
type Record struct {
	Language string
	Concepts map[string]ConceptStats
	Sessions []SessionEntry

	extra map[string]json.RawMessage
}

// NewRecord returns an empty record for language.
func NewRecord(language string) *Record {
	return &Record{
		Language: language,
		Concepts: make(map[string]ConceptStats),
	}
}

// TimesSeen returns the counter for a concept, 0 when absent.
func (r *Record) TimesSeen(id string) int {
	if r == nil {
		return 0
	}
	return r.Concepts[id].TimesSeen
}

// Stage returns the derived stage of a concept.
func (r *Record) Stage(id string) Stage {
	return StageOf(r.TimesSeen(id))
}

// Snapshot returns the stage of every concept present in the ledger.
// Concepts missing from the map are Absent.
func (r *Record) Snapshot() map[string]Stage {
	if r == nil {
		return map[string]Stage{}
	}
	out := make(map[string]Stage, len(r.Concepts))
	for id, st := range r.Concepts {
		out[id] = StageOf(st.TimesSeen)
	}
	return out
}

// ConceptIDs returns the ledger's concept ids sorted.
func (r *Record) ConceptIDs() []string {
	ids := make([]string, 0, len(r.Concepts))
	for id := range r.Concepts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasFingerprint reports whether a session from repo with the same evidence
// fingerprint is already in the log.
func (r *Record) HasFingerprint(repo, fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	for _, s := range r.Sessions {
		if s.Repo == repo && s.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Preserved unknown fields are shared; they are
// never modified in place.
func (r *Record) Clone() *Record {
	out := &Record{
		Language: r.Language,
		Concepts: make(map[string]ConceptStats, len(r.Concepts)),
		Sessions: make([]SessionEntry, len(r.Sessions)),
		extra:    r.extra,
	}
	for id, st := range r.Concepts {
		out.Concepts[id] = st
	}
	for i, s := range r.Sessions {
		s.ConceptIDs = append([]string(nil), s.ConceptIDs...)
		out.Sessions[i] = s
	}
	return out
}
