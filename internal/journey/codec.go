package journey

import (
	"encoding/json"
	"fmt"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// fields splits a JSON object into raw members; take removes the ones we decode.
type fields map[string]json.RawMessage

func splitObject(data []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return f, nil
}

func (f fields) take(key string, dst interface{}) (bool, error) {
	raw, ok := f[key]
	if !ok {
		return false, nil
	}
	delete(f, key)
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("field %q: %w", key, err)
	}
	return true, nil
}

func (f fields) takeTime(key string, dst *time.Time) error {
	var s string
	if _, err := f.take(key, &s); err != nil {
		return err
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	*dst = t
	return nil
}

func (f fields) rest() map[string]json.RawMessage {
	if len(f) == 0 {
		return nil
	}
	return f
}

// merged returns the preserved fields overlaid with the known ones.
func merged(extra map[string]json.RawMessage, known map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(extra)+len(known))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the ledger entry with any preserved fields.
func (c ConceptStats) MarshalJSON() ([]byte, error) {
	known := map[string]interface{}{"times_seen": c.TimesSeen}
	if !c.FirstSeen.IsZero() {
		known["first_seen"] = formatTimestamp(c.FirstSeen)
	}
	if !c.LastSeen.IsZero() {
		known["last_seen"] = formatTimestamp(c.LastSeen)
	}
	return json.Marshal(merged(c.extra, known))
}

// UnmarshalJSON reads a ledger entry, keeping unknown fields.
func (c *ConceptStats) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out ConceptStats
	if _, err := f.take("times_seen", &out.TimesSeen); err != nil {
		return err
	}
	if out.TimesSeen < 0 {
		return fmt.Errorf("negative times_seen %d", out.TimesSeen)
	}
	if err := f.takeTime("first_seen", &out.FirstSeen); err != nil {
		return err
	}
	if err := f.takeTime("last_seen", &out.LastSeen); err != nil {
		return err
	}
	out.extra = f.rest()
	*c = out
	return nil
}

// MarshalJSON writes the session entry with any preserved fields.
func (s SessionEntry) MarshalJSON() ([]byte, error) {
	ids := s.ConceptIDs
	if ids == nil {
		ids = []string{}
	}
	known := map[string]interface{}{
		"date":        formatTimestamp(s.Date),
		"repo":        s.Repo,
		"concept_ids": ids,
		"commits":     s.Commits,
	}
	if s.ID != "" {
		known["id"] = s.ID
	}
	if s.Fingerprint != "" {
		known["fingerprint"] = s.Fingerprint
	}
	return json.Marshal(merged(s.extra, known))
}

// UnmarshalJSON reads a session entry. The legacy "concepts" list is
// accepted in place of "concept_ids".
func (s *SessionEntry) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out SessionEntry
	if _, err := f.take("id", &out.ID); err != nil {
		return err
	}
	if err := f.takeTime("date", &out.Date); err != nil {
		return err
	}
	if _, err := f.take("repo", &out.Repo); err != nil {
		return err
	}
	found, err := f.take("concept_ids", &out.ConceptIDs)
	if err != nil {
		return err
	}
	if !found {
		if _, err := f.take("concepts", &out.ConceptIDs); err != nil {
			return err
		}
	}
	if _, err := f.take("commits", &out.Commits); err != nil {
		return err
	}
	if _, err := f.take("fingerprint", &out.Fingerprint); err != nil {
		return err
	}
	out.extra = f.rest()
	*s = out
	return nil
}

// MarshalJSON writes the journey document with any preserved fields.
func (r Record) MarshalJSON() ([]byte, error) {
	concepts := r.Concepts
	if concepts == nil {
		concepts = map[string]ConceptStats{}
	}
	sessions := r.Sessions
	if sessions == nil {
		sessions = []SessionEntry{}
	}
	return json.Marshal(merged(r.extra, map[string]interface{}{
		"language": r.Language,
		"concepts": concepts,
		"sessions": sessions,
	}))
}

// UnmarshalJSON reads a journey document. A legacy "concept_tracker" map is
// migrated into "concepts" when the latter is absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	out := Record{Concepts: make(map[string]ConceptStats)}
	if _, err := f.take("language", &out.Language); err != nil {
		return err
	}
	found, err := f.take("concepts", &out.Concepts)
	if err != nil {
		return err
	}
	if !found {
		if _, err := f.take("concept_tracker", &out.Concepts); err != nil {
			return err
		}
	}
	if out.Concepts == nil {
		out.Concepts = make(map[string]ConceptStats)
	}
	if _, err := f.take("sessions", &out.Sessions); err != nil {
		return err
	}
	out.extra = f.rest()
	*r = out
	return nil
}
