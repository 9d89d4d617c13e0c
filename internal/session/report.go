package session

import (
	"time"

	"devjourney/internal/journey"
	"devjourney/internal/matcher"
	"devjourney/internal/recommend"
)

// Window is the time range a session covers. Zero values mean open-ended.
type Window struct {
	Since time.Time `json:"since,omitempty"`
	Until time.Time `json:"until,omitempty"`
}

// Transition is a change of mastery stage caused by this session.
type Transition struct {
	ConceptID string        `json:"conceptId"`
	Name      string        `json:"name"`
	From      journey.Stage `json:"from"`
	To        journey.Stage `json:"to"`
}

// Stats summarises the evidence a session looked at.
type Stats struct {
	Records      int `json:"records"`
	Units        int `json:"units"`
	EmptyUnits   int `json:"emptyUnits"`
	AddedLines   int `json:"addedLines"`
	RemovedLines int `json:"removedLines"`
	Concepts     int `json:"concepts"`
}

// Report is the result of analysing one (repository, language, window).
// Reports are values for renderers; nothing modifies one after it is built.
type Report struct {
	ID              string                     `json:"id"`
	Repo            string                     `json:"repo"`
	Language        string                     `json:"language"`
	LanguageName    string                     `json:"languageName"`
	Tracked         bool                       `json:"tracked"`
	Window          Window                     `json:"window"`
	CreatedAt       time.Time                  `json:"createdAt"`
	Commits         int                        `json:"commits"`
	Fingerprint     string                     `json:"fingerprint,omitempty"`
	Hits            []matcher.Hit              `json:"hits"`
	Transitions     []Transition               `json:"transitions"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Warnings        []string                   `json:"warnings,omitempty"`
	Stats           Stats                      `json:"stats"`
}

// NewlyIntroduced returns the transitions from absent to introduced.
func (r *Report) NewlyIntroduced() []Transition {
	var out []Transition
	for _, t := range r.Transitions {
		if t.From == journey.Absent {
			out = append(out, t)
		}
	}
	return out
}

// Advanced returns the transitions that moved an already-seen concept up.
func (r *Report) Advanced() []Transition {
	var out []Transition
	for _, t := range r.Transitions {
		if t.From != journey.Absent {
			out = append(out, t)
		}
	}
	return out
}
