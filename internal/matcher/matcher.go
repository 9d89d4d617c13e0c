// Package matcher applies catalog rules to evidence units and reports which
// concepts the evidence exercises.
package matcher

import (
	"strings"
	"unicode/utf8"

	"devjourney/internal/catalog"
	"devjourney/internal/evidence"
	"devjourney/internal/redact"
)

// DefaultMaxSnippetChars bounds a snippet when Options leaves it unset.
const DefaultMaxSnippetChars = 240

const ellipsis = "…"

// Hit records that a concept was exercised, with the evidence that showed it.
type Hit struct {
	ConceptID string           `json:"conceptId"`
	Snippet   string           `json:"snippet"`
	RuleKind  catalog.RuleKind `json:"ruleKind"`
	Path      string           `json:"path"`
	// Redacted is set when credentials were scrubbed from the snippet
	Redacted bool `json:"redacted,omitempty"`
}

// Options tunes snippet extraction.
type Options struct {
	MaxSnippetChars int
}

// Match returns at most one hit per concept, ordered by discovery: units in
// order, then definitions in catalog order, then rules in order. The first
// satisfied rule wins. Identical input always yields identical output.
func Match(units []evidence.Unit, defs []catalog.Definition, opts Options) []Hit {
	max := opts.MaxSnippetChars
	if max <= 0 {
		max = DefaultMaxSnippetChars
	}

	var hits []Hit
	found := make(map[string]bool, len(defs))
	for _, u := range units {
		// removed lines are context only; a deletion never counts as exposure
		if len(u.Added) == 0 && len(u.Imports) == 0 {
			continue
		}
		for _, def := range defs {
			if found[def.ID] {
				continue
			}
			for _, rule := range def.Rules {
				snippet, ok := evaluate(rule, u)
				if !ok {
					continue
				}
				found[def.ID] = true
				clean, fired := redact.Snippet(snippet)
				hits = append(hits, Hit{
					ConceptID: def.ID,
					Snippet:   truncate(clean, max),
					RuleKind:  rule.Kind,
					Path:      u.Path,
					Redacted:  len(fired) > 0,
				})
				break
			}
		}
	}
	return hits
}

// evaluate applies one rule to a unit and returns the snippet on a match.
func evaluate(rule catalog.Rule, u evidence.Unit) (string, bool) {
	switch rule.Kind {
	case catalog.KindLiteral, catalog.KindRegex:
		for i, line := range u.Added {
			if rule.MatchLine(line) {
				return surrounding(u.Added, i), true
			}
		}
	case catalog.KindImport:
		for _, tok := range u.Imports {
			if rule.MatchImport(tok) {
				return importSnippet(u.Added, tok), true
			}
		}
	case catalog.KindExtension:
		if rule.MatchPath(u.Path) {
			return u.Path, true
		}
	}
	return "", false
}

// surrounding returns the matched line with at most one neighbour on each side.
func surrounding(lines []string, i int) string {
	start, end := i-1, i+2
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func importSnippet(lines []string, token string) string {
	for _, line := range lines {
		if strings.Contains(line, token) {
			return strings.TrimSpace(line)
		}
	}
	return token
}

// truncate shortens s to max runes, the last of which is an ellipsis.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + ellipsis
}
