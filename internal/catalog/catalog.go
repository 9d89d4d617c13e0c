// Package catalog holds the per-language concept definitions: detection rules
// and the successor graph used for recommendations.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"devjourney/internal/errors"
	"devjourney/internal/paths"
)

// Difficulty orders concepts from introductory to advanced.
type Difficulty int

const (
	Beginner Difficulty = iota + 1
	Intermediate
	Advanced
)

// ParseDifficulty accepts beginner, intermediate or advanced (any case).
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner, nil
	case "intermediate":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) String() string {
	switch d {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// MarshalText encodes the difficulty by name.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a difficulty name.
func (d *Difficulty) UnmarshalText(text []byte) error {
	v, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// RuleKind names the kind of evidence a rule inspects.
type RuleKind string

const (
	// KindLiteral matches a substring of an added line
	KindLiteral RuleKind = "literal"
	// KindRegex matches an added line, trimmed, against a regular expression
	KindRegex RuleKind = "regex"
	// KindImport matches an imported module name or one of its sub-paths
	KindImport RuleKind = "import"
	// KindExtension matches a suffix of the changed file's path
	KindExtension RuleKind = "extension"
)

// Rule is a single detection predicate.
type Rule struct {
	Kind    RuleKind
	Pattern string
	re      *regexp.Regexp
}

// MatchLine reports whether an added line satisfies a literal or regex rule.
func (r Rule) MatchLine(line string) bool {
	switch r.Kind {
	case KindLiteral:
		return strings.Contains(line, r.Pattern)
	case KindRegex:
		return r.re != nil && r.re.MatchString(strings.TrimSpace(line))
	}
	return false
}

// MatchImport reports whether an import token satisfies an import rule.
// "next" matches "next" and "next/router" but not "nextjs".
func (r Rule) MatchImport(token string) bool {
	if r.Kind != KindImport {
		return false
	}
	return token == r.Pattern || strings.HasPrefix(token, r.Pattern+"/")
}

// MatchPath reports whether a file path satisfies an extension rule.
func (r Rule) MatchPath(path string) bool {
	return r.Kind == KindExtension && strings.HasSuffix(path, r.Pattern)
}

// Definition is one concept in a language's catalog.
type Definition struct {
	Language    string
	ID          string
	Name        string
	Difficulty  Difficulty
	Description string
	Rules       []Rule
	Next        []string
}

// Table is the validated catalog for one language.
type Table struct {
	Language    string
	Slug        string
	Source      string
	Definitions []Definition
	index       map[string]int
}

// Lookup returns the definition with the given id. A nil table defines nothing.
func (t *Table) Lookup(id string) (Definition, bool) {
	if t == nil {
		return Definition{}, false
	}
	i, ok := t.index[id]
	if !ok {
		return Definition{}, false
	}
	return t.Definitions[i], true
}

// Catalog is the set of language tables available to a run.
type Catalog struct {
	tables map[string]*Table
}

// New builds a catalog from validated tables. A later table for the same
// language replaces an earlier one.
func New(tables ...*Table) *Catalog {
	c := &Catalog{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		c.tables[t.Slug] = t
	}
	return c
}

// Table returns the table for a language name or slug.
func (c *Catalog) Table(language string) (*Table, bool) {
	t, ok := c.tables[paths.LanguageSlug(language)]
	return t, ok
}

// DefinitionsFor returns the concepts for a language in catalog order.
// A language without a table yields an UNSUPPORTED_LANGUAGE error.
func (c *Catalog) DefinitionsFor(language string) ([]Definition, error) {
	t, ok := c.Table(language)
	if !ok {
		return nil, errors.New(errors.UnsupportedLanguage,
			fmt.Sprintf("no concept catalog for language %q", language), nil, nil).
			WithDetails(map[string]string{"language": language})
	}
	defs := make([]Definition, len(t.Definitions))
	copy(defs, t.Definitions)
	return defs, nil
}

// Languages returns the tables sorted by slug.
func (c *Catalog) Languages() []*Table {
	out := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
