package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"devjourney/internal/errors"
	"devjourney/internal/paths"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// rawCatalog is the on-disk shape shared by the YAML and TOML formats.
type rawCatalog struct {
	Language string       `yaml:"language" toml:"language"`
	Concepts []rawConcept `yaml:"concepts" toml:"concepts"`
}

type rawConcept struct {
	ID          string    `yaml:"id" toml:"id"`
	Name        string    `yaml:"name" toml:"name"`
	Difficulty  string    `yaml:"difficulty" toml:"difficulty"`
	Description string    `yaml:"description" toml:"description"`
	Rules       []rawRule `yaml:"rules" toml:"rules"`
	Next        []string  `yaml:"next" toml:"next"`
}

// rawRule sets exactly one of its fields.
type rawRule struct {
	Literal   string `yaml:"literal" toml:"literal"`
	Regex     string `yaml:"regex" toml:"regex"`
	Import    string `yaml:"import" toml:"import"`
	Extension string `yaml:"extension" toml:"extension"`
}

// ParseYAML parses and validates a YAML catalog. source names it in errors.
func ParseYAML(data []byte, source string) (*Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw rawCatalog
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed(source, "", "invalid YAML", err)
	}
	return build(raw, source)
}

// ParseTOML parses and validates a TOML extension catalog.
func ParseTOML(data []byte, source string) (*Table, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawCatalog
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed(source, "", "invalid TOML", err)
	}
	return build(raw, source)
}

// Builtin returns the catalog compiled into the binary.
func Builtin() (*Catalog, error) {
	tables, err := builtinTables()
	if err != nil {
		return nil, err
	}
	return New(tables...), nil
}

func builtinTables() ([]*Table, error) {
	names, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		t, err := ParseYAML(data, "builtin:"+path.Base(name))
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Load returns the built-in catalog overlaid with every *.toml file in dir.
// A missing dir is not an error. Any invalid table fails the whole load.
func Load(dir string, logger *slog.Logger) (*Catalog, error) {
	tables, err := builtinTables()
	if err != nil {
		return nil, err
	}

	extensions, err := loadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, t := range extensions {
		if logger != nil {
			logger.Info("Loaded extension catalog", "language", t.Language, "source", t.Source, "concepts", len(t.Definitions))
		}
	}

	return New(append(tables, extensions...)...), nil
}

func loadDir(dir string) ([]*Table, error) {
	if dir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	tables := make([]*Table, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", file, err)
		}
		t, err := ParseTOML(data, file)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func build(raw rawCatalog, source string) (*Table, error) {
	language := strings.TrimSpace(raw.Language)
	if language == "" {
		return nil, malformed(source, "", "language is required", nil)
	}
	if len(raw.Concepts) == 0 {
		return nil, malformed(source, "", "catalog defines no concepts", nil)
	}

	t := &Table{
		Language:    language,
		Slug:        paths.LanguageSlug(language),
		Source:      source,
		Definitions: make([]Definition, 0, len(raw.Concepts)),
		index:       make(map[string]int, len(raw.Concepts)),
	}

	for _, rc := range raw.Concepts {
		id := strings.TrimSpace(rc.ID)
		if id == "" {
			return nil, malformed(source, "", "concept without id", nil)
		}
		if _, dup := t.index[id]; dup {
			return nil, malformed(source, id, "duplicate concept id", nil)
		}
		difficulty, err := ParseDifficulty(rc.Difficulty)
		if err != nil {
			return nil, malformed(source, id, "bad difficulty", err)
		}
		if len(rc.Rules) == 0 {
			return nil, malformed(source, id, "concept has no detection rules", nil)
		}

		rules := make([]Rule, 0, len(rc.Rules))
		for i, rr := range rc.Rules {
			r, err := compileRule(rr)
			if err != nil {
				return nil, malformed(source, id, fmt.Sprintf("rule %d", i+1), err)
			}
			rules = append(rules, r)
		}

		name := rc.Name
		if name == "" {
			name = id
		}
		t.index[id] = len(t.Definitions)
		t.Definitions = append(t.Definitions, Definition{
			Language:    t.Slug,
			ID:          id,
			Name:        name,
			Difficulty:  difficulty,
			Description: strings.TrimSpace(rc.Description),
			Rules:       rules,
			Next:        append([]string(nil), rc.Next...),
		})
	}

	for _, d := range t.Definitions {
		for _, next := range d.Next {
			if _, ok := t.index[next]; !ok {
				return nil, malformed(source, d.ID, fmt.Sprintf("unknown successor %q", next), nil)
			}
			if next == d.ID {
				return nil, malformed(source, d.ID, "concept lists itself as successor", nil)
			}
		}
	}
	if cycle := findCycle(t); cycle != nil {
		return nil, malformed(source, cycle[0], "successor cycle: "+strings.Join(cycle, " -> "), nil)
	}

	return t, nil
}

func compileRule(rr rawRule) (Rule, error) {
	var set []Rule
	if rr.Literal != "" {
		set = append(set, Rule{Kind: KindLiteral, Pattern: rr.Literal})
	}
	if rr.Regex != "" {
		set = append(set, Rule{Kind: KindRegex, Pattern: rr.Regex})
	}
	if rr.Import != "" {
		set = append(set, Rule{Kind: KindImport, Pattern: strings.TrimSpace(rr.Import)})
	}
	if rr.Extension != "" {
		set = append(set, Rule{Kind: KindExtension, Pattern: rr.Extension})
	}
	if len(set) != 1 {
		return Rule{}, fmt.Errorf("exactly one of literal, regex, import, extension must be set (got %d)", len(set))
	}

	r := set[0]
	if r.Kind == KindRegex {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return Rule{}, err
		}
		r.re = re
	}
	return r, nil
}

// findCycle returns the ids along a successor cycle, or nil if the graph is acyclic.
func findCycle(t *Table) []string {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(t.Definitions))
	var stack []string
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = grey
		stack = append(stack, t.Definitions[i].ID)
		for _, next := range t.Definitions[i].Next {
			j := t.index[next]
			switch color[j] {
			case grey:
				for k, id := range stack {
					if id == next {
						cycle = append(append([]string(nil), stack[k:]...), next)
						break
					}
				}
				return true
			case white:
				if visit(j) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := range t.Definitions {
		if color[i] == white && visit(i) {
			return cycle
		}
	}
	return nil
}

func malformed(source, concept, msg string, cause error) *errors.JourneyError {
	text := source + ": " + msg
	if concept != "" {
		text = fmt.Sprintf("%s: concept %q: %s", source, concept, msg)
	}
	return errors.New(errors.MalformedCatalog, text, cause, nil).
		WithDetails(map[string]string{"source": source, "concept": concept})
}
