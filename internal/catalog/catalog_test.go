package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devjourney/internal/errors"
)

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	var slugs []string
	for _, table := range c.Languages() {
		slugs = append(slugs, table.Slug)
	}
	assert.Equal(t, []string{"go", "javascript", "python", "react-native", "typescript"}, slugs)

	for _, table := range c.Languages() {
		assert.NotEmpty(t, table.Definitions, table.Slug)
		assert.True(t, strings.HasPrefix(table.Source, "builtin:"), table.Source)
	}
}

func TestDefinitionsFor(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	tests := []string{"Python", "python", "React Native", "react-native"}
	for _, lang := range tests {
		t.Run(lang, func(t *testing.T) {
			defs, err := c.DefinitionsFor(lang)
			require.NoError(t, err)
			assert.NotEmpty(t, defs)
		})
	}

	_, err = c.DefinitionsFor("COBOL")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.UnsupportedLanguage))
}

func TestDefinitionsFor_ReturnsCopy(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	defs, err := c.DefinitionsFor("go")
	require.NoError(t, err)
	defs[0].ID = "mutated"

	again, err := c.DefinitionsFor("go")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].ID)
}

func TestParseYAML_Valid(t *testing.T) {
	data := []byte(`
language: Elixir
concepts:
  - id: pattern_matching
    name: Pattern Matching
    difficulty: beginner
    rules:
      - regex: '^case .+ do$'
    next: [genservers]
  - id: genservers
    difficulty: advanced
    rules:
      - literal: 'use GenServer'
`)
	table, err := ParseYAML(data, "test.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Elixir", table.Language)
	assert.Equal(t, "elixir", table.Slug)
	require.Len(t, table.Definitions, 2)

	d, ok := table.Lookup("genservers")
	require.True(t, ok)
	assert.Equal(t, "genservers", d.Name, "name defaults to id")
	assert.Equal(t, Advanced, d.Difficulty)
	assert.Equal(t, "elixir", d.Language)

	_, ok = table.Lookup("supervisors")
	assert.False(t, ok)
	var none *Table
	_, ok = none.Lookup("genservers")
	assert.False(t, ok, "a nil table defines nothing")
}

func TestParseYAML_Malformed(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing language",
			yaml: "concepts:\n  - id: a\n    difficulty: beginner\n    rules: [{literal: x}]\n",
			want: "language is required",
		},
		{
			name: "no concepts",
			yaml: "language: X\n",
			want: "no concepts",
		},
		{
			name: "duplicate id",
			yaml: "language: X\nconcepts:\n  - {id: a, difficulty: beginner, rules: [{literal: x}]}\n  - {id: a, difficulty: beginner, rules: [{literal: y}]}\n",
			want: "duplicate",
		},
		{
			name: "bad difficulty",
			yaml: "language: X\nconcepts:\n  - {id: a, difficulty: expert, rules: [{literal: x}]}\n",
			want: "difficulty",
		},
		{
			name: "no rules",
			yaml: "language: X\nconcepts:\n  - {id: a, difficulty: beginner}\n",
			want: "no detection rules",
		},
		{
			name: "bad regex",
			yaml: "language: X\nconcepts:\n  - {id: a, difficulty: beginner, rules: [{regex: '(unclosed'}]}\n",
			want: "rule 1",
		},
		{
			name: "two kinds in one rule",
			yaml: "language: X\nconcepts:\n  - {id: a, difficulty: beginner, rules: [{literal: x, import: y}]}\n",
			want: "exactly one",
		},
		{
			name: "unknown successor",
			yaml: "language: X\nconcepts:\n  - {id: a, difficulty: beginner, rules: [{literal: x}], next: [b]}\n",
			want: "unknown successor",
		},
		{
			name: "self successor",
			yaml: "language: X\nconcepts:\n  - {id: a, difficulty: beginner, rules: [{literal: x}], next: [a]}\n",
			want: "itself",
		},
		{
			name: "cycle",
			yaml: "language: X\nconcepts:\n" +
				"  - {id: a, difficulty: beginner, rules: [{literal: x}], next: [b]}\n" +
				"  - {id: b, difficulty: beginner, rules: [{literal: y}], next: [c]}\n" +
				"  - {id: c, difficulty: beginner, rules: [{literal: z}], next: [a]}\n",
			want: "a -> b -> c -> a",
		},
		{
			name: "unknown field",
			yaml: "language: X\ntriggers: []\n",
			want: "invalid YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml), "bad.yaml")
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.MalformedCatalog), "code: %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
language = "Rust"

[[concepts]]
id = "ownership"
name = "Ownership"
difficulty = "beginner"
next = ["lifetimes"]

  [[concepts.rules]]
  regex = '&mut\s+\w+'

[[concepts]]
id = "lifetimes"
difficulty = "advanced"

  [[concepts.rules]]
  regex = "<'\\w+>"

  [[concepts.rules]]
  extension = "_lifetimes.rs"
`)
	table, err := ParseTOML(data, "rust.toml")
	require.NoError(t, err)
	assert.Equal(t, "rust", table.Slug)
	require.Len(t, table.Definitions, 2)
	assert.Equal(t, []string{"lifetimes"}, table.Definitions[0].Next)
	assert.Equal(t, KindExtension, table.Definitions[1].Rules[1].Kind)
}

func TestLoad_ExtensionReplacesBuiltin(t *testing.T) {
	dir := t.TempDir()
	ext := `
language = "Python"

[[concepts]]
id = "walrus"
difficulty = "intermediate"

  [[concepts.rules]]
  literal = ":="
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python.toml"), []byte(ext), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	c, err := Load(dir, nil)
	require.NoError(t, err)

	defs, err := c.DefinitionsFor("Python")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "walrus", defs[0].ID)

	_, err = c.DefinitionsFor("go")
	assert.NoError(t, err, "other builtins remain")
}

func TestLoad_MissingDir(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Len(t, c.Languages(), 5)
}

func TestLoad_InvalidExtensionFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("language = \"X\"\n[[concepts]]\nid = \"a\"\n"), 0644))

	_, err := Load(dir, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.MalformedCatalog))
}

func TestRule_Predicates(t *testing.T) {
	literal := Rule{Kind: KindLiteral, Pattern: "self."}
	assert.True(t, literal.MatchLine("    self.x = 1"))
	assert.False(t, literal.MatchImport("self."))

	r, err := compileRule(rawRule{Regex: `^def \w+\(`})
	require.NoError(t, err)
	assert.True(t, r.MatchLine("    def method(self):"), "regex runs against the trimmed line")
	assert.False(t, r.MatchLine("x = undef(1)"))

	imp := Rule{Kind: KindImport, Pattern: "next"}
	assert.True(t, imp.MatchImport("next"))
	assert.True(t, imp.MatchImport("next/router"))
	assert.False(t, imp.MatchImport("nextjs"))
	assert.False(t, imp.MatchLine("import next"))

	ext := Rule{Kind: KindExtension, Pattern: "_test.go"}
	assert.True(t, ext.MatchPath("internal/a/a_test.go"))
	assert.False(t, ext.MatchPath("internal/a/a.go"))
}

func TestDifficulty(t *testing.T) {
	for _, s := range []string{"beginner", "Intermediate", " ADVANCED "} {
		d, err := ParseDifficulty(s)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(s)), d.String())
	}
	assert.True(t, Beginner < Intermediate && Intermediate < Advanced)

	text, err := Intermediate.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "intermediate", string(text))
}
