package matcher

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devjourney/internal/catalog"
	"devjourney/internal/evidence"
)

func testDefs(t *testing.T) []catalog.Definition {
	t.Helper()
	table, err := catalog.ParseYAML([]byte(`
language: Python
concepts:
  - id: functions
    difficulty: beginner
    rules:
      - regex: '^def \w+\('
  - id: error_handling
    difficulty: intermediate
    rules:
      - regex: '^(?:try:|except\b)'
  - id: async_await
    difficulty: advanced
    rules:
      - import: asyncio
      - regex: '\bawait '
  - id: testing
    difficulty: intermediate
    rules:
      - extension: '_test.py'
      - import: pytest
`), "test")
	require.NoError(t, err)
	return table.Definitions
}

func unit(path string, lines ...string) evidence.Unit {
	return evidence.Normalize(evidence.ChangeRecord{Path: path, Added: lines})
}

func TestMatch_Basic(t *testing.T) {
	units := []evidence.Unit{
		unit("app.py",
			"import asyncio",
			"def handler(req):",
			"    try:",
			"        await run()",
			"    except ValueError:",
		),
	}

	hits := Match(units, testDefs(t), Options{})
	var ids []string
	for _, h := range hits {
		ids = append(ids, h.ConceptID)
	}
	assert.Equal(t, []string{"functions", "error_handling", "async_await"}, ids)

	assert.Equal(t, catalog.KindRegex, hits[0].RuleKind)
	assert.Equal(t, "import asyncio\ndef handler(req):\n    try:", hits[0].Snippet)
	assert.Equal(t, catalog.KindImport, hits[2].RuleKind, "first rule in order wins")
	assert.Equal(t, "import asyncio", hits[2].Snippet)
	assert.Equal(t, "app.py", hits[2].Path)
}

func TestMatch_ConceptOnce(t *testing.T) {
	units := []evidence.Unit{
		unit("a.py", "def one():", "def two():"),
		unit("b.py", "def three():"),
	}

	hits := Match(units, testDefs(t), Options{})
	require.Len(t, hits, 1)
	assert.Equal(t, "functions", hits[0].ConceptID)
	assert.Equal(t, "a.py", hits[0].Path)
}

func TestMatch_Deterministic(t *testing.T) {
	units := []evidence.Unit{
		unit("x_test.py", "import pytest", "def test_it():", "    await go()"),
		unit("y.py", "try:", "    pass", "except Exception:"),
	}
	defs := testDefs(t)

	first := Match(units, defs, Options{})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Match(units, defs, Options{}))
	}
}

func TestMatch_Extension(t *testing.T) {
	hits := Match([]evidence.Unit{unit("pkg/api_test.py", "x = 1")}, testDefs(t), Options{})
	require.Len(t, hits, 1)
	assert.Equal(t, "testing", hits[0].ConceptID)
	assert.Equal(t, catalog.KindExtension, hits[0].RuleKind)
	assert.Equal(t, "pkg/api_test.py", hits[0].Snippet)
}

func TestMatch_ImportWithoutLine(t *testing.T) {
	u := evidence.Unit{Path: "a.py", Added: []string{"x = 1"}, Imports: []string{"pytest"}}
	hits := Match([]evidence.Unit{u}, testDefs(t), Options{})
	require.Len(t, hits, 1)
	assert.Equal(t, "pytest", hits[0].Snippet)
}

func TestMatch_EmptyAndRemovedOnly(t *testing.T) {
	units := []evidence.Unit{
		{},
		evidence.Normalize(evidence.ChangeRecord{Path: "bin.py", Binary: true}),
		evidence.Normalize(evidence.ChangeRecord{Path: "old.py", Removed: []string{"def gone():"}}),
		evidence.Normalize(evidence.ChangeRecord{Path: "pkg/old_test.py", Removed: []string{"def test_gone():", "    assert x"}}),
	}
	assert.Empty(t, Match(units, testDefs(t), Options{}))
	assert.Empty(t, Match(nil, testDefs(t), Options{}))
	assert.Empty(t, Match(units, nil, Options{}))
}

func TestMatch_SnippetTruncation(t *testing.T) {
	long := "def f(" + strings.Repeat("é", 400) + "):"
	hits := Match([]evidence.Unit{unit("a.py", long)}, testDefs(t), Options{MaxSnippetChars: 50})
	require.Len(t, hits, 1)
	assert.Equal(t, 50, utf8.RuneCountInString(hits[0].Snippet))
	assert.True(t, strings.HasSuffix(hits[0].Snippet, "…"))

	hits = Match([]evidence.Unit{unit("a.py", long)}, testDefs(t), Options{})
	assert.Equal(t, DefaultMaxSnippetChars, utf8.RuneCountInString(hits[0].Snippet))
}

func TestMatch_RedactsCredentials(t *testing.T) {
	token := "ghp" + "_" + strings.Repeat("k9Xw", 9)
	hits := Match([]evidence.Unit{unit("client.py",
		"TOKEN = '"+token+"'",
		"def connect(url):",
	)}, testDefs(t), Options{})
	require.Len(t, hits, 1)
	assert.True(t, hits[0].Redacted)
	assert.NotContains(t, hits[0].Snippet, token)
	assert.Contains(t, hits[0].Snippet, "[REDACTED:github_token]")
	assert.Contains(t, hits[0].Snippet, "def connect(url):")
}

func TestSurrounding(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	assert.Equal(t, "a\nb", surrounding(lines, 0))
	assert.Equal(t, "b\nc\nd", surrounding(lines, 2))
	assert.Equal(t, "c\nd", surrounding(lines, 3))
}

func TestMatch_BuiltinCatalog(t *testing.T) {
	c, err := catalog.Builtin()
	require.NoError(t, err)

	tests := []struct {
		language string
		path     string
		lines    []string
		want     string
	}{
		{"go", "svc/worker.go", []string{"go func() {"}, "goroutines"},
		{"go", "svc/worker_test.go", []string{"x := 1"}, "testing"},
		{"python", "app.py", []string{"@dataclass", "class Point:"}, "dataclasses"},
		{"typescript", "hooks.ts", []string{"const [n, setN] = useState<number>(0);"}, "react_hooks"},
		{"javascript", "main.js", []string{"Promise.all(tasks)"}, "promises"},
		{"react-native", "Home.tsx", []string{"const styles = StyleSheet.create({"}, "styling"},
	}

	for _, tt := range tests {
		t.Run(tt.language+"/"+tt.want, func(t *testing.T) {
			defs, err := c.DefinitionsFor(tt.language)
			require.NoError(t, err)
			u := evidence.Normalize(evidence.ChangeRecord{Path: tt.path, Language: tt.language, Added: tt.lines})
			var ids []string
			for _, h := range Match([]evidence.Unit{u}, defs, Options{}) {
				ids = append(ids, h.ConceptID)
			}
			assert.Contains(t, ids, tt.want)
		})
	}
}
