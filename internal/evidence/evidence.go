// Package evidence turns per-file change records into evidence units: the
// added and removed lines of one file plus the modules it imports.
package evidence

import (
	"path/filepath"
	"strings"

	"devjourney/internal/paths"
)

// ChangeRecord is one file's change within a commit, as produced by a diff source.
type ChangeRecord struct {
	Path     string   `json:"path"`
	Language string   `json:"language,omitempty"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Binary   bool     `json:"binary,omitempty"`
	Commit   string   `json:"commit,omitempty"`
}

// Unit is the normalized evidence for one file.
type Unit struct {
	Path     string
	Language string
	Added    []string
	Removed  []string
	Imports  []string
}

// Empty reports whether the unit carries no lines at all.
func (u Unit) Empty() bool {
	return len(u.Added) == 0 && len(u.Removed) == 0
}

// Normalize converts a change record into a unit. Binary content yields an
// empty unit. Blank lines are dropped and a trailing \r is removed.
func Normalize(rec ChangeRecord) Unit {
	u := Unit{
		Path:     paths.NormalizePath(rec.Path),
		Language: LanguageOf(rec),
	}
	if rec.Binary || containsNUL(rec.Added) || containsNUL(rec.Removed) {
		return u
	}

	u.Added = cleanLines(rec.Added)
	u.Removed = cleanLines(rec.Removed)
	u.Imports = ExtractImports(u.Language, u.Added)
	return u
}

// LanguageOf returns the record's language slug, detecting it from the path
// when the record does not carry one.
func LanguageOf(rec ChangeRecord) string {
	if rec.Language != "" {
		return paths.LanguageSlug(rec.Language)
	}
	return DetectLanguage(rec.Path)
}

func cleanLines(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func containsNUL(lines []string) bool {
	for _, l := range lines {
		if strings.IndexByte(l, 0) >= 0 {
			return true
		}
	}
	return false
}

// extensionLanguages maps file extensions to language slugs. Only some of
// these have concept catalogs; the rest are reported as untracked.
var extensionLanguages = map[string]string{
	".py":     "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".cjs":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".mts":    "typescript",
	".go":     "go",
	".dart":   "flutter-dart",
	".java":   "java",
	".kt":     "kotlin",
	".swift":  "swift",
	".rs":     "rust",
	".rb":     "ruby",
	".php":    "php",
	".cs":     "csharp",
	".cpp":    "cpp",
	".cc":     "cpp",
	".c":      "c",
	".vue":    "vue",
	".svelte": "svelte",
}

// DetectLanguage maps a path to a language slug by extension, or "" when
// the file is not source code we recognise.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if strings.HasSuffix(strings.ToLower(path), ".d.ts") {
		return ""
	}
	return extensionLanguages[ext]
}

// IsScriptLanguage reports whether slug is JavaScript or TypeScript.
func IsScriptLanguage(slug string) bool {
	return slug == "javascript" || slug == "typescript"
}

// Batch is the set of records for one language.
type Batch struct {
	Language string
	Records  []ChangeRecord
}

// GroupByLanguage splits records by language slug, keeping the order in which
// languages are first seen. Records with no detectable language are dropped.
func GroupByLanguage(records []ChangeRecord) []Batch {
	var batches []Batch
	index := make(map[string]int)
	for _, rec := range records {
		lang := LanguageOf(rec)
		if lang == "" {
			continue
		}
		i, ok := index[lang]
		if !ok {
			i = len(batches)
			index[lang] = i
			batches = append(batches, Batch{Language: lang})
		}
		batches[i].Records = append(batches[i].Records, rec)
	}
	return batches
}
