package diffsource

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"devjourney/internal/errors"
	"devjourney/internal/evidence"
)

// ParsePatch turns a unified diff (git diff, git show, git format-patch
// output) into change records, one per file. Vendored and generated files
// are dropped. Empty input yields no records.
func ParsePatch(r io.Reader) ([]evidence.ChangeRecord, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch: %w", err)
	}
	records, _, err := parseDiff(content, "", 0)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "Patch is not a unified diff", err, nil)
	}
	return records, nil
}

// parseDiff parses a multi-file diff. When maxLines > 0 at most that many
// added plus removed lines are kept; truncated reports whether any were cut.
func parseDiff(content []byte, commit string, maxLines int) (records []evidence.ChangeRecord, truncated bool, err error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, false, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff(content)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse diff: %w", err)
	}

	budget := maxLines
	for _, fd := range fileDiffs {
		rec, ok := changeRecord(fd, commit)
		if !ok {
			continue
		}
		if maxLines > 0 {
			var cut bool
			rec, budget, cut = capLines(rec, budget)
			truncated = truncated || cut
		}
		records = append(records, rec)
	}
	return records, truncated, nil
}

// changeRecord converts a go-diff FileDiff into a change record
func changeRecord(fd *godiff.FileDiff, commit string) (evidence.ChangeRecord, bool) {
	oldPath, newPath := cleanPath(fd.OrigName), cleanPath(fd.NewName)
	if oldPath == "" && newPath == "" {
		oldPath, newPath = pathsFromHeader(fd.Extended)
	}

	path := newPath
	if path == "" || path == "/dev/null" {
		path = oldPath
	}
	if path == "" || path == "/dev/null" || !IsSourceFile(path) {
		return evidence.ChangeRecord{}, false
	}

	rec := evidence.ChangeRecord{Path: path, Commit: commit}
	if isBinary(fd) {
		rec.Binary = true
		return rec, true
	}

	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if line == "" {
				continue
			}
			switch line[0] {
			case '+':
				rec.Added = append(rec.Added, line[1:])
			case '-':
				rec.Removed = append(rec.Removed, line[1:])
			}
			// ' ' context and '\' no-newline markers carry no evidence
		}
	}
	return rec, true
}

func capLines(rec evidence.ChangeRecord, budget int) (evidence.ChangeRecord, int, bool) {
	if budget <= 0 {
		cut := len(rec.Added)+len(rec.Removed) > 0
		rec.Added, rec.Removed = nil, nil
		return rec, 0, cut
	}
	cut := false
	if len(rec.Added) > budget {
		rec.Added = rec.Added[:budget]
		cut = true
	}
	budget -= len(rec.Added)
	if len(rec.Removed) > budget {
		rec.Removed = rec.Removed[:budget]
		cut = true
	}
	budget -= len(rec.Removed)
	return rec, budget, cut
}

func isBinary(fd *godiff.FileDiff) bool {
	for _, ext := range fd.Extended {
		if strings.HasPrefix(ext, "Binary files ") || ext == "GIT binary patch" {
			return true
		}
	}
	return false
}

// pathsFromHeader recovers names from "diff --git a/x b/x" when a file diff
// has no ---/+++ lines (mode changes, binaries).
func pathsFromHeader(extended []string) (string, string) {
	for _, ext := range extended {
		if !strings.HasPrefix(ext, "diff --git ") {
			continue
		}
		rest := strings.TrimPrefix(ext, "diff --git ")
		if i := strings.Index(rest, " b/"); i >= 0 {
			return cleanPath(rest[:i]), cleanPath(rest[i+1:])
		}
	}
	return "", ""
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// IsSourceFile reports whether a path is hand-written source rather than
// vendored, generated or lock-file content.
func IsSourceFile(path string) bool {
	skipPrefixes := []string{
		"vendor/",
		"node_modules/",
		".git/",
		"dist/",
		"build/",
		"Pods/",
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) || strings.Contains(path, "/"+prefix) {
			return false
		}
	}

	skipSuffixes := []string{
		".sum",
		".lock",
		".min.js",
		".min.css",
		".map",
		".pb.go",
		"_generated.go",
		"-lock.json", // package-lock.json, etc.
		"_pb2.py",
	}
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	return true
}
