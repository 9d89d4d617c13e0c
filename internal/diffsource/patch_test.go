package diffsource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devjourney/internal/errors"
)

const samplePatch = `diff --git a/app/main.py b/app/main.py
index 0000000..1111111 100644
--- a/app/main.py
+++ b/app/main.py
@@ -1,2 +1,3 @@
 import os
-x = 1
+def run():
+    return 1
diff --git a/vendor/lib/lib.go b/vendor/lib/lib.go
index 4444444..5555555 100644
--- a/vendor/lib/lib.go
+++ b/vendor/lib/lib.go
@@ -1 +1 @@
-package lib
+package lib // vendored
diff --git a/old.js b/old.js
deleted file mode 100644
index 3333333..0000000
--- a/old.js
+++ /dev/null
@@ -1 +0,0 @@
-const a = 1;
\ No newline at end of file
`

func TestParsePatch(t *testing.T) {
	records, err := ParsePatch(strings.NewReader(samplePatch))
	require.NoError(t, err)
	require.Len(t, records, 2, "vendored file is dropped")

	assert.Equal(t, "app/main.py", records[0].Path)
	assert.Equal(t, []string{"def run():", "    return 1"}, records[0].Added)
	assert.Equal(t, []string{"x = 1"}, records[0].Removed)
	assert.False(t, records[0].Binary)

	assert.Equal(t, "old.js", records[1].Path)
	assert.Empty(t, records[1].Added)
	assert.Equal(t, []string{"const a = 1;"}, records[1].Removed)
}

func TestParsePatch_Empty(t *testing.T) {
	records, err := ParsePatch(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParsePatch_Invalid(t *testing.T) {
	_, err := ParsePatch(strings.NewReader("--- a/x\n+++ b/x\n@@ -bogus @@\n"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestParseDiff_CapsLines(t *testing.T) {
	records, truncated, err := parseDiff([]byte(samplePatch), "abc", 2)
	require.NoError(t, err)
	assert.True(t, truncated)
	require.Len(t, records, 2)

	assert.Equal(t, "abc", records[0].Commit)
	assert.Len(t, records[0].Added, 2)
	assert.Empty(t, records[0].Removed)
	assert.Empty(t, records[1].Removed, "budget exhausted by the first file")

	_, truncated, err = parseDiff([]byte(samplePatch), "abc", 100)
	require.NoError(t, err)
	assert.False(t, truncated)
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "src/x.go", cleanPath("a/src/x.go"))
	assert.Equal(t, "src/x.go", cleanPath("b/src/x.go"))
	assert.Equal(t, "/dev/null", cleanPath("/dev/null"))
	assert.Equal(t, "src/x.go", cleanPath("src/x.go"))
}

func TestPathsFromHeader(t *testing.T) {
	oldPath, newPath := pathsFromHeader([]string{"diff --git a/img/logo.png b/img/logo.png", "new file mode 100644"})
	assert.Equal(t, "img/logo.png", oldPath)
	assert.Equal(t, "img/logo.png", newPath)

	oldPath, newPath = pathsFromHeader([]string{"index 123..456"})
	assert.Empty(t, oldPath)
	assert.Empty(t, newPath)
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"src/app.tsx", true},
		{"vendor/pkg/a.go", false},
		{"web/node_modules/react/index.js", false},
		{"go.sum", false},
		{"package-lock.json", false},
		{"yarn.lock", false},
		{"static/app.min.js", false},
		{"api/service.pb.go", false},
		{"proto/service_pb2.py", false},
		{"ios/Pods/x.swift", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSourceFile(tt.path), tt.path)
	}
}
