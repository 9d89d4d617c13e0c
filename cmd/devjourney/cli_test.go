package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"devjourney/internal/testutil"
)

const pythonPatch = `diff --git a/app/loader.py b/app/loader.py
index 0000000..1111111 100644
--- a/app/loader.py
+++ b/app/loader.py
@@ -1,1 +1,6 @@
 import os
+def load(path):
+    try:
+        return open(path)
+    except OSError:
+        raise
`

// resetFlags restores every flag to its default so commands can run
// several times in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--home", home, "--format", "json"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return m
}

func writePatch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "change.diff")
	if err := os.WriteFile(path, []byte(pythonPatch), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLI_AnalyzePatchBuildsJourney(t *testing.T) {
	home := t.TempDir()
	patch := writePatch(t)

	var last map[string]interface{}
	for i := 0; i < 3; i++ {
		out, err := execute(t, home, "analyze", "--patch", patch, "--repo-name", "api")
		if err != nil {
			t.Fatalf("analyze run %d failed: %v", i+1, err)
		}
		last = decode(t, out)
	}

	reports := last["reports"].([]interface{})
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	report := reports[0].(map[string]interface{})
	if report["language"] != "python" || report["repo"] != "api" {
		t.Errorf("unexpected report header: %v / %v", report["language"], report["repo"])
	}
	if _, ok := report["warnings"]; !ok {
		t.Error("re-analysing the same patch should warn")
	}
	if w, ok := report["window"]; ok {
		t.Errorf("a patch has no window, got %v", w)
	}

	if _, err := os.Stat(filepath.Join(home, "journeys", "journey-python.json")); err != nil {
		t.Fatalf("journey file not written: %v", err)
	}

	out, err := execute(t, home, "journey", "show", "python")
	if err != nil {
		t.Fatalf("journey show failed: %v", err)
	}
	j := decode(t, out)
	if j["sessions"].(float64) != 3 {
		t.Errorf("sessions = %v, want 3", j["sessions"])
	}
	stages := map[string]string{}
	for _, c := range j["concepts"].([]interface{}) {
		cm := c.(map[string]interface{})
		stages[cm["conceptId"].(string)] = cm["stage"].(string)
	}
	if stages["functions"] != "mastered" || stages["error_handling"] != "mastered" {
		t.Errorf("stages after three sessions = %v", stages)
	}
	if stages["decorators"] != "absent" {
		t.Errorf("decorators = %q, want absent", stages["decorators"])
	}

	out, err = execute(t, home, "journey", "list")
	if err != nil {
		t.Fatalf("journey list failed: %v", err)
	}
	journeys := decode(t, out)["journeys"].([]interface{})
	if len(journeys) != 1 || journeys[0].(map[string]interface{})["language"] != "python" {
		t.Errorf("journeys = %v", journeys)
	}

	out, err = execute(t, home, "recommend", "python", "--limit", "2")
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	recs := decode(t, out)["recommendations"].([]interface{})
	if len(recs) == 0 || len(recs) > 2 {
		t.Fatalf("recommendations = %d, want 1..2", len(recs))
	}
	for _, r := range recs {
		if r.(map[string]interface{})["stage"] == "mastered" {
			t.Errorf("mastered concept recommended: %v", r)
		}
	}
}

func TestCLI_HistoryArchive(t *testing.T) {
	home := t.TempDir()
	patch := writePatch(t)

	out, err := execute(t, home, "analyze", "--patch", patch, "--repo-name", "api")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	id := decode(t, out)["reports"].([]interface{})[0].(map[string]interface{})["id"].(string)

	out, err = execute(t, home, "history", "--language", "python")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	list := decode(t, out)["reports"].([]interface{})
	if len(list) != 1 || list[0].(map[string]interface{})["id"] != id {
		t.Fatalf("history = %v, want report %s", list, id)
	}

	out, err = execute(t, home, "history", "show", id)
	if err != nil {
		t.Fatalf("history show failed: %v", err)
	}
	if decode(t, out)["repo"] != "api" {
		t.Errorf("history show returned %s", out)
	}

	out, err = execute(t, home, "history", "search", "def load")
	if err != nil {
		t.Fatalf("history search failed: %v", err)
	}
	if results, ok := decode(t, out)["results"].([]interface{}); !ok || len(results) == 0 {
		t.Errorf("search found nothing: %s", out)
	}

	if _, err := execute(t, home, "history", "show", "missing-id"); err == nil {
		t.Error("expected error for unknown report id")
	}

	out, err = execute(t, home, "history", "prune", "--before", "2000-01-01")
	if err != nil {
		t.Fatalf("history prune failed: %v", err)
	}
	if _, ok := decode(t, out)["deleted"]; !ok {
		t.Errorf("prune output missing deleted count: %s", out)
	}
}

func TestCLI_AnalyzeNoArchive(t *testing.T) {
	home := t.TempDir()
	patch := writePatch(t)

	if _, err := execute(t, home, "analyze", "--patch", patch, "--no-archive"); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "journey.db")); !os.IsNotExist(err) {
		t.Errorf("archive should not be created with --no-archive, stat err = %v", err)
	}
}

func TestCLI_AnalyzeWorkspaceRepos(t *testing.T) {
	home := t.TempDir()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("worker/pool.go", "package worker\n\nfunc Start() {\n\tgo run()\n}\n")
	repo.Commit("add worker", time.Now().Add(-time.Hour).Truncate(time.Second))

	if _, err := execute(t, home, "repos", "add", "worker", repo.Root, "--tag", "Learning"); err != nil {
		t.Fatalf("repos add failed: %v", err)
	}
	if _, err := execute(t, home, "repos", "add", "worker", repo.Root); err == nil {
		t.Error("expected error for duplicate name")
	}

	out, err := execute(t, home, "analyze", "--all", "--tag", "learning", "--since", "48h")
	if err != nil {
		t.Fatalf("analyze --all failed: %v", err)
	}
	reports := decode(t, out)["reports"].([]interface{})
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1:\n%s", len(reports), out)
	}
	report := reports[0].(map[string]interface{})
	if report["repo"] != "worker" || report["language"] != "go" {
		t.Errorf("report = %v/%v, want worker/go", report["repo"], report["language"])
	}
	if !strings.Contains(out, `"goroutines"`) {
		t.Errorf("goroutines not recognized:\n%s", out)
	}

	out, err = execute(t, home, "repos", "list")
	if err != nil {
		t.Fatalf("repos list failed: %v", err)
	}
	repos := decode(t, out)["repos"].([]interface{})
	if len(repos) != 1 {
		t.Fatalf("repos = %v", repos)
	}
	r := repos[0].(map[string]interface{})
	if r["state"] != "valid" || r["lastAnalyzedAt"] == nil {
		t.Errorf("repo entry = %v", r)
	}

	if _, err := execute(t, home, "repos", "remove", "worker"); err != nil {
		t.Fatalf("repos remove failed: %v", err)
	}
	if _, err := execute(t, home, "analyze", "--all"); err == nil {
		t.Error("analyze --all with an empty workspace should fail")
	}
}

func TestCLI_AnalyzeNotARepository(t *testing.T) {
	testutil.RequireGit(t)
	home := t.TempDir()
	plain := t.TempDir()

	out, err := execute(t, home, "analyze", plain)
	if err == nil {
		t.Fatal("expected error outside a git repository")
	}
	if !strings.Contains(out, "NOT_A_REPOSITORY") {
		t.Errorf("output should carry the error:\n%s", out)
	}
	errs, _ := decode(t, out)["errors"].([]interface{})
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one entry", errs)
	}
	if code := errs[0].(map[string]interface{})["code"]; code != "NOT_A_REPOSITORY" {
		t.Errorf("error code = %v, want NOT_A_REPOSITORY", code)
	}
}

func TestCLI_Catalog(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, home, "catalog", "list")
	if err != nil {
		t.Fatalf("catalog list failed: %v", err)
	}
	if !strings.Contains(out, `"slug": "react-native"`) {
		t.Errorf("built-in catalogs missing:\n%s", out)
	}

	out, err = execute(t, home, "catalog", "list", "go")
	if err != nil {
		t.Fatalf("catalog list go failed: %v", err)
	}
	if !strings.Contains(out, `"goroutines"`) {
		t.Errorf("go concepts missing:\n%s", out)
	}

	if _, err := execute(t, home, "catalog", "list", "cobol"); err == nil {
		t.Error("expected error for unknown language")
	}

	out, err = execute(t, home, "catalog", "validate")
	if err != nil {
		t.Fatalf("catalog validate failed: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) {
		t.Errorf("validate output: %s", out)
	}

	bad := t.TempDir()
	doc := "language = \"Go\"\n\n[[concepts]]\nid = \"a\"\ndifficulty = \"beginner\"\nnext = [\"missing\"]\n\n  [[concepts.rules]]\n  literal = \"x\"\n"
	if err := os.WriteFile(filepath.Join(bad, "go.toml"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, home, "catalog", "validate", bad); err == nil {
		t.Error("expected error for a successor that does not exist")
	}
}

func TestCLI_JourneyShowUnknownLanguage(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "journey", "show", "cobol"); err == nil {
		t.Error("expected error for a language with no catalog and no journey")
	}
}

func TestCLI_JourneyShowMarkdownOut(t *testing.T) {
	home := t.TempDir()
	if _, err := execute(t, home, "analyze", "--patch", writePatch(t), "--no-archive"); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "journey.md")
	resetFlags(rootCmd)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--home", home, "--format", "markdown", "journey", "show", "python", "--out", dest})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("journey show failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Python Learning Journey") {
		t.Errorf("unexpected markdown:\n%s", data)
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decode(t, out)["version"]; !ok {
		t.Errorf("version output: %s", out)
	}
}
