// Package testutil provides throwaway git repositories for tests.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// GitRepo is a temporary repository with a fixed identity.
type GitRepo struct {
	t    *testing.T
	Root string
}

// RequireGit skips the test when git is not on PATH.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// NewGitRepo initializes an empty repository under t.TempDir().
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	RequireGit(t)

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	r := &GitRepo{t: t, Root: root}
	r.Git("init", "-q")
	r.Git("symbolic-ref", "HEAD", "refs/heads/main")
	r.Git("config", "user.name", "Test Author")
	r.Git("config", "user.email", "author@example.com")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Git runs a git command in the repository and returns trimmed stdout.
func (r *GitRepo) Git(args ...string) string {
	r.t.Helper()
	return r.gitEnv(nil, args...)
}

func (r *GitRepo) gitEnv(env []string, args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Root
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "HOME="+r.Root)
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// WriteFile writes content to a path relative to the repository root.
func (r *GitRepo) WriteFile(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// Remove deletes a file relative to the repository root.
func (r *GitRepo) Remove(rel string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.Root, filepath.FromSlash(rel))); err != nil {
		r.t.Fatalf("Failed to remove %s: %v", rel, err)
	}
}

// Commit stages everything and commits it with the given author and
// committer date. It returns the new commit hash.
func (r *GitRepo) Commit(message string, when time.Time) string {
	r.t.Helper()
	return r.CommitAs("Test Author", "author@example.com", message, when)
}

// CommitAs is Commit with an explicit author.
func (r *GitRepo) CommitAs(name, email, message string, when time.Time) string {
	r.t.Helper()
	date := when.Format(time.RFC3339)
	env := []string{
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_DATE=" + date,
		"GIT_AUTHOR_NAME=" + name,
		"GIT_AUTHOR_EMAIL=" + email,
	}
	r.Git("add", "-A")
	r.gitEnv(env, "commit", "-q", "--allow-empty", "-m", message)
	return r.Git("rev-parse", "HEAD")
}

// Merge creates a merge commit of branch into the current branch.
func (r *GitRepo) Merge(branch string, when time.Time) string {
	r.t.Helper()
	date := when.Format(time.RFC3339)
	r.gitEnv([]string{"GIT_AUTHOR_DATE=" + date, "GIT_COMMITTER_DATE=" + date},
		"merge", "-q", "--no-ff", "-m", fmt.Sprintf("Merge %s", branch), branch)
	return r.Git("rev-parse", "HEAD")
}
