// Package repostate answers questions about a git work tree: whether a path
// is one, where its root is, and what it has checked out.
package repostate

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"devjourney/internal/errors"
)

// State is where a work tree stands when it is analysed.
type State struct {
	Root   string `json:"root"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
	// Pending counts uncommitted entries (modified, staged or untracked).
	Pending int `json:"pending,omitempty"`
}

// Dirty reports uncommitted work, which history analysis does not see.
func (s *State) Dirty() bool {
	return s.Pending > 0
}

// Inspect reads the state of the work tree containing path. A repository
// without commits has an empty Head; a detached HEAD has an empty Branch.
func Inspect(ctx context.Context, path string) (*State, error) {
	root, err := GetRepoRoot(ctx, path)
	if err != nil {
		return nil, err
	}
	st := &State{Root: root}
	st.Head, _ = git(ctx, root, "rev-parse", "--verify", "-q", "HEAD")
	st.Branch, _ = git(ctx, root, "symbolic-ref", "--short", "-q", "HEAD")

	status, err := git(ctx, root, "status", "--porcelain")
	if err != nil {
		return nil, errors.New(errors.GitCommandFailed, "git status failed in "+root, err, nil)
	}
	if status != "" {
		st.Pending = strings.Count(status, "\n") + 1
	}
	return st, nil
}

// IsGitRepository reports whether path lies inside a git work tree.
func IsGitRepository(path string) bool {
	out, err := git(context.Background(), path, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// GetRepoRoot returns the top-level directory of the work tree containing
// startPath, or a NOT_A_REPOSITORY error.
func GetRepoRoot(ctx context.Context, startPath string) (string, error) {
	root, err := git(ctx, startPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.New(errors.NotARepository,
			fmt.Sprintf("Not a git repository: %s", startPath), err, nil)
	}
	return root, nil
}

// git runs a git subcommand in dir and returns trimmed stdout. Stderr is
// folded into the error.
func git(ctx context.Context, dir string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
