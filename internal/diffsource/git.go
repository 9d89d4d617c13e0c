// Package diffsource collects change records from git history or from a
// unified diff.
package diffsource

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"devjourney/internal/errors"
	"devjourney/internal/evidence"
	"devjourney/internal/repostate"
	"devjourney/internal/session"
	"devjourney/internal/slogutil"
)

const (
	// DefaultTimeout bounds each git subprocess
	DefaultTimeout = 30 * time.Second

	// DefaultMaxDiffLines caps the added plus removed lines kept per commit
	DefaultMaxDiffLines = 1000

	// DefaultMaxCommits caps the commits read from one window
	DefaultMaxCommits = 200

	// ReactNative is the language tag given to JS/TS files of React Native projects
	ReactNative = "react-native"

	fieldSep = "\x1f"
)

// Options tunes a GitSource.
type Options struct {
	MaxCommits   int
	MaxDiffLines int
	Timeout      time.Duration
	// Author restricts history to commits whose author matches (git --author)
	Author string
	// Concurrency bounds parallel git show calls
	Concurrency int
}

// Commit describes one commit in a collection.
type Commit struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Date      time.Time `json:"date"`
	Subject   string    `json:"subject"`
	Files     int       `json:"files"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Collection is the evidence gathered from one repository and window.
// State is the work tree at collection time, nil when git status failed.
type Collection struct {
	Root        string                  `json:"root"`
	Window      session.Window          `json:"window"`
	Commits     []Commit                `json:"commits"`
	Records     []evidence.ChangeRecord `json:"records"`
	ReactNative bool                    `json:"reactNative,omitempty"`
	State       *repostate.State        `json:"state,omitempty"`
}

// Input converts the collection into aggregator input.
func (c *Collection) Input(repo string) session.Input {
	return session.Input{
		Repo:    repo,
		Window:  c.Window,
		Records: c.Records,
		Commits: len(c.Commits),
	}
}

// GitSource reads non-merge commits of one repository.
type GitSource struct {
	root   string
	opts   Options
	logger *slog.Logger
}

// NewGitSource resolves the repository containing path.
// A path outside any work tree fails with NOT_A_REPOSITORY.
func NewGitSource(ctx context.Context, path string, opts Options, logger *slog.Logger) (*GitSource, error) {
	if opts.MaxCommits <= 0 {
		opts.MaxCommits = DefaultMaxCommits
	}
	if opts.MaxDiffLines <= 0 {
		opts.MaxDiffLines = DefaultMaxDiffLines
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	if _, err := os.Stat(path); err != nil {
		return nil, errors.New(errors.NotARepository, fmt.Sprintf("Path does not exist: %s", path), err, nil)
	}
	root, err := repostate.GetRepoRoot(ctx, path)
	if err != nil {
		return nil, err
	}

	logger = slogutil.Component(logger, "diffsource")
	logger.Debug("Git source initialized", "root", root, "timeout", opts.Timeout.String())

	return &GitSource{root: root, opts: opts, logger: logger}, nil
}

// Root returns the repository's top-level directory.
func (g *GitSource) Root() string {
	return g.root
}

// Collect reads the commits in the window, oldest first, and their diffs.
// Each commit keeps at most MaxDiffLines changed lines.
func (g *GitSource) Collect(ctx context.Context, window session.Window) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commits, err := g.listCommits(ctx, window)
	if err != nil {
		return nil, err
	}

	perCommit := make([][]evidence.ChangeRecord, len(commits))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)
	for i := range commits {
		eg.Go(func() error {
			records, truncated, err := g.showCommit(egCtx, commits[i].Hash)
			if err != nil {
				return err
			}
			perCommit[i] = records
			commits[i].Files = len(records)
			commits[i].Truncated = truncated
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	rn := g.isReactNative()
	col := &Collection{Root: g.root, Window: window, Commits: commits, ReactNative: rn}
	if st, err := repostate.Inspect(ctx, g.root); err != nil {
		g.logger.Debug("Work tree state unavailable", "root", g.root, "error", err)
	} else {
		col.State = st
	}
	for i, records := range perCommit {
		if commits[i].Truncated {
			g.logger.Debug("Commit diff truncated", "commit", commits[i].Hash, "maxLines", g.opts.MaxDiffLines)
		}
		for _, rec := range records {
			if rn && evidence.IsScriptLanguage(evidence.DetectLanguage(rec.Path)) {
				rec.Language = ReactNative
			}
			col.Records = append(col.Records, rec)
		}
	}

	g.logger.Info("Collected history",
		"root", g.root,
		"commits", len(commits),
		"records", len(col.Records),
		"reactNative", rn)
	return col, nil
}

func (g *GitSource) listCommits(ctx context.Context, window session.Window) ([]Commit, error) {
	args := []string{
		"log",
		"--no-merges",
		"--no-color",
		"--format=%H" + fieldSep + "%an" + fieldSep + "%ae" + fieldSep + "%aI" + fieldSep + "%s",
		"-n", strconv.Itoa(g.opts.MaxCommits),
	}
	if !window.Since.IsZero() {
		args = append(args, "--since="+window.Since.Format(time.RFC3339))
	}
	if !window.Until.IsZero() {
		args = append(args, "--until="+window.Until.Format(time.RFC3339))
	}
	if g.opts.Author != "" {
		args = append(args, "--author="+g.opts.Author)
	}

	if !g.hasCommits(ctx) {
		return nil, nil
	}

	out, err := g.executeGitCommand(ctx, args...)
	if err != nil {
		return nil, err
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, fieldSep, 5)
		if len(parts) < 5 {
			continue
		}
		date, err := time.Parse(time.RFC3339, parts[3])
		if err != nil {
			g.logger.Debug("Unparseable commit date", "commit", parts[0], "date", parts[3])
		}
		commits = append(commits, Commit{
			Hash:    parts[0],
			Author:  parts[1],
			Email:   parts[2],
			Date:    date.UTC(),
			Subject: parts[4],
		})
	}

	// git log is newest first
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

func (g *GitSource) hasCommits(ctx context.Context) bool {
	_, err := g.executeGitCommand(ctx, "rev-parse", "--verify", "-q", "HEAD")
	return err == nil
}

func (g *GitSource) showCommit(ctx context.Context, hash string) ([]evidence.ChangeRecord, bool, error) {
	out, err := g.executeGitCommand(ctx, "show", "--format=", "--no-color", "--no-ext-diff", "-p", hash)
	if err != nil {
		return nil, false, err
	}
	records, truncated, err := parseDiff([]byte(out+"\n"), hash, g.opts.MaxDiffLines)
	if err != nil {
		return nil, false, errors.New(errors.GitCommandFailed,
			fmt.Sprintf("Could not parse diff of %s", hash), err, nil)
	}
	return records, truncated, nil
}

// isReactNative reports whether the root package.json depends on react-native.
func (g *GitSource) isReactNative() bool {
	data, err := os.ReadFile(filepath.Join(g.root, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Dependencies    map[string]json.RawMessage `json:"dependencies"`
		DevDependencies map[string]json.RawMessage `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		g.logger.Debug("Ignoring unreadable package.json", "error", err.Error())
		return false
	}
	_, dep := pkg.Dependencies["react-native"]
	_, dev := pkg.DevDependencies["react-native"]
	return dep || dev
}

// executeGitCommand runs a git command with timeout and returns the output
func (g *GitSource) executeGitCommand(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	g.logger.Debug("Executing git command", "args", args, "timeout", g.opts.Timeout.String())

	output, err := cmd.Output()
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New(errors.Timeout, "Git command timed out", err, nil).
				WithDetails(map[string]interface{}{"args": args})
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return "", errors.New(errors.GitCommandFailed, "Git command failed", err, nil).
				WithDetails(map[string]interface{}{
					"args":   args,
					"stderr": strings.TrimSpace(stderr.String()),
				})
		}
		return "", errors.New(errors.GitCommandFailed, "Failed to execute git command", err, nil)
	}

	return strings.TrimRight(string(output), "\n"), nil
}
