// Package workspace keeps the registry of repositories analysed together,
// stored as repos.toml in the devjourney home.
package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"devjourney/internal/errors"
	"devjourney/internal/filelock"
	"devjourney/internal/repostate"
)

// RepoState represents the current state of a registered repository.
type RepoState string

const (
	RepoStateValid      RepoState = "valid"        // Path exists and is a git work tree
	RepoStateNotGitRepo RepoState = "not-git-repo" // Path exists, not a work tree
	RepoStateMissing    RepoState = "missing"      // Path doesn't exist
)

// Repo is one registered repository.
type Repo struct {
	UID            string     `toml:"uid" json:"uid"`
	Name           string     `toml:"name" json:"name"`
	Path           string     `toml:"path" json:"path"` // Always absolute, cleaned
	Tags           []string   `toml:"tags,omitempty" json:"tags,omitempty"`
	AddedAt        time.Time  `toml:"added_at" json:"addedAt"`
	LastAnalyzedAt *time.Time `toml:"last_analyzed_at,omitempty" json:"lastAnalyzedAt,omitempty"`
}

// HasTag reports whether the repo carries tag.
func (r Repo) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Workspace is the decoded repos.toml.
type Workspace struct {
	Version int    `toml:"version"`
	Repos   []Repo `toml:"repo"`

	path string
}

const currentVersion = 1

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Load reads the workspace file. A missing file yields an empty workspace.
func Load(path string) (*Workspace, error) {
	ws := &Workspace{Version: currentVersion, path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ws, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}

	if _, err := toml.Decode(string(data), ws); err != nil {
		return nil, errors.New(errors.InvalidInput, fmt.Sprintf("Workspace file %s is not valid TOML", path), err, nil)
	}
	if ws.Version > currentVersion {
		return nil, fmt.Errorf("workspace version %d not supported (max: %d)", ws.Version, currentVersion)
	}
	ws.Version = currentVersion
	return ws, nil
}

// Update loads the workspace under the file lock, applies fn and saves the
// result. Nothing is written if fn fails.
func Update(path string, fn func(*Workspace) error) (*Workspace, error) {
	lock, err := filelock.Acquire(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	ws, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := fn(ws); err != nil {
		return nil, err
	}
	if err := ws.save(); err != nil {
		return nil, err
	}
	return ws, nil
}

// save writes the workspace atomically. Callers hold the lock.
func (w *Workspace) save() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	w.Version = currentVersion
	sort.Slice(w.Repos, func(i, j int) bool { return w.Repos[i].Name < w.Repos[j].Name })

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(w); err != nil {
		return fmt.Errorf("failed to encode workspace: %w", err)
	}

	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename workspace: %w", err)
	}
	return nil
}

// ValidateName checks if a repo name is valid.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("repo name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("repo name must contain only letters, numbers, underscores, and hyphens")
	}
	return nil
}

// Add registers a repository. The path must be inside a git work tree and is
// stored as the work tree's root.
func (w *Workspace) Add(name, path string, tags []string, now time.Time) (*Repo, error) {
	if err := ValidateName(name); err != nil {
		return nil, errors.New(errors.InvalidInput, err.Error(), nil, nil)
	}
	if _, exists := w.Get(name); exists {
		return nil, errors.New(errors.InvalidInput, fmt.Sprintf("repo '%s' already exists", name), nil, nil)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return nil, errors.New(errors.NotARepository, fmt.Sprintf("path is not a directory: %s", absPath), err, nil)
	}
	root, err := repostate.GetRepoRoot(context.Background(), absPath)
	if err != nil {
		return nil, err
	}
	if existing, err := w.GetByPath(root); err == nil {
		return nil, errors.New(errors.InvalidInput,
			fmt.Sprintf("path already registered as '%s'", existing.Name), nil, nil)
	}

	repo := Repo{
		UID:     uuid.New().String(),
		Name:    name,
		Path:    filepath.Clean(root),
		Tags:    normalizeTags(tags),
		AddedAt: now.UTC().Truncate(time.Second),
	}
	w.Repos = append(w.Repos, repo)
	return &repo, nil
}

// Remove unregisters a repository.
func (w *Workspace) Remove(name string) error {
	for i, r := range w.Repos {
		if r.Name == name {
			w.Repos = append(w.Repos[:i], w.Repos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("repo '%s' not found", name)
}

// Get returns a repo by name.
func (w *Workspace) Get(name string) (*Repo, bool) {
	for i := range w.Repos {
		if w.Repos[i].Name == name {
			return &w.Repos[i], true
		}
	}
	return nil, false
}

// GetByPath finds the repo whose root contains path.
func (w *Workspace) GetByPath(path string) (*Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	absPath = filepath.Clean(absPath)

	for i := range w.Repos {
		root := w.Repos[i].Path
		if absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator)) {
			return &w.Repos[i], nil
		}
	}
	return nil, fmt.Errorf("no repo registered for path: %s", absPath)
}

// List returns registered repos sorted by name, optionally only those with tag.
func (w *Workspace) List(tag string) []Repo {
	out := make([]Repo, 0, len(w.Repos))
	for _, r := range w.Repos {
		if tag == "" || r.HasTag(tag) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MarkAnalyzed records when a repo was last analysed.
func (w *Workspace) MarkAnalyzed(name string, at time.Time) error {
	r, ok := w.Get(name)
	if !ok {
		return fmt.Errorf("repo '%s' not found", name)
	}
	t := at.UTC().Truncate(time.Second)
	r.LastAnalyzedAt = &t
	return nil
}

// State checks the current state of a registered repo's path.
func State(r Repo) RepoState {
	info, err := os.Stat(r.Path)
	if err != nil || !info.IsDir() {
		return RepoStateMissing
	}
	if !repostate.IsGitRepository(r.Path) {
		return RepoStateNotGitRepo
	}
	return RepoStateValid
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
