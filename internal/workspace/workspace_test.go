package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devjourney/internal/errors"
	"devjourney/internal/testutil"
)

var now = time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)

func TestLoad_Missing(t *testing.T) {
	ws, err := Load(filepath.Join(t.TempDir(), "repos.toml"))
	require.NoError(t, err)
	assert.Empty(t, ws.Repos)
	assert.Equal(t, currentVersion, ws.Version)
}

func TestUpdate_AddAndReload(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("src/a.py", "x = 1\n")
	path := filepath.Join(t.TempDir(), "home", "repos.toml")

	_, err := Update(path, func(ws *Workspace) error {
		_, err := ws.Add("api", filepath.Join(repo.Root, "src"), []string{"Work", " backend ", "work"}, now)
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[[repo]]"))

	ws, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ws.Repos, 1)
	r := ws.Repos[0]
	assert.Equal(t, "api", r.Name)
	assert.Equal(t, repo.Root, r.Path, "stored as the work tree root")
	assert.Equal(t, []string{"backend", "work"}, r.Tags)
	assert.Len(t, r.UID, 36)
	assert.True(t, r.AddedAt.Equal(now))
	assert.Nil(t, r.LastAnalyzedAt)
	assert.Equal(t, RepoStateValid, State(r))
}

func TestAdd_Validation(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	ws := &Workspace{}

	_, err := ws.Add("bad name!", repo.Root, nil, now)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	_, err = ws.Add("notgit", t.TempDir(), nil, now)
	assert.True(t, errors.HasCode(err, errors.NotARepository))

	_, err = ws.Add("missing", filepath.Join(t.TempDir(), "nope"), nil, now)
	assert.True(t, errors.HasCode(err, errors.NotARepository))

	_, err = ws.Add("api", repo.Root, nil, now)
	require.NoError(t, err)

	_, err = ws.Add("api", repo.Root, nil, now)
	assert.True(t, errors.HasCode(err, errors.InvalidInput), "duplicate name")

	_, err = ws.Add("api2", repo.Root, nil, now)
	assert.True(t, errors.HasCode(err, errors.InvalidInput), "duplicate path")
}

func TestUpdate_FnErrorSkipsSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repos.toml")
	_, err := Update(path, func(ws *Workspace) error {
		return ws.Remove("ghost")
	})
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWorkspace_ListRemoveMark(t *testing.T) {
	a := testutil.NewGitRepo(t)
	b := testutil.NewGitRepo(t)
	path := filepath.Join(t.TempDir(), "repos.toml")

	_, err := Update(path, func(ws *Workspace) error {
		if _, err := ws.Add("web", b.Root, []string{"frontend"}, now); err != nil {
			return err
		}
		_, err := ws.Add("api", a.Root, []string{"backend"}, now)
		return err
	})
	require.NoError(t, err)

	ws, err := Load(path)
	require.NoError(t, err)
	names := func(rs []Repo) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}
	assert.Equal(t, []string{"api", "web"}, names(ws.List("")))
	assert.Equal(t, []string{"web"}, names(ws.List("frontend")))
	assert.Empty(t, ws.List("mobile"))

	found, err := ws.GetByPath(filepath.Join(a.Root, "deep", "file.go"))
	require.NoError(t, err)
	assert.Equal(t, "api", found.Name)

	_, err = Update(path, func(ws *Workspace) error {
		if err := ws.MarkAnalyzed("api", now.Add(time.Hour)); err != nil {
			return err
		}
		return ws.Remove("web")
	})
	require.NoError(t, err)

	ws, err = Load(path)
	require.NoError(t, err)
	require.Len(t, ws.Repos, 1)
	require.NotNil(t, ws.Repos[0].LastAnalyzedAt)
	assert.True(t, ws.Repos[0].LastAnalyzedAt.Equal(now.Add(time.Hour)))

	assert.Error(t, ws.MarkAnalyzed("web", now))
}

func TestState(t *testing.T) {
	plain := t.TempDir()
	testutil.RequireGit(t)

	assert.Equal(t, RepoStateMissing, State(Repo{Path: filepath.Join(plain, "gone")}))
	assert.Equal(t, RepoStateNotGitRepo, State(Repo{Path: plain}))
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repos.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[repo]\nname ="), 0644))
	_, err := Load(path)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	require.NoError(t, os.WriteFile(path, []byte("version = 9\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("my-repo_2"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("a/b"))
}
