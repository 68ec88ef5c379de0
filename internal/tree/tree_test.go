package tree

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/syntaxia/internal/errs"
	"github.com/CageChen/syntaxia/internal/fs"
)

func setupTree(t *testing.T, files map[string]string, dirs ...string) *fs.LocalFS {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755))
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return fs.NewLocalFS(root)
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestListOrder(t *testing.T) {
	fsys := setupTree(t, map[string]string{"b.txt": "b", "a.txt": "a"}, "A")
	w := New(fsys, Options{})

	entries, err := w.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "a.txt", "b.txt"}, names(entries))

	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "A", entries[0].Path)
	assert.Zero(t, entries[0].Size)
	assert.Empty(t, entries[0].HumanSize)
	assert.EqualValues(t, 1, entries[1].Size)
	assert.Equal(t, "1 B", entries[1].HumanSize)
	assert.False(t, entries[1].ModTime.IsZero())
}

func TestListOrderIsStable(t *testing.T) {
	fsys := setupTree(t, map[string]string{
		"README": "", "readme": "", "Zeta.go": "", "alpha.go": "", "Beta.md": "",
	}, "src", "Docs", "docs2")
	w := New(fsys, Options{})

	first, err := w.List(context.Background(), "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := w.List(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, names(first), names(again))
	}
	assert.Equal(t, []string{"Docs", "docs2", "src", "alpha.go", "Beta.md", "README", "readme", "Zeta.go"}, names(first))
}

func TestListNestedPaths(t *testing.T) {
	fsys := setupTree(t, map[string]string{"proj/src/main.go": "package main"})
	w := New(fsys, Options{})

	entries, err := w.List(context.Background(), "proj/src")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "proj/src/main.go", entries[0].Path)
	assert.Equal(t, "main.go", entries[0].Name)
}

func TestListErrors(t *testing.T) {
	fsys := setupTree(t, map[string]string{"file.txt": "x", ".secret/key": "k"})
	w := New(fsys, Options{})
	ctx := context.Background()

	_, err := w.List(ctx, "file.txt")
	assert.True(t, errors.Is(err, errs.NotADirectory), "got %v", err)

	_, err = w.List(ctx, "missing")
	assert.True(t, errors.Is(err, errs.NotFound), "got %v", err)

	_, err = w.List(ctx, ".secret")
	assert.True(t, errors.Is(err, errs.NotFound), "got %v", err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = w.List(cancelled, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	fsys := setupTree(t, nil, "locked")
	dir := filepath.Join(fsys.Root(), "locked")
	require.NoError(t, os.Chmod(dir, 0o000))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err := New(fsys, Options{}).List(context.Background(), "locked")
	assert.True(t, errors.Is(err, errs.PermissionDenied), "got %v", err)
}

func TestHiddenEntries(t *testing.T) {
	fsys := setupTree(t, map[string]string{
		".env":             "x",
		".gitignore":       "",
		"ABOUT":            "about",
		"proj/ABOUT":       "#go\nA project",
		"proj/main.go":     "",
		"node_modules/a":   "",
		"proj/vendor/b.go": "",
	})
	ctx := context.Background()

	w := New(fsys, Options{Exclude: []string{"node_modules", "proj/vendor"}})
	entries, err := w.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"proj", ".gitignore"}, names(entries))

	entries, err = w.List(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, names(entries))

	assert.True(t, w.Hidden(".env", false))
	assert.True(t, w.Hidden("proj/ABOUT", false))
	assert.True(t, w.Hidden("node_modules/a", false))
	assert.True(t, w.Hidden("proj/vendor/b.go", false))
	assert.False(t, w.Hidden("proj/main.go", false))
	assert.False(t, w.Hidden("", true))

	shown := New(fsys, Options{ShowHidden: true})
	entries, err = shown.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"node_modules", "proj", ".env", ".gitignore"}, names(entries))
	assert.True(t, shown.Hidden("ABOUT", false))
}

func TestGitignore(t *testing.T) {
	fsys := setupTree(t, map[string]string{
		"proj/.gitignore":   "build/\n*.log\n!keep.log\n",
		"proj/build/out.o":  "",
		"proj/app.log":      "",
		"proj/keep.log":     "",
		"proj/main.go":      "",
		"proj/sub/debug.log": "",
		"other/app.log":     "",
	})
	ctx := context.Background()

	w := New(fsys, Options{RespectGitignore: true})
	entries, err := w.List(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub", ".gitignore", "keep.log", "main.go"}, names(entries))

	entries, err = w.List(ctx, "proj/sub")
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.True(t, w.Hidden("proj/build", true))
	assert.True(t, w.Hidden("proj/build/out.o", false))
	assert.True(t, w.Hidden("proj/app.log", false))
	assert.False(t, w.Hidden("other/app.log", false))

	_, err = w.List(ctx, "proj/build")
	assert.True(t, errors.Is(err, errs.NotFound))

	plain := New(fsys, Options{})
	entries, err = plain.List(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "sub", ".gitignore", "app.log", "keep.log", "main.go"}, names(entries))
}

func TestGitignoreOutsideRootIsIgnored(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "rules"), []byte("*.go\n"), 0o644))
	fsys := setupTree(t, map[string]string{"proj/main.go": ""})
	require.NoError(t, os.Symlink(filepath.Join(outside, "rules"), filepath.Join(fsys.Root(), "proj", ".gitignore")))

	w := New(fsys, Options{RespectGitignore: true})
	assert.False(t, w.Hidden("proj/main.go", false))

	entries, err := w.List(context.Background(), "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, names(entries))
}

func TestProject(t *testing.T) {
	assert.Equal(t, "", Project(""))
	assert.Equal(t, "proj", Project("proj"))
	assert.Equal(t, "proj", Project("proj/a/b.go"))
}
