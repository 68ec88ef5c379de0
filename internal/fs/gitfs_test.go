package fs

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// setupTestRepo creates a temporary git repository with sample files for testing.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}

	git("init")
	git("config", "user.email", "test@test.com")
	git("config", "user.name", "Test")

	// Create files and directories
	docsDir := filepath.Join(dir, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# README\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docsDir, "guide.md"), []byte("# Guide\n\nHello world.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docsDir, "main.rs"), []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	git("add", "-A")
	git("commit", "-m", "initial commit")

	return dir
}

func TestGitFS_Stat_Root(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	info, err := g.Stat("")
	if err != nil {
		t.Fatalf("Stat('') failed: %v", err)
	}
	if !info.IsDir {
		t.Error("expected root to be a directory")
	}
}

func TestGitFS_ReadDir_Root(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	entries, err := g.ReadDir("")
	if err != nil {
		t.Fatalf("ReadDir('') failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected non-empty root directory")
	}

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = true
		t.Logf("  entry: %s (dir=%v)", e.Name, e.IsDir)
	}

	if !names["README.md"] {
		t.Error("expected README.md in root entries")
	}
	if !names["docs"] {
		t.Error("expected docs directory in root entries")
	}
	for _, e := range entries {
		if e.Name == "docs" && !e.IsDir {
			t.Error("expected docs to be listed as a directory")
		}
	}
}

func TestGitFS_Stat_Dir(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	info, err := g.Stat("docs")
	if err != nil {
		t.Fatalf("Stat('docs') failed: %v", err)
	}
	if !info.IsDir {
		t.Error("expected docs to be a directory")
	}
	if info.Name != "docs" {
		t.Errorf("expected name 'docs', got %q", info.Name)
	}
}

func TestGitFS_ReadDir_SubDir(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	entries, err := g.ReadDir("docs")
	if err != nil {
		t.Fatalf("ReadDir('docs') failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in docs, got %d", len(entries))
	}
	sizes := map[string]int64{}
	for _, e := range entries {
		if e.IsDir {
			t.Errorf("did not expect %s to be a directory", e.Name)
		}
		if e.ModTime.IsZero() {
			t.Errorf("expected %s to carry the commit time", e.Name)
		}
		sizes[e.Name] = e.Size
	}
	if sizes["guide.md"] != int64(len("# Guide\n\nHello world.\n")) {
		t.Errorf("unexpected size for guide.md: %d", sizes["guide.md"])
	}
	if sizes["main.rs"] != int64(len("fn main() {}\n")) {
		t.Errorf("unexpected size for main.rs: %d", sizes["main.rs"])
	}
}

func TestGitFS_Stat_File(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	info, err := g.Stat("docs/main.rs")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.IsDir || info.Name != "main.rs" || info.Size != int64(len("fn main() {}\n")) {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := g.Stat("docs/missing.rs"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestGitFS_ReadDir_File(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	if _, err := g.ReadDir("README.md"); err == nil {
		t.Error("expected error listing a file")
	}
}

func TestGitFS_ReadFile(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	content, err := g.ReadFile("docs/guide.md")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "# Guide\n\nHello world.\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestGitFS_ReadFile_NotExist(t *testing.T) {
	dir := setupTestRepo(t)
	g := NewGitFS(dir, "HEAD")

	_, err := g.ReadFile("nonexistent.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist for nonexistent file, got %v", err)
	}
}
