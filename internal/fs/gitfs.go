package fs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CageChen/syntaxia/internal/metrics"
)

// GitFS implements FileSystem by reading from a git ref (branch, tag, or commit).
// Directory entries carry the ref's commit time; git stores no per-file mtime.
type GitFS struct {
	repoPath string
	ref      string

	once       sync.Once
	commitTime time.Time
}

// NewGitFS creates a GitFS that reads files from the given ref in the repository at repoPath.
func NewGitFS(repoPath, ref string) *GitFS {
	return &GitFS{repoPath: repoPath, ref: ref}
}

func (g *GitFS) git(op string, args ...string) ([]byte, error) {
	start := time.Now()
	cmd := exec.Command("git", append([]string{"-C", g.repoPath}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	metrics.RecordStorageOperation("git", op, time.Since(start), err)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(stderr, "does not exist") || strings.Contains(stderr, "not exist") ||
				strings.Contains(stderr, "Not a valid object name") {
				return nil, os.ErrNotExist
			}
			return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), stderr)
		}
		return nil, err
	}
	return out, nil
}

// ReadFile reads the contents of the file at the given path from the git ref.
func (g *GitFS) ReadFile(path string) ([]byte, error) {
	if path == "" || path == "." {
		return nil, fmt.Errorf("cannot read directory as file: %w", os.ErrInvalid)
	}
	info, err := g.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, fmt.Errorf("%s is a directory: %w", path, os.ErrInvalid)
	}
	return g.git("read", "cat-file", "blob", g.ref+":"+path)
}

// Stat returns metadata for the file or directory at the given path in the git ref.
func (g *GitFS) Stat(path string) (FileInfo, error) {
	if path == "" || path == "." {
		if _, err := g.git("stat", "rev-parse", "--verify", "--quiet", g.ref+"^{commit}"); err != nil {
			return FileInfo{}, os.ErrNotExist
		}
		return FileInfo{Name: g.ref, IsDir: true, ModTime: g.refTime()}, nil
	}

	// ls-tree -l on an exact path prints that path's own entry; a tree path
	// is listed as type "tree" rather than expanded.
	out, err := g.git("stat", "ls-tree", "-l", "-z", g.ref, "--", path)
	if err != nil {
		return FileInfo{}, err
	}
	entries := parseLsTree(out)
	if len(entries) != 1 {
		return FileInfo{}, os.ErrNotExist
	}
	e := entries[0]
	return FileInfo{
		Name:    baseName(path),
		IsDir:   e.IsDir,
		Size:    e.Size,
		ModTime: g.refTime(),
	}, nil
}

// ReadDir lists the immediate children of the directory at the given path in the git ref.
func (g *GitFS) ReadDir(path string) ([]DirEntry, error) {
	args := []string{"ls-tree", "-l", "-z", g.ref}
	if path != "" && path != "." {
		info, err := g.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir {
			return nil, fmt.Errorf("%s is not a directory: %w", path, os.ErrInvalid)
		}
		args = append(args, "--", path+"/")
	}

	out, err := g.git("readdir", args...)
	if err != nil {
		return nil, err
	}
	entries := parseLsTree(out)
	modTime := g.refTime()
	for i := range entries {
		entries[i].ModTime = modTime
	}
	return entries, nil
}

// refTime returns the committer time of the ref, resolved once.
func (g *GitFS) refTime() time.Time {
	g.once.Do(func() {
		out, err := g.git("stat", "log", "-1", "--format=%ct", g.ref)
		if err != nil {
			return
		}
		sec, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
		if err != nil {
			return
		}
		g.commitTime = time.Unix(sec, 0)
	})
	return g.commitTime
}

// parseLsTree parses `git ls-tree -l -z` output: NUL-terminated records of
// "<mode> <type> <hash> <size>\t<path>", size is "-" for trees.
func parseLsTree(out []byte) []DirEntry {
	var entries []DirEntry
	for _, line := range bytes.Split(bytes.TrimRight(out, "\x00"), []byte{0}) {
		tab := bytes.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		fields := strings.Fields(string(line[:tab]))
		if len(fields) < 4 {
			continue
		}
		objType := fields[1]
		if objType != "tree" && objType != "blob" {
			// submodule commits have no readable content
			continue
		}
		size, _ := strconv.ParseInt(fields[3], 10, 64)
		entries = append(entries, DirEntry{
			Name:  baseName(string(line[tab+1:])),
			IsDir: objType == "tree",
			Size:  size,
		})
	}
	return entries
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
