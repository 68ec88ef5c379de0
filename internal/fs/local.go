package fs

import (
	"os"
	"path/filepath"

	"github.com/CageChen/syntaxia/internal/sandbox"
)

// LocalFS implements FileSystem using the local filesystem.
type LocalFS struct {
	root string
}

// NewLocalFS creates a LocalFS rooted at the given directory.
func NewLocalFS(root string) *LocalFS {
	return &LocalFS{root: root}
}

// Root returns the directory the filesystem is rooted at.
func (l *LocalFS) Root() string {
	return l.root
}

func (l *LocalFS) abs(path string) string {
	if path == "" || path == "." {
		return l.root
	}
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *LocalFS) rel(dir, name string) string {
	if dir == "." {
		dir = ""
	}
	return sandbox.Join(dir, name)
}

// Resolve follows symbolic links in path and returns the canonical path
// relative to the root. Targets outside the root are rejected.
func (l *LocalFS) Resolve(path string) (string, error) {
	_, rel, err := sandbox.Contain(l.root, path)
	return rel, err
}

// ReadFile reads the contents of the file at the given path relative to the root.
func (l *LocalFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(l.abs(path))
}

// Stat returns metadata for the file or directory at the given path relative to the root.
func (l *LocalFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(l.abs(path))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ReadDir lists the immediate children of the directory at the given path
// relative to the root. Symbolic links are reported with their target's
// metadata; dangling links and links leaving the root are skipped.
func (l *LocalFS) ReadDir(path string) ([]DirEntry, error) {
	dir := l.abs(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		var info os.FileInfo
		if e.Type()&os.ModeSymlink != 0 {
			var target string
			target, _, err = sandbox.Contain(l.root, l.rel(path, e.Name()))
			if err == nil {
				info, err = os.Stat(target)
			}
		} else {
			info, err = e.Info()
		}
		if err != nil {
			continue
		}
		result = append(result, DirEntry{
			Name:    e.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return result, nil
}
