// Package fs provides filesystem abstractions for reading a repository tree
// from local disk, a git ref or an S3 bucket.
package fs

import (
	"context"
	"fmt"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry represents a single directory entry.
type DirEntry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// FileSystem abstracts file operations so callers can work with the local
// filesystem, a git object database or an object store. Paths are relative to
// the backend root, "/"-separated, with "" naming the root. Errors follow
// io/fs conventions (fs.ErrNotExist, fs.ErrPermission).
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
}

// Resolver is implemented by backends whose paths can be redirected by
// symbolic links. Resolve returns the canonical path that path refers to, or
// an errs.OutsideRoot error when the target leaves the root.
type Resolver interface {
	Resolve(path string) (string, error)
}

// Contained reports an error when path leaves the root of fsys through a
// symbolic link. Backends without links always pass.
func Contained(fsys FileSystem, path string) error {
	if r, ok := fsys.(Resolver); ok {
		_, err := r.Resolve(path)
		return err
	}
	return nil
}

// Options selects and configures a backend.
type Options struct {
	Root   string
	GitRef string
	S3     *S3Options
}

// New returns the backend described by opts: S3 when S3 is set, a git ref
// reader when GitRef is set, the local filesystem otherwise.
func New(ctx context.Context, opts Options) (FileSystem, error) {
	switch {
	case opts.S3 != nil:
		return NewS3FS(ctx, *opts.S3)
	case opts.GitRef != "":
		if opts.Root == "" {
			return nil, fmt.Errorf("git backend requires a repository path")
		}
		return NewGitFS(opts.Root, opts.GitRef), nil
	default:
		if opts.Root == "" {
			return nil, fmt.Errorf("local backend requires a root directory")
		}
		return NewLocalFS(opts.Root), nil
	}
}
