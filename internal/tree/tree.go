// Package tree lists one directory level of a repository.
package tree

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/errs"
	"github.com/CageChen/syntaxia/internal/fs"
	"github.com/CageChen/syntaxia/internal/sandbox"
)

// AboutFile is the per-project description file. It is never listed.
const AboutFile = "ABOUT"

const gitignoreFile = ".gitignore"

// Entry is one listed directory entry.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	IsDir     bool      `json:"is_dir"`
	Size      uint64    `json:"size"`
	HumanSize string    `json:"human_size,omitempty"`
	ModTime   time.Time `json:"last_modified"`
}

// Options configures which entries a Walker hides.
type Options struct {
	// ShowHidden lists dot files.
	ShowHidden bool
	// RespectGitignore hides paths matched by the .gitignore at the top of
	// their project (first-level directory).
	RespectGitignore bool
	// Exclude holds glob patterns matched against the relative path and the
	// base name of every entry.
	Exclude []string
	Logger  *zap.Logger
}

// Walker lists directories of a file system.
type Walker struct {
	fsys   fs.FileSystem
	opts   Options
	logger *zap.Logger
}

// New creates a Walker over fsys.
func New(fsys fs.FileSystem, opts Options) *Walker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{fsys: fsys, opts: opts, logger: logger}
}

// List returns the visible entries of dir, a normalized relative path with
// "" naming the root. Directories come first, then names in case-insensitive
// order.
func (w *Walker) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.Hidden(dir, true) {
		return nil, errs.Errorf(errs.NotFound, dir, "hidden")
	}
	info, err := w.fsys.Stat(dir)
	if err != nil {
		return nil, errs.Wrap(err, dir, errs.Unreadable)
	}
	if !info.IsDir {
		return nil, errs.Errorf(errs.NotADirectory, dir, "not a directory")
	}

	children, err := w.fsys.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(err, dir, errs.Unreadable)
	}

	gi := w.gitignore(Project(dir))
	entries := make([]Entry, 0, len(children))
	for _, c := range children {
		p := sandbox.Join(dir, c.Name)
		if w.hiddenName(c.Name) || w.excluded(p) || ignored(gi, p, c.IsDir) {
			continue
		}
		e := Entry{Name: c.Name, Path: p, IsDir: c.IsDir, ModTime: c.ModTime}
		if !c.IsDir && c.Size > 0 {
			e.Size = uint64(c.Size)
		}
		if !c.IsDir {
			e.HumanSize = humanize.IBytes(e.Size)
		}
		entries = append(entries, e)
	}
	Sort(entries)
	w.logger.Debug("listed directory",
		zap.String("dir", dir),
		zap.Int("entries", len(entries)),
		zap.Int("hidden", len(children)-len(entries)),
	)
	return entries, nil
}

// Hidden reports whether p, or any directory above it, is hidden from
// listings. Hidden paths are served as if they did not exist.
func (w *Walker) Hidden(p string, isDir bool) bool {
	if p == "" {
		return false
	}
	segs := strings.Split(p, "/")
	var gi *ignore.GitIgnore
	if len(segs) > 1 {
		gi = w.gitignore(segs[0])
	}
	for i, seg := range segs {
		sub := strings.Join(segs[:i+1], "/")
		dir := isDir || i < len(segs)-1
		if w.hiddenName(seg) || w.excluded(sub) || ignored(gi, sub, dir) {
			return true
		}
	}
	return false
}

func (w *Walker) hiddenName(name string) bool {
	if name == AboutFile {
		return true
	}
	return !w.opts.ShowHidden && strings.HasPrefix(name, ".") && name != gitignoreFile
}

// excluded matches p against the exclude patterns by full path, base name or
// directory prefix.
func (w *Walker) excluded(p string) bool {
	base := path.Base(p)
	for _, pattern := range w.opts.Exclude {
		if matched, _ := path.Match(pattern, p); matched {
			return true
		}
		if matched, _ := path.Match(pattern, base); matched {
			return true
		}
		clean := path.Clean(pattern)
		if p == clean || strings.HasPrefix(p, clean+"/") {
			return true
		}
	}
	return false
}

// gitignore loads the .gitignore of a project. It returns nil when ignore
// rules are off, at the root, or when the project has no .gitignore.
func (w *Walker) gitignore(proj string) *ignore.GitIgnore {
	if !w.opts.RespectGitignore || proj == "" {
		return nil
	}
	p := proj + "/" + gitignoreFile
	if err := fs.Contained(w.fsys, p); err != nil {
		if errs.KindOf(err) == errs.OutsideRoot {
			w.logger.Warn("ignoring .gitignore outside the root", zap.String("path", p))
		}
		return nil
	}
	data, err := w.fsys.ReadFile(p)
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
}

// ignored matches p, a path whose first segment is the project, against the
// project's ignore rules.
func ignored(gi *ignore.GitIgnore, p string, isDir bool) bool {
	if gi == nil {
		return false
	}
	_, rel, ok := strings.Cut(p, "/")
	if !ok || rel == "" {
		return false
	}
	if gi.MatchesPath(rel) {
		return true
	}
	return isDir && gi.MatchesPath(rel+"/")
}

// Sort orders entries directories first, then by case-insensitive name, with
// the exact name breaking ties so the order is total.
func Sort(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

// Project returns the first-level directory p belongs to, or "" at the root.
func Project(p string) string {
	first, _, _ := strings.Cut(p, "/")
	return first
}
