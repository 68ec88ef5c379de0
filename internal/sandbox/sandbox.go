// Package sandbox maps requested logical paths onto locations inside a
// repository root and rejects anything that would escape it.
package sandbox

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/CageChen/syntaxia/internal/errs"
)

// Normalize validates a "/"-delimited request path and returns it in
// canonical relative form ("" for the root). It never touches the filesystem.
//
// One leading "/" is accepted so URL paths can be passed straight through.
// Every remaining segment must be non-empty, must not be "." or "..", and
// must not contain a backslash or NUL byte.
func Normalize(requested string) (string, error) {
	p := strings.TrimPrefix(requested, "/")
	if p == "" {
		return "", nil
	}

	for _, seg := range strings.Split(p, "/") {
		switch {
		case seg == "":
			return "", errs.Errorf(errs.InvalidPath, requested, "empty path segment")
		case seg == "." || seg == "..":
			return "", errs.Errorf(errs.InvalidPath, requested, "dot segment %q", seg)
		case strings.ContainsAny(seg, "\\\x00"):
			return "", errs.Errorf(errs.InvalidPath, requested, "illegal character in segment %q", seg)
		}
	}
	return p, nil
}

// Resolve validates requested and returns the absolute location it names
// under root, with symbolic links evaluated.
func Resolve(root, requested string) (string, error) {
	rel, err := Normalize(requested)
	if err != nil {
		return "", err
	}
	abs, _, err := Contain(root, rel)
	return abs, err
}

// Contain evaluates symbolic links along root/rel and checks that the target
// is root itself or one of its descendants. It returns the absolute target and
// its path relative to the evaluated root, using "/" separators.
func Contain(root, rel string) (string, string, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", "", errs.Wrap(err, root, errs.Unreadable)
	}
	realRoot, err = filepath.Abs(realRoot)
	if err != nil {
		return "", "", errs.New(errs.Unreadable, root, err)
	}

	target, err := filepath.EvalSymlinks(filepath.Join(realRoot, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", errs.New(errs.NotFound, rel, err)
		}
		return "", "", errs.Wrap(err, rel, errs.Unreadable)
	}

	inside, err := filepath.Rel(realRoot, target)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) || filepath.IsAbs(inside) {
		return "", "", errs.Errorf(errs.OutsideRoot, rel, "resolves to %s", target)
	}
	if inside == "." {
		inside = ""
	}
	return target, filepath.ToSlash(inside), nil
}

// Join appends name to the normalized directory path dir.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// Parent returns the normalized parent of p and false when p is the root.
func Parent(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", true
	}
	return p[:i], true
}

// Base returns the last segment of a normalized path.
func Base(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}
