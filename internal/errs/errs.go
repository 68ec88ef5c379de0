// Package errs defines the error taxonomy shared by the rendering pipeline.
package errs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a pipeline failure.
type Kind int

// Failure kinds. Unknown is the zero value and marks errors from outside the taxonomy.
const (
	Unknown Kind = iota
	InvalidPath
	OutsideRoot
	NotFound
	NotADirectory
	PermissionDenied
	Unreadable
	TooLarge
	RenderTimeout
	UnsupportedLanguage
)

var kindNames = map[Kind]string{
	Unknown:             "unknown",
	InvalidPath:         "invalid_path",
	OutsideRoot:         "outside_root",
	NotFound:            "not_found",
	NotADirectory:       "not_a_directory",
	PermissionDenied:    "permission_denied",
	Unreadable:          "unreadable",
	TooLarge:            "too_large",
	RenderTimeout:       "render_timeout",
	UnsupportedLanguage: "unsupported_language",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error implements error so a bare Kind can be used as an errors.Is target:
//
//	errors.Is(err, errs.NotFound)
func (k Kind) Error() string {
	return k.String()
}

// Error is a pipeline error tagged with a Kind.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind, or an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// New returns an *Error of the given kind.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Errorf returns an *Error whose cause is built with fmt.Errorf.
func Errorf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// KindOf maps err to a Kind. Storage sentinels from io/fs are recognised so
// backends may return plain os errors.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrInvalid):
		return InvalidPath
	case errors.Is(err, context.DeadlineExceeded):
		return RenderTimeout
	}
	return Unknown
}

// Wrap tags a storage error with its Kind, falling back to def when the
// error carries no recognisable kind. A nil err returns nil.
func Wrap(err error, path string, def Kind) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := KindOf(err)
	if kind == Unknown {
		kind = def
	}
	return &Error{Kind: kind, Path: path, Err: err}
}
