// Package render turns a requested repository path into a listing, a
// rendered document or a pass-through descriptor.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/cache"
	"github.com/CageChen/syntaxia/internal/classify"
	"github.com/CageChen/syntaxia/internal/errs"
	"github.com/CageChen/syntaxia/internal/fs"
	"github.com/CageChen/syntaxia/internal/highlight"
	"github.com/CageChen/syntaxia/internal/markdown"
	"github.com/CageChen/syntaxia/internal/metrics"
	"github.com/CageChen/syntaxia/internal/sandbox"
	"github.com/CageChen/syntaxia/internal/tree"
)

const (
	mimeText        = "text/plain; charset=utf-8"
	mimeOctetStream = "application/octet-stream"
)

// Options configures a Renderer.
type Options struct {
	Tree     tree.Options
	Classify classify.Options
	Cache    cache.Options
	// MaxHighlightBytes bounds the size of files sent to the highlighter.
	MaxHighlightBytes int64
	// LinkBase prefixes relative links in Markdown documents, followed by the
	// document's directory. Empty leaves links untouched.
	LinkBase string
	Logger   *zap.Logger
}

// Renderer is the rendering pipeline over one file system.
type Renderer struct {
	fsys        fs.FileSystem
	walker      *tree.Walker
	classifier  *classify.Classifier
	parser      *markdown.Parser
	highlighter *highlight.Highlighter
	cache       *cache.Cache[*Rendered]
	linkBase    string
	logger      *zap.Logger
}

// New creates a Renderer reading from fsys.
func New(fsys fs.FileSystem, opts Options) (*Renderer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Tree.Logger == nil {
		opts.Tree.Logger = logger.Named("tree")
	}
	if opts.Classify.Logger == nil {
		opts.Classify.Logger = logger.Named("classify")
	}
	if opts.Cache.Logger == nil {
		opts.Cache.Logger = logger.Named("cache")
	}

	c, err := cache.New[*Rendered](opts.Cache)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		fsys:        fsys,
		walker:      tree.New(fsys, opts.Tree),
		classifier:  classify.New(fsys, opts.Classify),
		parser:      markdown.NewParser(),
		highlighter: highlight.New(opts.MaxHighlightBytes),
		cache:       c,
		linkBase:    strings.TrimSuffix(opts.LinkBase, "/"),
		logger:      logger,
	}, nil
}

// RenderPath renders the entry at requested, a "/"-delimited path relative
// to the root. Path and listing failures are returned as *errs.Error; files
// that cannot be rendered come back as *Raw with a Reason. A caller whose ctx
// ends stops waiting while a started render still completes and is cached.
func (r *Renderer) RenderPath(ctx context.Context, requested string) (Result, error) {
	p, info, err := r.resolve(ctx, requested)
	if err != nil {
		return nil, err
	}

	switch c := r.classifier.Classify(p, info).(type) {
	case *classify.Directory:
		return r.listing(ctx, p)
	case *classify.Markdown:
		return r.cached(ctx, p, info, c.Raw, KindMarkdown, func() (*Rendered, error) {
			return r.renderMarkdown(p, info, c.Raw)
		})
	case *classify.Code:
		return r.cached(ctx, p, info, c.Raw, KindHighlightedCode, func() (*Rendered, error) {
			return r.renderCode(p, info, c.Raw, c.Language)
		})
	case *classify.PlainText:
		src := string(c.Raw)
		return &Rendered{
			Path:    p,
			Kind:    KindRawText,
			HTML:    highlight.Render(src, ""),
			Lines:   highlight.CountLines(src),
			ModTime: info.ModTime,
		}, nil
	case *classify.Binary:
		return r.binary(p, info, c), nil
	case *classify.Unreadable:
		r.logger.Debug("unreadable file", zap.String("path", p), zap.Error(c.Err))
		return &Raw{Path: p, MIMEHint: mimeOctetStream, Size: info.Size, Reason: c.Reason, ModTime: info.ModTime}, nil
	default:
		return nil, fmt.Errorf("unhandled classification %T", c)
	}
}

// resolve validates requested and stats the entry it names. The returned
// path is canonical: symbolic links are followed on backends that have them.
func (r *Renderer) resolve(ctx context.Context, requested string) (string, fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return "", fs.FileInfo{}, err
	}
	p, err := sandbox.Normalize(requested)
	if err != nil {
		return "", fs.FileInfo{}, err
	}
	if r.walker.Hidden(p, false) {
		return "", fs.FileInfo{}, errs.Errorf(errs.NotFound, p, "hidden")
	}
	if res, ok := r.fsys.(fs.Resolver); ok {
		if p, err = res.Resolve(p); err != nil {
			return "", fs.FileInfo{}, err
		}
	}

	info, err := r.fsys.Stat(p)
	if err != nil {
		return "", fs.FileInfo{}, errs.Wrap(err, p, errs.Unreadable)
	}
	if r.walker.Hidden(p, info.IsDir) {
		return "", fs.FileInfo{}, errs.Errorf(errs.NotFound, p, "hidden")
	}
	return p, info, nil
}

func (r *Renderer) listing(ctx context.Context, p string) (*Listing, error) {
	entries, err := r.walker.List(ctx, p)
	if err != nil {
		return nil, err
	}
	l := &Listing{Path: p, Entries: entries}
	if parent, ok := sandbox.Parent(p); ok {
		l.Parent = &parent
	}
	if p != "" && !strings.Contains(p, "/") {
		l.Project = r.project(ctx, p)
	}
	return l, nil
}

// cached renders through the render cache. Timeouts and cancellation are
// returned as errors; any other render failure becomes a *Raw.
func (r *Renderer) cached(
	ctx context.Context, p string, info fs.FileInfo, raw []byte, kind ContentKind, fn func() (*Rendered, error),
) (Result, error) {
	key := cache.Key{Path: p, Fingerprint: cache.Fingerprint(raw)}
	out, err := r.cache.GetOrRender(ctx, key, func() (*Rendered, error) {
		start := time.Now()
		out, err := fn()
		metrics.RecordRender(string(kind), time.Since(start), err)
		return out, err
	})
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errs.KindOf(err) == errs.RenderTimeout {
		return nil, err
	}

	r.logger.Warn("render failed", zap.String("path", p), zap.String("kind", string(kind)), zap.Error(err))
	return &Raw{
		Path:     p,
		Content:  raw,
		MIMEHint: mimeText,
		Size:     info.Size,
		TooLarge: errs.KindOf(err) == errs.TooLarge,
		Reason:   "render failed: " + errs.KindOf(err).String(),
		ModTime:  info.ModTime,
	}, nil
}

func (r *Renderer) renderMarkdown(p string, info fs.FileInfo, raw []byte) (*Rendered, error) {
	res, err := r.parser.Parse(raw, r.linkBaseFor(p))
	if err != nil {
		return nil, errs.New(errs.Unreadable, p, err)
	}
	return &Rendered{
		Path:    p,
		Kind:    KindMarkdown,
		HTML:    res.HTML,
		Title:   res.Title,
		TOC:     res.TOC,
		ModTime: info.ModTime,
	}, nil
}

func (r *Renderer) renderCode(p string, info fs.FileInfo, raw []byte, lang highlight.Language) (*Rendered, error) {
	res, err := r.highlighter.Highlight(raw, lang)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Path:     p,
		Kind:     KindHighlightedCode,
		HTML:     res.HTML,
		Language: res.Language,
		Lines:    res.Lines,
		ModTime:  info.ModTime,
	}, nil
}

// linkBaseFor returns the prefix for relative links in the document at p.
func (r *Renderer) linkBaseFor(p string) string {
	if r.linkBase == "" {
		return ""
	}
	dir, _ := sandbox.Parent(p)
	if dir == "" {
		return r.linkBase
	}
	return r.linkBase + "/" + dir
}

func (r *Renderer) binary(p string, info fs.FileInfo, b *classify.Binary) *Raw {
	out := &Raw{Path: p, MIMEHint: b.MIME, Size: b.Size, TooLarge: b.TooLarge, ModTime: info.ModTime}
	if b.TooLarge {
		out.Reason = fmt.Sprintf("file exceeds the %d byte preview limit", r.classifier.MaxFileSize())
		return out
	}
	data, err := r.fsys.ReadFile(p)
	if err != nil {
		out.Reason = "read failed: " + errs.KindOf(err).String()
		return out
	}
	out.Content = data
	return out
}

// Open returns the bytes of the file at requested and its detected MIME
// type, applying the same path rules as RenderPath.
func (r *Renderer) Open(ctx context.Context, requested string) ([]byte, string, error) {
	p, info, err := r.resolve(ctx, requested)
	if err != nil {
		return nil, "", err
	}
	if info.IsDir {
		return nil, "", errs.Errorf(errs.InvalidPath, p, "is a directory")
	}
	if info.Size > r.classifier.MaxFileSize() {
		return nil, "", errs.Errorf(errs.TooLarge, p, "%d bytes exceeds limit of %d bytes", info.Size, r.classifier.MaxFileSize())
	}
	data, err := r.fsys.ReadFile(p)
	if err != nil {
		return nil, "", errs.Wrap(err, p, errs.Unreadable)
	}
	return data, mimetype.Detect(data).String(), nil
}

// Hidden reports whether p is hidden from listings and requests.
func (r *Renderer) Hidden(p string, isDir bool) bool {
	return r.walker.Hidden(p, isDir)
}

// Invalidate drops cached renders of p and everything below it.
func (r *Renderer) Invalidate(p string) int {
	return r.cache.InvalidatePrefix(p)
}

// CacheStats returns the render cache counters.
func (r *Renderer) CacheStats() cache.Stats {
	return r.cache.Stats()
}
