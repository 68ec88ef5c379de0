// Package classify decides how a repository entry is presented.
package classify

import (
	"bytes"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/errs"
	"github.com/CageChen/syntaxia/internal/fs"
	"github.com/CageChen/syntaxia/internal/highlight"
)

const (
	// DefaultMaxFileSize is the size above which files are not read.
	DefaultMaxFileSize = 10 << 20
	// SampleSize is how many leading bytes are inspected for binary content.
	SampleSize = 8 << 10
	// maxControlRatio is the share of control bytes above which a sample is
	// considered binary.
	maxControlRatio = 0.30

	mimeOctetStream = "application/octet-stream"
)

// DefaultMarkdownExtensions are the extensions rendered as Markdown.
var DefaultMarkdownExtensions = []string{".md", ".markdown"}

// Classified is the result of classifying one entry. It is one of
// *Directory, *Markdown, *Code, *PlainText, *Binary or *Unreadable.
type Classified interface {
	classified()
}

// Directory is a directory entry.
type Directory struct{}

// Markdown is a Markdown document; Raw is decoded UTF-8.
type Markdown struct {
	Raw []byte
}

// Code is a source file in a supported language; Raw is decoded UTF-8.
type Code struct {
	Raw      []byte
	Language highlight.Language
}

// PlainText is a text file with no known language; Raw is decoded UTF-8.
type PlainText struct {
	Raw []byte
}

// Binary is a file that cannot be previewed. TooLarge is set when the file
// was not read because it exceeds the size limit.
type Binary struct {
	Size     int64
	MIME     string
	TooLarge bool
}

// Unreadable is a file whose contents could not be read or decoded.
type Unreadable struct {
	Reason string
	Err    error
}

func (*Directory) classified()  {}
func (*Markdown) classified()   {}
func (*Code) classified()       {}
func (*PlainText) classified()  {}
func (*Binary) classified()     {}
func (*Unreadable) classified() {}

// Options configures a Classifier.
type Options struct {
	MaxFileSize        int64
	MarkdownExtensions []string
	Logger             *zap.Logger
}

// Classifier classifies entries of one file system.
type Classifier struct {
	fsys        fs.FileSystem
	maxFileSize int64
	mdExt       map[string]bool
	logger      *zap.Logger
}

// New creates a Classifier reading from fsys.
func New(fsys fs.FileSystem, opts Options) *Classifier {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if len(opts.MarkdownExtensions) == 0 {
		opts.MarkdownExtensions = DefaultMarkdownExtensions
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	md := make(map[string]bool, len(opts.MarkdownExtensions))
	for _, ext := range opts.MarkdownExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		md[ext] = true
	}
	return &Classifier{fsys: fsys, maxFileSize: opts.MaxFileSize, mdExt: md, logger: opts.Logger}
}

// MaxFileSize returns the size above which files are not read.
func (c *Classifier) MaxFileSize() int64 {
	return c.maxFileSize
}

// IsMarkdown reports whether name has a Markdown extension.
func (c *Classifier) IsMarkdown(name string) bool {
	return c.mdExt[strings.ToLower(path.Ext(name))]
}

// Classify decides the presentation of the entry at p described by info.
// It never returns an error: failures become *Unreadable.
func (c *Classifier) Classify(p string, info fs.FileInfo) Classified {
	if info.IsDir {
		return &Directory{}
	}
	if info.Size > c.maxFileSize {
		return &Binary{Size: info.Size, MIME: mimeOctetStream, TooLarge: true}
	}

	data, err := c.fsys.ReadFile(p)
	if err != nil {
		c.logger.Debug("read failed", zap.String("path", p), zap.Error(err))
		return &Unreadable{Reason: "read failed: " + errs.KindOf(err).String(), Err: errs.New(errs.Unreadable, p, err)}
	}
	if int64(len(data)) > c.maxFileSize {
		return &Binary{Size: int64(len(data)), MIME: mimeOctetStream, TooLarge: true}
	}

	name := path.Base(p)
	if c.IsMarkdown(name) {
		return c.text(p, data, func(raw []byte) Classified { return &Markdown{Raw: raw} })
	}

	sample := data
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	if lang, ok := highlight.Detect(name, sample); ok {
		return c.text(p, data, func(raw []byte) Classified { return &Code{Raw: raw, Language: lang} })
	}
	if LooksBinary(sample) {
		return &Binary{Size: int64(len(data)), MIME: mimetype.Detect(sample).String()}
	}
	return c.text(p, data, func(raw []byte) Classified { return &PlainText{Raw: raw} })
}

func (c *Classifier) text(p string, data []byte, wrap func([]byte) Classified) Classified {
	s, err := highlight.Decode(data)
	if err != nil {
		c.logger.Debug("undecodable text", zap.String("path", p), zap.Error(err))
		return &Unreadable{Reason: "content is not valid UTF-8 text", Err: errs.Wrap(err, p, errs.Unreadable)}
	}
	return wrap([]byte(s))
}

var (
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16LE = []byte{0xff, 0xfe}
	bomUTF16BE = []byte{0xfe, 0xff}
)

// LooksBinary reports whether sample is binary data: it holds a NUL byte or
// too many control characters. Samples starting with a byte order mark are
// text.
func LooksBinary(sample []byte) bool {
	if bytes.HasPrefix(sample, bomUTF8) || bytes.HasPrefix(sample, bomUTF16LE) || bytes.HasPrefix(sample, bomUTF16BE) {
		return false
	}
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	control := 0
	for _, b := range sample {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' && b != '\b' && b != 0x1b {
			control++
		} else if b == 0x7f {
			control++
		}
	}
	return float64(control) > float64(len(sample))*maxControlRatio
}
