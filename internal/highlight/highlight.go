// Package highlight converts source code into HTML with one styling class per
// token. Tokenization is a single linear pass driven by small per-language
// lexical tables; chroma is used only to resolve language names and to derive
// the stylesheet from its themes.
package highlight

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/CageChen/syntaxia/internal/errs"
)

// DefaultMaxBytes is the highlight budget used when none is configured.
const DefaultMaxBytes = 2 << 20

// Result is highlighted code ready for embedding.
type Result struct {
	HTML string
	// Language is empty when the text was rendered without token spans.
	Language Language
	Lines    int
}

// Highlighter renders source files within a byte budget.
type Highlighter struct {
	maxBytes int64
}

// New creates a Highlighter that refuses inputs larger than maxBytes.
// A non-positive maxBytes selects DefaultMaxBytes.
func New(maxBytes int64) *Highlighter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Highlighter{maxBytes: maxBytes}
}

// MaxBytes returns the highlight budget.
func (h *Highlighter) MaxBytes() int64 {
	return h.maxBytes
}

// Highlight decodes raw and renders it as lang. An unsupported language falls
// back to escaped plain text. A UTF-8 byte order mark is kept as a leading
// plain token, so for UTF-8 input the literal text of the output is exactly
// raw; UTF-16 input is transcoded. It fails with
// errs.TooLarge above the byte budget and with errs.Unreadable when raw is not
// decodable text.
func (h *Highlighter) Highlight(raw []byte, lang Language) (*Result, error) {
	if int64(len(raw)) > h.maxBytes {
		return nil, errs.Errorf(errs.TooLarge, "", "%d bytes exceeds highlight budget of %d bytes", len(raw), h.maxBytes)
	}
	src, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	text := src
	if bytes.HasPrefix(raw, []byte(bom)) {
		text = bom + src
	}
	if !lang.IsSupported() {
		lang = ""
	}
	return &Result{
		HTML:     Render(text, lang),
		Language: lang,
		Lines:    CountLines(src),
	}, nil
}

const bom = "\uFEFF"

// Decode converts raw file bytes to text. A UTF-8 or UTF-16 byte order mark
// selects the encoding and is dropped; otherwise raw must be valid UTF-8.
func Decode(raw []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return "", errs.New(errs.Unreadable, "", err)
	}
	if !utf8.Valid(out) {
		return "", errs.Errorf(errs.Unreadable, "", "content is not valid UTF-8")
	}
	return string(out), nil
}

var escaper = strings.NewReplacer(
	`&`, "&amp;",
	`'`, "&#39;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&#34;",
)

// Render writes src as a <pre><code> block. Tokens other than plain ones are
// wrapped in <span class="tok-CLASS">; all text is escaped. With an empty or
// unsupported lang the block holds only escaped text.
func Render(src string, lang Language) string {
	var b strings.Builder
	b.Grow(len(src) + len(src)/2 + 64)
	b.WriteString(`<pre class="highlight"><code`)
	if lang.IsSupported() {
		b.WriteString(` class="language-`)
		b.WriteString(string(lang))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	for _, tok := range Tokenize(src, lang) {
		if tok.Class == Plain {
			escaper.WriteString(&b, tok.Text)
			continue
		}
		b.WriteString(`<span class="tok-`)
		b.WriteString(tok.Class.String())
		b.WriteString(`">`)
		escaper.WriteString(&b, tok.Text)
		b.WriteString("</span>")
	}
	b.WriteString("</code></pre>")
	return b.String()
}

// CountLines counts lines the way editors number them: a final line without
// a trailing newline still counts.
func CountLines(src string) int {
	if src == "" {
		return 0
	}
	n := strings.Count(src, "\n")
	if !strings.HasSuffix(src, "\n") {
		n++
	}
	return n
}
