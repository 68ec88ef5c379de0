package highlight

import (
	"bytes"
	"errors"
	"html"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/syntaxia/internal/errs"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// plainText extracts the literal text of highlighted output.
func plainText(out string) string {
	return html.UnescapeString(tagRe.ReplaceAllString(out, ""))
}

func TestHighlightKeywordSpan(t *testing.T) {
	h := New(0)
	res, err := h.Highlight([]byte("fn main() {}\n"), Rust)
	require.NoError(t, err)

	assert.Contains(t, res.HTML, `<span class="tok-keyword">fn</span>`)
	assert.Contains(t, res.HTML, `<code class="language-rust">`)
	assert.Equal(t, Rust, res.Language)
	assert.Equal(t, 1, res.Lines)
	assert.Equal(t, "fn main() {}\n", plainText(res.HTML))
}

func TestHighlightEscapesText(t *testing.T) {
	src := "s := \"<script>alert('x')</script>\" // a && b\n"
	res, err := New(0).Highlight([]byte(src), Go)
	require.NoError(t, err)

	assert.NotContains(t, res.HTML, "<script")
	assert.Contains(t, res.HTML, "&lt;script&gt;")
	assert.Contains(t, res.HTML, `<span class="tok-comment">// a &amp;&amp; b</span>`)
	assert.Equal(t, src, plainText(res.HTML))
}

func TestHighlightUnsupportedLanguage(t *testing.T) {
	src := "IDENTIFICATION DIVISION.\n<b>"
	res, err := New(0).Highlight([]byte(src), Language("cobol"))
	require.NoError(t, err)

	assert.NotContains(t, res.HTML, "<span")
	assert.Equal(t, `<pre class="highlight"><code>IDENTIFICATION DIVISION.`+"\n"+`&lt;b&gt;</code></pre>`, res.HTML)
	assert.Equal(t, Language(""), res.Language)
	assert.Equal(t, 2, res.Lines)
}

func TestHighlightDegenerateInputs(t *testing.T) {
	h := New(0)

	res, err := h.Highlight(nil, Go)
	require.NoError(t, err)
	assert.Equal(t, `<pre class="highlight"><code class="language-go"></code></pre>`, res.HTML)
	assert.Equal(t, 0, res.Lines)

	res, err = h.Highlight([]byte("package main"), Go)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Lines)
	assert.Equal(t, "package main", plainText(res.HTML))

	long := strings.Repeat(`x = "a\"b" + 'c' /* d */ `, 40000)
	start := time.Now()
	res, err = h.Highlight([]byte(long), JavaScript)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, long, plainText(res.HTML))
	assert.Equal(t, 1, res.Lines)
}

func TestHighlightUnterminatedConstructs(t *testing.T) {
	tests := []struct {
		lang Language
		src  string
	}{
		{Go, "/* never closed"},
		{Go, "`raw"},
		{Python, `"""doc`},
		{Rust, "/* /* nested */"},
		{Rust, "'"},
		{C, `"abc\`},
		{Haskell, "{- {- -}"},
		{HTML, "<!-- open"},
		{Lua, "--[[ block"},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang)+"/"+tt.src, func(t *testing.T) {
			res, err := New(0).Highlight([]byte(tt.src), tt.lang)
			require.NoError(t, err)
			assert.Equal(t, tt.src, plainText(res.HTML))
		})
	}
}

func TestHighlightPathologicalRepetition(t *testing.T) {
	inputs := map[Language]string{
		Rust:   strings.Repeat("'", 200000),
		C:      strings.Repeat("/*", 100000),
		Python: strings.Repeat(`"""`, 100001),
		Shell:  strings.Repeat("\\", 200000),
		Zig:    strings.Repeat("1e-", 100000),
	}
	for lang, src := range inputs {
		start := time.Now()
		toks := Tokenize(src, lang)
		assert.Less(t, time.Since(start), 5*time.Second, string(lang))
		assert.Equal(t, src, join(toks), string(lang))
	}
}

func TestHighlightTooLarge(t *testing.T) {
	h := New(4)
	_, err := h.Highlight([]byte("12345"), Go)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.TooLarge))

	_, err = h.Highlight([]byte("1234"), Go)
	assert.NoError(t, err)
}

func TestDecode(t *testing.T) {
	_, err := Decode([]byte{'a', 0xff, 0xfe, 'b'})
	assert.True(t, errors.Is(err, errs.Unreadable))

	s, err := Decode([]byte("\xef\xbb\xbfhello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = Decode([]byte{0xff, 0xfe, 'h', 0, 'i', 0})
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	s, err = Decode([]byte("plain é"))
	require.NoError(t, err)
	assert.Equal(t, "plain é", s)
}

func TestTokenizeClasses(t *testing.T) {
	tests := []struct {
		name string
		lang Language
		src  string
		want []Token
	}{
		{
			name: "go declaration",
			lang: Go,
			src:  `var x = 42 // answer`,
			want: []Token{
				{Keyword, "var"}, {Plain, " "}, {Identifier, "x"}, {Plain, " "},
				{Punctuation, "="}, {Plain, " "}, {Number, "42"}, {Plain, " "},
				{Comment, "// answer"},
			},
		},
		{
			name: "rust lifetime is not a string",
			lang: Rust,
			src:  `&'a str`,
			want: []Token{{Punctuation, "&'"}, {Identifier, "a"}, {Plain, " "}, {Identifier, "str"}},
		},
		{
			name: "rust char literal",
			lang: Rust,
			src:  `'\n'`,
			want: []Token{{String, `'\n'`}},
		},
		{
			name: "python triple quoted string",
			lang: Python,
			src:  "\"\"\"a\n'b'\"\"\"",
			want: []Token{{String, "\"\"\"a\n'b'\"\"\""}},
		},
		{
			name: "shell hash inside word",
			lang: Shell,
			src:  "echo a#b # c",
			want: []Token{
				{Keyword, "echo"}, {Plain, " "}, {Identifier, "a"}, {Punctuation, "#"},
				{Identifier, "b"}, {Plain, " "}, {Comment, "# c"},
			},
		},
		{
			name: "sql keywords fold case",
			lang: SQL,
			src:  "SELECT id",
			want: []Token{{Keyword, "SELECT"}, {Plain, " "}, {Identifier, "id"}},
		},
		{
			name: "utf-8 identifier stays whole",
			lang: Go,
			src:  "größe",
			want: []Token{{Identifier, "größe"}},
		},
		{
			name: "float with exponent",
			lang: C,
			src:  "1.5e-3",
			want: []Token{{Number, "1.5e-3"}},
		},
		{
			name: "nested block comment",
			lang: Rust,
			src:  "/* a /* b */ c */x",
			want: []Token{{Comment, "/* a /* b */ c */"}, {Identifier, "x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.src, tt.lang))
		})
	}
}

func TestTokenizeUnsupported(t *testing.T) {
	assert.Nil(t, Tokenize("", "cobol"))
	assert.Equal(t, []Token{{Plain, "a b"}}, Tokenize("a b", "cobol"))
}

func TestEveryLanguageHasLexer(t *testing.T) {
	for _, lang := range Supported() {
		def := languages[lang]
		require.NotNil(t, def.lex, string(lang))
		assert.NotEmpty(t, def.lex.keywords, string(lang))
		assert.NotEmpty(t, def.aliases, string(lang))
	}
	assert.GreaterOrEqual(t, len(Supported()), 30)
}

func TestWriteCSS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSS(&buf, "monokai"))
	css := buf.String()
	assert.Contains(t, css, "/* theme: monokai */")
	assert.Contains(t, css, ".highlight .tok-keyword { color: #66d9ef")
	assert.Contains(t, css, ".highlight { ")

	buf.Reset()
	require.NoError(t, WriteCSS(&buf, "no-such-theme"))
	assert.Contains(t, buf.String(), ".highlight {")

	assert.True(t, HasStyle(DefaultStyle))
	assert.False(t, HasStyle("no-such-theme"))
	assert.Contains(t, StyleNames(), "monokai")
}

func join(toks []Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Text)
	}
	return b.String()
}

func TestHighlightKeepsByteOrderMark(t *testing.T) {
	raw := []byte("\xEF\xBB\xBFfn main() {}\n")
	res, err := New(0).Highlight(raw, Rust)
	require.NoError(t, err)

	assert.Equal(t, string(raw), plainText(res.HTML))
	assert.Contains(t, res.HTML, "<code class=\"language-rust\">\uFEFF<span class=\"tok-keyword\">fn</span>")
	assert.Equal(t, 1, res.Lines)

	toks := Tokenize("\uFEFFfn", Rust)
	require.Len(t, toks, 2)
	assert.Equal(t, Token{Class: Plain, Text: "\uFEFF"}, toks[0])
}
