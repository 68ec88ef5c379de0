package highlight

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma theme used when none is configured.
const DefaultStyle = "github"

var classTokenTypes = []struct {
	class TokenClass
	ttype chroma.TokenType
}{
	{Keyword, chroma.Keyword},
	{String, chroma.LiteralString},
	{Comment, chroma.Comment},
	{Number, chroma.LiteralNumber},
	{Identifier, chroma.Name},
	{Punctuation, chroma.Punctuation},
}

// StyleNames lists the available themes.
func StyleNames() []string {
	return styles.Names()
}

// HasStyle reports whether name is a known theme.
func HasStyle(name string) bool {
	_, ok := styles.Registry[strings.ToLower(name)]
	return ok
}

// WriteCSS writes the stylesheet for the tok-* classes using the colours of
// the chroma theme named style. Unknown themes use chroma's fallback.
func WriteCSS(w io.Writer, style string) error {
	s := styles.Get(style)
	if _, err := fmt.Fprintf(w, "/* theme: %s */\n", s.Name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, ".highlight { %s }\n", declarations(s.Get(chroma.Background), true)); err != nil {
		return err
	}
	for _, ct := range classTokenTypes {
		decl := declarations(s.Get(ct.ttype), false)
		if decl == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, ".highlight .tok-%s { %s }\n", ct.class, decl); err != nil {
			return err
		}
	}
	return nil
}

func declarations(e chroma.StyleEntry, background bool) string {
	var parts []string
	if e.Colour.IsSet() {
		parts = append(parts, "color: "+e.Colour.String())
	}
	if background && e.Background.IsSet() {
		parts = append(parts, "background-color: "+e.Background.String())
	}
	if e.Bold == chroma.Yes {
		parts = append(parts, "font-weight: bold")
	}
	if e.Italic == chroma.Yes {
		parts = append(parts, "font-style: italic")
	}
	if e.Underline == chroma.Yes {
		parts = append(parts, "text-decoration: underline")
	}
	return strings.Join(parts, "; ")
}
