package highlight

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// fragments are pieces of source text chosen to exercise every scanner
// branch when concatenated in random order.
var fragments = []string{
	"fn", "func", "def", "SELECT", "x", "_y", "größe", "世界", "$v", "@a", ":k",
	" ", "\t", "\n", "\r\n",
	`"`, `'`, "`", `\`, `"""`, `'''`,
	"/", "*", "/*", "*/", "//", "#", "--", "{-", "-}", "(*", "*)", "#|", "|#",
	"<!--", "-->", "--[[", "]]", "=begin", "=end", "<#", "#>",
	"0", "42", "0x1F", "1.5", "1e-5", ".",
	"<", ">", "&", ";", "(", ")", "{", "}", "%", "?", "!",
}

func genSource() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(fragments)-1)).Map(func(idx []int) string {
		var b strings.Builder
		for _, i := range idx {
			b.WriteString(fragments[i])
		}
		return b.String()
	})
}

func genLanguage() gopter.Gen {
	langs := Supported()
	return gen.IntRange(0, len(langs)-1).Map(func(i int) Language {
		return langs[i]
	})
}

func TestHighlightProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("literal text round-trips to the source", prop.ForAll(
		func(src string, lang Language) bool {
			res, err := New(0).Highlight([]byte(src), lang)
			if err != nil {
				return false
			}
			return plainText(res.HTML) == src
		},
		genSource(), genLanguage(),
	))

	properties.Property("a UTF-8 byte order mark round-trips too", prop.ForAll(
		func(src string, lang Language) bool {
			raw := "\uFEFF" + src
			res, err := New(0).Highlight([]byte(raw), lang)
			if err != nil {
				return false
			}
			return plainText(res.HTML) == raw
		},
		genSource(), genLanguage(),
	))

	properties.Property("tokens cover the source without gaps", prop.ForAll(
		func(src string, lang Language) bool {
			toks := Tokenize(src, lang)
			for i, tok := range toks {
				if tok.Text == "" {
					return false
				}
				if i > 0 && toks[i-1].Class == tok.Class {
					return false
				}
			}
			return join(toks) == src
		},
		genSource(), genLanguage(),
	))

	properties.Property("highlighting is deterministic", prop.ForAll(
		func(src string, lang Language) bool {
			return Render(src, lang) == Render(src, lang)
		},
		genSource(), genLanguage(),
	))

	properties.Property("no markup escapes from token text", prop.ForAll(
		func(src string, lang Language) bool {
			out := Render(src, lang)
			stripped := tagRe.ReplaceAllString(out, "")
			return !strings.ContainsAny(stripped, "<>\"'")
		},
		genSource(), genLanguage(),
	))

	properties.TestingRun(t)
}
