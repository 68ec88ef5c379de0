// Package markdown renders Markdown documents to sanitized HTML with GFM
// extensions, highlighted code fences and rewritten relative links.
package markdown

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/microcosm-cc/bluemonday"

	"github.com/CageChen/syntaxia/internal/highlight"
)

// TOCItem represents a table of contents entry
type TOCItem struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

// ParseResult contains the parsed markdown result
type ParseResult struct {
	HTML  string    `json:"html"`
	TOC   []TOCItem `json:"toc"`
	Title string    `json:"title"`
}

// Parser handles markdown parsing with goldmark
type Parser struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewParser creates a new markdown parser with extensions
func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Linkify,
			extension.NewTable(
				extension.WithTableCellAlignMethod(extension.TableCellAlignAttribute),
			),
			extension.Strikethrough,
			extension.TaskList,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&linkRewriter{}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			// raw HTML is kept here and filtered by the sanitizer policy
			html.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(&codeBlockRenderer{}, 100),
			),
		),
	)

	return &Parser{md: md, policy: newPolicy()}
}

// Parse converts markdown source to sanitized HTML and extracts metadata.
// Relative link and image destinations are prefixed with base when it is not
// empty.
func (p *Parser) Parse(source []byte, base string) (*ParseResult, error) {
	pc := parser.NewContext()
	pc.Set(linkBaseKey, base)
	doc := p.md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, err
	}

	toc := extractTOC(doc, source)
	title := ""
	for _, item := range toc {
		if item.Level == 1 {
			title = item.Title
			break
		}
	}
	if title == "" && len(toc) > 0 {
		title = toc[0].Title
	}

	return &ParseResult{
		HTML:  string(p.policy.SanitizeBytes(buf.Bytes())),
		TOC:   toc,
		Title: title,
	}, nil
}

// extractTOC walks the AST to extract headings
func extractTOC(doc ast.Node, source []byte) []TOCItem {
	var toc []TOCItem
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if heading, ok := n.(*ast.Heading); ok {
			title := extractText(heading, source)
			anchor := generateAnchor(title)
			if id, ok := heading.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					anchor = string(b)
				}
			}
			toc = append(toc, TOCItem{
				Level:  heading.Level,
				Title:  title,
				Anchor: anchor,
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil
	}

	return toc
}

// extractText collects the text content of a node and its descendants
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tt, ok := cc.(*ast.Text); ok {
					buf.Write(tt.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

var (
	anchorInvalid = regexp.MustCompile(`[^a-z0-9\-\p{Han}\p{Hiragana}\p{Katakana}]`)
	anchorDashes  = regexp.MustCompile(`-+`)
)

// generateAnchor creates a URL-safe anchor from text
func generateAnchor(text string) string {
	anchor := strings.ToLower(text)
	anchor = strings.ReplaceAll(anchor, " ", "-")
	anchor = anchorInvalid.ReplaceAllString(anchor, "")
	anchor = anchorDashes.ReplaceAllString(anchor, "-")
	return strings.Trim(anchor, "-")
}

var linkBaseKey = parser.NewContextKey()

// linkRewriter prefixes relative link and image destinations with the link
// base stored in the parser context.
type linkRewriter struct{}

func (r *linkRewriter) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	base, _ := pc.Get(linkBaseKey).(string)
	if base == "" {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			v.Destination = rebase(base, v.Destination)
		case *ast.Image:
			v.Destination = rebase(base, v.Destination)
		}
		return ast.WalkContinue, nil
	})
}

func rebase(base string, dest []byte) []byte {
	d := string(dest)
	if d == "" || d[0] == '#' || d[0] == '/' || d[0] == '?' {
		return dest
	}
	u, err := url.Parse(d)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return dest
	}
	return []byte(strings.TrimSuffix(base, "/") + "/" + d)
}

// codeBlockRenderer renders fenced code blocks through the syntax highlighter.
type codeBlockRenderer struct{}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(
	w util.BufWriter, source []byte, node ast.Node, entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lang, _ := highlight.Lookup(fenceLanguage(n.Language(source)))
	_, _ = w.WriteString(highlight.Render(code.String(), lang))
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

// fenceLanguage extracts the language name from an info string such as
// "rust,ignore" or "js {.line-numbers}".
func fenceLanguage(info []byte) string {
	s := string(info)
	if i := strings.IndexAny(s, ",{ "); i >= 0 {
		s = s[:i]
	}
	return s
}
