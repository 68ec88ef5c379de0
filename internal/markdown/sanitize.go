package markdown

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	safeClass   = regexp.MustCompile(`^(highlight|language-[a-z0-9+#-]+|tok-[a-z]+|task-list-item|footnote-ref|footnote-backref|footnotes)$`)
	footnoteRef = regexp.MustCompile(`^doc-(noteref|backlink|endnotes)$`)
	cellAlign   = regexp.MustCompile(`^(left|center|right)$`)
	checkbox    = regexp.MustCompile(`^checkbox$`)
)

// newPolicy builds the allow-list applied to rendered HTML. It starts from
// bluemonday's user generated content policy, which drops <script>, <style>,
// event handler attributes and non http(s)/mailto URLs, and admits the markup
// the renderer itself produces.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowAttrs("class").Matching(safeClass).OnElements("pre", "code", "span", "div", "a", "li", "ul")
	p.AllowAttrs("role").Matching(footnoteRef).OnElements("a", "div", "section")
	p.AllowAttrs("align").Matching(cellAlign).OnElements("th", "td")
	p.AllowAttrs("type").Matching(checkbox).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	p.AllowElements("details", "summary", "sup", "section")
	p.RequireNoReferrerOnFullyQualifiedLinks(true)

	return p
}
