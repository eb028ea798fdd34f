// browser/dom/text.go
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags break words in Text. Inline tags join their text to the neighbours,
// so "Given name<span>(s)</span>" reads as one word.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "legend": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "section": true,
	"table": true, "tbody": true, "td": true, "tfoot": true, "th": true, "thead": true,
	"tr": true, "ul": true,
}

// opaqueTags never contribute text. Form controls are opaque so a question
// that wraps its own select does not absorb the option labels.
var opaqueTags = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true, "head": true,
	"select": true, "option": true, "optgroup": true, "datalist": true, "textarea": true,
}

// Text approximates innerText: visible text with whitespace collapsed. Hidden
// descendants, scripts and form-control contents are skipped.
func (e *Element) Text() string {
	var sb strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		appendText(&sb, c)
	}
	return collapse(sb.String())
}

func appendText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	tag := strings.ToLower(n.Data)
	if opaqueTags[tag] || hiddenSelf(n) {
		return
	}
	block := blockTags[tag]
	if block {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(sb, c)
	}
	if block {
		sb.WriteByte(' ')
	}
}

// textContent concatenates every descendant text node, like DOM textContent.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
