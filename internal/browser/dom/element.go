// browser/dom/element.go
package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// HiddenMarker is set by the live snapshot serializer on elements whose
// bounding box is empty.
const HiddenMarker = "data-autofill-hidden"

// Element is a handle on an element node of a Document.
type Element struct {
	doc *Document
	n   *html.Node
}

// Option describes one <option> of a select.
type Option struct {
	Index    int
	Value    string
	Text     string
	Selected bool
	Disabled bool
	// HasValue is false when the value falls back to the option text.
	HasValue bool
}

// Placeholder reports an option with an explicit empty value.
func (o Option) Placeholder() bool {
	return o.HasValue && o.Value == ""
}

// Node exposes the underlying node.
func (e *Element) Node() *html.Node { return e.n }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Same reports whether both handles point at the same node.
func (e *Element) Same(other *Element) bool {
	return e != nil && other != nil && e.n == other.n
}

// Tag is the lower-case tag name.
func (e *Element) Tag() string {
	return strings.ToLower(e.n.Data)
}

// Attr returns the attribute value, or "" when absent.
func (e *Element) Attr(key string) string {
	return htmlquery.SelectAttr(e.n, key)
}

// HasAttr reports whether the attribute is present, even with an empty value.
func (e *Element) HasAttr(key string) bool {
	return hasAttr(e.n, key)
}

// ID is the id attribute.
func (e *Element) ID() string {
	return e.Attr("id")
}

// Type is the lower-case type attribute, trimmed.
func (e *Element) Type() string {
	return strings.ToLower(strings.TrimSpace(e.Attr("type")))
}

// Parent returns the parent element, or nil at the top of the tree.
func (e *Element) Parent() *Element {
	for p := e.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.doc.wrap(p)
		}
	}
	return nil
}

// Closest returns the element itself or its nearest ancestor with one of the
// given tags, or nil.
func (e *Element) Closest(tags ...string) *Element {
	for n := e.n; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if strings.EqualFold(n.Data, t) {
				return e.doc.wrap(n)
			}
		}
	}
	return nil
}

// ClosestMatch is Closest with a predicate.
func (e *Element) ClosestMatch(match func(*Element) bool) *Element {
	for n := e.n; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if el := e.doc.wrap(n); match(el) {
			return el
		}
	}
	return nil
}

// NextElementSiblings returns the element siblings that follow e.
func (e *Element) NextElementSiblings() []*Element {
	var out []*Element
	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			out = append(out, e.doc.wrap(s))
		}
	}
	return out
}

// Find evaluates expr relative to e. Results are in document order.
func (e *Element) Find(expr string) []*Element {
	els, err := e.doc.query(e.n, expr)
	if err != nil {
		return nil
	}
	return els
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.n; n != nil; n = n.Parent {
		if n == e.n {
			return true
		}
	}
	return false
}

// XPath returns a unique XPath for e, usable against the live page.
func (e *Element) XPath() string {
	return GenerateUniqueXPath(e.n)
}

// Visible approximates a non-empty bounding box without layout. The element and
// every ancestor must be free of the hiding attributes and inline styles.
func (e *Element) Visible() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hiddenSelf(n) {
			return false
		}
	}
	return true
}

// Disabled reports the disabled attribute, aria-disabled="true", or a
// disabled ancestor fieldset.
func (e *Element) Disabled() bool {
	if e.HasAttr("disabled") || strings.EqualFold(e.Attr("aria-disabled"), "true") {
		return true
	}
	for n := e.n.Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "fieldset") && hasAttr(n, "disabled") {
			return true
		}
	}
	return false
}

// Value is the current control value as the page would report it.
func (e *Element) Value() string {
	switch e.Tag() {
	case "textarea":
		return textContent(e.n)
	case "select":
		opts := e.Options()
		if len(opts) == 0 {
			return ""
		}
		selected := -1
		for i, o := range opts {
			if o.Selected {
				selected = i
			}
		}
		if selected < 0 {
			selected = 0
		}
		return opts[selected].Value
	case "input":
		if !e.HasAttr("value") {
			switch e.Type() {
			case "checkbox", "radio":
				return "on"
			}
		}
		return e.Attr("value")
	default:
		return e.Attr("value")
	}
}

// Checked reports the checked state of a radio or checkbox.
func (e *Element) Checked() bool {
	return e.HasAttr("checked")
}

// Options lists the options of a select, including those inside optgroups.
func (e *Element) Options() []Option {
	if e.Tag() != "select" {
		return nil
	}
	var out []Option
	for _, n := range e.optionNodes() {
		text := collapse(textContent(n))
		value, hasValue := attr(n, "value")
		if !hasValue {
			value = text
		}
		out = append(out, Option{
			Index:    len(out),
			Value:    value,
			Text:     text,
			Selected: hasAttr(n, "selected"),
			Disabled: hasAttr(n, "disabled"),
			HasValue: hasValue,
		})
	}
	return out
}

// SelectedIndex is the index the page would report, or -1 for an empty select.
func (e *Element) SelectedIndex() int {
	opts := e.Options()
	if len(opts) == 0 {
		return -1
	}
	idx := 0
	for i, o := range opts {
		if o.Selected {
			idx = i
		}
	}
	return idx
}

func (e *Element) optionNodes() []*html.Node {
	var out []*html.Node
	walk(e.n, func(n *html.Node) bool {
		if n != e.n && n.Type == html.ElementNode && strings.EqualFold(n.Data, "option") {
			out = append(out, n)
			return true
		}
		return true
	})
	return out
}

func hiddenSelf(n *html.Node) bool {
	switch strings.ToLower(n.Data) {
	case "head", "script", "style", "template", "noscript":
		return true
	}
	if hasAttr(n, "hidden") || hasAttr(n, HiddenMarker) {
		return true
	}
	if strings.EqualFold(n.Data, "input") && strings.EqualFold(strings.TrimSpace(htmlquery.SelectAttr(n, "type")), "hidden") {
		return true
	}
	if strings.EqualFold(htmlquery.SelectAttr(n, "aria-hidden"), "true") {
		return true
	}
	style, ok := attr(n, "style")
	if !ok {
		return false
	}
	for _, decl := range strings.Split(style, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important")))
		if (prop == "display" && val == "none") || (prop == "visibility" && val == "hidden") {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
