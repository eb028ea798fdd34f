package autofill

import (
	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
)

const controlXPath = ".//select | .//input | .//textarea"

type controlPredicate func(*dom.Element) bool

func isSelect(el *dom.Element) bool {
	return el.Tag() == "select" && !el.Disabled()
}

// isTextLike accepts text-entry inputs and textareas.
func isTextLike(el *dom.Element) bool {
	if el.Disabled() {
		return false
	}
	switch el.Tag() {
	case "textarea":
		return true
	case "input":
		switch el.Type() {
		case "", "text", "email", "tel", "date":
			return true
		}
	}
	return false
}

func isChoice(el *dom.Element) bool {
	if el.Tag() != "input" || el.Disabled() {
		return false
	}
	t := el.Type()
	return t == "radio" || t == "checkbox"
}

// scopes lists where the control for q may live, nearest first:
// the label[for] target, q itself, its following siblings, its parent, and the
// closest div/fieldset/section.
func scopes(q *dom.Element) [][]*dom.Element {
	var out [][]*dom.Element

	var targets []*dom.Element
	labels := q.Find(".//label[@for]")
	if q.Tag() == "label" && q.HasAttr("for") {
		labels = append([]*dom.Element{q}, labels...)
	}
	for _, l := range labels {
		if t := q.Document().ByID(l.Attr("for")); t != nil {
			targets = append(targets, t)
		}
	}
	out = append(out, targets)

	out = append(out, q.Find(controlXPath))

	var siblings []*dom.Element
	for _, s := range q.NextElementSiblings() {
		siblings = append(siblings, s)
		siblings = append(siblings, s.Find(controlXPath)...)
	}
	out = append(out, siblings)

	if p := q.Parent(); p != nil {
		out = append(out, p.Find(controlXPath))
	}
	if c := q.Closest("div", "fieldset", "section"); c != nil {
		out = append(out, c.Find(controlXPath))
	}
	return out
}

// resolveControl returns the first control accepted by match, searching the
// scopes of q in order.
func resolveControl(q *dom.Element, match controlPredicate) *dom.Element {
	for _, scope := range scopes(q) {
		for _, el := range scope {
			if match(el) {
				return el
			}
		}
	}
	return nil
}

// resolveGroup returns the radios and checkboxes of the nearest scope that
// has any.
func resolveGroup(q *dom.Element) []*dom.Element {
	for _, scope := range scopes(q) {
		var group []*dom.Element
		for _, el := range scope {
			if isChoice(el) {
				group = append(group, el)
			}
		}
		if len(group) > 0 {
			return group
		}
	}
	return nil
}
