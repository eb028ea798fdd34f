// browser/dom/mutate.go
package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ActionKind names a journaled mutation.
type ActionKind string

const (
	ActionSetValue   ActionKind = "set-value"
	ActionSelect     ActionKind = "select"
	ActionSetChecked ActionKind = "set-checked"
	ActionDispatch   ActionKind = "dispatch"
	ActionScroll     ActionKind = "scroll-into-view"
	ActionClick      ActionKind = "click"
)

// Action is one mutation recorded against the model, to be replayed on the
// live page. Targets are addressed by XPath.
type Action struct {
	Kind    ActionKind `json:"kind"`
	XPath   string     `json:"xpath"`
	Value   string     `json:"value,omitempty"`
	Index   int        `json:"index"`
	Checked bool       `json:"checked,omitempty"`
	Event   string     `json:"event,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionSetValue, ActionSelect:
		return fmt.Sprintf("%s %s=%q", a.Kind, a.XPath, a.Value)
	case ActionSetChecked:
		return fmt.Sprintf("%s %s=%t", a.Kind, a.XPath, a.Checked)
	case ActionDispatch:
		return fmt.Sprintf("%s %s %s", a.Kind, a.Event, a.XPath)
	default:
		return fmt.Sprintf("%s %s", a.Kind, a.XPath)
	}
}

// Journal returns a copy of the recorded actions.
func (d *Document) Journal() []Action {
	out := make([]Action, len(d.journal))
	copy(out, d.journal)
	return out
}

// Drain returns the recorded actions and clears the journal.
func (d *Document) Drain() []Action {
	out := d.journal
	d.journal = nil
	return out
}

func (d *Document) record(a Action) {
	d.journal = append(d.journal, a)
}

// SetValue sets the value of an input or textarea. On a select it picks the
// first option with that value, if any.
func (e *Element) SetValue(value string) {
	switch e.Tag() {
	case "select":
		for _, o := range e.Options() {
			if o.Value == value {
				e.SelectOption(o.Index)
				return
			}
		}
		return
	case "textarea":
		// The value of a textarea is its child text.
		for c := e.n.FirstChild; c != nil; {
			next := c.NextSibling
			e.n.RemoveChild(c)
			c = next
		}
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	default:
		setAttr(e.n, "value", value)
	}
	e.doc.record(Action{Kind: ActionSetValue, XPath: e.XPath(), Value: value})
}

// SelectOption marks the option at index as the only selected one.
func (e *Element) SelectOption(index int) {
	nodes := e.optionNodes()
	if index < 0 || index >= len(nodes) {
		return
	}
	for i, n := range nodes {
		if i == index {
			setAttr(n, "selected", "selected")
		} else {
			removeAttr(n, "selected")
		}
	}
	e.doc.record(Action{
		Kind:  ActionSelect,
		XPath: e.XPath(),
		Value: e.Options()[index].Value,
		Index: index,
	})
}

// SetChecked sets a radio or checkbox. Checking a radio unchecks the rest of
// its group in the model; the live page does that on its own.
func (e *Element) SetChecked(checked bool) {
	if checked {
		if e.Type() == "radio" {
			e.uncheckGroup()
		}
		setAttr(e.n, "checked", "checked")
	} else {
		removeAttr(e.n, "checked")
	}
	e.doc.record(Action{Kind: ActionSetChecked, XPath: e.XPath(), Checked: checked})
}

func (e *Element) uncheckGroup() {
	name := e.Attr("name")
	if name == "" {
		return
	}
	root := findParentForm(e.n)
	if root == nil {
		root = e.doc.root
	}
	for _, radio := range htmlquery.Find(root, fmt.Sprintf(".//input[@type='radio' and @name=%s]", xpathLiteral(name))) {
		if radio != e.n {
			removeAttr(radio, "checked")
		}
	}
}

// Dispatch records a bubbling event of the given name.
func (e *Element) Dispatch(event string) {
	e.doc.record(Action{Kind: ActionDispatch, XPath: e.XPath(), Event: event})
}

// ScrollIntoView records a scroll that centres e.
func (e *Element) ScrollIntoView() {
	e.doc.record(Action{Kind: ActionScroll, XPath: e.XPath()})
}

// Click records a click on e. The model itself does not change.
func (e *Element) Click() {
	e.doc.record(Action{Kind: ActionClick, XPath: e.XPath()})
}

// ErrTargetMissing is returned by Replay when an action's XPath selects nothing.
var ErrTargetMissing = errors.New("action target not found")

// Replay applies actions recorded against another snapshot of the same page.
// The replayed actions are journaled on d.
func (d *Document) Replay(actions []Action) error {
	for _, a := range actions {
		el := d.FindOne(a.XPath)
		if el == nil {
			return fmt.Errorf("replaying %s: %w", a, ErrTargetMissing)
		}
		switch a.Kind {
		case ActionSetValue:
			el.SetValue(a.Value)
		case ActionSelect:
			el.SelectOption(a.Index)
		case ActionSetChecked:
			el.SetChecked(a.Checked)
		case ActionDispatch:
			el.Dispatch(a.Event)
		case ActionScroll:
			el.ScrollIntoView()
		case ActionClick:
			el.Click()
		default:
			return fmt.Errorf("unknown action kind %q", a.Kind)
		}
	}
	return nil
}

func findParentForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, "form") {
			return p
		}
	}
	return nil
}
