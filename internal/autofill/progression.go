package autofill

import (
	"strings"

	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

// NextPatterns are the whole-string, case-insensitive labels of controls that
// advance the form.
var NextPatterns = []string{
	"next",
	"continue",
	"proceed",
	"submit",
	"update information",
	"save and continue",
	"go to next",
	"next step",
	"next page",
}

const (
	formControlXPath = "//select | //input | //textarea"
	nextControlXPath = "//button | //input[@type='submit' or @type='button'] | //a | //*[@role='button']"
)

// CountEmptyRequired counts the visible, enabled required controls that hold
// no value. A radio group counts once.
func CountEmptyRequired(doc *dom.Document, norm textnorm.Normalizer) int {
	count := 0
	seenGroups := make(map[string]bool)
	for _, el := range doc.MustFindAll(formControlXPath) {
		if !el.Visible() || el.Disabled() || ignoredInput(el) {
			continue
		}
		if !isRequired(el, norm) {
			continue
		}

		if el.Tag() == "input" && el.Type() == "radio" {
			name := el.Attr("name")
			if name != "" {
				if seenGroups[name] {
					continue
				}
				seenGroups[name] = true
			}
			if !radioGroupChecked(el) {
				count++
			}
			continue
		}
		if isEmpty(el) {
			count++
		}
	}
	return count
}

func ignoredInput(el *dom.Element) bool {
	if el.Tag() != "input" {
		return false
	}
	switch el.Type() {
	case "submit", "button", "reset", "image":
		return true
	}
	return false
}

func isRequired(el *dom.Element, norm textnorm.Normalizer) bool {
	if el.HasAttr("required") || strings.EqualFold(el.Attr("aria-required"), "true") {
		return true
	}
	if strings.Contains(norm.Normalize(labelText(el)), "required") {
		return true
	}
	section := el.ClosestMatch(func(c *dom.Element) bool {
		switch c.Tag() {
		case "fieldset", "section":
			return true
		}
		return c.Attr("role") == "group"
	})
	return section != nil && strings.Contains(norm.Normalize(section.Text()), "required")
}

func isEmpty(el *dom.Element) bool {
	switch el.Tag() {
	case "select":
		idx := el.SelectedIndex()
		if idx < 0 {
			return true
		}
		opt := el.Options()[idx]
		return opt.Placeholder() || strings.TrimSpace(opt.Value) == ""
	case "input":
		if el.Type() == "checkbox" {
			return !el.Checked()
		}
	}
	return strings.TrimSpace(el.Value()) == ""
}

func radioGroupChecked(radio *dom.Element) bool {
	if radio.Checked() {
		return true
	}
	name := radio.Attr("name")
	if name == "" {
		return false
	}
	for _, r := range radio.Document().MustFindAll("//input") {
		if r.Type() == "radio" && r.Attr("name") == name && r.Checked() {
			return true
		}
	}
	return false
}

// FindNextControl returns the first visible, enabled control whose label is
// one of NextPatterns, or nil.
func FindNextControl(doc *dom.Document) *dom.Element {
	for _, el := range doc.MustFindAll(nextControlXPath) {
		if !el.Visible() || el.Disabled() {
			continue
		}
		if isNextLabel(controlLabel(el)) {
			return el
		}
	}
	return nil
}

func controlLabel(el *dom.Element) string {
	if el.Tag() == "input" {
		return el.Attr("value")
	}
	return el.Text()
}

func isNextLabel(label string) bool {
	label = strings.ToLower(strings.Join(strings.Fields(label), " "))
	for _, p := range NextPatterns {
		if label == p {
			return true
		}
	}
	return false
}
