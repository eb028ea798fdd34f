// Package autofill discovers the questions on a form page, matches them to
// questionnaire answers, fills the controls that belong to them, and advances
// the page once every required field holds a value.
package autofill

import (
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

// MinFuzzyLength is the length both strings must exceed before containment
// counts as a fuzzy match.
const MinFuzzyLength = 10

// questionXPath is the union of every element that can carry question text.
// Results come back in document order.
const questionXPath = `//legend` +
	` | //*[contains(translate(@class,'QUESTION','question'),'question')]` +
	` | //label[@for]` +
	` | //h3 | //h4 | //h5` +
	` | //*[@data-question]` +
	` | //fieldset` +
	` | //div[@role='group']`

// MatchKind tells how a question was matched to an answer key.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// Question is a discovered question element and its normalized text.
type Question struct {
	Element *dom.Element
	Text    string
	// plain is Text under the default normalizer, used for exact lookups.
	plain string
}

// Match pairs a question with the answer chosen for it.
type Match struct {
	Question Question
	Key      string
	Answer   string
	Kind     MatchKind
}

// Discover returns the question elements of doc in document order. Elements
// whose text normalizes to "" are skipped, and so are fieldset and group
// containers that hold another question: their text is the concatenation of
// the nested questions, which answer for themselves.
func Discover(doc *dom.Document, norm textnorm.Normalizer) []Question {
	var found []Question
	for _, el := range doc.MustFindAll(questionXPath) {
		raw := el.Text()
		text := norm.Normalize(raw)
		if text == "" {
			continue
		}
		found = append(found, Question{Element: el, Text: text, plain: textnorm.Normalize(raw)})
	}

	out := make([]Question, 0, len(found))
	for i, q := range found {
		if isContainer(q.Element) && holdsQuestion(q.Element, found[i+1:]) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func isContainer(el *dom.Element) bool {
	switch el.Tag() {
	case "fieldset":
		return true
	case "div":
		return el.Attr("role") == "group"
	}
	return false
}

// holdsQuestion reports whether any of later lies inside container. later is
// in document order, so descendants of container come first.
func holdsQuestion(container *dom.Element, later []Question) bool {
	for _, q := range later {
		if q.Element.Same(container) {
			continue
		}
		return container.Contains(q.Element)
	}
	return false
}

// MatchQuestion finds the answer for q. An exact key wins. Otherwise the first
// key, in insertion order, that contains or is contained in the question text
// matches, provided both are longer than MinFuzzyLength.
func MatchQuestion(q Question, m *answers.Map) (Match, bool) {
	for _, text := range []string{q.Text, q.plain} {
		if answer, ok := m.Get(text); ok {
			return Match{Question: q, Key: text, Answer: answer, Kind: MatchExact}, true
		}
	}

	var (
		match Match
		found bool
	)
	m.Range(func(key, answer string) bool {
		if fuzzyMatch(q.Text, key) {
			match = Match{Question: q, Key: key, Answer: answer, Kind: MatchFuzzy}
			found = true
			return false
		}
		return true
	})
	return match, found
}

func fuzzyMatch(question, key string) bool {
	if utf8.RuneCountInString(question) <= MinFuzzyLength || utf8.RuneCountInString(key) <= MinFuzzyLength {
		return false
	}
	return strings.Contains(question, key) || strings.Contains(key, question)
}

// DiscoverAndMatch runs discovery and matching. It returns the matches and
// the questions left without an answer, both in document order.
func DiscoverAndMatch(doc *dom.Document, m *answers.Map, norm textnorm.Normalizer) ([]Match, []Question) {
	var (
		matches   []Match
		unmatched []Question
	)
	for _, q := range Discover(doc, norm) {
		if match, ok := MatchQuestion(q, m); ok {
			matches = append(matches, match)
		} else {
			unmatched = append(unmatched, q)
		}
	}
	return matches, unmatched
}
