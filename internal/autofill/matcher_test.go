package autofill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

func parseDoc(t *testing.T, s string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(s)
	require.NoError(t, err)
	return doc
}

func questionFor(t *testing.T, text string) Question {
	t.Helper()
	return Question{Text: textnorm.Normalize(text), plain: textnorm.Normalize(text)}
}

func TestMatchQuestion(t *testing.T) {
	tests := []struct {
		name       string
		answers    *answers.Map
		question   string
		wantOK     bool
		wantAnswer string
		wantKind   MatchKind
	}{
		{
			name:       "exact match wins over an earlier fuzzy candidate",
			answers:    answers.FromPairs("a b", "2", "a", "1"),
			question:   "A",
			wantOK:     true,
			wantAnswer: "1",
			wantKind:   MatchExact,
		},
		{
			name:     "short strings never fuzzy match",
			answers:  answers.FromPairs("Yes or No", "x"),
			question: "Yes",
			wantOK:   false,
		},
		{
			name:       "question contains key",
			answers:    answers.FromPairs("passport number", "P123"),
			question:   "What is your passport number? (required)",
			wantOK:     true,
			wantAnswer: "P123",
			wantKind:   MatchFuzzy,
		},
		{
			name:       "key contains question",
			answers:    answers.FromPairs("What country issued your passport?", "India"),
			question:   "country issued your passport",
			wantOK:     true,
			wantAnswer: "India",
			wantKind:   MatchFuzzy,
		},
		{
			name:       "first fuzzy key in insertion order wins",
			answers:    answers.FromPairs("passport number", "first", "your passport number", "second"),
			question:   "Enter your passport number",
			wantOK:     true,
			wantAnswer: "first",
			wantKind:   MatchFuzzy,
		},
		{
			name:     "key of exactly ten characters is too short",
			answers:  answers.FromPairs("given name", "Jane"),
			question: "Your given name here",
			wantOK:   false,
		},
		{
			name:     "empty map",
			answers:  answers.NewMap(),
			question: "What is your family name?",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := MatchQuestion(questionFor(t, tt.question), tt.answers)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantAnswer, m.Answer)
			assert.Equal(t, tt.wantKind, m.Kind)
		})
	}
}

func TestMatchWithKeptPunctuation(t *testing.T) {
	portal := textnorm.Normalizer{Keep: textnorm.PortalKeep}
	doc := parseDoc(t, `<legend>Sex?</legend>`)
	qs := Discover(doc, portal)
	require.Len(t, qs, 1)
	assert.Equal(t, "sex?", qs[0].Text)

	// Stored keys are stripped of punctuation; the plain form still matches exactly.
	m, ok := MatchQuestion(qs[0], answers.FromPairs("Sex", "Female"))
	require.True(t, ok)
	assert.Equal(t, MatchExact, m.Kind)
}

func TestDiscoverOrderAndDedup(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<h3>Personal details</h3>
		<fieldset>
			<legend>What is your sex?</legend>
			<div class="form-question">Marital status</div>
		</fieldset>
		<label for="fam">Family name</label><input id="fam">
		<label>No for attribute</label>
		<div role="group" data-question="1">Grouped</div>
		<h4>   </h4>
		<script>var question = 1;</script>
	</body></html>`)

	var texts []string
	for _, q := range Discover(doc, textnorm.Default) {
		texts = append(texts, q.Text)
	}
	assert.Equal(t, []string{
		"personal details",
		"what is your sex",
		"marital status",
		"family name",
		"grouped",
	}, texts)
}

func TestDiscoverSkipsContainersOfQuestions(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<fieldset id="travel">
			<div class="question">What country issued your passport?</div><select></select>
			<div class="question">What is your country of citizenship?</div><select></select>
		</fieldset>
		<div role="group" id="grouped">
			<label for="fam">Family name</label><input id="fam">
		</div>
		<fieldset id="plain">Do you agree? <input type="checkbox"></fieldset>
	</body></html>`)

	var texts []string
	for _, q := range Discover(doc, textnorm.Default) {
		texts = append(texts, q.Text)
	}
	assert.Equal(t, []string{
		"what country issued your passport",
		"what is your country of citizenship",
		"family name",
		"do you agree",
	}, texts)
}

func TestFuzzyLengthCountsCharacters(t *testing.T) {
	// Ten characters, twelve bytes.
	q := questionFor(t, "déjà vu ok")
	_, ok := MatchQuestion(q, answers.FromPairs("déjà vu ok encore une fois", "oui"))
	assert.False(t, ok)

	_, ok = MatchQuestion(questionFor(t, "déjà vu ok!"), answers.FromPairs("déjà vu ok encore une fois", "oui"))
	assert.False(t, ok, "punctuation does not count toward the length")

	m, ok := MatchQuestion(questionFor(t, "déjà vu ok ici"), answers.FromPairs("déjà vu ok ici encore", "oui"))
	require.True(t, ok)
	assert.Equal(t, MatchFuzzy, m.Kind)
}

func TestDiscoverAndMatch(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<legend>What country issued your passport?</legend><select><option>Canada</option><option>India</option></select>
		<legend>Favourite colour</legend><input>
	</body></html>`)
	m := answers.FromPairs("what country issued your passport", "India")

	matches, unmatched := DiscoverAndMatch(doc, m, textnorm.Default)
	require.Len(t, matches, 1)
	assert.Equal(t, "India", matches[0].Answer)
	assert.Equal(t, MatchExact, matches[0].Kind)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "favourite colour", unmatched[0].Text)
}
