package autofill

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

func newTestFiller(t *testing.T) *Filler {
	return NewFiller(DefaultEventProfile(), textnorm.Default, zaptest.NewLogger(t))
}

func eventsFor(actions []dom.Action, xpath string) []string {
	var out []string
	for _, a := range actions {
		if a.Kind == dom.ActionDispatch && a.XPath == xpath {
			out = append(out, a.Event)
		}
	}
	return out
}

func TestFillPassportCountry(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<legend>What country issued your passport?</legend>
		<select id="country"><option>Canada</option><option>India</option></select>
	</body></html>`)
	f := newTestFiller(t)

	q := doc.FindOne("//legend")
	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(q, "India"))

	sel := doc.ByID("country")
	assert.Equal(t, "India", sel.Value())

	journal := doc.Drain()
	events := eventsFor(journal, sel.XPath())
	assert.Equal(t, []string{"input", "change", "blur", "update"}, events)

	// A second fill on the unchanged model records nothing.
	assert.Equal(t, OutcomeAlreadySatisfied, f.ResolveAndFill(q, "India"))
	assert.Empty(t, doc.Journal())
}

func TestChooseOption(t *testing.T) {
	opts := func(texts ...string) []dom.Option {
		out := make([]dom.Option, len(texts))
		for i, s := range texts {
			out[i] = dom.Option{Index: i, Value: s, Text: s}
		}
		return out
	}
	placeholder := dom.Option{Index: 0, Value: "", Text: "Select one", HasValue: true}

	tests := []struct {
		name   string
		opts   []dom.Option
		answer string
		want   int
	}{
		{"exact", opts("Canada", "India"), "india", 1},
		{"exact beats containment", opts("British Indian Ocean Territory", "India"), "India", 1},
		{"option contains answer", opts("Single", "Married (legally)"), "married", 1},
		{"answer contains option", opts("Male", "Female"), "Female, as in passport", 1},
		{"whole words before substrings", opts("Male", "Female"), "Sex: female", 1},
		{"substring fallback", opts("Canada", "Indian Ocean"), "India", 1},
		{"placeholder skipped", append([]dom.Option{placeholder}, dom.Option{Index: 1, Value: "x", Text: "One"}), "one", 1},
		{"yes prefix", opts("No, I have not", "Yes, I do"), "Yes", 1},
		{"no match", opts("Canada"), "Mars", -1},
		{"blank answer", opts("Canada"), "  ", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chooseOption(tt.opts, tt.answer, textnorm.Default))
		})
	}
}

func TestFillTextInputs(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<label for="fam">Family name</label><input id="fam" type="text">
		<div><h4>Email address</h4><div><input id="mail" type="email" value="old@example.com"></div></div>
		<div><h4>Passport expiry</h4><input id="exp" type="date" value="2020-01-01"></div>
		<div><h4>Notes</h4><textarea id="notes"></textarea></div>
	</body></html>`)
	f := newTestFiller(t)

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("//label"), "Doe"))
	assert.Equal(t, "Doe", doc.ByID("fam").Value())

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("(//h4)[1]"), "jane@example.com"))
	assert.Equal(t, "jane@example.com", doc.ByID("mail").Value())

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("(//h4)[2]"), "March 3, 2031"))
	assert.Equal(t, "2031-03-03", doc.ByID("exp").Value())

	// An unparseable date leaves the input alone.
	doc.Drain()
	assert.Equal(t, OutcomeNoControl, f.ResolveAndFill(doc.FindOne("(//h4)[2]"), "soon"))
	assert.Equal(t, "2031-03-03", doc.ByID("exp").Value())
	assert.Empty(t, doc.Journal())

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("(//h4)[3]"), "line"))
	assert.Equal(t, "line", doc.ByID("notes").Value())

	mail := doc.ByID("mail").XPath()
	assert.Equal(t, []string{"input", "change"}, eventsFor(doc.Journal(), doc.ByID("notes").XPath()))
	assert.Empty(t, eventsFor(doc.Journal(), mail))
}

func TestFillRadioAndCheckbox(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<fieldset>
			<legend>What is your marital status?</legend>
			<label><input type="radio" name="ms" id="single" value="S"> Single</label>
			<input type="radio" name="ms" id="married" value="M"><label for="married">Married</label>
			<input type="radio" name="ms" id="cl" data-value="common-law">
		</fieldset>
		<div>
			<h5>I agree to the terms</h5>
			<input type="checkbox" id="agree">
		</div>
	</body></html>`)
	f := newTestFiller(t)
	legend := doc.FindOne("//legend")

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(legend, "married"))
	assert.True(t, doc.ByID("married").Checked())
	assert.Equal(t, []string{"change"}, eventsFor(doc.Journal(), doc.ByID("married").XPath()))

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(legend, "common-law"))
	assert.True(t, doc.ByID("cl").Checked())
	assert.False(t, doc.ByID("married").Checked())

	assert.Equal(t, OutcomeNoControl, f.ResolveAndFill(legend, "widowed"))

	h5 := doc.FindOne("//h5")
	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(h5, "Yes"))
	assert.True(t, doc.ByID("agree").Checked())
	assert.Equal(t, OutcomeAlreadySatisfied, f.ResolveAndFill(h5, "true"))
	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(h5, "No"))
	assert.False(t, doc.ByID("agree").Checked())
}

func TestFillDateOfBirth(t *testing.T) {
	page := `<html><body><div>
		<legend>What is your date of birth?</legend>
		<select id="y"><option value="">Year</option>` + numberOptions(2000, 2010) + `</select>
		<select id="m"><option value="">Month</option>` + monthOptions() + `</select>
		<select id="d"><option value="">Day</option>` + numberOptions(1, 31) + `</select>
	</div></body></html>`
	doc := parseDoc(t, page)
	f := newTestFiller(t)
	q := doc.FindOne("//legend")

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(q, "May 4, 2003"))
	assert.Equal(t, "2003", doc.ByID("y").Value())
	assert.Equal(t, "May", doc.ByID("m").Value())
	assert.Equal(t, "4", doc.ByID("d").Value())
	assert.Len(t, doc.Drain(), 3*(1+len(DefaultEventProfile().Select)))

	assert.Equal(t, OutcomeAlreadySatisfied, f.ResolveAndFill(q, "2003-05-04"))
	assert.Empty(t, doc.Journal())

	assert.Equal(t, OutcomeNoControl, f.ResolveAndFill(q, "not a date"))
}

func TestFillDateOfBirthSelectOrderIndependent(t *testing.T) {
	doc := parseDoc(t, `<html><body><fieldset>
		<legend>Date of birth</legend>
		<select id="d">`+numberOptions(1, 31)+`</select>
		<select id="m">`+zeroPadded(1, 12)+`</select>
		<select id="y">`+numberOptions(1950, 2025)+`</select>
	</fieldset></body></html>`)
	f := newTestFiller(t)

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("//legend"), "1990-11-23"))
	assert.Equal(t, "23", doc.ByID("d").Value())
	assert.Equal(t, "11", doc.ByID("m").Value())
	assert.Equal(t, "1990", doc.ByID("y").Value())
}

func TestFillDateOfBirthTooFewSelects(t *testing.T) {
	doc := parseDoc(t, `<html><body><div>
		<legend>Date of birth</legend>
		<select><option>2000</option></select>
	</div></body></html>`)
	f := newTestFiller(t)
	assert.Equal(t, OutcomeNoControl, f.ResolveAndFill(doc.FindOne("//legend"), "May 4, 2003"))
}

func TestFillDateOfBirthLeavesTextInputAlone(t *testing.T) {
	doc := parseDoc(t, `<html><body><div>
		<legend>Date of birth</legend>
		<select id="y"><option>2003</option><option>2004</option></select>
		<select id="m"><option>January</option><option>May</option></select>
		<input id="note" type="text">
	</div></body></html>`)
	f := newTestFiller(t)

	assert.Equal(t, OutcomeNoControl, f.ResolveAndFill(doc.FindOne("//legend"), "May 4, 2003"))
	assert.Equal(t, "", doc.ByID("note").Value())
	assert.Empty(t, doc.Journal())
}

func TestFillDateOfBirthNativeDateInput(t *testing.T) {
	doc := parseDoc(t, `<html><body><div>
		<label for="dob">Date of birth</label>
		<input id="dob" type="date">
	</div></body></html>`)
	f := newTestFiller(t)

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("//label"), "May 4, 2003"))
	assert.Equal(t, "2003-05-04", doc.ByID("dob").Value())
	assert.Equal(t, OutcomeAlreadySatisfied, f.ResolveAndFill(doc.FindOne("//label"), "May 4, 2003"))
}

func TestResolveOrder(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<section>
			<div id="wrap">
				<label for="target" class="question">Given name(s)</label>
				<input id="sibling">
			</div>
			<input id="target">
		</section>
	</body></html>`)
	f := newTestFiller(t)

	// The label[for] target wins over the nearer sibling.
	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("//label"), "Jane"))
	assert.Equal(t, "Jane", doc.ByID("target").Value())
	assert.Equal(t, "", doc.ByID("sibling").Value())
}

func TestResolvePrefersSelectOverText(t *testing.T) {
	doc := parseDoc(t, `<html><body><div>
		<h4>Country of residence</h4>
		<input id="txt">
		<select id="sel"><option>Canada</option><option>India</option></select>
	</div></body></html>`)
	f := newTestFiller(t)

	assert.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("//h4"), "India"))
	assert.Equal(t, "India", doc.ByID("sel").Value())
	assert.Equal(t, "", doc.ByID("txt").Value())
}

func TestResolveAndFillRecoversFromPanic(t *testing.T) {
	f := newTestFiller(t)
	assert.Equal(t, OutcomeNoControl, f.ResolveAndFill(nil, "anything"))
}

func TestResolveAndFillBlankAnswer(t *testing.T) {
	doc := parseDoc(t, `<legend>Family name</legend><input>`)
	f := newTestFiller(t)
	assert.Equal(t, OutcomeNoMatch, f.ResolveAndFill(doc.FindOne("//legend"), " "))
	assert.Empty(t, doc.Journal())
}

func TestCustomEventProfile(t *testing.T) {
	doc := parseDoc(t, `<legend>Family name</legend><input id="n">`)
	f := NewFiller(EventProfile{Text: []string{"keyup"}}, textnorm.Default, nil)
	require.Equal(t, OutcomeFilled, f.ResolveAndFill(doc.FindOne("//legend"), "Doe"))

	want := []dom.Action{
		{Kind: dom.ActionSetValue, XPath: `//*[@id='n']`, Value: "Doe"},
		{Kind: dom.ActionDispatch, XPath: `//*[@id='n']`, Event: "keyup"},
	}
	if diff := cmp.Diff(want, doc.Journal()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}
