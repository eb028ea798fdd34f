package autofill

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

// Outcome is the result of filling one question.
type Outcome string

const (
	OutcomeFilled           Outcome = "filled"
	OutcomeAlreadySatisfied Outcome = "already-satisfied"
	OutcomeNoControl        Outcome = "no-control-found"
	OutcomeNoMatch          Outcome = "no-match"
)

// minDateSelects is how many selects a container needs to hold a compound date.
const minDateSelects = 3

// Filler resolves the control that belongs to a question and writes the answer
// into it through the document's journaled mutators.
type Filler struct {
	events EventProfile
	norm   textnorm.Normalizer
	logger *zap.Logger
}

// NewFiller creates a Filler. A nil logger is replaced by a no-op logger.
func NewFiller(events EventProfile, norm textnorm.Normalizer, logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{events: events, norm: norm, logger: logger.Named("filler")}
}

// ResolveAndFill writes answer into the control for question. It never panics;
// a panic while filling is logged and reported as OutcomeNoControl.
func (f *Filler) ResolveAndFill(question *dom.Element, answer string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Recovered from panic while filling question",
				zap.Any("panic_value", r),
				zap.String("answer", answer),
			)
			outcome = OutcomeNoControl
		}
	}()

	if strings.TrimSpace(answer) == "" {
		return OutcomeNoMatch
	}

	text := f.norm.Normalize(question.Text())
	if strings.Contains(text, "birth") {
		return f.fillDateOfBirth(question, answer)
	}

	if sel := resolveControl(question, isSelect); sel != nil {
		return f.fillSelect(sel, answer)
	}
	if in := resolveControl(question, isTextLike); in != nil {
		return f.fillText(in, answer)
	}
	if group := resolveGroup(question); len(group) > 0 {
		return f.fillChoice(group, answer)
	}

	f.logger.Debug("No control found for question", zap.String("question", text))
	return OutcomeNoControl
}

func (f *Filler) fillSelect(sel *dom.Element, answer string) Outcome {
	idx := chooseOption(sel.Options(), answer, f.norm)
	if idx < 0 {
		f.logger.Debug("No option matches answer", zap.String("select", sel.XPath()), zap.String("answer", answer))
		return OutcomeNoControl
	}
	if sel.SelectedIndex() == idx {
		return OutcomeAlreadySatisfied
	}
	sel.SelectOption(idx)
	dispatchAll(sel, f.events.Select)
	return OutcomeFilled
}

// chooseOption picks the option for answer: exact normalized text first, then
// containment either way, then a yes/no prefix. It returns -1 when none fits.
// Containment on word boundaries is tried before plain substring containment.
func chooseOption(opts []dom.Option, answer string, norm textnorm.Normalizer) int {
	target := norm.Normalize(answer)
	if target == "" {
		return -1
	}

	texts := make([]string, len(opts))
	for i, o := range opts {
		texts[i] = norm.Normalize(o.Text)
	}

	for i, t := range texts {
		if t == target {
			return opts[i].Index
		}
	}
	// A word buried inside a longer word only counts when no whole word does.
	for _, contains := range []func(s, sub string) bool{containsWords, strings.Contains} {
		for i, t := range texts {
			if t == "" || opts[i].Placeholder() {
				continue
			}
			if contains(t, target) || contains(target, t) {
				return opts[i].Index
			}
		}
	}
	if target == "yes" || target == "no" {
		for i, t := range texts {
			if t == target || strings.HasPrefix(t, target+" ") {
				return opts[i].Index
			}
		}
	}
	return -1
}

// containsWords reports whether sub occurs in s as a run of whole words.
func containsWords(s, sub string) bool {
	return strings.Contains(" "+s+" ", " "+sub+" ")
}

func (f *Filler) fillText(in *dom.Element, answer string) Outcome {
	value := answer
	if in.Type() == "date" {
		t, ok := ParseDate(answer)
		if !ok {
			f.logger.Debug("Skipping date input, answer is not a date", zap.String("answer", answer))
			return OutcomeNoControl
		}
		value = FormatDateInput(t)
	}
	if in.Value() == value {
		return OutcomeAlreadySatisfied
	}
	in.SetValue(value)
	dispatchAll(in, f.events.Text)
	return OutcomeFilled
}

func (f *Filler) fillChoice(group []*dom.Element, answer string) Outcome {
	target := f.norm.Normalize(answer)

	// A lone checkbox answers yes/no questions directly.
	if want, ok := checkboxState(target); ok && group[0].Type() == "checkbox" && !anyLabelled(group, target, f.norm) {
		return f.setChecked(group[0], want)
	}

	choice := pickChoice(group, answer, target, f.norm)
	if choice == nil {
		f.logger.Debug("No radio or checkbox matches answer", zap.String("answer", answer))
		return OutcomeNoControl
	}
	return f.setChecked(choice, true)
}

func (f *Filler) setChecked(el *dom.Element, checked bool) Outcome {
	if el.Checked() == checked {
		return OutcomeAlreadySatisfied
	}
	el.SetChecked(checked)
	dispatchAll(el, f.events.Choice)
	return OutcomeFilled
}

// pickChoice tries label equality, then label containment, then value equality.
func pickChoice(group []*dom.Element, answer, target string, norm textnorm.Normalizer) *dom.Element {
	labels := make([]string, len(group))
	for i, el := range group {
		labels[i] = norm.Normalize(labelText(el))
	}
	for i, l := range labels {
		if l != "" && l == target {
			return group[i]
		}
	}
	for i, l := range labels {
		if l != "" && target != "" && strings.Contains(l, target) {
			return group[i]
		}
	}
	raw := strings.TrimSpace(answer)
	for _, el := range group {
		for _, v := range []string{el.Attr("value"), el.Attr("data-value")} {
			if v != "" && (v == raw || norm.Normalize(v) == target) {
				return el
			}
		}
	}
	return nil
}

func anyLabelled(group []*dom.Element, target string, norm textnorm.Normalizer) bool {
	for _, el := range group {
		if l := norm.Normalize(labelText(el)); l != "" && strings.Contains(l, target) {
			return true
		}
	}
	return false
}

func checkboxState(target string) (checked bool, ok bool) {
	switch target {
	case "yes", "true":
		return true, true
	case "no", "false":
		return false, true
	}
	return false, false
}

// labelText is the text of the label tied to el through for=, else the label
// that wraps it.
func labelText(el *dom.Element) string {
	if id := el.ID(); id != "" {
		for _, l := range el.Document().MustFindAll("//label[@for]") {
			if l.Attr("for") == id {
				return l.Text()
			}
		}
	}
	if l := el.Closest("label"); l != nil {
		return l.Text()
	}
	return ""
}

func (f *Filler) fillDateOfBirth(question *dom.Element, answer string) Outcome {
	t, ok := ParseDate(answer)
	if !ok {
		f.logger.Debug("Date of birth answer is not a date", zap.String("answer", answer))
		return OutcomeNoControl
	}

	container := question.ClosestMatch(func(el *dom.Element) bool {
		return len(el.Find(".//select")) >= minDateSelects
	})
	if container == nil {
		return f.fillDateInput(question, answer)
	}

	seen := make(map[dateClass]bool)
	found, changed := 0, 0
	for _, sel := range container.Find(".//select") {
		class := classifySelect(sel)
		if class == classUnknown || seen[class] {
			continue
		}
		seen[class] = true

		idx := dateOptionIndex(sel, class, t)
		if idx < 0 {
			f.logger.Debug("Date part has no matching option", zap.Stringer("part", class))
			continue
		}
		found++
		if sel.SelectedIndex() == idx {
			continue
		}
		sel.SelectOption(idx)
		dispatchAll(sel, f.events.Select)
		changed++
	}

	switch {
	case changed > 0:
		return OutcomeFilled
	case found > 0:
		return OutcomeAlreadySatisfied
	}
	return f.fillDateInput(question, answer)
}

// fillDateInput handles a birth date kept in a single native date input.
// Anything else near the question is left alone.
func (f *Filler) fillDateInput(question *dom.Element, answer string) Outcome {
	in := resolveControl(question, func(el *dom.Element) bool {
		return isTextLike(el) && el.Type() == "date"
	})
	if in == nil {
		f.logger.Debug("No compound date control near question")
		return OutcomeNoControl
	}
	return f.fillText(in, answer)
}

func dispatchAll(el *dom.Element, events []string) {
	for _, ev := range events {
		el.Dispatch(ev)
	}
}

// FillSummary counts the outcomes of one pass.
type FillSummary struct {
	Filled           int `json:"filled"`
	AlreadySatisfied int `json:"already_satisfied"`
	NoControl        int `json:"no_control_found"`
	NoMatch          int `json:"no_match"`
}

func (s *FillSummary) add(o Outcome) {
	switch o {
	case OutcomeFilled:
		s.Filled++
	case OutcomeAlreadySatisfied:
		s.AlreadySatisfied++
	case OutcomeNoControl:
		s.NoControl++
	case OutcomeNoMatch:
		s.NoMatch++
	}
}

func (s FillSummary) String() string {
	return fmt.Sprintf("filled=%d satisfied=%d no_control=%d no_match=%d",
		s.Filled, s.AlreadySatisfied, s.NoControl, s.NoMatch)
}
