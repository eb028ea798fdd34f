package autofill

import (
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
)

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate reads a calendar date written in one of the common layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateInput renders t the way <input type="date"> expects.
func FormatDateInput(t time.Time) string {
	return t.Format("2006-01-02")
}

type dateClass int

const (
	classUnknown dateClass = iota
	classYear
	classMonth
	classDay
)

func (c dateClass) String() string {
	switch c {
	case classYear:
		return "year"
	case classMonth:
		return "month"
	case classDay:
		return "day"
	default:
		return "unknown"
	}
}

// classifySelect decides from its options whether sel picks a year, a month
// or a day. Placeholder and blank options are ignored.
func classifySelect(sel *dom.Element) dateClass {
	var texts []string
	for _, o := range sel.Options() {
		if o.Placeholder() || o.Text == "" {
			continue
		}
		texts = append(texts, o.Text)
	}
	if len(texts) == 0 {
		return classUnknown
	}

	var years, months, numbers, maxNum int
	allSmall := true
	for _, t := range texts {
		if monthNumber(t) > 0 && !isDigits(t) {
			months++
			continue
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			allSmall = false
			continue
		}
		if len(t) == 4 {
			years++
		}
		numbers++
		if n > maxNum {
			maxNum = n
		}
		if n < 1 || n > 31 {
			allSmall = false
		}
	}

	half := len(texts) / 2
	switch {
	case years > half:
		return classYear
	case months > half:
		return classMonth
	case numbers > half && allSmall && maxNum == 12:
		return classMonth
	case numbers > half && allSmall && maxNum >= 28:
		return classDay
	}
	return classUnknown
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// monthNumber maps a month name, a three-letter abbreviation or a number
// 1-12 to 1-12. Anything else is 0.
func monthNumber(s string) int {
	s = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if isDigits(s) {
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	if len(s) < 3 {
		return 0
	}
	for i, name := range monthNames {
		if s == name || s == name[:3] || (len(s) > 3 && strings.HasPrefix(name, s)) {
			return i + 1
		}
	}
	return 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// dateOptionIndex finds the option of a classified select that represents t.
func dateOptionIndex(sel *dom.Element, class dateClass, t time.Time) int {
	for _, o := range sel.Options() {
		if o.Placeholder() || o.Text == "" {
			continue
		}
		switch class {
		case classYear:
			if n, err := strconv.Atoi(o.Text); err == nil && n == t.Year() {
				return o.Index
			}
		case classMonth:
			if monthNumber(o.Text) == int(t.Month()) {
				return o.Index
			}
		case classDay:
			if n, err := strconv.Atoi(o.Text); err == nil && n == t.Day() {
				return o.Index
			}
		}
	}
	return -1
}
