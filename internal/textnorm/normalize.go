// Package textnorm canonicalizes page text and stored question keys into a
// comparable form.
package textnorm

import (
	"strings"
	"unicode"
)

// PortalKeep is the punctuation class kept by the portal profile.
const PortalKeep = "?.,"

// Normalizer strips every rune that is not a letter, digit, whitespace or a
// member of Keep, collapses whitespace runs and lower-cases the result.
// The zero value strips all punctuation.
type Normalizer struct {
	Keep string
}

// Default is the normalizer used when no profile asks for kept punctuation.
var Default = Normalizer{}

// Normalize applies the Default normalizer.
func Normalize(text string) string {
	return Default.Normalize(text)
}

// Normalize is pure and total. Normalize(Normalize(x)) == Normalize(x).
func (n Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = sb.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(n.Keep, r):
			if pendingSpace {
				sb.WriteByte(' ')
				pendingSpace = false
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			// Stripped runes do not break a word.
		}
	}
	return sb.String()
}
