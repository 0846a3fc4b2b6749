// Package normalize folds free text so that resource names and feed summaries
// can be compared without regard to case, accents or spacing.
//
// Every comparison site in the application goes through Fold; callers never
// lower-case or trim on their own.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s with diacritics stripped, case folded and whitespace
// collapsed to single spaces. "  Cabaña  Colibrí " folds to "cabana colibri".
func Fold(s string) string {
	// transform.Chain and cases.Caser keep internal state, build them per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return strings.Join(strings.Fields(folded), " ")
}

// Equal reports whether a and b fold to the same text.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
