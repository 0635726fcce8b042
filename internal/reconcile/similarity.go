package reconcile

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the Ratcliff/Obershelp ratio (2*M/T over the longest
// matching blocks) of a and b, ignoring case and whitespace. The result is in
// [0, 1]; two empty inputs are identical.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(runeTokens(a), runeTokens(b))
	return m.Ratio()
}

func runeTokens(s string) []string {
	tokens := make([]string, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		tokens = append(tokens, string(r))
	}
	return tokens
}
