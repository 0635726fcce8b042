package reconcile

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalDateLayout is the rendering of every successfully parsed date.
const CanonicalDateLayout = "2006-01-02"

// dateLayouts is tried in order; the first layout that parses wins.
var dateLayouts = []string{
	"02-Jan-2006",
	"02-January-2006",
	"02-01-2006",
	"02/Jan/2006",
	"02/January/2006",
	"02/01/2006",
	"02.Jan.2006",
	"02.January.2006",
	"02.01.2006",
	"02 Jan 2006",
	"02 January 2006",
	"02 01 2006",
	"2006-01-02",
	"2006-Jan-02",
	"2006/01/02",
	"2006.01.02",
	"2006 01 02",
	"2006 Jan 02",
	"2006 January 02",
}

// Normalize canonicalizes raw according to the attribute kind. The boolean is
// false when the value cannot be represented (an unparseable date); that is
// an expected outcome, not an error.
func Normalize(attr Attribute, raw string) (string, bool) {
	switch attr.Kind {
	case KindDate:
		return NormalizeDate(raw)
	case KindName:
		return NormalizeName(raw), true
	case KindIdentifier:
		return NormalizeIdentifier(raw), true
	default:
		return strings.ToLower(strings.TrimSpace(raw)), true
	}
}

// NormalizeDate parses raw against the accepted layouts and renders it as
// YYYY-MM-DD.
func NormalizeDate(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	if t, ok := parseDate(value); ok {
		return t.Format(CanonicalDateLayout), true
	}
	// Month names arrive as "MAY", "may" or "May" depending on the extractor.
	if t, ok := parseDate(cases.Title(language.Und).String(value)); ok {
		return t.Format(CanonicalDateLayout), true
	}
	return "", false
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeName lowercases, folds accented Latin letters to their base
// letters and collapses whitespace.
func NormalizeName(raw string) string {
	folded, _, err := transform.String(diacriticFolder(), strings.ToLower(raw))
	if err != nil {
		folded = strings.ToLower(raw)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// diacriticFolder is built per call: transform chains carry state and are not
// safe for concurrent use.
func diacriticFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeIdentifier keeps only letters and digits, upper cased, so document
// numbers printed in groups ("ab 123-4567") compare equal to the compact form.
func NormalizeIdentifier(raw string) string {
	return strings.Map(func(r rune) rune {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)
}
