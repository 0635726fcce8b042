package reconcile

import (
	"regexp"
	"slices"
	"strings"
)

// InvalidEntry is a present field whose value fails a format check.
type InvalidEntry struct {
	Key    FieldKey
	Value  string
	Reason string
	Rule   string
}

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	passportPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{7}$`)
	phonePattern    = regexp.MustCompile(`^\+[0-9 ()\-]{7,}$`)
)

type checker struct {
	valid  func(string) bool
	reason string
}

var checkers = map[Check]checker{
	CheckDate: {
		valid: func(v string) bool {
			_, ok := NormalizeDate(v)
			return ok
		},
		reason: "Invalid date format",
	},
	CheckEmail: {
		valid:  func(v string) bool { return emailPattern.MatchString(strings.TrimSpace(v)) },
		reason: "Invalid email",
	},
	CheckPassport: {
		valid: func(v string) bool {
			return passportPattern.MatchString(strings.ToUpper(strings.TrimSpace(v)))
		},
		reason: "Invalid passport number",
	},
	CheckPhone: {
		valid:  func(v string) bool { return phonePattern.MatchString(strings.TrimSpace(v)) },
		reason: "Invalid phone number",
	},
}

// Validator runs the enabled validation rules over a record.
type Validator struct {
	catalog Catalog
	rules   []ValidationRule
}

// NewValidator keeps only the enabled rules.
func NewValidator(catalog Catalog, rules []ValidationRule) *Validator {
	enabled := make([]ValidationRule, 0, len(rules))
	for _, r := range rules {
		if !r.Disabled {
			enabled = append(enabled, r)
		}
	}
	return &Validator{catalog: catalog, rules: enabled}
}

// Validate returns one entry per present key and failing rule, ordered by key.
// A key that several rules reject is reported once per rule.
func (v *Validator) Validate(record ClientRecord) []InvalidEntry {
	entries := []InvalidEntry{}
	for _, key := range record.Keys() {
		raw, _ := record.Value(key)
		attr := v.catalog.Lookup(key.Attribute)
		for _, rule := range v.rules {
			if !rule.selects(key, attr) {
				continue
			}
			c := checkers[rule.Check]
			if c.valid(raw) {
				continue
			}
			reason := rule.Reason
			if reason == "" {
				reason = c.reason
			}
			entries = append(entries, InvalidEntry{Key: key, Value: raw, Reason: reason, Rule: rule.Name})
		}
	}
	return entries
}

func (r ValidationRule) selects(key FieldKey, attr Attribute) bool {
	if len(r.Sources) > 0 && !slices.Contains(r.Sources, key.Source) {
		return false
	}
	if slices.Contains(r.Attributes, key.Attribute) {
		return true
	}
	return slices.Contains(r.Kinds, attr.Kind)
}
