package reconcile

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is returned when a Policy cannot drive an Engine.
var ErrInvalidPolicy = errors.New("invalid reconciliation policy")

const (
	DefaultSimilarityThreshold = 0.80
	DefaultAcceptThreshold     = 95.0
)

// MatchGroup lists field keys expected to encode the same real-world value.
// The first present key is the reference the others are compared against.
type MatchGroup struct {
	Name     string
	Keys     []FieldKey
	Disabled bool
}

// KeyStrings returns the group's keys in configured order.
func (g MatchGroup) KeyStrings() []string {
	out := make([]string, len(g.Keys))
	for i, k := range g.Keys {
		out[i] = k.String()
	}
	return out
}

// Check names a format predicate.
type Check string

const (
	CheckDate     Check = "date"
	CheckEmail    Check = "email"
	CheckPassport Check = "passport"
	CheckPhone    Check = "phone"
)

// ValidationRule applies a format check to every present key selected by
// attribute name or attribute kind, optionally narrowed to given sources.
type ValidationRule struct {
	Name       string
	Check      Check
	Attributes []string
	Kinds      []Kind
	Sources    []string
	Reason     string
	Disabled   bool
}

// Policy is the static configuration an Engine is built from.
type Policy struct {
	Attributes          Catalog
	MatchGroups         []MatchGroup
	ValidationRules     []ValidationRule
	SimilarityThreshold float64
	AcceptThreshold     float64
}

// Validate reports every structural problem found in the policy.
func (p Policy) Validate() error {
	var errs []error
	if p.SimilarityThreshold < 0 || p.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity threshold %v outside [0,1]", p.SimilarityThreshold))
	}
	if p.AcceptThreshold < 0 || p.AcceptThreshold > 100 {
		errs = append(errs, fmt.Errorf("accept threshold %v outside [0,100]", p.AcceptThreshold))
	}

	groups := make(map[string]struct{}, len(p.MatchGroups))
	for i, g := range p.MatchGroups {
		if g.Name == "" {
			errs = append(errs, fmt.Errorf("match group %d has no name", i))
		} else if _, dup := groups[g.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate match group %q", g.Name))
		}
		groups[g.Name] = struct{}{}
		if len(g.Keys) == 0 {
			errs = append(errs, fmt.Errorf("match group %q has no keys", g.Name))
		}
	}

	rules := make(map[string]struct{}, len(p.ValidationRules))
	for i, r := range p.ValidationRules {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("validation rule %d has no name", i))
		} else if _, dup := rules[r.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate validation rule %q", r.Name))
		}
		rules[r.Name] = struct{}{}
		if _, ok := checkers[r.Check]; !ok {
			errs = append(errs, fmt.Errorf("validation rule %q has unknown check %q", r.Name, r.Check))
		}
		if len(r.Attributes) == 0 && len(r.Kinds) == 0 {
			errs = append(errs, fmt.Errorf("validation rule %q selects no fields", r.Name))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidPolicy, errors.Join(errs...))
}

// WithRuleEnabled returns a copy of the policy with the named rule switched
// on or off. Unknown names leave the policy unchanged.
func (p Policy) WithRuleEnabled(name string, enabled bool) Policy {
	out := p.clone()
	for i := range out.ValidationRules {
		if out.ValidationRules[i].Name == name {
			out.ValidationRules[i].Disabled = !enabled
		}
	}
	return out
}

// WithGroupEnabled returns a copy of the policy with the named match group
// switched on or off.
func (p Policy) WithGroupEnabled(name string, enabled bool) Policy {
	out := p.clone()
	for i := range out.MatchGroups {
		if out.MatchGroups[i].Name == name {
			out.MatchGroups[i].Disabled = !enabled
		}
	}
	return out
}

func (p Policy) clone() Policy {
	out := p
	out.Attributes = make(Catalog, len(p.Attributes))
	for k, v := range p.Attributes {
		out.Attributes[k] = v
	}
	out.MatchGroups = make([]MatchGroup, len(p.MatchGroups))
	for i, g := range p.MatchGroups {
		g.Keys = append([]FieldKey(nil), g.Keys...)
		out.MatchGroups[i] = g
	}
	out.ValidationRules = make([]ValidationRule, len(p.ValidationRules))
	for i, r := range p.ValidationRules {
		r.Attributes = append([]string(nil), r.Attributes...)
		r.Kinds = append([]Kind(nil), r.Kinds...)
		r.Sources = append([]string(nil), r.Sources...)
		out.ValidationRules[i] = r
	}
	return out
}
