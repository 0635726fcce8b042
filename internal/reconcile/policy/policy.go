// Package policy loads reconciliation policies from YAML. The match groups,
// validation rules and thresholds live in data so they can be tuned without
// touching engine code; default.yaml is the policy shipped with the binary.
package policy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"clerk/internal/reconcile"
)

//go:embed default.yaml
var defaultYAML []byte

type document struct {
	SimilarityThreshold *float64             `yaml:"similarity_threshold"`
	AcceptThreshold     *float64             `yaml:"accept_threshold"`
	Attributes          map[string]attribute `yaml:"attributes"`
	MatchGroups         []matchGroup         `yaml:"match_groups"`
	ValidationRules     []validationRule     `yaml:"validation_rules"`
}

type attribute struct {
	Kind    string `yaml:"kind"`
	Partial bool   `yaml:"partial"`
}

type matchGroup struct {
	Name     string   `yaml:"name"`
	Keys     []string `yaml:"keys"`
	Disabled bool     `yaml:"disabled"`
}

type validationRule struct {
	Name       string   `yaml:"name"`
	Check      string   `yaml:"check"`
	Attributes []string `yaml:"attributes"`
	Kinds      []string `yaml:"kinds"`
	Sources    []string `yaml:"sources"`
	Reason     string   `yaml:"reason"`
	Disabled   bool     `yaml:"disabled"`
}

// Default returns the embedded policy.
func Default() reconcile.Policy {
	p, err := Load(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("policy: embedded default is invalid: %v", err))
	}
	return p
}

// LoadFile reads a policy from a YAML file.
func LoadFile(path string) (reconcile.Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return reconcile.Policy{}, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a YAML policy. Unknown keys are rejected so a
// misspelled "disabled" cannot silently leave a rule active.
func Load(r io.Reader) (reconcile.Policy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return reconcile.Policy{}, fmt.Errorf("%w: empty policy document", reconcile.ErrInvalidPolicy)
		}
		return reconcile.Policy{}, fmt.Errorf("%w: %w", reconcile.ErrInvalidPolicy, err)
	}

	p, err := doc.toPolicy()
	if err != nil {
		return reconcile.Policy{}, err
	}
	if err := p.Validate(); err != nil {
		return reconcile.Policy{}, err
	}
	return p, nil
}

func (d document) toPolicy() (reconcile.Policy, error) {
	p := reconcile.Policy{
		Attributes:          make(reconcile.Catalog, len(d.Attributes)),
		SimilarityThreshold: reconcile.DefaultSimilarityThreshold,
		AcceptThreshold:     reconcile.DefaultAcceptThreshold,
	}
	if d.SimilarityThreshold != nil {
		p.SimilarityThreshold = *d.SimilarityThreshold
	}
	if d.AcceptThreshold != nil {
		p.AcceptThreshold = *d.AcceptThreshold
	}

	for name, a := range d.Attributes {
		kind, err := reconcile.ParseKind(a.Kind)
		if err != nil {
			return reconcile.Policy{}, fmt.Errorf("attribute %q: %w", name, err)
		}
		p.Attributes[name] = reconcile.Attribute{Name: name, Kind: kind, Partial: a.Partial}
	}

	for _, g := range d.MatchGroups {
		p.MatchGroups = append(p.MatchGroups, reconcile.MatchGroup{
			Name:     g.Name,
			Keys:     reconcile.MustKeys(g.Keys...),
			Disabled: g.Disabled,
		})
	}

	for _, r := range d.ValidationRules {
		kinds := make([]reconcile.Kind, 0, len(r.Kinds))
		for _, k := range r.Kinds {
			kind, err := reconcile.ParseKind(k)
			if err != nil {
				return reconcile.Policy{}, fmt.Errorf("validation rule %q: %w", r.Name, err)
			}
			kinds = append(kinds, kind)
		}
		p.ValidationRules = append(p.ValidationRules, reconcile.ValidationRule{
			Name:       r.Name,
			Check:      reconcile.Check(r.Check),
			Attributes: r.Attributes,
			Kinds:      kinds,
			Sources:    r.Sources,
			Reason:     r.Reason,
			Disabled:   r.Disabled,
		})
	}
	return p, nil
}

// Overrides are the policy knobs exposed through application configuration.
// Zero thresholds keep the policy's own values.
type Overrides struct {
	PhoneValidation     bool
	SimilarityThreshold float64
	AcceptThreshold     float64
}

// Apply returns p adjusted by o.
func (o Overrides) Apply(p reconcile.Policy) reconcile.Policy {
	p = p.WithRuleEnabled(PhoneRule, o.PhoneValidation)
	if o.SimilarityThreshold > 0 {
		p.SimilarityThreshold = o.SimilarityThreshold
	}
	if o.AcceptThreshold > 0 {
		p.AcceptThreshold = o.AcceptThreshold
	}
	return p
}

// PhoneRule is the name of the phone-number validation rule in default.yaml.
const PhoneRule = "phone_number"
