// Package reconcile cross-checks client fields extracted from several
// onboarding documents and turns the result into an Accept/Reject decision.
//
// The engine is a pure in-memory computation: it holds only the policy it was
// built with, performs no I/O and may be shared between goroutines.
package reconcile

import "fmt"

// Engine reconciles client records under a fixed Policy.
type Engine struct {
	policy    Policy
	matcher   *Matcher
	validator *Validator
}

// New validates policy and builds an Engine from it.
func New(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy = policy.clone()
	return &Engine{
		policy:    policy,
		matcher:   NewMatcher(policy.Attributes, policy.SimilarityThreshold),
		validator: NewValidator(policy.Attributes, policy.ValidationRules),
	}, nil
}

// MustNew is New for policies known to be valid, such as the embedded default.
func MustNew(policy Policy) *Engine {
	e, err := New(policy)
	if err != nil {
		panic(fmt.Sprintf("reconcile: %v", err))
	}
	return e
}

// Policy returns a copy of the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy.clone()
}

// Reconcile validates the record and evaluates every match group.
func (e *Engine) Reconcile(record ClientRecord) Report {
	report := Report{
		Inconsistencies: []Inconsistency{},
		InvalidEntries:  e.validator.Validate(record),
	}
	for _, group := range e.policy.MatchGroups {
		outcome := e.matcher.Evaluate(group, record)
		report.Comparisons += outcome.Comparisons
		report.Agreements += outcome.Agreements
		report.Inconsistencies = append(report.Inconsistencies, outcome.Inconsistencies...)
	}
	report.ConsistencyPercentage = Score(report.Comparisons, report.Agreements)
	return report
}

// Decide applies the policy's accept threshold to report.
func (e *Engine) Decide(report Report) Decision {
	return Decide(report, e.policy.AcceptThreshold)
}

// Evaluate reconciles record and decides on the resulting report.
func (e *Engine) Evaluate(record ClientRecord) (Report, Decision) {
	report := e.Reconcile(record)
	return report, e.Decide(report)
}
