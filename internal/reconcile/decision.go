package reconcile

import (
	"fmt"
	"math"
	"strings"
)

// Decision is the binary onboarding outcome.
type Decision string

const (
	Accept Decision = "Accept"
	Reject Decision = "Reject"
)

// ParseDecision accepts "accept"/"reject" in any letter case.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept":
		return Accept, nil
	case "reject":
		return Reject, nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

func (d Decision) String() string { return string(d) }

// Score turns the match tally into a percentage rounded to two decimals.
// A record with nothing to compare is fully consistent.
func Score(comparisons, agreements int) float64 {
	if comparisons <= 0 {
		return 100.0
	}
	pct := float64(agreements) / float64(comparisons) * 100
	return math.Round(pct*100) / 100
}

// Decide rejects when the consistency percentage is below threshold or when
// any field failed validation; both triggers are independent.
func Decide(report Report, threshold float64) Decision {
	if report.ConsistencyPercentage < threshold || len(report.InvalidEntries) > 0 {
		return Reject
	}
	return Accept
}
