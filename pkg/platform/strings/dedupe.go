// Package strings holds small string-slice helpers for configuration values.
package strings

import (
	"slices"
	"strings"
)

// DedupeAndTrim trims each value and drops blanks and repeats, keeping the
// first occurrence order. A list such as KAFKA_BROKERS="a, b,a," yields
// [a b].
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

