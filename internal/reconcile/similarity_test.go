package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "zurich", b: "zurich", want: 1.0},
		{name: "case insensitive", a: "Zurich", b: "ZURICH", want: 1.0},
		{name: "whitespace insensitive", a: "ab 1234567", b: "ab1234567", want: 1.0},
		{name: "disjoint", a: "abc", b: "xyz", want: 0.0},
		{name: "one character differs", a: "ab1234567", b: "ab1234568", want: 16.0 / 18.0},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "abc", b: "", want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarityOfValueWithItselfIsOne(t *testing.T) {
	for _, s := range []string{"a", "anna-maria", "jose alvarez", "1990-05-02", "zürich", "ab1234567"} {
		assert.Equal(t, 1.0, Similarity(s, s), s)
	}
}
