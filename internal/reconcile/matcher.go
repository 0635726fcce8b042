package reconcile

import "strings"

// Inconsistency records a compared value that did not agree with its group's
// reference. Raw values are kept for human review.
type Inconsistency struct {
	Group        MatchGroup
	ReferenceKey FieldKey
	Reference    string
	ComparedKey  FieldKey
	Compared     string
}

// GroupOutcome is the tally of one match group over one record.
type GroupOutcome struct {
	Comparisons     int
	Agreements      int
	Inconsistencies []Inconsistency
}

// Matcher compares the members of a match group against its reference.
type Matcher struct {
	catalog   Catalog
	threshold float64
}

// NewMatcher builds a Matcher that accepts similarity ratios >= threshold.
func NewMatcher(catalog Catalog, threshold float64) *Matcher {
	return &Matcher{catalog: catalog, threshold: threshold}
}

// Evaluate compares every present non-reference member of group with the
// first present member. Groups with fewer than two present members produce
// an empty outcome.
func (m *Matcher) Evaluate(group MatchGroup, record ClientRecord) GroupOutcome {
	var out GroupOutcome
	if group.Disabled {
		return out
	}

	present := make([]FieldKey, 0, len(group.Keys))
	for _, k := range group.Keys {
		if _, ok := record.Value(k); ok {
			present = append(present, k)
		}
	}
	if len(present) < 2 {
		return out
	}

	refKey := present[0]
	refRaw, _ := record.Value(refKey)
	refAttr := m.catalog.Lookup(refKey.Attribute)
	refNorm, refOK := Normalize(refAttr, refRaw)

	for _, key := range present[1:] {
		raw, _ := record.Value(key)
		attr := m.catalog.Lookup(key.Attribute)
		norm, ok := Normalize(attr, raw)

		out.Comparisons++
		if refOK && ok && m.agree(refAttr, refNorm, attr, norm) {
			out.Agreements++
			continue
		}
		out.Inconsistencies = append(out.Inconsistencies, Inconsistency{
			Group:        group,
			ReferenceKey: refKey,
			Reference:    refRaw,
			ComparedKey:  key,
			Compared:     raw,
		})
	}
	return out
}

// agree applies, in order: exact equality, the partial given-name rule, and
// the similarity threshold. Identifiers only ever agree on equality.
func (m *Matcher) agree(refAttr Attribute, ref string, attr Attribute, val string) bool {
	if ref == val {
		return true
	}
	if refAttr.Kind == KindIdentifier || attr.Kind == KindIdentifier {
		return false
	}
	if refAttr.Partial || attr.Partial {
		// An empty value is a substring of every value.
		if strings.Contains(ref, val) || strings.Contains(val, ref) {
			return true
		}
	}
	return Similarity(ref, val) >= m.threshold
}
