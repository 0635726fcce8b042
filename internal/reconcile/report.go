package reconcile

import (
	"encoding/json"
	"fmt"
)

// Report is the reconciliation outcome for one client record. It is built
// fresh for each call and never modified afterwards.
type Report struct {
	ConsistencyPercentage float64
	Comparisons           int
	Agreements            int
	Inconsistencies       []Inconsistency
	InvalidEntries        []InvalidEntry
}

// reportJSON is the wire shape consumed by reviewers and the demo front end.
type reportJSON struct {
	ConsistencyPercentage float64             `json:"consistency_percentage"`
	Inconsistencies       [][3]json.RawMessage `json:"potential_inconsistencies"`
	InvalidData           [][3]string          `json:"invalid_data"`
}

// MarshalJSON renders inconsistencies as [group keys, reference, compared]
// triples and invalid entries as [key, value, reason] triples.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		ConsistencyPercentage: r.ConsistencyPercentage,
		Inconsistencies:       make([][3]json.RawMessage, 0, len(r.Inconsistencies)),
		InvalidData:           make([][3]string, 0, len(r.InvalidEntries)),
	}
	for _, inc := range r.Inconsistencies {
		var triple [3]json.RawMessage
		for i, v := range []any{inc.Group.KeyStrings(), inc.Reference, inc.Compared} {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal inconsistency: %w", err)
			}
			triple[i] = b
		}
		out.Inconsistencies = append(out.Inconsistencies, triple)
	}
	for _, e := range r.InvalidEntries {
		out.InvalidData = append(out.InvalidData, [3]string{e.Key.String(), e.Value, e.Reason})
	}
	return json.Marshal(out)
}

// Fields returns the report as the flat map merged into demo responses.
func (r Report) Fields() (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("flatten report: %w", err)
	}
	return m, nil
}
