package handler

import (
	"time"

	"clerk/internal/onboarding"
)

// reserved keys of the decision payload; snapshot fields never overwrite them.
const (
	keyClientID    = "client_id"
	keyDecision    = "decision"
	keyEvaluatedAt = "evaluated_at"
)

// FromResult flattens a result into the report keys plus client_id,
// decision and evaluated_at.
func FromResult(result *onboarding.Result) (map[string]any, error) {
	out, err := result.Report.Fields()
	if err != nil {
		return nil, err
	}
	out[keyClientID] = result.ClientID
	out[keyDecision] = result.Decision.String()
	out[keyEvaluatedAt] = result.EvaluatedAt.UTC().Format(time.RFC3339)
	return out, nil
}

// FromClientView merges the snapshot's raw fields with its result. Result
// keys win on collision.
func FromClientView(view *onboarding.ClientView) (map[string]any, error) {
	resultFields, err := FromResult(view.Result)
	if err != nil {
		return nil, err
	}
	snapshot := view.Snapshot.Fields.Fields()
	out := make(map[string]any, len(snapshot)+len(resultFields))
	for k, v := range snapshot {
		out[k] = v
	}
	for k, v := range resultFields {
		out[k] = v
	}
	return out, nil
}
