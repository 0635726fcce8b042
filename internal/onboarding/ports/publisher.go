package ports

//go:generate mockgen -source=publisher.go -destination=mocks/mocks.go -package=mocks DecisionPublisher

import (
	"context"
	"time"
)

// DecisionEvent announces one onboarding decision. It carries the outcome
// summary only; the client's field values never leave the service.
type DecisionEvent struct {
	ClientID              string    `json:"client_id"`
	Decision              string    `json:"decision"`
	ConsistencyPercentage float64   `json:"consistency_percentage"`
	Inconsistencies       int       `json:"inconsistencies"`
	InvalidEntries        int       `json:"invalid_entries"`
	Origin                string    `json:"origin"`
	RequestID             string    `json:"request_id,omitempty"`
	EvaluatedAt           time.Time `json:"evaluated_at"`
}

// DecisionPublisher delivers decision events. Delivery is best effort.
type DecisionPublisher interface {
	Publish(ctx context.Context, event DecisionEvent) error
}
