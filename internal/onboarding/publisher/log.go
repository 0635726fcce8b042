package publisher

import (
	"context"
	"log/slog"

	"clerk/internal/onboarding/ports"
)

// Log writes decision events to a structured logger. It is the publisher
// used when no broker is configured and the fallback behind Kafka.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Publish(ctx context.Context, event ports.DecisionEvent) error {
	l.logger.InfoContext(ctx, "decision announced",
		"client_id", event.ClientID,
		"decision", event.Decision,
		"consistency_percentage", event.ConsistencyPercentage,
		"inconsistencies", event.Inconsistencies,
		"invalid_entries", event.InvalidEntries,
		"origin", event.Origin,
		"request_id", event.RequestID,
		"evaluated_at", event.EvaluatedAt,
	)
	return nil
}
