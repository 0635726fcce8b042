package publisher

import (
	"context"
	"log/slog"

	"clerk/internal/onboarding/ports"
	"clerk/pkg/platform/circuit"
)

// Fallback publishes to a primary publisher and, once the primary has failed
// often enough to open the breaker, hands events to a secondary one until the
// primary recovers.
type Fallback struct {
	primary   ports.DecisionPublisher
	secondary ports.DecisionPublisher
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

func NewFallback(primary, secondary ports.DecisionPublisher, breaker *circuit.Breaker, logger *slog.Logger) *Fallback {
	if breaker == nil {
		breaker = circuit.New("decision-publisher")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fallback{primary: primary, secondary: secondary, breaker: breaker, logger: logger}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Publish(ctx context.Context, event ports.DecisionEvent) error {
	err := f.primary.Publish(ctx, event)
	if err == nil {
		if _, change := f.breaker.RecordSuccess(); change.Closed {
			f.logger.InfoContext(ctx, "decision publisher recovered", "breaker", f.breaker.Name())
		}
		return nil
	}

	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.logger.WarnContext(ctx, "decision publisher circuit opened",
			"breaker", f.breaker.Name(),
			"error", err,
		)
	}
	if useFallback {
		return f.secondary.Publish(ctx, event)
	}
	return err
}
