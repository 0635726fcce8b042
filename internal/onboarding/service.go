// Package onboarding evaluates client records with the reconcile engine and
// surrounds each evaluation with tracing, metrics, logging and a decision
// announcement.
package onboarding

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SnapshotStore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"clerk/internal/intake"
	"clerk/internal/onboarding/metrics"
	"clerk/internal/onboarding/ports"
	"clerk/internal/reconcile"
	"clerk/pkg/platform/sentinel"
	"clerk/pkg/requestcontext"
)

var tracer = otel.Tracer("clerk/onboarding")

// Origin labels where an evaluation request came from.
type Origin string

const (
	OriginAPI      Origin = "api"
	OriginSnapshot Origin = "snapshot"
	OriginBatch    Origin = "batch"
	OriginGame     Origin = "game"
)

// SnapshotStore is the read side of intake.Store.
type SnapshotStore interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (intake.Snapshot, error)
}

// Result is one evaluated client.
type Result struct {
	ClientID    string
	Report      reconcile.Report
	Decision    reconcile.Decision
	EvaluatedAt time.Time
}

// ClientView pairs a stored snapshot with its evaluation.
type ClientView struct {
	Snapshot intake.Snapshot
	Result   *Result
}

// Service orchestrates record evaluation.
type Service struct {
	engine     *reconcile.Engine
	snapshots  SnapshotStore
	publisher  ports.DecisionPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time
	pick       func(n int) int
	batchLimit int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(publisher ports.DecisionPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithClock sets the time source for EvaluatedAt.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPicker sets how NextClient chooses among n snapshots.
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) {
		if pick != nil {
			s.pick = pick
		}
	}
}

// WithBatchLimit bounds concurrent evaluations in EvaluateBatch.
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// New constructs a Service.
func New(engine *reconcile.Engine, snapshots SnapshotStore, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.New("reconcile engine is required")
	}
	if snapshots == nil {
		return nil, errors.New("snapshot store is required")
	}
	s := &Service{
		engine:     engine,
		snapshots:  snapshots,
		logger:     slog.New(slog.DiscardHandler),
		clock:      time.Now,
		pick:       rand.IntN,
		batchLimit: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate reconciles a record submitted by a caller.
func (s *Service) Evaluate(ctx context.Context, clientID string, record reconcile.ClientRecord) (*Result, error) {
	return s.evaluate(ctx, clientID, record, OriginAPI)
}

// EvaluateAs is Evaluate with an explicit origin label.
func (s *Service) EvaluateAs(ctx context.Context, clientID string, record reconcile.ClientRecord, origin Origin) (*Result, error) {
	return s.evaluate(ctx, clientID, record, origin)
}

// EvaluateSnapshot loads a stored snapshot and evaluates it.
func (s *Service) EvaluateSnapshot(ctx context.Context, id string) (*Result, error) {
	snap, err := s.snapshots.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return s.evaluate(ctx, snap.ID, snap.Fields, OriginSnapshot)
}

// NextClient picks a stored snapshot at random and evaluates it. An empty
// store yields sentinel.ErrNotFound.
func (s *Service) NextClient(ctx context.Context) (*ClientView, error) {
	ids, err := s.snapshots.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no client snapshots: %w", sentinel.ErrNotFound)
	}
	snap, err := s.snapshots.Get(ctx, ids[s.pick(len(ids))])
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	result, err := s.evaluate(ctx, snap.ID, snap.Fields, OriginSnapshot)
	if err != nil {
		return nil, err
	}
	return &ClientView{Snapshot: snap, Result: result}, nil
}

func (s *Service) evaluate(ctx context.Context, clientID string, record reconcile.ClientRecord, origin Origin) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "onboarding.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("client.id", clientID),
		attribute.String("evaluation.origin", string(origin)),
		attribute.Int("record.fields", record.Len()),
	)

	start := time.Now()
	report, decision := s.engine.Evaluate(record)
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	s.metrics.IncrementOutcome(decision.String(), string(origin))
	s.metrics.ObserveConsistency(report.ConsistencyPercentage)
	for _, entry := range report.InvalidEntries {
		s.metrics.IncrementInvalid(entry.Rule)
	}

	// Requests carry one captured time so responses and events agree.
	evaluatedAt, ok := requestcontext.Time(ctx)
	if !ok {
		evaluatedAt = s.clock()
	}
	result := &Result{
		ClientID:    clientID,
		Report:      report,
		Decision:    decision,
		EvaluatedAt: evaluatedAt,
	}
	span.SetAttributes(
		attribute.String("decision", decision.String()),
		attribute.Float64("consistency.percentage", report.ConsistencyPercentage),
	)

	s.logger.InfoContext(ctx, "client evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"client_id", clientID,
		"origin", origin,
		"decision", decision,
		"consistency_percentage", report.ConsistencyPercentage,
		"inconsistencies", len(report.Inconsistencies),
		"invalid_entries", len(report.InvalidEntries),
	)

	s.announce(ctx, result, origin)
	return result, nil
}

// announce publishes the decision. Failures are logged and never alter it.
func (s *Service) announce(ctx context.Context, result *Result, origin Origin) {
	if s.publisher == nil {
		return
	}
	event := ports.DecisionEvent{
		ClientID:              result.ClientID,
		Decision:              result.Decision.String(),
		ConsistencyPercentage: result.Report.ConsistencyPercentage,
		Inconsistencies:       len(result.Report.Inconsistencies),
		InvalidEntries:        len(result.Report.InvalidEntries),
		Origin:                string(origin),
		RequestID:             requestcontext.RequestID(ctx),
		EvaluatedAt:           result.EvaluatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncrementPublishFailure(publisherName(s.publisher))
		s.logger.WarnContext(ctx, "decision announcement failed",
			"client_id", result.ClientID,
			"decision", result.Decision,
			"error", err,
		)
	}
}

func publisherName(p ports.DecisionPublisher) string {
	if named, ok := p.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}
