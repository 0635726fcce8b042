package onboarding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clerk/internal/intake"
	"clerk/internal/onboarding/metrics"
	"clerk/internal/onboarding/mocks"
	"clerk/internal/onboarding/ports"
	portmocks "clerk/internal/onboarding/ports/mocks"
	"clerk/internal/reconcile"
	"clerk/internal/reconcile/policy"
	"clerk/pkg/platform/sentinel"
	"clerk/pkg/requestcontext"
)

var evaluatedAt = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func consistentRecord() reconcile.ClientRecord {
	return reconcile.NewClientRecord(map[string]string{
		"date_of_birth_profile.docx": "1990-05-02",
		"birth_date_passport.png":    "02-May-1990",
	})
}

func invalidEmailRecord() reconcile.ClientRecord {
	return reconcile.NewClientRecord(map[string]string{
		"email_account.pdf": "not-an-email",
	})
}

// =============================================================================
// Onboarding Service Test Suite
// =============================================================================
// Covers the orchestration around the engine: snapshot loading, announcement
// handling, metrics and batch tallies. Decision rules are covered by the
// reconcile package.

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *mocks.MockSnapshotStore
	publisher *portmocks.MockDecisionPublisher
	metrics   *metrics.Metrics
	engine    *reconcile.Engine
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockSnapshotStore(s.ctrl)
	s.publisher = portmocks.NewMockDecisionPublisher(s.ctrl)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.engine = reconcile.MustNew(policy.Default())

	var err error
	s.service, err = New(s.engine, s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithPublisher(s.publisher),
		WithClock(func() time.Time { return evaluatedAt }),
		WithPicker(func(int) int { return 0 }),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil engine returns error", func() {
		_, err := New(nil, s.store)
		s.ErrorContains(err, "reconcile engine is required")
	})

	s.Run("nil store returns error", func() {
		_, err := New(s.engine, nil)
		s.ErrorContains(err, "snapshot store is required")
	})

	s.Run("defaults need no options", func() {
		svc, err := New(s.engine, s.store)
		s.NoError(err)
		s.NotNil(svc.logger)
		s.Nil(svc.publisher)
	})
}

func (s *ServiceSuite) TestEvaluate() {
	s.Run("announces accepted decision", func() {
		ctx := requestcontext.WithRequestID(context.Background(), "req-1")
		s.publisher.EXPECT().Publish(gomock.Any(), ports.DecisionEvent{
			ClientID:              "42",
			Decision:              "Accept",
			ConsistencyPercentage: 100,
			Origin:                "api",
			RequestID:             "req-1",
			EvaluatedAt:           evaluatedAt,
		}).Return(nil)

		result, err := s.service.Evaluate(ctx, "42", consistentRecord())
		s.Require().NoError(err)
		s.Equal("42", result.ClientID)
		s.Equal(reconcile.Accept, result.Decision)
		s.Equal(evaluatedAt, result.EvaluatedAt)
	})

	s.Run("publisher failure does not change decision", func() {
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		result, err := s.service.Evaluate(context.Background(), "7", invalidEmailRecord())
		s.Require().NoError(err)
		s.Equal(reconcile.Reject, result.Decision)
		s.Len(result.Report.InvalidEntries, 1)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.PublishFailures.WithLabelValues("unknown")))
	})

	s.Run("records outcome metrics", func() {
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.EvaluateAs(context.Background(), "8", invalidEmailRecord(), OriginGame)
		s.Require().NoError(err)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.DecisionOutcome.WithLabelValues("Reject", "game")))
		s.GreaterOrEqual(testutil.ToFloat64(s.metrics.InvalidEntries.WithLabelValues("email")), 1.0)
	})

	s.Run("cancelled context is returned", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.service.Evaluate(ctx, "9", consistentRecord())
		s.ErrorIs(err, context.Canceled)
	})
}

func (s *ServiceSuite) TestEvaluateSnapshot() {
	s.Run("evaluates stored snapshot", func() {
		s.store.EXPECT().Get(gomock.Any(), "42").Return(intake.Snapshot{ID: "42", Fields: consistentRecord()}, nil)
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.service.EvaluateSnapshot(context.Background(), "42")
		s.Require().NoError(err)
		s.Equal(reconcile.Accept, result.Decision)
	})

	s.Run("unknown snapshot is not found", func() {
		s.store.EXPECT().Get(gomock.Any(), "nope").Return(intake.Snapshot{}, sentinel.ErrNotFound)

		_, err := s.service.EvaluateSnapshot(context.Background(), "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestNextClient() {
	s.Run("empty store is not found", func() {
		s.store.EXPECT().List(gomock.Any()).Return(nil, nil)

		_, err := s.service.NextClient(context.Background())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns picked snapshot with its result", func() {
		s.store.EXPECT().List(gomock.Any()).Return([]string{"3", "4"}, nil)
		s.store.EXPECT().Get(gomock.Any(), "3").Return(intake.Snapshot{ID: "3", Fields: invalidEmailRecord()}, nil)
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		view, err := s.service.NextClient(context.Background())
		s.Require().NoError(err)
		s.Equal("3", view.Snapshot.ID)
		s.Equal(reconcile.Reject, view.Result.Decision)
	})

	s.Run("list failure is wrapped", func() {
		s.store.EXPECT().List(gomock.Any()).Return(nil, sentinel.ErrUnavailable)

		_, err := s.service.NextClient(context.Background())
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})
}

func (s *ServiceSuite) TestEvaluateBatch() {
	s.Run("tallies labeled outcomes", func() {
		store := intake.NewMemoryStore()
		ctx := context.Background()
		s.Require().NoError(store.Save(ctx, intake.Snapshot{ID: "100", Fields: consistentRecord()}))   // accept, labeled accept
		s.Require().NoError(store.Save(ctx, intake.Snapshot{ID: "700", Fields: consistentRecord()}))   // accept, labeled reject
		s.Require().NoError(store.Save(ctx, intake.Snapshot{ID: "200", Fields: invalidEmailRecord()})) // reject, labeled accept
		s.Require().NoError(store.Save(ctx, intake.Snapshot{ID: "900", Fields: invalidEmailRecord()})) // reject, labeled reject
		s.Require().NoError(store.Save(ctx, intake.Snapshot{ID: "x", Fields: consistentRecord()}))     // unlabeled

		svc, err := New(s.engine, store, WithBatchLimit(2))
		s.Require().NoError(err)

		summary, err := svc.EvaluateBatch(ctx, ModuloLabeler())
		s.Require().NoError(err)
		s.Len(summary.Results, 5)
		s.Equal("100", summary.Results[0].ClientID)
		s.Equal(4, summary.Labeled)
		s.Equal(2, summary.Correct)
		s.Require().Len(summary.FalsePositives, 1)
		s.Equal("700", summary.FalsePositives[0].ClientID)
		s.Require().Len(summary.FalseNegatives, 1)
		s.Equal("200", summary.FalseNegatives[0].ClientID)
		s.Equal(50.0, summary.Accuracy())
	})

	s.Run("without labels only results are returned", func() {
		store := intake.NewMemoryStore()
		s.Require().NoError(store.Save(context.Background(), intake.Snapshot{ID: "1", Fields: consistentRecord()}))
		svc, err := New(s.engine, store)
		s.Require().NoError(err)

		summary, err := svc.EvaluateBatch(context.Background(), nil)
		s.Require().NoError(err)
		s.Len(summary.Results, 1)
		s.Zero(summary.Labeled)
		s.Zero(summary.Accuracy())
	})

	s.Run("load failure aborts the batch", func() {
		s.store.EXPECT().List(gomock.Any()).Return([]string{"1"}, nil)
		s.store.EXPECT().Get(gomock.Any(), "1").Return(intake.Snapshot{}, sentinel.ErrUnavailable)

		_, err := s.service.EvaluateBatch(context.Background(), nil)
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})
}

func TestMapLabeler(t *testing.T) {
	labels := MapLabeler(map[string]reconcile.Decision{"a": reconcile.Reject})
	d, ok := labels("a")
	if !ok || d != reconcile.Reject {
		t.Fatalf("expected Reject label, got %q %v", d, ok)
	}
	if _, ok := labels("b"); ok {
		t.Fatal("expected b to be unlabeled")
	}
}
