// Package app wires configuration into the snapshot store, the reconcile
// engine, the decision publisher and the onboarding service shared by every
// entry point.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"clerk/internal/intake"
	"clerk/internal/onboarding"
	"clerk/internal/onboarding/handler"
	onboardingmetrics "clerk/internal/onboarding/metrics"
	"clerk/internal/onboarding/ports"
	"clerk/internal/onboarding/publisher"
	"clerk/internal/platform/config"
	"clerk/internal/platform/httpserver"
	platformmetrics "clerk/internal/platform/metrics"
	"clerk/internal/platform/postgres"
	platformredis "clerk/internal/platform/redis"
	"clerk/internal/reconcile"
	"clerk/internal/reconcile/policy"
	"clerk/pkg/platform/circuit"
	"clerk/pkg/platform/middleware/ratelimit"
)

// App holds the wired dependencies and the resources to release on Close.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Engine  *reconcile.Engine
	Store   intake.Store
	Service *onboarding.Service

	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	health   []httpserver.HealthCheck
	closers  []func() error
}

type Option func(*App)

// WithRegistry registers metrics with reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = reg
		a.gatherer = reg
	}
}

// New builds the application. On error every resource opened so far is
// closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		registry: prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.build(ctx); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	pol, err := BuildPolicy(a.Config.Policy)
	if err != nil {
		return err
	}
	engine, err := reconcile.New(pol)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	a.Engine = engine

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.Store = store

	pub, err := a.openPublisher(ctx)
	if err != nil {
		return err
	}

	svc, err := onboarding.New(engine, store,
		onboarding.WithLogger(a.Logger),
		onboarding.WithMetrics(onboardingmetrics.NewWithRegistry(a.registry)),
		onboarding.WithPublisher(pub),
		onboarding.WithBatchLimit(a.Config.Store.BatchLimit),
	)
	if err != nil {
		return err
	}
	a.Service = svc
	return nil
}

// BuildPolicy loads the configured policy file or the embedded default and
// applies the configured overrides.
func BuildPolicy(cfg config.Policy) (reconcile.Policy, error) {
	base := policy.Default()
	if cfg.File != "" {
		loaded, err := policy.LoadFile(cfg.File)
		if err != nil {
			return reconcile.Policy{}, err
		}
		base = loaded
	}
	overrides := policy.Overrides{
		PhoneValidation:     cfg.PhoneValidation,
		SimilarityThreshold: cfg.SimilarityThreshold,
		AcceptThreshold:     cfg.AcceptThreshold,
	}
	return overrides.Apply(base), nil
}

func (a *App) openStore(ctx context.Context) (intake.Store, error) {
	cfg := a.Config
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return intake.NewMemoryStore(), nil
	case config.BackendDir:
		return intake.NewDirStore(cfg.Store.Dir)
	case config.BackendMinio:
		client, err := intake.NewMinioClient(intake.MinioConfig{
			Endpoint:       cfg.Minio.Endpoint,
			AccessKey:      cfg.Minio.AccessKey,
			SecretKey:      cfg.Minio.SecretKey,
			UseSSL:         cfg.Minio.UseSSL,
			Region:         cfg.Minio.Region,
			Bucket:         cfg.Minio.Bucket,
			Prefix:         cfg.Minio.Prefix,
			TimeoutSeconds: cfg.Minio.TimeoutSeconds,
		})
		if err != nil {
			return nil, err
		}
		store := intake.NewMinioStore(client, cfg.Minio.Bucket, cfg.Minio.Prefix)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis store requires redis.url")
		}
		a.closers = append(a.closers, client.Close)
		a.health = append(a.health, client.Health)
		return intake.NewRedisStore(client.Client, intake.WithRedisPrefix(cfg.Redis.Prefix)), nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.health = append(a.health, db.PingContext)
		store := intake.NewPostgresStore(db)
		if cfg.Postgres.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openPublisher announces to Kafka behind a breaker that falls back to the
// log, or only to the log when no brokers are configured.
func (a *App) openPublisher(ctx context.Context) (ports.DecisionPublisher, error) {
	logPub := publisher.NewLog(a.Logger)
	kcfg := a.Config.Kafka
	if !kcfg.Enabled() {
		return logPub, nil
	}

	kafka, err := publisher.NewKafka(kcfg.Brokers, kcfg.Topic,
		publisher.WithKafkaLogger(a.Logger),
		publisher.WithPublishTimeout(kcfg.PublishTimeout),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, kafka.Close)

	if client, ok := kafka.Client(); ok {
		if err := publisher.EnsureTopic(ctx, client, kcfg.Topic, kcfg.Partitions, kcfg.ReplicationFactor); err != nil {
			a.Logger.WarnContext(ctx, "could not ensure decision topic", "topic", kcfg.Topic, "error", err)
		}
	}
	return publisher.NewFallback(kafka, logPub, circuit.New("decision-kafka"), a.Logger), nil
}

// Handler returns the HTTP API with shared middleware, /health and /metrics.
func (a *App) Handler() http.Handler {
	var limiter *ratelimit.Window
	if n := a.Config.Server.RateLimit; n > 0 {
		limiter = ratelimit.NewWindow(n, time.Minute)
	}
	r := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:  a.Logger,
		Metrics: platformmetrics.NewWithRegistry(a.registry, a.gatherer),
		Limiter: limiter,
		Health:  a.health,
	})
	handler.New(a.Service, a.Logger).Register(r)
	return r
}

// Close releases resources in reverse opening order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
