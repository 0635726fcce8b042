// Package httpserver builds the HTTP server, its middleware chain and its
// lifecycle.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"clerk/internal/platform/metrics"
	"clerk/pkg/platform/httputil"
	"clerk/pkg/platform/middleware/ratelimit"
	"clerk/pkg/platform/middleware/requestid"
	"clerk/pkg/platform/middleware/requestlog"
	"clerk/pkg/platform/middleware/requesttime"
)

// New builds an HTTP server with sane defaults for this project.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// HealthCheck reports a dependency problem.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries the shared middleware dependencies. Nil fields
// disable what they configure.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Limiter *ratelimit.Window
	Health  []HealthCheck
}

// NewRouter returns a chi router with the shared middleware chain plus
// /health and /metrics. Feature handlers register on the returned router.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := cfg.Metrics
	checks := cfg.Health

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestlog.Middleware(logger))
	r.Use(m.Middleware)
	r.Use(ratelimit.Middleware(cfg.Limiter))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		for _, check := range checks {
			if err := check(req.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())
	return r
}

// Run serves until ctx is done, then shuts down within timeout.
func Run(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
