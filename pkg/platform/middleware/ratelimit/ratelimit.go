// Package ratelimit throttles HTTP clients with a per-key sliding window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"clerk/pkg/platform/httputil"
	"clerk/pkg/platform/middleware/metadata"
)

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Window is an in-memory sliding window limiter. It is per process, not
// shared between replicas.
type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	hits   map[string][]time.Time
}

type Option func(*Window)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWindow allows limit requests per key within window.
func NewWindow(limit int, window time.Duration, opts ...Option) *Window {
	w := &Window{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Allow admits one request for key if the window has room.
func (w *Window) Allow(key string) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	hits := prune(w.hits[key], now.Add(-w.window))
	if len(hits) >= w.limit {
		w.hits[key] = hits
		return Result{Allowed: false, Limit: w.limit, ResetAt: hits[0].Add(w.window)}
	}

	hits = append(hits, now)
	w.hits[key] = hits
	return Result{
		Allowed:   true,
		Limit:     w.limit,
		Remaining: w.limit - len(hits),
		ResetAt:   hits[0].Add(w.window),
	}
}

// Sweep drops keys with no hits inside the window.
func (w *Window) Sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.window)
	for key, hits := range w.hits {
		if hits = prune(hits, cutoff); len(hits) == 0 {
			delete(w.hits, key)
		} else {
			w.hits[key] = hits
		}
	}
}

// prune removes timestamps at or before cutoff; hits are in order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(hits); i++ {
		if hits[i].After(cutoff) {
			break
		}
	}
	return hits[i:]
}

// Middleware limits requests per client IP. A nil window disables limiting.
func Middleware(w *Window) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if w == nil {
			return next
		}
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			result := w.Allow(metadata.ClientIPFromRequest(r))
			rw.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			rw.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			rw.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !result.Allowed {
				retry := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
				if retry < 1 {
					retry = 1
				}
				rw.Header().Set("Retry-After", strconv.Itoa(retry))
				httputil.WriteJSON(rw, http.StatusTooManyRequests, httputil.ErrorResponse{
					Error:            "rate_limited",
					ErrorDescription: "too many requests",
				})
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}
