// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services and publishers read
// them without importing net/http.
//
//	requestID := requestcontext.RequestID(ctx)
//	at, ok := requestcontext.Time(ctx)
//
// Tests inject a fixed time with requestcontext.WithTime.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported keys for tests that need context.WithValue directly.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// RequestID returns the request id or "" when unset.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Time returns the request time captured by middleware, if any.
func Time(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(ContextKeyRequestTime).(time.Time)
	return t, ok
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
