// Package correlation carries a per-request correlation id through
// context.Context so log lines written on behalf of one request, including
// those written from worker goroutines, can be joined together.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const idKey ctxKey = "correlation-id"

const (
	// HeaderName is the HTTP header read from requests and echoed in responses.
	HeaderName = "X-Correlation-ID"

	// RequestIDHeader is accepted as a fallback when HeaderName is absent.
	RequestIDHeader = "X-Request-ID"

	// MetadataKey is the gRPC metadata key.
	MetadataKey = "x-correlation-id"
)

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// FromContext returns the id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(idKey).(string)
	return id
}

// NewID returns a fresh random id.
func NewID() string {
	return uuid.NewString()
}

// Ensure returns ctx unchanged when it already carries an id, otherwise a
// child context with a new one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return WithID(ctx, id), id
}
