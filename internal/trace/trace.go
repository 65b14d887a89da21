package trace

import (
	"context"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id on inbound and outbound requests.
const HeaderRequestID = "X-Request-Id"

type ctxKey struct{}

// GenerateID returns a new random request id.
func GenerateID() string {
	return uuid.NewString()
}

// WithRequestID stores the request id on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFromContext returns the request id stored on ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
