// internal/logging/context.go
package logging

import (
	"context"

	"go.uber.org/zap"
)

type requestCtxKey struct{}

// WithRequestID attaches a request/operation ID to ctx for log correlation
// (e.g. a per-IndexProject or per-GetContext invocation ID).
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request ID previously attached, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// FieldsFromContext extracts correlation fields for inclusion in log calls.
func FieldsFromContext(ctx context.Context) []zap.Field {
	if id := RequestIDFromContext(ctx); id != "" {
		return []zap.Field{zap.String("request.id", id)}
	}
	return nil
}
