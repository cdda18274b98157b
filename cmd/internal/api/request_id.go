package api

import "context"

type requestIDKey struct{}

// WithRequestID stores a request id on the context. The HTTP middleware
// assigns one per request; handlers read it back for their log events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or "" when none was assigned.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
