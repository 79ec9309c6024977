package observability

import "context"

type correlationKey struct{}

// WithCorrelationID stores the request correlation id on the context so it
// can be forwarded to upstream calls and logs.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id from the context, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}
