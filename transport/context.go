package transport

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches the X-Request-Id to use for calls made with ctx. Without it every
// call gets a fresh uuid.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
