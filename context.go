package authclient

import (
	"context"

	"github.com/MrEthical07/goAuth-client/transport"
)

// WithRequestID attaches the X-Request-Id used for every call made with ctx, including a
// refresh it triggers and the retry after a 401. Without it each call gets a fresh uuid.
func WithRequestID(ctx context.Context, id string) context.Context {
	return transport.WithRequestID(ctx, id)
}
