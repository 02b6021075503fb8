package tokenstore

import "context"

// Store is the sole source of truth for which tokens the client currently holds.
//
// All methods are idempotent. Load reports ok=false when no pair is stored; Clear on an
// empty store succeeds.
type Store interface {
	Save(ctx context.Context, pair Pair) error
	Load(ctx context.Context) (pair Pair, ok bool, err error)
	Clear(ctx context.Context) error
}
