package flows

import (
	"context"

	"github.com/MrEthical07/goAuth-client/tokenstore"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store  tokenstore.Store
	Revoke func(ctx context.Context, refreshToken string) error
	// Clear wipes the session. Store.Clear is used when nil.
	Clear func(context.Context) error
}

// LogoutResult reports what logout managed to do. RemoteErr is informational; the local
// session is gone whenever Err is nil.
type LogoutResult struct {
	HadSession bool
	RemoteErr  error
	Err        error
}

// RunLogout revokes the refresh token server-side on a best-effort basis and always
// clears the local store.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	pair, ok, loadErr := deps.Store.Load(ctx)

	var res LogoutResult
	if loadErr == nil && ok {
		res.HadSession = true
		if deps.Revoke != nil {
			res.RemoteErr = deps.Revoke(ctx, pair.RefreshToken)
		}
	}

	wipe := deps.Clear
	if wipe == nil {
		wipe = deps.Store.Clear
	}
	res.Err = wipe(ctx)
	return res
}
