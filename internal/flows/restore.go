package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

// RestoreFailureKind classifies boot-time restore failures.
type RestoreFailureKind int

const (
	RestoreFailureNone RestoreFailureKind = iota
	RestoreFailureNoSession
	RestoreFailureExpired
	RestoreFailureCorrupt
	RestoreFailureRejected
	RestoreFailureNetwork
)

// RestoreResult carries the restored profile or the reason the session is gone.
type RestoreResult struct {
	Failure RestoreFailureKind
	Err     error
	Pair    tokenstore.Pair
	Profile transport.Profile

	// Cleared reports whether the flow wiped the store.
	Cleared bool
}

// RestoreDeps captures restore flow dependencies.
type RestoreDeps struct {
	Store        tokenstore.Store
	Now          func() time.Time
	FetchProfile func(context.Context) (transport.Profile, error)
	// Clear wipes the session. Store.Clear is used when nil.
	Clear func(context.Context) error

	Corrupt    error
	NetworkErr error
}

// RunRestore rebuilds a session from persisted tokens.
//
// No network call is made when the store is empty or the refresh token has expired.
// A network failure keeps the tokens so a later call can retry.
func RunRestore(ctx context.Context, deps RestoreDeps) RestoreResult {
	wipe := deps.Clear
	if wipe == nil {
		wipe = deps.Store.Clear
	}

	pair, ok, err := deps.Store.Load(ctx)
	if err != nil {
		if deps.Corrupt != nil && errors.Is(err, deps.Corrupt) {
			clearErr := wipe(ctx)
			return RestoreResult{
				Failure: RestoreFailureCorrupt,
				Err:     errors.Join(err, clearErr),
				Cleared: clearErr == nil,
			}
		}
		return RestoreResult{Failure: RestoreFailureNetwork, Err: err}
	}
	if !ok {
		return RestoreResult{Failure: RestoreFailureNoSession}
	}

	if pair.RefreshExpired(deps.Now()) {
		clearErr := wipe(ctx)
		return RestoreResult{
			Failure: RestoreFailureExpired,
			Err:     clearErr,
			Pair:    pair,
			Cleared: clearErr == nil,
		}
	}

	profile, err := deps.FetchProfile(ctx)
	if err != nil {
		if deps.NetworkErr != nil && errors.Is(err, deps.NetworkErr) {
			return RestoreResult{Failure: RestoreFailureNetwork, Err: err, Pair: pair}
		}
		clearErr := wipe(ctx)
		return RestoreResult{
			Failure: RestoreFailureRejected,
			Err:     err,
			Pair:    pair,
			Cleared: clearErr == nil,
		}
	}

	return RestoreResult{
		Failure: RestoreFailureNone,
		Pair:    pair,
		Profile: profile,
	}
}
