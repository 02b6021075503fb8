package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuth-client/tokenstore"
)

// RefreshFailureKind classifies refresh flow failures for coordinator-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureExpired
	RefreshFailureRevoked
	RefreshFailureNetwork
	RefreshFailureSave
	RefreshFailureSuperseded
)

// Terminal reports whether the failure means the refresh token can never be used again.
func (k RefreshFailureKind) Terminal() bool {
	return k == RefreshFailureExpired || k == RefreshFailureRevoked
}

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Pair    tokenstore.Pair

	// Cleared reports whether a terminal failure wiped the store.
	Cleared bool
	// Network reports whether the authority was contacted.
	Network bool
}

// RefreshTransport rotates a refresh token at the authority.
type RefreshTransport interface {
	Refresh(ctx context.Context, refreshToken string) (tokenstore.Pair, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Transport RefreshTransport
	Now       func() time.Time

	// Save and Clear return Superseded when the session was replaced while the
	// refresh was running; the result is then discarded.
	Save  func(context.Context, tokenstore.Pair) error
	Clear func(context.Context) error

	Warn func(string, ...any)

	RefreshTokenExpired error
	RefreshTokenRevoked error
	Superseded          error
}

// RunRefresh rotates current's refresh token and persists the replacement pair.
//
// Terminal failures clear the store. Network failures leave it untouched.
func RunRefresh(ctx context.Context, current tokenstore.Pair, deps RefreshDeps) RefreshResult {
	if current.RefreshExpired(deps.Now()) {
		return clearAfter(ctx, deps, RefreshResult{
			Failure: RefreshFailureExpired,
			Err:     deps.RefreshTokenExpired,
		})
	}

	next, err := deps.Transport.Refresh(ctx, current.RefreshToken)
	if err != nil {
		switch {
		case deps.RefreshTokenExpired != nil && errors.Is(err, deps.RefreshTokenExpired):
			return clearAfter(ctx, deps, RefreshResult{Failure: RefreshFailureExpired, Err: err, Network: true})
		case deps.RefreshTokenRevoked != nil && errors.Is(err, deps.RefreshTokenRevoked):
			return clearAfter(ctx, deps, RefreshResult{Failure: RefreshFailureRevoked, Err: err, Network: true})
		default:
			return RefreshResult{Failure: RefreshFailureNetwork, Err: err, Network: true}
		}
	}

	if next.Subject == "" {
		next.Subject = current.Subject
	}

	if err := deps.Save(ctx, next); err != nil {
		if deps.Superseded != nil && errors.Is(err, deps.Superseded) {
			return RefreshResult{Failure: RefreshFailureSuperseded, Err: err, Network: true}
		}
		return RefreshResult{Failure: RefreshFailureSave, Err: err, Pair: next, Network: true}
	}

	return RefreshResult{
		Failure: RefreshFailureNone,
		Pair:    next,
		Network: true,
	}
}

func clearAfter(ctx context.Context, deps RefreshDeps, res RefreshResult) RefreshResult {
	if err := deps.Clear(ctx); err != nil {
		if deps.Superseded != nil && errors.Is(err, deps.Superseded) {
			res.Failure = RefreshFailureSuperseded
			return res
		}
		if deps.Warn != nil {
			deps.Warn("authclient: clearing store after terminal refresh failed", "error", err)
		}
		return res
	}
	res.Cleared = true
	return res
}
