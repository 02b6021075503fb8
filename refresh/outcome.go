package refresh

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

// ErrNotAuthenticated is returned when no usable session exists.
var ErrNotAuthenticated = errors.New("not authenticated")

// Reason explains why an [Outcome] carries no access token.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonRefreshTokenExpired
	ReasonRefreshTokenRevoked
	ReasonNetworkError
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonRefreshTokenExpired:
		return "refresh_token_expired"
	case ReasonRefreshTokenRevoked:
		return "refresh_token_revoked"
	case ReasonNetworkError:
		return "network_error"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Terminal reports whether the session is gone for good.
func (r Reason) Terminal() bool {
	return r == ReasonRefreshTokenExpired || r == ReasonRefreshTokenRevoked
}

// Outcome is the result of EnsureFresh or ForceRefresh.
//
// Exactly one of Token, Reason or Err is meaningful: a usable access token, an expected
// auth failure, or a fatal error (store failure, caller cancellation). For
// ReasonNetworkError, Err holds the cause.
type Outcome struct {
	Token  string
	Pair   tokenstore.Pair
	Reason Reason
	Err    error

	// Refreshed is set when the token came from a network refresh.
	Refreshed bool
}

// Authenticated reports whether the outcome carries a usable access token.
func (o Outcome) Authenticated() bool {
	return o.Token != "" && o.Reason == ReasonNone && o.Err == nil
}

// AsError converts a failed outcome into a sentinel-wrapped error, or nil on success.
func (o Outcome) AsError() error {
	switch o.Reason {
	case ReasonNone:
		if o.Err != nil {
			return o.Err
		}
		if o.Token == "" {
			return ErrNotAuthenticated
		}
		return nil
	case ReasonUnauthenticated:
		return ErrNotAuthenticated
	case ReasonRefreshTokenExpired:
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, transport.ErrRefreshTokenExpired)
	case ReasonRefreshTokenRevoked:
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, transport.ErrRefreshTokenRevoked)
	case ReasonNetworkError:
		if o.Err != nil && errors.Is(o.Err, transport.ErrNetwork) {
			return o.Err
		}
		return fmt.Errorf("%w: %v", transport.ErrNetwork, o.Err)
	default:
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, o.Reason)
	}
}

func tokenOutcome(p tokenstore.Pair, refreshed bool) Outcome {
	return Outcome{Token: p.AccessToken, Pair: p, Refreshed: refreshed}
}
