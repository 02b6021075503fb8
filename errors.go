package authclient

import (
	"errors"

	"github.com/MrEthical07/goAuth-client/refresh"
	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

var (
	// ErrInvalidCredentials is returned by Login and Register when the authority rejects the input.
	ErrInvalidCredentials = transport.ErrInvalidCredentials
	// ErrEmailAlreadyRegistered is returned by Register on conflict.
	ErrEmailAlreadyRegistered = transport.ErrEmailAlreadyRegistered
	// ErrRefreshTokenExpired marks a session lost to refresh token expiry.
	ErrRefreshTokenExpired = transport.ErrRefreshTokenExpired
	// ErrRefreshTokenRevoked marks a session revoked by the authority.
	ErrRefreshTokenRevoked = transport.ErrRefreshTokenRevoked
	// ErrNetwork marks transient failures. Stored tokens are kept.
	ErrNetwork = transport.ErrNetwork
	// ErrUnauthorized is returned when a request is still rejected after one forced refresh.
	ErrUnauthorized = transport.ErrUnauthorized
	// ErrInvalidRequest is returned for malformed requests to the authority.
	ErrInvalidRequest = transport.ErrInvalidRequest
	// ErrUnexpectedStatus is returned for statuses outside an auth endpoint's contract.
	ErrUnexpectedStatus = transport.ErrUnexpectedStatus
	// ErrMalformedResponse is returned when an auth endpoint's body cannot be interpreted.
	ErrMalformedResponse = transport.ErrMalformedResponse
	// ErrNotAuthenticated is returned when no usable session exists.
	ErrNotAuthenticated = refresh.ErrNotAuthenticated
	// ErrCorrupt is returned when persisted token data cannot be decoded or authenticated.
	ErrCorrupt = tokenstore.ErrCorrupt
	// ErrPartialPair is returned when a pair missing either token is saved.
	ErrPartialPair = tokenstore.ErrPartialPair
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client closed")
)
