package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when login or register input is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailAlreadyRegistered is returned by register on 409.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrRefreshTokenExpired is returned when the authority reports an expired refresh token.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrRefreshTokenRevoked is returned when the authority rejects a refresh token.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	// ErrNetwork marks transient failures: transport errors and 5xx from auth endpoints.
	ErrNetwork = errors.New("network error")
	// ErrUnauthorized is returned when a bearer token is rejected with 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRequest is returned for 400 responses that are not credential problems.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnexpectedStatus is returned for statuses outside an endpoint's contract.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedResponse is returned when a success body cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError carries the authority's status and message alongside a taxonomy sentinel.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Err, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }
