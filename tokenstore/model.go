package tokenstore

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTokenType is assumed when the authority omits token_type.
const DefaultTokenType = "Bearer"

// Pair is the access/refresh token pair currently held by the client.
//
// A Pair is immutable once issued; a refresh replaces it wholesale.
type Pair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string

	// Subject is display-only (usually the account email) and never used for authorization.
	Subject string

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	IssuedAt         time.Time
}

// IsZero reports whether p carries no tokens at all.
func (p Pair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Validate enforces the all-or-nothing and expiry-order invariants.
func (p Pair) Validate() error {
	if p.AccessToken == "" || p.RefreshToken == "" {
		return ErrPartialPair
	}
	if p.AccessExpiresAt.IsZero() || p.RefreshExpiresAt.IsZero() {
		return ErrPartialPair
	}
	if p.AccessExpiresAt.After(p.RefreshExpiresAt) {
		return ErrExpiryOrder
	}
	return nil
}

// AccessValidFor reports whether the access token stays valid for strictly more than
// skew after now.
func (p Pair) AccessValidFor(now time.Time, skew time.Duration) bool {
	return p.AccessExpiresAt.Sub(now) > skew
}

// RefreshExpired reports whether the refresh token can no longer be used at now.
func (p Pair) RefreshExpired(now time.Time) bool {
	return !now.Before(p.RefreshExpiresAt)
}

// Scheme returns the authorization scheme for the access token.
func (p Pair) Scheme() string {
	if p.TokenType == "" {
		return DefaultTokenType
	}
	return p.TokenType
}

// Fingerprint returns a short, non-reversible identifier for a token, safe for logs.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
