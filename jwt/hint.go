package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for opaque tokens that are not three-part JWTs.
var ErrNotJWT = errors.New("token is not a jwt")

// Hint carries unverified claim values from an access token.
type Hint struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// DisplayName prefers the email claim and falls back to sub.
func (h Hint) DisplayName() string {
	if h.Email != "" {
		return h.Email
	}
	return h.Subject
}

type hintClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes the claims segment of token. Signature and time claims are not checked.
func Inspect(token string) (Hint, error) {
	if strings.Count(token, ".") != 2 {
		return Hint{}, ErrNotJWT
	}

	var claims hintClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Hint{}, errors.Join(ErrNotJWT, err)
	}

	h := Hint{
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.ExpiresAt != nil {
		h.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		h.IssuedAt = claims.IssuedAt.Time
	}
	return h, nil
}
