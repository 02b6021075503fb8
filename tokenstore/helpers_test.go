package tokenstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPair() Pair {
	now := time.UnixMilli(time.Now().UnixMilli())
	return Pair{
		AccessToken:      "access-1",
		RefreshToken:     "refresh-1",
		TokenType:        "Bearer",
		Subject:          "a@b.com",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		IssuedAt:         now,
	}
}

func testSealer(t *testing.T) Sealer {
	t.Helper()
	s, err := NewKeySealer(make([]byte, 32))
	require.NoError(t, err)
	return s
}

func fastKDF() KDFConfig {
	return KDFConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1}
}
