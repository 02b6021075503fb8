package tokenstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairValidateRejectsPartial(t *testing.T) {
	p := testPair()
	p.RefreshToken = ""
	require.ErrorIs(t, p.Validate(), ErrPartialPair)

	p = testPair()
	p.AccessToken = ""
	require.ErrorIs(t, p.Validate(), ErrPartialPair)
}

func TestPairValidateRejectsAccessOutlivingRefresh(t *testing.T) {
	p := testPair()
	p.AccessExpiresAt = p.RefreshExpiresAt.Add(time.Second)
	require.ErrorIs(t, p.Validate(), ErrExpiryOrder)
}

func TestAccessValidForSkewBoundary(t *testing.T) {
	now := time.Now()
	skew := 60 * time.Second

	p := testPair()
	p.AccessExpiresAt = now.Add(59 * time.Second)
	assert.False(t, p.AccessValidFor(now, skew))

	p.AccessExpiresAt = now.Add(61 * time.Second)
	assert.True(t, p.AccessValidFor(now, skew))

	p.AccessExpiresAt = now.Add(60 * time.Second)
	assert.False(t, p.AccessValidFor(now, skew), "exactly skew away must refresh")
}

func TestFingerprintStableAndShort(t *testing.T) {
	assert.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	assert.Len(t, Fingerprint("abc"), 8)
	assert.Empty(t, Fingerprint(""))
}
