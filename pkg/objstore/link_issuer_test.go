package objstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampExpiry(t *testing.T) {
	assert.Equal(t, DefaultLinkExpiry, ClampExpiry(0))
	assert.Equal(t, DefaultLinkExpiry, ClampExpiry(-time.Minute))
	assert.Equal(t, MinLinkExpiry, ClampExpiry(10*time.Second))
	assert.Equal(t, MaxLinkExpiry, ClampExpiry(24*time.Hour))
	assert.Equal(t, 900*time.Second, ClampExpiry(900*time.Second))
}

func TestFakeLinkIssuerRecordsIssuedKeys(t *testing.T) {
	issuer := NewFakeLinkIssuer()

	url, err := issuer.PresignedGetURL(context.Background(), "datasets/x/part1.zip", 10*time.Second)
	require.NoError(t, err)
	assert.Contains(t, url, "datasets/x/part1.zip")

	assert.Equal(t, 1, issuer.IssuedCount())
	assert.Equal(t, MinLinkExpiry, issuer.Expiries[0])

	issuer.Fail = true
	_, err = issuer.PresignedGetURL(context.Background(), "datasets/x/part2.zip", 0)
	assert.ErrorIs(t, err, ErrFileUnavailable)
	assert.Equal(t, 1, issuer.IssuedCount())
}
