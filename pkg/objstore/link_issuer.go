package objstore

import (
	"context"
	"errors"
	"time"
)

// Expiry bounds for presigned URLs. Requests outside the window are
// clamped rather than rejected.
const (
	MinLinkExpiry     = 300 * time.Second
	MaxLinkExpiry     = 3600 * time.Second
	DefaultLinkExpiry = MinLinkExpiry
)

// ErrFileUnavailable is returned when the storage backend can't be
// reached or the object can't be signed. It never reflects an
// entitlement problem.
var ErrFileUnavailable = errors.New("file unavailable")

// LinkIssuer produces time-limited download URLs for objects held in the
// external store. Issuing a URL has no side effects; download accounting
// happens elsewhere.
type LinkIssuer interface {
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ClampExpiry forces an expiry into the allowed window, substituting the
// default for zero or negative values.
func ClampExpiry(expiry time.Duration) time.Duration {
	switch {
	case expiry <= 0:
		return DefaultLinkExpiry
	case expiry < MinLinkExpiry:
		return MinLinkExpiry
	case expiry > MaxLinkExpiry:
		return MaxLinkExpiry
	default:
		return expiry
	}
}
