package objstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeLinkIssuer is a test double. It records every issued key and can be
// made to fail to exercise the "file unavailable" path.
type FakeLinkIssuer struct {
	mu         sync.Mutex
	Fail       bool
	IssuedKeys []string
	Expiries   []time.Duration
}

func NewFakeLinkIssuer() *FakeLinkIssuer {
	return &FakeLinkIssuer{}
}

func (f *FakeLinkIssuer) PresignedGetURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail {
		return "", ErrFileUnavailable
	}

	clamped := ClampExpiry(expiry)
	f.IssuedKeys = append(f.IssuedKeys, key)
	f.Expiries = append(f.Expiries, clamped)

	return fmt.Sprintf("https://fake.store/%s?expires=%d", key, int(clamped.Seconds())), nil
}

func (f *FakeLinkIssuer) IssuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.IssuedKeys)
}
