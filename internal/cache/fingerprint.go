package cache

import (
	"context"
	"time"
)

const fingerprintKey = "fp:"

// FingerprintCache remembers accepted trend fingerprints in a Cache. With
// the Redis backend keys look like trendwatch:fp:<md5>.
type FingerprintCache struct {
	c   Cache
	ttl time.Duration
}

// NewFingerprintCache wraps c. Entries expire after ttl; zero uses the
// cache default.
func NewFingerprintCache(c Cache, ttl time.Duration) *FingerprintCache {
	return &FingerprintCache{c: c, ttl: ttl}
}

func (f *FingerprintCache) Seen(ctx context.Context, fp string) (bool, error) {
	_, ok, err := f.c.Get(ctx, fingerprintKey+fp)
	return ok, err
}

func (f *FingerprintCache) Remember(ctx context.Context, fp, trendID string) error {
	return f.c.Set(ctx, fingerprintKey+fp, trendID, f.ttl)
}

// TrendFor returns the trend id stored under fp.
func (f *FingerprintCache) TrendFor(ctx context.Context, fp string) (string, bool, error) {
	return f.c.Get(ctx, fingerprintKey+fp)
}

// Close closes the underlying cache.
func (f *FingerprintCache) Close() error { return f.c.Close() }
