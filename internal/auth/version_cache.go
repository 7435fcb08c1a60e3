package auth

import (
	"context"
	"sync"
	"time"
)

// VersionCache keeps short-lived token_version snapshots in front of the
// credential store. The TTL bounds how long a bumped version can go
// unnoticed; 0 disables caching so every validation hits the store.
type VersionCache struct {
	source TokenVersionSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[int64]versionEntry
}

type versionEntry struct {
	version   int64
	fetchedAt time.Time
}

func NewVersionCache(source TokenVersionSource, ttl time.Duration) *VersionCache {
	return &VersionCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]versionEntry),
	}
}

func (c *VersionCache) GetTokenVersion(ctx context.Context, staffID int64) (int64, error) {
	if c.ttl <= 0 {
		return c.source.GetTokenVersion(ctx, staffID)
	}

	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[staffID]
	c.mu.RUnlock()
	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		return entry.version, nil
	}

	version, err := c.source.GetTokenVersion(ctx, staffID)
	if err != nil {
		// Errors are not cached; the next validation retries the store.
		return 0, err
	}

	c.mu.Lock()
	c.entries[staffID] = versionEntry{version: version, fetchedAt: now}
	c.mu.Unlock()

	return version, nil
}

// Invalidate drops the snapshot for one identity. Called after local
// token_version bumps so in-process revocation is immediate.
func (c *VersionCache) Invalidate(staffID int64) {
	c.mu.Lock()
	delete(c.entries, staffID)
	c.mu.Unlock()
}
