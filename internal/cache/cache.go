// Package cache provides the in-process cache used for per-date cost
// memoization. Values for the same key are pure functions of immutable
// inputs, so concurrent writers may safely overwrite each other.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a simple key/value store.
type Cache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration)
	Get(ctx context.Context, key string) (any, bool)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

// NoExpiration disables expiry for a Set call.
const NoExpiration = gocache.NoExpiration

// InMemoryCache is a go-cache backed Cache.
type InMemoryCache struct {
	store *gocache.Cache
}

// NewInMemoryCache creates a cache with no default expiry and no janitor;
// entries live for the lifetime of the owning series unless deleted.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{store: gocache.New(gocache.NoExpiration, 0)}
}

func (c *InMemoryCache) Set(_ context.Context, key string, value any, expiration time.Duration) {
	c.store.Set(key, value, expiration)
}

func (c *InMemoryCache) Get(_ context.Context, key string) (any, bool) {
	return c.store.Get(key)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.store.Delete(key)
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.store.Flush()
}
