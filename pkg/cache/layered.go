package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: process memory in front of a shared backend.
// Locks always go to the backend.
type LayeredCache struct {
	mem     *MemoryCache
	backend Service
}

func NewLayeredCache(backend Service, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{mem: NewMemoryCache(opts...), backend: backend}
}

// Set writes through: backend first, then memory.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.backend.Set(ctx, key, b, expiration); err != nil {
		return err
	}
	return lc.mem.Set(ctx, key, b, expiration)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	var raw []byte
	if err := lc.backend.Get(ctx, key, &raw); err != nil {
		return err
	}
	// Backend TTL is unknown here; the memory layer's MaxTTL bounds staleness.
	_ = lc.mem.Set(ctx, key, raw, 0)
	return decode(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.backend.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.mem.DeleteByPattern(ctx, pattern)
	return lc.backend.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.backend.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.backend.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.backend.Close()
}
