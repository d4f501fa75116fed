package cache

import (
	"context"
	"time"
)

// LayeredCache keeps a bounded in-process copy in front of a shared remote
// Service. Writes go to the remote first; locks live only remotely.
type LayeredCache struct {
	local  *MemoryCache
	remote Service
	ttl    time.Duration
}

func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	o := layeredOptions{size: 1000}
	for _, opt := range opts {
		opt(&o)
	}
	return &LayeredCache{
		local:  NewMemoryCache(WithMaxEntries(o.size)),
		remote: remote,
		ttl:    o.ttl,
	}
}

func (lc *LayeredCache) localTTL(ttl time.Duration) time.Duration {
	switch {
	case lc.ttl <= 0:
		return ttl
	case ttl <= 0 || lc.ttl < ttl:
		return lc.ttl
	}
	return ttl
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.remote.Set(ctx, key, data, ttl); err != nil {
		_ = lc.local.Delete(ctx, key)
		return err
	}
	return lc.local.Set(ctx, key, data, lc.localTTL(ttl))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	if err := lc.local.Get(ctx, key, &data); err == nil {
		return decode(data, dest)
	}
	if err := lc.remote.Get(ctx, key, &data); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, data, lc.localTTL(0))
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.remote.Exists(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.remote.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.remote.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.remote.Close()
}
