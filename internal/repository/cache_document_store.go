package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"
)

const (
	docPrefix  = "doc"
	lockPrefix = "lock"
)

// CacheDocumentStore keeps documents in a cache.Service (memory, Redis or
// layered). Saves hold a per-key lock so concurrent hosts serialise writes.
type CacheDocumentStore struct {
	cache     cache.Service
	lockTTL   time.Duration
	lockRetry time.Duration
}

func NewCacheDocumentStore(c cache.Service) *CacheDocumentStore {
	return &CacheDocumentStore{cache: c, lockTTL: 10 * time.Second, lockRetry: 20 * time.Millisecond}
}

func (s *CacheDocumentStore) Load(ctx context.Context, key string, dest interface{}) error {
	err := s.cache.Get(ctx, cache.Key(docPrefix, key), dest)
	if errors.Is(err, cache.ErrCacheMiss) {
		return domrepo.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("load document %s: %w", key, err)
	}
	return nil
}

func (s *CacheDocumentStore) Save(ctx context.Context, key string, v interface{}) error {
	lock := cache.Key(lockPrefix, docPrefix, key)
	if err := s.acquire(ctx, lock); err != nil {
		return fmt.Errorf("lock document %s: %w", key, err)
	}
	defer func() { _ = s.cache.Unlock(context.WithoutCancel(ctx), lock) }()

	if err := s.cache.Set(ctx, cache.Key(docPrefix, key), v, 0); err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying cache.
func (s *CacheDocumentStore) Close() error { return s.cache.Close() }

// acquire spins on TryLock until it succeeds or ctx is done.
func (s *CacheDocumentStore) acquire(ctx context.Context, lock string) error {
	for {
		ok, err := s.cache.TryLock(ctx, lock, s.lockTTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.lockRetry):
		}
	}
}

var _ domrepo.DocumentStore = (*CacheDocumentStore)(nil)
