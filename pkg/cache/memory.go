package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry struct {
	key     string
	value   []byte
	expires time.Time // zero: never
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryCache is an in-process Service with LRU eviction.
type MemoryCache struct {
	opts memoryOptions

	mu    sync.Mutex
	order *list.List // front is most recently used
	items map[string]*list.Element

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	o := memoryOptions{maxEntries: 1000, sweep: time.Minute, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	mc := &MemoryCache{
		opts:  o,
		order: list.New(),
		items: make(map[string]*list.Element),
		stop:  make(chan struct{}),
	}
	go mc.sweepLoop()
	return mc
}

func (mc *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return mc.opts.now().Add(ttl)
}

// lookupLocked returns the live entry for key, dropping it if expired.
func (mc *MemoryCache) lookupLocked(key string) (*list.Element, bool) {
	el, ok := mc.items[key]
	if !ok {
		return nil, false
	}
	if el.Value.(*entry).expired(mc.opts.now()) {
		mc.removeLocked(el)
		return nil, false
	}
	return el, true
}

func (mc *MemoryCache) removeLocked(el *list.Element) {
	mc.order.Remove(el)
	delete(mc.items, el.Value.(*entry).key)
}

func (mc *MemoryCache) putLocked(key string, value []byte, ttl time.Duration) {
	if el, ok := mc.items[key]; ok {
		e := el.Value.(*entry)
		e.value, e.expires = value, mc.expiry(ttl)
		mc.order.MoveToFront(el)
		return
	}
	for mc.order.Len() >= mc.opts.maxEntries {
		mc.removeLocked(mc.order.Back())
	}
	mc.items[key] = mc.order.PushFront(&entry{key: key, value: value, expires: mc.expiry(ttl)})
}

// Set stores value; ttl <= 0 keeps it until deleted or evicted.
func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	mc.putLocked(key, data, ttl)
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	el, ok := mc.lookupLocked(key)
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	data := el.Value.(*entry).value
	mc.mu.Unlock()
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if el, ok := mc.items[k]; ok {
			mc.removeLocked(el)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if _, ok := mc.lookupLocked(k); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, held := mc.lookupLocked(key); held {
		return false, nil
	}
	mc.putLocked(key, []byte(lockValue), ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len reports the number of stored entries, expired ones included until the
// next sweep.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) sweepLoop() {
	t := time.NewTicker(mc.opts.sweep)
	defer t.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case <-t.C:
			mc.sweep()
		}
	}
}

func (mc *MemoryCache) sweep() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := mc.opts.now()
	for el := mc.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry).expired(now) {
			mc.removeLocked(el)
		}
		el = prev
	}
}

// Close stops the background sweep. Stored data stays readable.
func (mc *MemoryCache) Close() error {
	mc.stopOnce.Do(func() { close(mc.stop) })
	return nil
}
