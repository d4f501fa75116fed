package cache

import (
	"fmt"
	"time"
)

// RedisConfig is the connection setup for NewRedisCache. Zero fields take
// the defaults below.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	DialTimeout  time.Duration
	// Prefix namespaces every key as "<prefix>:<key>".
	Prefix string
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = c.PoolSize / 2
	}
	if c.PoolTimeout <= 0 {
		c.PoolTimeout = 4 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "signalforge"
	}
	return c
}

func (c RedisConfig) addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// MemoryOption configures NewMemoryCache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	maxEntries int
	sweep      time.Duration
	now        func() time.Time
}

// WithMaxEntries bounds the cache; the least recently used entry goes first.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithSweepInterval sets how often expired entries are dropped in the
// background.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		if d > 0 {
			o.sweep = d
		}
	}
}

func withClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) { o.now = now }
}

// LayeredOption configures NewLayeredCache.
type LayeredOption func(*layeredOptions)

type layeredOptions struct {
	size int
	ttl  time.Duration
}

// WithLocalSize bounds the in-process layer.
func WithLocalSize(n int) LayeredOption {
	return func(o *layeredOptions) { o.size = n }
}

// WithLocalTTL caps how long a value read from the remote layer is served
// locally. Zero keeps it until evicted or overwritten.
func WithLocalTTL(d time.Duration) LayeredOption {
	return func(o *layeredOptions) { o.ttl = d }
}
