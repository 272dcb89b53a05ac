// Package cache provides the short-TTL ranking cache internal/decision
// wraps around its MCDM kernel: a tiny get-or-miss, set-with-ttl store,
// backed by memory or Redis depending on deployment size.
package cache

import (
	"context"
	"errors"
	"time"

	"balancer-gateway/pkg/config"
)

// Backend types for cache implementations.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrKeyNotFound is returned when a requested key does not exist in the cache.
var ErrKeyNotFound = errors.New("key not found")

// Cache is the key-value store a ranking cache needs: look up a
// previously computed ranking by key, store a fresh one with a TTL, and
// release resources on shutdown. This is deliberately not a
// general-purpose cache interface — nothing in this module deletes,
// scans, or inspects cache entries, so there is no Delete, MGet, Keys, or
// Stats method to keep honest.
type Cache interface {
	// Get returns the value stored under key, or ErrKeyNotFound if it is
	// absent or has expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for ttl. A non-positive ttl falls back
	// to the cache's configured default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Close releases any underlying resources (background cleanup
	// goroutine, Redis connection pool).
	Close() error
}

// Options configures a Cache backend.
type Options struct {
	Backend    string        // BackendMemory or BackendRedis.
	DefaultTTL time.Duration // Used when Set is called with ttl <= 0.

	// Memory backend
	MaxEntries      int           // Entries evicted LRU-first once exceeded.
	CleanupInterval time.Duration // How often expired entries are swept.

	// Redis backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}

// DefaultOptions returns sane defaults sized for a ranking cache, not a
// general-purpose data cache: few distinct keys (one per
// algorithm/weights combination in active use), short TTL.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      2 * time.Second,
		MaxEntries:      4096,
		CleanupInterval: 30 * time.Second,
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		RedisPoolSize:   10,
	}
}

// FromConfig builds Options from the app's cache config section.
func FromConfig(cfg *config.CacheConfig) *Options {
	return &Options{
		Backend:       cfg.Driver,
		DefaultTTL:    cfg.DefaultTTL,
		MaxEntries:    cfg.MaxEntries,
		RedisAddr:     cfg.Address(),
		RedisPassword: cfg.Password,
		RedisDB:       cfg.DB,
		RedisPoolSize: 10,
	}
}

// New builds a Cache for the backend named in opts.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	default:
		return NewMemoryCache(opts), nil
	}
}

// MustNew builds a Cache or panics. Used in tests and anywhere the backend
// choice is already known to be valid.
func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
