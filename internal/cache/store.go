// Package cache stores generated responses per session.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidDriver is returned for an unknown driver name.
	ErrInvalidDriver = errors.New("cache: invalid driver")
	// ErrInvalidConfig is returned when a driver is missing its dependencies.
	ErrInvalidConfig = errors.New("cache: invalid configuration")
)

// Driver names a Store implementation.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// Store maps fingerprints to response texts. Put overwrites.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Len(ctx context.Context) int
	Close() error
}

type storeConfig struct {
	ttl         time.Duration
	maxEntries  int
	namespace   string
	redisClient *redis.Client
}

// Option configures a Store.
type Option func(*storeConfig)

// WithTTL sets how long an entry lives. Zero keeps entries for the life of the store.
func WithTTL(ttl time.Duration) Option {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// WithMaxEntries bounds the memory store.
func WithMaxEntries(n int) Option {
	return func(c *storeConfig) {
		c.maxEntries = n
	}
}

// WithNamespace isolates the keys of one session in a shared backend.
func WithNamespace(ns string) Option {
	return func(c *storeConfig) {
		c.namespace = ns
	}
}

// WithRedisClient sets the client used by the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// NewStore creates a Store for the given driver.
func NewStore(driver Driver, opts ...Option) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case DriverMemory:
		return newMemoryStore(cfg.ttl, cfg.maxEntries), nil

	case DriverRedis:
		if cfg.redisClient == nil || cfg.namespace == "" {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(cfg.redisClient, cfg.namespace, cfg.ttl), nil

	default:
		return nil, ErrInvalidDriver
	}
}
