// Package snapshot persists exported declaration libraries in a key-value
// store, in memory or in Redis.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store defines the interface for all snapshot backends
type Store interface {
	// Get retrieves a value from the store
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL; zero means the configured default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the store
	Delete(ctx context.Context, key string) error

	// Clear removes all values under the store's prefix
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the store
	Exists(ctx context.Context, key string) (bool, error)

	// Keys lists the stored keys without the prefix, sorted
	Keys(ctx context.Context) ([]string, error)

	Close() error
}

// Config holds common configuration for store backends
type Config struct {
	// DefaultTTL is the time-to-live for values stored with a zero TTL.
	// A negative value stores without expiry.
	DefaultTTL time.Duration
	// Prefix is prepended to all keys
	Prefix string
}

// DefaultConfig returns a default store configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 24 * time.Hour,
		Prefix:     "mirror:",
	}
}

func (c Config) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		ttl = c.DefaultTTL
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}

// ErrMiss is returned when a key is not found in the store
type ErrMiss struct {
	Key string
}

func (e ErrMiss) Error() string {
	return "snapshot miss: " + e.Key
}

// IsMiss checks if an error is a store miss
func IsMiss(err error) bool {
	var miss ErrMiss
	return errors.As(err, &miss)
}

// Options selects and configures a backend
type Options struct {
	Backend  string // "memory" or "redis"
	Addr     string
	Password string
	DB       int
	Config   Config
}

// Open creates the store named by opts.Backend
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStoreWithConfig(opts.Config), nil
	case "redis":
		return NewRedisStoreWithConfig(RedisConfig{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
			Config:   opts.Config,
		})
	}
	return nil, fmt.Errorf("unknown snapshot backend %q", opts.Backend)
}
