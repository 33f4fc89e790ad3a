// Package cache stores generated documents by key. Values are computed whole, so a
// backend only needs atomic replacement of single entries.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kolah/routedoc/internal/config"
)

var (
	ErrNotFound = errors.New("cache: key not found")
	ErrClosed   = errors.New("cache: closed")
)

type Cache interface {
	// Get returns ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear removes every key starting with prefix and reports how many were removed.
	Clear(ctx context.Context, prefix string) (int, error)
	Close() error
}

// New opens the backend selected by cfg.Driver.
func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(time.Now), nil
	case "redis":
		return NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown cache driver: %s", cfg.Driver)
	}
}
