package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "FlareScope/pkg/cache"
)

// bytesAdapter exposes a shared cache Service through the minimal BytesCache
// API. Values cross the shared cache as strings, the one round-trip every
// backend handles identically.
type bytesAdapter struct {
	svc pkgcache.Service
}

// New wraps a cache Service as a BytesCache.
func New(svc pkgcache.Service) BytesCache {
	return &bytesAdapter{svc: svc}
}

func (c *bytesAdapter) GetBytes(key string) ([]byte, bool, error) {
	var s string
	err := c.svc.Get(context.Background(), key, &s)
	switch {
	case errors.Is(err, pkgcache.ErrCacheMiss):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return []byte(s), true, nil
}

func (c *bytesAdapter) SetBytes(key string, value []byte, ttl time.Duration) error {
	return c.svc.Set(context.Background(), key, string(value), ttl)
}
