package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// LocalCache is the in-process fallback store, backed by ttlcache so
// expiry does not cost one timer handle per key.
type LocalCache struct {
	cache *ttlcache.Cache[string, string]
}

// NewLocalCache creates an in-process cache with automatic expiry.
func NewLocalCache() *LocalCache {
	c := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()

	return &LocalCache{cache: c}
}

func (l *LocalCache) Get(_ context.Context, key string) (string, bool, error) {
	item := l.cache.Get(key)
	if item == nil {
		return "", false, nil
	}
	return item.Value(), true, nil
}

func (l *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	l.cache.Set(key, value, ttl)
	return nil
}

func (l *LocalCache) Delete(_ context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

func (l *LocalCache) Clear(_ context.Context) error {
	l.cache.DeleteAll()
	return nil
}

// Len returns the current entry count.
func (l *LocalCache) Len() int { return l.cache.Len() }

// Close stops the expiry goroutine.
func (l *LocalCache) Close() { l.cache.Stop() }
