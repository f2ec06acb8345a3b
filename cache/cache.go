// Package cache provides the ephemeral TTL key/value store used to
// memoize verified-token payloads and admin-status flags. A remote
// Redis backend is preferred; a supervisor transparently degrades to an
// in-process store when Redis is unreachable.
package cache

import (
	"context"
	"time"
)

// Backend identifies which store variant is serving requests.
type Backend string

const (
	BackendRedis Backend = "redis"
	BackendLocal Backend = "local"
)

// Cache is the contract shared by both variants. Values are opaque
// strings; callers serialize their own payloads.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Status reports the active backend. Entries is only meaningful for
// the in-process store; for Redis it is -1.
type Status struct {
	Backend Backend `json:"backend"`
	Entries int     `json:"entries"`
}
