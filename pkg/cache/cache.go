// Package cache provides the key/value store used for token and portal
// endpoint caching. The store is injected rather than held as a process
// singleton so its lifetime and scope belong to the caller.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent from the store
var ErrNotFound = errors.New("cache key not found")

// Store is a minimal key/value capability. Values are idempotent
// re-derivations, so last-writer-wins semantics are acceptable.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}
