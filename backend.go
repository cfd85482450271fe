package cache

import (
	"context"

	bcache "github.com/bool64/cache"
)

var _ bcache.ReadWriter = Backend{}

// Backend exposes Store with github.com/bool64/cache ReadWriter contract.
//
// It plugs Store into code built on that contract, for example as a backend of
// bcache.NewFailover(bcache.FailoverConfig{Upstream: NewBackend(store)}).
//
// Expired values are returned without error, first expired read marks entry as revalidating.
type Backend struct {
	store *Store
}

// NewBackend creates Backend for a store.
func NewBackend(store *Store) Backend {
	return Backend{store: store}
}

// Read returns fresh or stale value, bcache.ErrNotFound on miss.
func (b Backend) Read(ctx context.Context, key []byte) (interface{}, error) {
	if bcache.SkipRead(ctx) {
		return nil, bcache.ErrNotFound
	}

	v, found := b.store.Get(ctx, string(key))
	if !found {
		return nil, bcache.ErrNotFound
	}

	return v, nil
}

// Write stores value with ttl from context, default ttl is used when context has none.
func (b Backend) Write(ctx context.Context, key []byte, value interface{}) error {
	ttl := bcache.TTL(ctx)

	// Negative ttl means value must not be stored.
	if ttl < 0 {
		return nil
	}

	b.store.Set(ctx, string(key), value, ttl)

	return nil
}
