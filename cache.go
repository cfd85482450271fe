package cache

import (
	"context"
	"io"
	"time"
)

// DefaultTTL is a time to live of an entry written with zero ttl.
const DefaultTTL = 15 * time.Minute

// Storage keeps revalidation state of cached values.
//
// Store and NoOp implement it.
type Storage interface {
	// Lookup returns cached value and flips revalidation flag of an expired entry.
	Lookup(ctx context.Context, key string) Lookup

	// Set unconditionally stores fresh value.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)

	// Update stores value after successful revalidation.
	Update(ctx context.Context, key string, value interface{}, ttl time.Duration)

	// MarkRevalidationComplete resets revalidation state keeping the value.
	MarkRevalidationComplete(ctx context.Context, key string)
}

// Lookup is a result of a storage read.
type Lookup struct {
	// Value is a fresh or stale value, nil if not found.
	Value interface{}

	// Found is true if entry exists.
	Found bool

	// Stale is true if entry is expired.
	Stale bool

	// Revalidate is true if this read has started revalidation of expired entry,
	// only one concurrent reader gets it.
	Revalidate bool
}

// Entry is a read-only view of a cached entry.
type Entry interface {
	Key() string
	Value() interface{}
	WrittenAt() time.Time
	TTL() time.Duration
	Revalidating() bool
}

// Walker calls function for every entry in cache and fails on first error returned by that function.
//
// Count of processed entries is returned.
type Walker interface {
	Walk(func(e Entry) error) (int, error)
}

// Dumper dumps cache entries in binary format.
type Dumper interface {
	Dump(w io.Writer) (int, error)
}

// Restorer restores cache entries from binary dump.
type Restorer interface {
	Restore(r io.Reader) (int, error)
}

// Stats describes store contents.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}
