package cache

import "time"

// entry is a cache entry.
type entry struct {
	key  string
	data interface{}

	// stale is a snapshot of data taken when expiration was observed,
	// it is only set while revalidating.
	stale interface{}

	written  time.Time
	accessed time.Time
	ttl      time.Duration

	revalidating bool
}

func (e entry) Key() string {
	return e.key
}

func (e entry) Value() interface{} {
	return e.data
}

func (e entry) WrittenAt() time.Time {
	return e.written
}

func (e entry) TTL() time.Duration {
	return e.ttl
}

func (e entry) Revalidating() bool {
	return e.revalidating
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.written) > e.ttl
}
