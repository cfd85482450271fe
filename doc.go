// Package cache provides an in-memory stale-while-revalidate store for results of expensive
// idempotent fetches, with a revalidator that refreshes expired entries in background.
//
// Features:
//
//   - Expired entries are not removed, stale value is served while refresh is in flight.
//   - At most one background refresh per key, check-and-flag runs under shard lock.
//   - Failed or timed out refresh resets revalidation state, next expired read retries.
//   - Concurrent misses for the same key share a single fetch.
//   - Optional capacity bound with least recently used eviction.
//   - Optional janitor to remove entries untouched for a long time.
//   - Mass expiration and removal (drop cache) with flood protection.
//   - Allows logging, stats collection.
//   - Dump and restore of entries with encoding/gob.
package cache
