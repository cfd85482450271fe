package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/cespare/xxhash/v2"
)

const shards = 64

// Config controls Store instance.
type Config struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Name is cache instance name, used in stats and logging.
	Name string

	// TimeToLive is applied to entries written with zero ttl, default DefaultTTL.
	TimeToLive time.Duration

	// MaxEntries limits number of entries, least recently accessed are evicted on overflow.
	// Zero value means unlimited.
	MaxEntries int

	// EvictFraction is a fraction of entries to evict on overflow (0, 1], default 0.1.
	EvictFraction float64

	// SweepInterval is delay between two consecutive removals of untouched entries.
	// Zero value disables removal, entries are only dropped with Clear.
	SweepInterval time.Duration

	// UntouchedFactor is a multiplier of entry ttl, entries not accessed for that long
	// are removed by sweep, default 10.
	UntouchedFactor float64

	// ItemsCountReportInterval is items count metric report interval, default 1m.
	ItemsCountReportInterval time.Duration

	// TimeNow overrides time source, time.Now by default.
	TimeNow func() time.Time
}

type bucket struct {
	sync.Mutex
	data map[string]*entry
}

var _ Storage = &Store{}

// Store is a sharded in-memory stale-while-revalidate cache.
//
// Please use NewStore to create instance.
type Store struct {
	buckets [shards]bucket

	config Config
	log    ctxd.Logger
	stat   stats.Tracker
	now    func() time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

// NewStore creates an instance of in-memory cache with optional configuration.
func NewStore(cfg ...Config) *Store {
	config := Config{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.TimeToLive == 0 {
		config.TimeToLive = DefaultTTL
	}

	if config.EvictFraction == 0 {
		config.EvictFraction = 0.1
	}

	if config.UntouchedFactor == 0 {
		config.UntouchedFactor = 10
	}

	if config.ItemsCountReportInterval == 0 {
		config.ItemsCountReportInterval = time.Minute
	}

	if config.TimeNow == nil {
		config.TimeNow = time.Now
	}

	s := &Store{
		config: config,
		log:    config.Logger,
		stat:   config.Stats,
		now:    config.TimeNow,
		closed: make(chan struct{}),
	}

	for i := 0; i < shards; i++ {
		s.buckets[i].data = make(map[string]*entry)
	}

	if config.SweepInterval > 0 || s.stat != nil {
		go s.janitor()
	}

	return s
}

func (s *Store) bucket(key string) *bucket {
	return &s.buckets[xxhash.Sum64String(key)%shards]
}

// Get returns fresh or stale value.
//
// First read of an expired entry marks it as revalidating, value is never fetched by Store.
func (s *Store) Get(ctx context.Context, key string) (interface{}, bool) {
	l := s.Lookup(ctx, key)

	return l.Value, l.Found
}

// Lookup returns fresh or stale value and reports whether this read started revalidation.
func (s *Store) Lookup(ctx context.Context, key string) Lookup {
	now := s.now()
	b := s.bucket(key)

	b.Lock()
	e, found := b.data[key]

	if !found {
		b.Unlock()

		if s.log != nil {
			s.log.Debug(ctx, "cache miss", "name", s.config.Name, "key", key)
		}

		if s.stat != nil {
			s.stat.Add(ctx, MetricMiss, 1, "name", s.config.Name)
		}

		return Lookup{}
	}

	e.accessed = now

	if !e.expired(now) {
		l := Lookup{Value: e.data, Found: true}
		b.Unlock()

		if s.log != nil {
			s.log.Debug(ctx, "cache hit", "name", s.config.Name, "key", key)
		}

		if s.stat != nil {
			s.stat.Add(ctx, MetricHit, 1, "name", s.config.Name)
		}

		return l
	}

	l := Lookup{Found: true, Stale: true}

	if e.revalidating {
		l.Value = e.stale
		if l.Value == nil {
			l.Value = e.data
		}
	} else {
		e.revalidating = true
		e.stale = e.data
		l.Value = e.data
		l.Revalidate = true
	}
	b.Unlock()

	if s.log != nil {
		s.log.Debug(ctx, "cache key expired",
			"name", s.config.Name,
			"key", key,
			"revalidate", l.Revalidate)
	}

	if s.stat != nil {
		s.stat.Add(ctx, MetricStale, 1, "name", s.config.Name)
	}

	return l
}

// Set creates or overwrites an entry with fresh value.
//
// Zero ttl is replaced with Config.TimeToLive.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	s.write(ctx, key, value, ttl, "wrote to cache")
}

// Update stores revalidated value and resets revalidation state.
//
// Missing entry is created as with Set.
func (s *Store) Update(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	s.write(ctx, key, value, ttl, "updated revalidated value")
}

func (s *Store) write(ctx context.Context, key string, value interface{}, ttl time.Duration, msg string) {
	if ttl == 0 {
		ttl = s.config.TimeToLive
	}

	now := s.now()
	b := s.bucket(key)

	b.Lock()
	e, found := b.data[key]

	if !found {
		e = &entry{key: key}
		b.data[key] = e
	}

	e.data = value
	e.written = now
	e.accessed = now
	e.ttl = ttl
	e.revalidating = false
	e.stale = nil
	b.Unlock()

	if s.log != nil {
		s.log.Debug(ctx, msg, "name", s.config.Name, "key", key, "ttl", ttl)
	}

	if s.stat != nil {
		s.stat.Add(ctx, MetricWrite, 1, "name", s.config.Name)
	}

	if !found && s.config.MaxEntries > 0 && s.Len() > s.config.MaxEntries {
		s.evictOldest(ctx)
	}
}

// NeedsRevalidation returns true if entry exists, is expired and is not being revalidated.
func (s *Store) NeedsRevalidation(_ context.Context, key string) bool {
	now := s.now()
	b := s.bucket(key)

	b.Lock()
	defer b.Unlock()

	e, found := b.data[key]

	return found && e.expired(now) && !e.revalidating
}

// MarkRevalidationComplete resets revalidation state after failed refresh.
//
// Value and write time are kept, so that next expired read starts revalidation again.
func (s *Store) MarkRevalidationComplete(ctx context.Context, key string) {
	b := s.bucket(key)

	b.Lock()
	e, found := b.data[key]

	if found {
		e.revalidating = false
		e.stale = nil
	}
	b.Unlock()

	if found && s.log != nil {
		s.log.Debug(ctx, "revalidation complete", "name", s.config.Name, "key", key)
	}
}

// ExpireAll marks all entries as expired, they can still serve stale value.
func (s *Store) ExpireAll(ctx context.Context) {
	start := time.Now()
	now := s.now()
	cnt := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		for _, e := range b.data {
			e.written = now.Add(-e.ttl - time.Nanosecond)
			cnt++
		}
		b.Unlock()
	}

	if s.log != nil {
		s.log.Important(ctx, "expired all entries in cache",
			"name", s.config.Name,
			"elapsed", time.Since(start).String(),
			"count", cnt,
		)
	}
}

// Clear deletes all entries.
func (s *Store) Clear(ctx context.Context) {
	start := time.Now()
	cnt := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		cnt += len(b.data)
		b.data = make(map[string]*entry)
		b.Unlock()
	}

	if s.log != nil {
		s.log.Important(ctx, "deleted all entries in cache",
			"name", s.config.Name,
			"elapsed", time.Since(start).String(),
			"count", cnt,
		)
	}
}

// Stats returns number of entries and sorted keys.
func (s *Store) Stats() Stats {
	keys := make([]string, 0)

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		for k := range b.data {
			keys = append(keys, k)
		}
		b.Unlock()
	}

	sort.Strings(keys)

	return Stats{Size: len(keys), Keys: keys}
}

// Len returns number of entries.
func (s *Store) Len() int {
	cnt := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		cnt += len(b.data)
		b.Unlock()
	}

	return cnt
}

// Walk walks snapshots of cached entries.
func (s *Store) Walk(walkFn func(e Entry) error) (int, error) {
	n := 0

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		entries := make([]entry, 0, len(b.data))
		for _, e := range b.data {
			entries = append(entries, *e)
		}
		b.Unlock()

		for _, e := range entries {
			if err := walkFn(e); err != nil {
				return n, err
			}

			n++
		}
	}

	return n, nil
}

// Close stops background janitor.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}
