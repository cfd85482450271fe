package cache

import (
	"context"
	"sort"
	"time"
)

// evictOldest removes least recently accessed entries to fit Config.MaxEntries.
func (s *Store) evictOldest(ctx context.Context) {
	type en struct {
		key      string
		accessed time.Time
	}

	entries := make([]en, 0, s.config.MaxEntries+1)

	// Collect all keys and access times.
	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		for k, e := range b.data {
			entries = append(entries, en{key: k, accessed: e.accessed})
		}
		b.Unlock()
	}

	// Sort entries to put least recently accessed in head.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessed.Before(entries[j].accessed)
	})

	evictItems := int(float64(len(entries)) * s.config.EvictFraction)
	if over := len(entries) - s.config.MaxEntries; evictItems < over {
		evictItems = over
	}

	if evictItems <= 0 {
		return
	}

	for _, e := range entries[:evictItems] {
		b := s.bucket(e.key)

		b.Lock()
		delete(b.data, e.key)
		b.Unlock()
	}

	if s.log != nil {
		s.log.Debug(ctx, "evicted least recently accessed entries",
			"name", s.config.Name,
			"count", evictItems,
		)
	}

	if s.stat != nil {
		s.stat.Add(ctx, MetricEvict, float64(evictItems), "name", s.config.Name)
	}
}
