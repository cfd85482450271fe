package cache

import (
	"context"
	"math"
	"time"
)

func (s *Store) janitor() {
	var sweep, report <-chan time.Time

	if s.config.SweepInterval > 0 {
		t := time.NewTicker(s.config.SweepInterval)
		defer t.Stop()

		sweep = t.C
	}

	if s.stat != nil {
		t := time.NewTicker(s.config.ItemsCountReportInterval)
		defer t.Stop()

		report = t.C
	}

	for {
		select {
		case <-sweep:
			s.deleteUntouched(context.Background())
		case <-report:
			s.reportItemsCount(context.Background())
		case <-s.closed:
			return
		}
	}
}

// deleteUntouched removes entries that were not accessed for UntouchedFactor of their ttl.
func (s *Store) deleteUntouched(ctx context.Context) int {
	now := s.now()
	keys := make([]string, 0)

	for i := range s.buckets {
		b := &s.buckets[i]

		b.Lock()
		for k, e := range b.data {
			if now.Sub(e.accessed) > s.untouchedAfter(e.ttl) {
				delete(b.data, k)

				keys = append(keys, k)
			}
		}
		b.Unlock()
	}

	if len(keys) == 0 {
		return 0
	}

	if s.log != nil {
		s.log.Debug(ctx, "deleted untouched cache items",
			"name", s.config.Name,
			"items", keys,
		)
	}

	if s.stat != nil {
		s.stat.Add(ctx, MetricEvict, float64(len(keys)), "name", s.config.Name)
	}

	return len(keys)
}

// untouchedAfter returns idle duration of an entry with ttl before removal, large values are capped.
func (s *Store) untouchedAfter(ttl time.Duration) time.Duration {
	d := float64(ttl) * s.config.UntouchedFactor
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}

	return time.Duration(d)
}

func (s *Store) reportItemsCount(ctx context.Context) {
	count := s.Len()

	if s.log != nil {
		s.log.Debug(ctx, "cache items count",
			"name", s.config.Name,
			"count", count,
		)
	}

	s.stat.Set(ctx, MetricItems, float64(count), "name", s.config.Name)
}
