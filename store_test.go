package cache_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cache "github.com/veartutop/feedcache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 10, 26, 0, 55, 23, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newStore(t *testing.T, c *clock, cfg cache.Config) *cache.Store {
	t.Helper()

	cfg.TimeNow = c.Now
	s := cache.NewStore(cfg)
	t.Cleanup(s.Close)

	return s
}

func TestStore_Get_miss(t *testing.T) {
	s := newStore(t, newClock(), cache.Config{})
	ctx := context.Background()

	for _, k := range []string{"", "posts-all-all", "gallery-chamet"} {
		v, found := s.Get(ctx, k)
		assert.Nil(t, v)
		assert.False(t, found)
		assert.False(t, s.NeedsRevalidation(ctx, k))
	}
}

func TestStore_Set_fresh(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	data := []string{"p1", "p2"}
	s.Set(ctx, "posts-all-chamet", data, time.Second)

	c.Add(999 * time.Millisecond)

	v, found := s.Get(ctx, "posts-all-chamet")
	assert.True(t, found)
	assert.Equal(t, data, v)
	assert.False(t, s.NeedsRevalidation(ctx, "posts-all-chamet"))
}

func TestStore_Set_defaultTTL(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	s.Set(ctx, "k", 1, 0)

	c.Add(cache.DefaultTTL)
	assert.False(t, s.NeedsRevalidation(ctx, "k"))

	c.Add(time.Millisecond)
	assert.True(t, s.NeedsRevalidation(ctx, "k"))
}

func TestStore_staleWhileRevalidate(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()
	key := "posts-all-chamet"

	s.Set(ctx, key, []string{"p1", "p2"}, time.Second)

	v, found := s.Get(ctx, key)
	assert.True(t, found)
	assert.Equal(t, []string{"p1", "p2"}, v)

	c.Add(1500 * time.Millisecond)

	// Checked before first expired read.
	assert.True(t, s.NeedsRevalidation(ctx, key))

	l := s.Lookup(ctx, key)
	assert.True(t, l.Found)
	assert.True(t, l.Stale)
	assert.True(t, l.Revalidate)
	assert.Equal(t, []string{"p1", "p2"}, l.Value)

	// First expired read has already flagged revalidation.
	assert.False(t, s.NeedsRevalidation(ctx, key))

	l = s.Lookup(ctx, key)
	assert.True(t, l.Stale)
	assert.False(t, l.Revalidate)
	assert.Equal(t, []string{"p1", "p2"}, l.Value)

	s.Update(ctx, key, []string{"p1", "p2", "p3"}, 0)

	v, found = s.Get(ctx, key)
	assert.True(t, found)
	assert.Equal(t, []string{"p1", "p2", "p3"}, v)
	assert.False(t, s.NeedsRevalidation(ctx, key))
}

func TestStore_MarkRevalidationComplete(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	s.Set(ctx, "k", "old", time.Second)
	c.Add(2 * time.Second)

	assert.True(t, s.Lookup(ctx, "k").Revalidate)
	assert.False(t, s.NeedsRevalidation(ctx, "k"))

	// Refresh failed.
	s.MarkRevalidationComplete(ctx, "k")

	// Timestamp is untouched, entry is still expired and needs another attempt.
	assert.True(t, s.NeedsRevalidation(ctx, "k"))

	l := s.Lookup(ctx, "k")
	assert.Equal(t, "old", l.Value)
	assert.True(t, l.Revalidate)

	// Missing key is ignored.
	s.MarkRevalidationComplete(ctx, "missing")
	_, found := s.Get(ctx, "missing")
	assert.False(t, found)
}

func TestStore_Update_missing(t *testing.T) {
	s := newStore(t, newClock(), cache.Config{})
	ctx := context.Background()

	s.Update(ctx, "k", 123, time.Minute)

	v, found := s.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, 123, v)
}

func TestStore_Set_resetsRevalidation(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	s.Set(ctx, "k", 1, time.Second)
	c.Add(2 * time.Second)
	assert.True(t, s.Lookup(ctx, "k").Revalidate)

	s.Set(ctx, "k", 2, time.Second)

	l := s.Lookup(ctx, "k")
	assert.False(t, l.Stale)
	assert.Equal(t, 2, l.Value)

	c.Add(2 * time.Second)
	assert.True(t, s.NeedsRevalidation(ctx, "k"))
}

func TestStore_Clear(t *testing.T) {
	logger := &ctxd.LoggerMock{}
	s := newStore(t, newClock(), cache.Config{Logger: logger, Name: "posts"})
	ctx := context.Background()

	s.Set(ctx, "posts-all-chamet", 1, 0)
	s.Set(ctx, "posts-all-tango", 2, 0)
	assert.Equal(t, 2, s.Stats().Size)

	s.Clear(ctx)

	assert.Equal(t, 0, s.Stats().Size)
	assert.Empty(t, s.Stats().Keys)

	_, found := s.Get(ctx, "posts-all-chamet")
	assert.False(t, found)

	_, found = s.Get(ctx, "posts-all-tango")
	assert.False(t, found)

	assert.Contains(t, logger.String(), "deleted all entries in cache")
}

func TestStore_keysIsolation(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	s.Set(ctx, "posts-all-chamet", []string{"c1"}, time.Second)
	s.Set(ctx, "posts-all-tango", []string{"t1"}, time.Hour)

	c.Add(2 * time.Second)

	assert.True(t, s.Lookup(ctx, "posts-all-chamet").Revalidate)

	l := s.Lookup(ctx, "posts-all-tango")
	assert.False(t, l.Stale)
	assert.Equal(t, []string{"t1"}, l.Value)
	assert.False(t, s.NeedsRevalidation(ctx, "posts-all-tango"))

	s.Update(ctx, "posts-all-chamet", []string{"c1", "c2"}, time.Second)

	assert.Equal(t, cache.Stats{Size: 2, Keys: []string{"posts-all-chamet", "posts-all-tango"}}, s.Stats())

	v, _ := s.Get(ctx, "posts-all-tango")
	assert.Equal(t, []string{"t1"}, v)
}

func TestStore_ExpireAll(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	s.Set(ctx, "a", 1, time.Hour)
	s.Set(ctx, "b", 2, time.Minute)

	s.ExpireAll(ctx)

	for _, k := range []string{"a", "b"} {
		assert.True(t, s.NeedsRevalidation(ctx, k))
	}

	l := s.Lookup(ctx, "a")
	assert.True(t, l.Stale)
	assert.Equal(t, 1, l.Value)
}

func TestStore_Walk(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.Set(ctx, strconv.Itoa(i), i, time.Minute)
	}

	sum := 0
	n, err := s.Walk(func(e cache.Entry) error {
		sum += e.Value().(int)
		assert.Equal(t, time.Minute, e.TTL())
		assert.Equal(t, c.Now(), e.WrittenAt())
		assert.False(t, e.Revalidating())

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 45, sum)
	assert.Equal(t, 10, s.Len())
}

func TestStore_stats(t *testing.T) {
	c := newClock()
	st := &stats.TrackerMock{}
	s := newStore(t, c, cache.Config{Stats: st, Name: "test"})
	ctx := context.Background()

	s.Get(ctx, "k")
	s.Set(ctx, "k", 1, time.Second)
	s.Get(ctx, "k")
	c.Add(2 * time.Second)
	s.Get(ctx, "k")
	s.Get(ctx, "k")

	assert.Equal(t, 1, st.Int(cache.MetricMiss))
	assert.Equal(t, 1, st.Int(cache.MetricWrite))
	assert.Equal(t, 1, st.Int(cache.MetricHit))
	assert.Equal(t, 2, st.Int(cache.MetricStale))
}

func TestStore_Lookup_concurrency(t *testing.T) {
	c := newClock()
	s := newStore(t, c, cache.Config{})
	ctx := context.Background()

	s.Set(ctx, "k", 123, time.Second)
	c.Add(2 * time.Second)

	n := 1000
	wg := sync.WaitGroup{}
	wg.Add(n)

	var (
		mu      sync.Mutex
		winners int
	)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()

			l := s.Lookup(ctx, "k")
			assert.Equal(t, 123, l.Value)

			if l.Revalidate {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	// Exactly one stale read starts revalidation.
	assert.Equal(t, 1, winners)
}

func TestStore_Set_concurrency(t *testing.T) {
	st := &stats.TrackerMock{}
	s := cache.NewStore(cache.Config{Stats: st})
	defer s.Close()

	ctx := context.Background()
	pipeline := make(chan struct{}, 500)
	n := 1000

	for i := 0; i < n; i++ {
		pipeline <- struct{}{}

		k := "oneone" + strconv.Itoa(i)

		go func() {
			defer func() {
				<-pipeline
			}()

			s.Set(ctx, k, 123, 0)

			v, found := s.Get(ctx, k)
			assert.True(t, found)
			assert.Equal(t, 123, v)
		}()
	}

	// Waiting for goroutines to finish.
	for i := 0; i < cap(pipeline); i++ {
		pipeline <- struct{}{}
	}

	assert.Equal(t, n, st.Int(cache.MetricWrite), "total writes")
	assert.Equal(t, n, st.Int(cache.MetricHit))
	assert.Equal(t, n, s.Len())
}
