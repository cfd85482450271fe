package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/puzpuzpuz/xsync"
	"golang.org/x/sync/singleflight"
)

// BuildFunc fetches a fresh value for a key.
type BuildFunc func(ctx context.Context) (interface{}, error)

// RevalidatorConfig is optional configuration for NewRevalidator.
type RevalidatorConfig struct {
	// Name is added to logs and stats.
	Name string

	// TimeToLive is ttl of built values, zero value means storage default.
	TimeToLive time.Duration

	// RevalidateTimeout limits duration of background refresh, default 30s.
	// Revalidation state is reset when refresh does not finish in time.
	RevalidateTimeout time.Duration

	// Logger collects messages with context.
	Logger ctxd.Logger

	// Stats tracks stats.
	Stats stats.Tracker
}

// Result is a value served by Revalidator.
type Result struct {
	Value interface{}

	// Cached is true if value was served from storage.
	Cached bool

	// Stale is true if value has expired and is being (or was just attempted to be) refreshed.
	Stale bool
}

type flight struct {
	started time.Time
	cancel  context.CancelFunc
}

// Revalidator serves cached values and refreshes expired ones in background.
//
// Please use NewRevalidator to create instance.
type Revalidator struct {
	storage Storage
	config  RevalidatorConfig
	log     ctxd.Logger
	stat    stats.Tracker

	misses  singleflight.Group
	flights *xsync.Map // Map of key to *flight.
	wg      sync.WaitGroup

	// mu serializes registration and removal of flights together with writes of their results.
	mu sync.Mutex
}

// NewRevalidator creates a Revalidator on top of storage.
//
// Cache miss is built synchronously, concurrent misses of the same key share the build.
// Expired value is served immediately while a single refresh runs with detached context.
func NewRevalidator(storage Storage, config RevalidatorConfig) *Revalidator {
	if config.RevalidateTimeout == 0 {
		config.RevalidateTimeout = 30 * time.Second
	}

	r := &Revalidator{
		storage: storage,
		config:  config,
		log:     config.Logger,
		stat:    config.Stats,
		flights: xsync.NewMap(),
	}

	if r.log == nil {
		r.log = ctxd.NoOpLogger{}
	}

	if r.stat == nil {
		r.stat = stats.NoOp{}
	}

	return r
}

// Get returns value from storage or from build function.
func (r *Revalidator) Get(ctx context.Context, key string, buildFunc BuildFunc) (Result, error) {
	if !SkipRead(ctx) {
		l := r.storage.Lookup(ctx, key)

		if l.Found {
			if l.Revalidate {
				r.revalidate(ctx, key, buildFunc)
			}

			return Result{Value: l.Value, Cached: true, Stale: l.Stale}, nil
		}
	}

	val, err, _ := r.misses.Do(key, func() (interface{}, error) {
		return r.build(ctx, key, buildFunc)
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Value: val}, nil
}

// InFlight returns number of running background refreshes.
func (r *Revalidator) InFlight() int {
	return r.flights.Size()
}

// Close cancels background refreshes and waits for them to finish.
func (r *Revalidator) Close() {
	r.flights.Range(func(key string, value interface{}) bool {
		f := value.(*flight)

		r.log.Debug(context.Background(), "canceling background update",
			"name", r.config.Name,
			"key", key,
			"elapsed", time.Since(f.started).String())
		f.cancel()

		return true
	})

	r.wg.Wait()
}

func (r *Revalidator) build(ctx context.Context, key string, buildFunc BuildFunc) (interface{}, error) {
	defer func() {
		r.stat.Add(ctx, MetricBuild, 1, "name", r.config.Name)
	}()
	r.log.Debug(ctx, "building cache value", "name", r.config.Name, "key", key)

	val, err := buildFunc(ctx)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to build cache value",
			"name", r.config.Name,
			"key", key)
	}

	// Running refresh has older data and must not overwrite the fresh value,
	// its revalidation state is replaced by Set.
	r.mu.Lock()
	if v, ok := r.flights.LoadAndDelete(key); ok {
		v.(*flight).cancel()

		r.log.Debug(ctx, "canceled background update superseded by fresh value",
			"name", r.config.Name,
			"key", key)
	}

	r.storage.Set(ctx, key, val, r.config.TimeToLive)
	r.mu.Unlock()

	return val, nil
}

// finish removes own flight of a key and calls fn while holding the lock.
// It returns false if flight was superseded or canceled by a fresh value.
func (r *Revalidator) finish(key string, f *flight, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.flights.Load(key); !ok || v.(*flight) != f {
		return false
	}

	r.flights.Delete(key)
	fn()

	return true
}

func (r *Revalidator) revalidate(ctx context.Context, key string, buildFunc BuildFunc) {
	// Detaching context into background, request may finish before refresh.
	ctx, cancel := detach(ctx, r.config.RevalidateTimeout)
	f := &flight{started: time.Now(), cancel: cancel}

	r.mu.Lock()
	r.flights.Store(key, f)
	r.mu.Unlock()

	r.wg.Add(1)
	r.stat.Add(ctx, MetricRevalidate, 1, "name", r.config.Name)
	r.log.Debug(ctx, "revalidating expired value", "name", r.config.Name, "key", key)

	type built struct {
		val interface{}
		err error
	}

	go func() {
		defer r.wg.Done()
		defer cancel()

		done := make(chan built, 1)

		go func() {
			val, err := buildFunc(ctx)
			done <- built{val: val, err: err}
		}()

		select {
		case b := <-done:
			if b.err != nil {
				r.finish(key, f, func() {
					r.stat.Add(ctx, MetricRevalidateFailed, 1, "name", r.config.Name)
					r.log.Warn(ctx, "failed to update stale cache value in background",
						"error", b.err,
						"name", r.config.Name,
						"key", key)
					r.storage.MarkRevalidationComplete(ctx, key)
				})

				return
			}

			if !r.finish(key, f, func() {
				r.storage.Update(ctx, key, b.val, r.config.TimeToLive)
			}) {
				r.log.Debug(ctx, "dropped superseded background update", "name", r.config.Name, "key", key)
			}

		case <-ctx.Done():
			r.finish(key, f, func() {
				err := ctx.Err()
				if errors.Is(err, context.DeadlineExceeded) {
					err = ErrRevalidationTimeout

					r.stat.Add(ctx, MetricRevalidateTimeout, 1, "name", r.config.Name)
				}

				r.log.Warn(ctx, "abandoned background update of stale cache value",
					"error", err,
					"name", r.config.Name,
					"key", key,
					"timeout", r.config.RevalidateTimeout.String())
				r.storage.MarkRevalidationComplete(ctx, key)
			})
		}
	}()
}
