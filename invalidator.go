package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bool64/ctxd"
)

// Invalidator runs cache expiration or removal callbacks with flood protection.
type Invalidator struct {
	sync.Mutex

	// Name is added to logs.
	Name string

	// SkipInterval defines minimal duration between two cache invalidations (flood protection), default 15s.
	SkipInterval time.Duration

	// Callbacks are called on invalidate, for example Store.Clear or Store.ExpireAll.
	Callbacks []func(ctx context.Context)

	// Logger collects messages with context, can be nil.
	Logger ctxd.Logger

	lastRun time.Time
}

// Invalidate calls all callbacks unless previous call was less than SkipInterval ago.
func (i *Invalidator) Invalidate(ctx context.Context) error {
	i.Lock()
	defer i.Unlock()

	if len(i.Callbacks) == 0 {
		return ErrNothingToInvalidate
	}

	if i.SkipInterval == 0 {
		i.SkipInterval = 15 * time.Second
	}

	if !i.lastRun.IsZero() && time.Since(i.lastRun) < i.SkipInterval {
		return fmt.Errorf("%w at %s, %s did not pass",
			ErrAlreadyInvalidated, i.lastRun.Format(time.RFC3339), i.SkipInterval.String())
	}

	start := time.Now()
	i.lastRun = start

	for _, cb := range i.Callbacks {
		cb(ctx)
	}

	if i.Logger != nil {
		i.Logger.Important(ctx, "invalidated cache",
			"name", i.Name,
			"callbacks", len(i.Callbacks),
			"elapsed", time.Since(start).String())
	}

	return nil
}
