package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bool64/ctxd"
	cache "github.com/veartutop/feedcache"
	"github.com/veartutop/feedcache/internal/feed"
)

type app struct {
	cfg     config
	log     ctxd.Logger
	store   *cache.Store
	rv      *cache.Revalidator
	handler http.Handler

	// watch runs until context is done, nil if source is not watchable.
	watch func(ctx context.Context) error

	closers []func() error
}

func newApp(ctx context.Context, cfg config, logger ctxd.Logger) (*app, error) {
	feed.GobRegister()

	loc := time.UTC

	if cfg.Source.Location != "" {
		l, err := time.LoadLocation(cfg.Source.Location)
		if err != nil {
			return nil, ctxd.WrapError(ctx, err, "failed to load location", "location", cfg.Source.Location)
		}

		loc = l
	}

	a := &app{cfg: cfg, log: logger}

	source, err := a.source(ctx)
	if err != nil {
		return nil, err
	}

	a.store = cache.NewStore(cache.Config{
		Logger:        logger,
		Name:          "feed",
		TimeToLive:    cfg.Cache.TTL,
		MaxEntries:    cfg.Cache.MaxEntries,
		SweepInterval: cfg.Cache.SweepInterval,
	})

	a.restore(ctx)

	a.rv = cache.NewRevalidator(a.store, cache.RevalidatorConfig{
		Name:              "feed",
		RevalidateTimeout: cfg.Cache.RevalidateTimeout,
		Logger:            logger,
	})

	direct := cache.NewRevalidator(cache.NoOp{}, cache.RevalidatorConfig{Name: "direct", Logger: logger})

	h := &feed.Handler{
		Cached: feed.NewService(source, a.rv, feed.ServiceConfig{Logger: logger, Location: loc}),
		Direct: feed.NewService(source, direct, feed.ServiceConfig{Logger: logger, Location: loc}),
		Stats:  a.store,
		Invalidator: &cache.Invalidator{
			Name:         "feed",
			SkipInterval: cfg.Cache.InvalidateInterval,
			Callbacks:    []func(ctx context.Context){a.store.Clear},
			Logger:       logger,
		},
		Logger: logger,
	}

	a.handler = h.Routes()

	return a, nil
}

func (a *app) source(ctx context.Context) (feed.Source, error) {
	sc := a.cfg.Source

	switch sc.Kind {
	case sourceYAML:
		fs := feed.FileSource{Path: sc.Path}

		// Changed file expires cache, so that next reads serve stale posts while reloading.
		// Editors may emit several events per save, invalidator skips the burst.
		changed := &cache.Invalidator{
			Name:         "source",
			SkipInterval: time.Second,
			Callbacks:    []func(ctx context.Context){a.expireAll},
		}

		a.watch = func(ctx context.Context) error {
			return fs.Watch(ctx, func(ctx context.Context) {
				if err := changed.Invalidate(ctx); err != nil && !errors.Is(err, cache.ErrAlreadyInvalidated) {
					a.log.Warn(ctx, "failed to expire cache", "error", err)
				}
			})
		}

		return fs, nil
	case sourceRSS:
		return feed.RSSSource{URL: sc.URL, Platform: feed.Platform(sc.Platform)}, nil
	case sourceSQLite:
		src, err := feed.OpenSQLite(ctx, sc.DSN)
		if err != nil {
			return nil, err
		}

		a.closers = append(a.closers, src.Close)

		return src, nil
	}

	return nil, fmt.Errorf("unknown source kind: %q", sc.Kind)
}

func (a *app) expireAll(ctx context.Context) {
	a.log.Info(ctx, "posts source changed")
	a.store.ExpireAll(ctx)
}

// restore loads cache dump, missing or incompatible dump is ignored.
func (a *app) restore(ctx context.Context) {
	fn := a.cfg.Cache.DumpFile
	if fn == "" {
		return
	}

	f, err := os.Open(fn) // nolint:gosec
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.log.Warn(ctx, "failed to open cache dump", "error", err, "file", fn)
		}

		return
	}

	defer func() {
		_ = f.Close() // nolint:errcheck
	}()

	n, err := a.store.Restore(f)
	if err != nil {
		a.log.Warn(ctx, "failed to restore cache dump", "error", err, "file", fn, "restored", n)

		return
	}

	a.log.Important(ctx, "cache restored", "file", fn, "count", n)
}

func (a *app) dump(ctx context.Context) {
	fn := a.cfg.Cache.DumpFile
	if fn == "" {
		return
	}

	f, err := os.Create(fn) // nolint:gosec
	if err != nil {
		a.log.Error(ctx, "failed to create cache dump", "error", err, "file", fn)

		return
	}

	n, err := a.store.Dump(f)
	if err != nil {
		a.log.Error(ctx, "failed to dump cache", "error", err, "file", fn)
	}

	if err := f.Close(); err != nil {
		a.log.Error(ctx, "failed to close cache dump", "error", err, "file", fn)

		return
	}

	a.log.Important(ctx, "cache dumped", "file", fn, "count", n)
}

// close stops background refreshes, dumps cache and releases resources.
func (a *app) close() {
	ctx := context.Background()

	a.rv.Close()
	a.store.Close()
	a.dump(ctx)

	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Error(ctx, "failed to close", "error", err)
		}
	}
}
