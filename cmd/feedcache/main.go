// Package main runs HTTP server of posts and gallery images backed by a stale-while-revalidate cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bool64/ctxd"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to YAML config file")
		listen     = flag.String("listen", "", "listen address, overrides config")
	)

	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *listen != "" {
		cfg.Listen = *listen
	}

	logger, err := newLogger(cfg.Log.Level, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "server failed", "error", err)
		stop()
		os.Exit(1) // nolint:gocritic
	}
}

func run(ctx context.Context, cfg config, logger ctxd.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer a.close()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Important(ctx, "starting server", "listen", cfg.Listen)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Important(shutdownCtx, "shutting down server")

		return srv.Shutdown(shutdownCtx)
	})

	if a.watch != nil {
		g.Go(func() error {
			return a.watch(ctx)
		})
	}

	return g.Wait()
}
