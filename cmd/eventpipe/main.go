// Package main provides the eventpipe service: an HTTP ingress that
// validates and enqueues events, and a pool of background workers that
// drain the queue into Postgres with an idempotent insert-if-absent.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxgate/eventpipe/internal/counters"
	"github.com/fluxgate/eventpipe/internal/ingress"
	"github.com/fluxgate/eventpipe/internal/queue"
	"github.com/fluxgate/eventpipe/internal/store"
	"github.com/fluxgate/eventpipe/internal/worker"
)

const (
	name = "eventpipe"

	schemaRetryAttempts = 5
	schemaRetryDelay    = 3 * time.Second
)

func main() {
	ingressCfg := ingress.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ingressCfg.LogLevel,
	}))

	logger.Info("starting eventpipe service", slog.String("service", name))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("failed to initialize store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	brokerURL := queue.LoadBrokerURL()

	ingressBroker, err := queue.NewRedisBroker(ctx, brokerURL)
	if err != nil {
		logger.Error("failed to connect to broker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	c := counters.New()

	pool, err := worker.NewPool(func() (queue.Broker, error) {
		return queue.NewRedisBroker(ctx, brokerURL)
	}, st, c, logger)
	if err != nil {
		logger.Error("failed to start worker pool", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool.Start(ctx)

	server := ingress.NewServer(ingressCfg, logger, st, ingressBroker, c)
	if err := server.Start(ctx); err != nil {
		logger.Error("failed to start ingress server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdown(logger, ingressCfg.ShutdownTimeout, server, pool, ingressBroker, st)

	logger.Info("eventpipe service stopped")
}

// openStore opens the connection pool and ensures the schema is migrated,
// retrying the whole sequence up to schemaRetryAttempts times with
// schemaRetryDelay between attempts — mirroring the original service's
// startup retry loop exactly (same attempt count, same delay).
func openStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	cfg := store.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var lastErr error

	for attempt := 1; attempt <= schemaRetryAttempts; attempt++ {
		logger.Info("attempting database connection",
			slog.Int("attempt", attempt), slog.Int("max_attempts", schemaRetryAttempts))

		conn, err := store.NewConnection(cfg)
		if err != nil {
			lastErr = err

			logger.Warn("database not ready, retrying",
				slog.String("error", err.Error()), slog.Duration("delay", schemaRetryDelay))
			sleepOrDone(ctx, schemaRetryDelay)

			continue
		}

		if err := store.EnsureSchema(ctx, conn.DB, logger); err != nil {
			lastErr = err

			_ = conn.Close()

			logger.Warn("schema migration failed, retrying",
				slog.String("error", err.Error()), slog.Duration("delay", schemaRetryDelay))
			sleepOrDone(ctx, schemaRetryDelay)

			continue
		}

		st, err := store.NewPostgresStore(conn, logger)
		if err != nil {
			lastErr = err

			_ = conn.Close()

			continue
		}

		logger.Info("database connection and schema ready")

		return st, nil
	}

	return nil, errors.Join(errors.New("exhausted database startup retries"), lastErr)
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// shutdown tears dependencies down in reverse order of construction,
// logging best-effort failures but never blocking indefinitely.
func shutdown(
	logger *slog.Logger,
	timeout time.Duration,
	server *ingress.Server,
	pool *worker.Pool,
	ingressBroker queue.Broker,
	st store.Store,
) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingress server shutdown failed", slog.String("error", err.Error()))
	}

	pool.Shutdown()

	if err := ingressBroker.Close(); err != nil {
		logger.Warn("failed to close ingress broker connection", slog.String("error", err.Error()))
	}

	if err := st.Close(); err != nil {
		logger.Warn("failed to close store", slog.String("error", err.Error()))
	}
}
