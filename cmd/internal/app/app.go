// Package app wires the inlet runtime: config, logging, store selection, and
// HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"inlet/cmd/internal/api"
	"inlet/cmd/internal/message"
	"inlet/cmd/internal/metrics"
	"inlet/cmd/security/signature"
)

// App owns the HTTP server wiring and the message store lifecycle.
type App struct {
	cfg Config
	log Logger

	pool  *pgxpool.Pool
	store message.Store

	handler *api.Handler
	metrics *metrics.Metrics
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	store, pool, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	verifier := signature.New(cfg.WebhookSecret)
	if !verifier.Configured() {
		// Startup proceeds; readiness stays 503 until the secret arrives.
		log.Warn("webhook.secret_unconfigured")
	}

	m := metrics.New()

	handler, err := api.NewHandler(log, api.Config{MaxBodyBytes: cfg.MaxBodyBytes}, store, verifier, m)
	if err != nil {
		closeStore(store, pool, log)
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		store:   store,
		handler: handler,
		metrics: m,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.cfg, a.handler, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.pool != nil,
		"metrics_enabled", a.cfg.EnableMetrics,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	closeStore(a.store, a.pool, a.log)

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory dev
// store.
func newStore(ctx context.Context, cfg Config, log Logger) (message.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return message.NewMemoryStore(), nil, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// Ownership model:
	// - app owns the pool lifecycle
	// - PostgresStore.Close() is a no-op
	store, err := message.NewPostgresStore(ctx, pool, message.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return store, pool, nil
}

func closeStore(store message.Store, pool *pgxpool.Pool, log Logger) {
	if store != nil {
		if err := store.Close(); err != nil {
			log.Error("store.close.fail", "err", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
}
