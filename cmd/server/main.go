package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-exam/internal/api"
	"github.com/p-n-ai/pai-exam/internal/exam"
	"github.com/p-n-ai/pai-exam/internal/platform/cache"
	"github.com/p-n-ai/pai-exam/internal/platform/config"
	"github.com/p-n-ai/pai-exam/internal/platform/database"
	"github.com/p-n-ai/pai-exam/internal/player"
	"github.com/p-n-ai/pai-exam/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app holds the wired components and the resources to release on exit.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ready := map[string]api.ReadyCheck{}

	loader, err := exam.NewLoader(cfg.ContentPath)
	if err != nil {
		return nil, fmt.Errorf("load exams: %w", err)
	}

	var store session.Store = session.NewMemoryStore()
	if cfg.Session.Store == config.StoreRedis {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, func() { c.Close() })
		ready["cache"] = c.HealthCheck

		rs, err := session.NewRedisStore(c.Client, cfg.Session.TTL)
		if err != nil {
			a.close()
			return nil, err
		}
		store = rs
		slog.Info("session store ready", "backend", "redis", "ttl", cfg.Session.TTL)
	}

	var events session.EventLogger = session.NopEventLogger{}
	if cfg.Events.Sink == config.EventsPostgres {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		ready["database"] = db.HealthCheck

		pg := session.NewPostgresEventLogger(db.Pool)
		if cfg.Events.Migrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				a.close()
				return nil, fmt.Errorf("ensure events schema: %w", err)
			}
		}
		events = pg
		slog.Info("event logging enabled", "sink", "postgres")
	}

	svc, err := player.NewService(player.Config{
		Exams:  loader,
		Store:  store,
		Events: events,
		ViewSource: func(_ context.Context, sessionID, examID string, index int) {
			slog.Info("source lesson requested", "session_id", sessionID, "exam_id", examID, "index", index)
		},
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.handler = api.NewHandler(svc, loader, ready).Routes()
	return a, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
