package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/highscore/internal/ai"
	"github.com/p-n-ai/highscore/internal/curriculum"
	"github.com/p-n-ai/highscore/internal/events"
	"github.com/p-n-ai/highscore/internal/generator"
	"github.com/p-n-ai/highscore/internal/platform/cache"
	"github.com/p-n-ai/highscore/internal/platform/config"
	"github.com/p-n-ai/highscore/internal/platform/database"
	"github.com/p-n-ai/highscore/internal/session"
	"github.com/p-n-ai/highscore/internal/web"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Log.NewLogger())

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	// In-flight batches are not cancelled, so give them time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the wired HTTP handler and the connections it owns.
type app struct {
	handler http.Handler
	db      *database.DB
	cache   *cache.Cache
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("failed to close cache", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// newApp connects the optional backing services and builds the web handler.
// Without a database URL events are only logged; without a cache URL sessions
// live in memory.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]web.CheckFunc{}
	sessionTTL := time.Duration(cfg.Session.TTLMinutes) * time.Minute

	var eventLog events.Logger = events.NopLogger{}
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx, events.Schema...); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate event log: %w", err)
		}
		eventLog = events.NewPostgresLogger(db.Pool)
		checks["database"] = db.HealthCheck
		slog.Info("event log enabled", "backend", "postgres")
	}

	var sessions session.Store = session.NewMemoryStore(sessionTTL)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.cache = c
		sessions = session.NewRedisStore(c.Client, sessionTTL)
		checks["cache"] = c.HealthCheck
		slog.Info("session store enabled", "backend", "redis")
	}

	presets, err := curriculum.NewLoader(cfg.PresetsPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	server, err := web.New(web.Config{
		Generator: generator.New(generator.Config{
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		}),
		Providers:    ai.GroqFactory(ai.WithBaseURL(cfg.AI.BaseURL), ai.WithDefaultModel(cfg.AI.Model)),
		DefaultKey:   cfg.AI.APIKey,
		Sessions:     sessions,
		Events:       eventLog,
		Presets:      presets,
		ExportDir:    cfg.Export.TempDir,
		MaxUploadMB:  cfg.Server.MaxUploadMB,
		SessionTTL:   sessionTTL,
		CookieSecure: cfg.Session.CookieSecure,
		Checks:       checks,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.handler = server.Routes()
	return a, nil
}
