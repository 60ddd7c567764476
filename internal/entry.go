// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/starford/menuboard/internal/api"
	"github.com/starford/menuboard/internal/assets"
	"github.com/starford/menuboard/internal/export"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/index"
	"github.com/starford/menuboard/internal/metrics"
	"github.com/starford/menuboard/internal/sessions"
	"github.com/starford/menuboard/internal/sse"
	"github.com/starford/menuboard/internal/storage"
	"github.com/starford/menuboard/internal/templateservice"
)

// newLogger builds the JSON logger for cfg and installs it as the default.
func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// library opens the template library and its index and brings the index up
// to date. The caller closes the returned DB.
func library(cfg *Config, logger *slog.Logger) (*storage.FS, *index.DB, error) {
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create library dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return store, db, nil
}

func newImporter(cfg *Config, logger *slog.Logger) *htmlimport.Converter {
	return htmlimport.NewConverter(
		htmlimport.NewStaticRenderer(),
		htmlimport.NewHTTPProber(cfg.Import.ProbeTimeout),
		cfg.Import.Options(),
		logger,
	)
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := library(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := app.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	templates := templateservice.NewService(store, db, broker.PublishTemplateEvent)
	assetSvc := assets.NewService(store, db, assets.NewFetcher(cfg.Import.ProbeTimeout), broker.PublishAssetEvent)
	registry := sessions.NewRegistry(cfg.Editor.Session(), cfg.Editor.SessionTTL, sessions.Hooks{
		Commit: m.Commit,
		Count:  m.SetSessions,
	}, logger)
	limiter := api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	deps := api.Deps{
		Templates:   templates,
		Assets:      assetSvc,
		Sessions:    registry,
		Importer:    newImporter(cfg, logger),
		Rasterizer:  export.NewRasterizer(export.NewLoader(cfg.Export.ImageTimeout, assetSvc), logger),
		Metrics:     m,
		Limiter:     limiter,
		Events:      broker,
		Logger:      logger,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	// Public asset files referenced by image elements.
	r.Get("/assets/{file}", api.NewHandler(deps).ServeAsset)

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(deps))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, cfg.Library.Path, logger, broker.PublishTemplateEvent); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Evict idle editing sessions.
	g.Go(func() error {
		return registry.Run(gCtx)
	})

	// Drop idle rate limiter entries.
	g.Go(func() error {
		return limiter.Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the background loops.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")
