package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/service"
	"github.com/JonMunkholm/catalog/internal/source"
	"github.com/JonMunkholm/catalog/internal/web"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// Prices are served as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
		"refresh_interval", cfg.Catalog.RefreshInterval,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	pipeline := ingest.NewPipeline(ingest.Options{
		Mappings:      ingest.DefaultMappings(),
		ListSeparator: cfg.Catalog.ListSeparator,
		MaxWarnings:   cfg.Catalog.MaxWarnings,
		Logger:        logger,
	})

	ctx := context.Background()
	src, closeSource, err := source.Open(ctx, cfg, pipeline)
	if err != nil {
		slog.Error("failed to open catalog source", "source", cfg.Catalog.Source, "error", err)
		os.Exit(1)
	}
	defer closeSource()

	catalog := service.New(service.Options{
		Source:       src,
		Fallback:     source.Fallback(cfg, pipeline),
		Pipeline:     pipeline,
		Limiter:      service.NewIngestLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		SnapshotPath: cfg.Catalog.SnapshotPath,
		Logger:       logger,
	})

	// A failed first load is not fatal: the service starts with an empty
	// catalog and the next reload or upload replaces it.
	if src != nil {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.Catalog.LoadTimeout)
		snap, err := catalog.Reload(loadCtx)
		cancel()
		if err != nil {
			slog.Error("initial catalog load failed, serving an empty catalog", "error", err)
		} else {
			slog.Info("initial catalog loaded",
				"source", snap.Source,
				"products", snap.Store.Len(),
				"rejected", snap.Report.Rejected(),
			)
		}
	}

	server := web.NewServer(catalog, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go catalog.StartRefreshScheduler(jobCtx, service.RefreshConfig{
		Interval: cfg.Catalog.RefreshInterval,
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := catalog.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for ingestions to complete", "active", status.Active)
			if err := catalog.WaitForIngests(shutdownCtx); err != nil {
				slog.Warn("ingestions did not complete in time", "error", err)
			} else {
				slog.Info("all ingestions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
