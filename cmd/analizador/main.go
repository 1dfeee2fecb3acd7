package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"analizador/internal/amqp"
	"analizador/internal/backend"
	"analizador/internal/cache"
	"analizador/internal/cli"
	apphttp "analizador/internal/http"
	applog "analizador/internal/log"
	"analizador/internal/loader"
	"analizador/internal/metrics"
	"analizador/internal/middleware/ratelimit"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(os.Stdout, "info", applog.ComponentApp).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, applog.ComponentApp)
	logger.Info("Starting analizador", applog.FieldOperation, applog.OpStartup, "port", cfg.Port, "backend", cfg.DataBackend)

	files, err := cli.InitFileStore(cfg)
	if err != nil {
		logger.Error("Failed to prepare directories", applog.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger, files).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	m, err := metrics.New()
	if err != nil {
		logger.Error("Failed to register metrics", applog.FieldError, err)
		os.Exit(1)
	}

	datasets := loader.NewCache(
		loader.New(loader.Options{EntriesSheet: cfg.EntriesSheet, FamiliesSheet: cfg.FamiliesSheet}),
		loader.CacheOptions{
			Size:     cfg.CacheSize,
			TTL:      cfg.CacheTTL,
			Kind:     string(res.Type),
			Recorder: m,
			Logger:   logger,
		},
	)

	var cacheManager *cache.Manager
	if cfg.CacheTTL > 0 {
		cacheManager = cache.NewManager(func(removed int) {
			logger.Debug("Cache cleanup completed", "entries_removed", removed)
		})
		cacheManager.Register(datasets.Cleaner())
		cacheManager.StartCleanup(cfg.CacheTTL)
	}

	var publisher amqp.Publisher = amqp.Nop{}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			// Notifications are optional; the dashboard works without them.
			logger.Warn("AMQP unavailable, dataset events disabled", applog.FieldError, err)
		} else {
			publisher = client
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:        ":" + cfg.Port,
		Files:       files,
		Default:     res.Source,
		Datasets:    datasets,
		Metrics:     m,
		Publisher:   publisher,
		Logger:      logger,
		UploadLimit: ratelimit.DefaultConfig(),
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 60 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 120 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if cacheManager != nil {
			cacheManager.Stop()
		}
		if err := publisher.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
