package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kurihiro0119/github-mirror/internal/api"
	"github.com/kurihiro0119/github-mirror/internal/collector"
	"github.com/kurihiro0119/github-mirror/internal/config"
	"github.com/kurihiro0119/github-mirror/internal/logging"
	"github.com/kurihiro0119/github-mirror/internal/mirror"
	"github.com/kurihiro0119/github-mirror/internal/reconciler"
	"github.com/kurihiro0119/github-mirror/internal/runner"
	"github.com/kurihiro0119/github-mirror/internal/scheduler"
	"github.com/kurihiro0119/github-mirror/internal/storage/backend"
)

const metricsNamespace = "github_mirror"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	maxSize, err := cfg.MaxRepoSize()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := backend.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := collector.NewGitHubSource(collector.GitHubOptions{
		Token:   cfg.GitHubToken,
		BaseURL: cfg.GitHubAPIURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	reconciler.EnableMetrics(metricsNamespace, prometheus.DefaultRegisterer)
	engine := reconciler.NewEngine(reconciler.Config{
		Root:               cfg.MirrorRoot,
		MaxSizeBytes:       maxSize,
		HostConfigTemplate: cfg.CgitrcPath,
		Retries:            cfg.MirrorRetries,
		RetryBackoff:       5 * time.Second,
	}, store, mirror.NewGitDriver(mirror.GitOptions{Timeout: cfg.GitTimeout, Logger: logger}), logger)

	sched := scheduler.New(ctx, runner.New(source, engine, store, logger), cfg.Account, logger)
	if cfg.Schedule != "" {
		if err := sched.Schedule(cfg.Schedule); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Shutdown()

	// Setup routes
	router := api.SetupRoutes(api.NewHandler(store, sched), prometheus.DefaultGatherer, logger)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.APIHost, cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting status server", "addr", srv.Addr, "storage", cfg.StorageType,
			"account", cfg.Account, "schedule", cfg.Schedule)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
