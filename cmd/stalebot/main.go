package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/stalebot/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/stalebot/internal/adapter/driving/http"
	"github.com/ericfisherdev/stalebot/internal/application"
	"github.com/ericfisherdev/stalebot/internal/config"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/instrumentation"
	"github.com/ericfisherdev/stalebot/internal/logging"
	"github.com/ericfisherdev/stalebot/internal/wiring"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", logging.Err(err))
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DB.Path,
		"sweep_interval", cfg.Sweep.Interval,
		"app_mode", cfg.AppMode(),
		"metrics", cfg.Metrics.Enabled,
	)
	if cfg.GitHub.WebhookSecret == "" {
		logger.Warn("no webhook secret configured, webhook signatures are not verified")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", logging.Err(closeErr))
		}
	}()
	logger.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	logger.Info("migrations complete")

	// 5. Wire adapters.
	repoStore := sqliteadapter.NewRepoRepo(db)
	deliveryStore := sqliteadapter.NewDeliveryRepo(db)
	runStore := sqliteadapter.NewSweepRunRepo(db)

	gh, err := wiring.NewGitHub(cfg)
	if err != nil {
		return err
	}
	trackers := application.NewTrackerProvider(gh.Trackers)

	// 6. Metrics.
	telemetry, err := instrumentation.NewProvider("stalebot", cfg.Metrics.Enabled)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown error", logging.Err(err))
		}
	}()
	metrics := telemetry.Metrics()

	// 7. Application services.
	catalog := model.DefaultLabelCatalog()
	triage := application.NewTriageService(metrics, logger)
	sweeper := application.NewSweepService(cfg.TierThresholds(), metrics, logger,
		application.WithConcurrency(cfg.Sweep.Concurrency),
	)
	provisioner := application.NewProvisioner(catalog, metrics, logger)
	router := application.NewEventRouter(trackers, repoStore, triage, sweeper, provisioner, logger)

	schedOpts := []application.SchedulerOption{
		application.WithDeliveryRetention(cfg.Sweep.DeliveryRetention),
	}
	if gh.AppMode {
		schedOpts = append(schedOpts, application.WithInstallationSource(gh.Installations))
	} else {
		schedOpts = append(schedOpts, application.WithStaticRepos(cfg.RepoRefs()))
	}
	scheduler := application.NewScheduler(router, trackers, repoStore, runStore, deliveryStore,
		metrics, logger, cfg.Sweep.Interval, schedOpts...)
	go scheduler.Start(ctx)

	// 8. HTTP server.
	apiHandler := httphandler.NewHandler(repoStore, runStore, catalog, scheduler, logger)
	webhooks := httphandler.NewWebhookHandler(cfg.GitHub.WebhookSecret, deliveryStore, router, metrics, logger)

	var metricsHandler http.Handler
	if telemetry.Enabled() {
		metricsHandler = telemetry.Handler()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, webhooks, metricsHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // manual sweeps answer synchronously
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", logging.Err(err))
			stop()
		}
	}()

	logger.Info("stalebot started",
		"listen_addr", cfg.ListenAddr,
		"sweep_interval", cfg.Sweep.Interval,
		"tiers", cfg.TierThresholds(),
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// 10. Graceful shutdown: drain in-flight webhooks and the running sweep
	// before closing the database.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", logging.Err(err))
	}

	select {
	case <-scheduler.Done():
	case <-shutdownCtx.Done():
		logger.Warn("sweep scheduler did not stop before shutdown deadline")
	}

	logger.Info("shutdown complete")
	return nil
}
