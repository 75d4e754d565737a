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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for hosts without a system pool

	browseradapter "github.com/ericfisherdev/ramn/internal/adapter/driven/browser"
	"github.com/ericfisherdev/ramn/internal/adapter/driven/instancelock"
	"github.com/ericfisherdev/ramn/internal/adapter/driven/osopen"
	robloxadapter "github.com/ericfisherdev/ramn/internal/adapter/driven/roblox"
	"github.com/ericfisherdev/ramn/internal/adapter/driven/secret"
	sqliteadapter "github.com/ericfisherdev/ramn/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/ramn/internal/adapter/driving/http"
	"github.com/ericfisherdev/ramn/internal/adapter/metrics"
	"github.com/ericfisherdev/ramn/internal/application"
	"github.com/ericfisherdev/ramn/internal/config"
)

// enrichmentQueueSize bounds pending metadata lookups.
const enrichmentQueueSize = 64

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration and set the log level.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"profile_dir", cfg.ProfileDir,
		"key_path", cfg.KeyPath(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Move or re-wrap the encryption key before anything reads it.
	keys := secret.NewKeyStore(cfg.KeyPath(), cfg.LegacyKeyPath(), nil)
	migration, err := keys.MigrateKeyIfNeeded()
	if err != nil {
		slog.Warn("key migration incomplete", "error", err)
	}
	if migration.MovedLegacy || migration.Rewrapped {
		slog.Info("encryption key migrated", "moved_legacy", migration.MovedLegacy, "rewrapped", migration.Rewrapped)
	}
	cipher := secret.NewCipher(keys)
	if err := cipher.Degraded(); err != nil {
		slog.Warn("encryption key is ephemeral; stored secrets will be unreadable after exit", "error", err)
	}

	// 4. Open database, upgrading legacy layouts and running migrations.
	db, err := sqliteadapter.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 5. Wire stores and encrypt any secrets still stored in the clear.
	accountStore := sqliteadapter.NewAccountRepo(db, cipher)
	groupStore := sqliteadapter.NewGroupRepo(db)
	lastPlayedStore := sqliteadapter.NewLastPlayedRepo(db)
	settingsStore := sqliteadapter.NewSettingsRepo(db)

	secrets, err := accountStore.EncryptPlaintextSecrets(ctx)
	if err != nil {
		return err
	}
	switch {
	case secrets.Deferred:
		slog.Warn("secret encryption deferred until the key can be persisted")
	case secrets.Encrypted > 0 || secrets.Upgraded > 0:
		slog.Info("stored secrets encrypted", "encrypted", secrets.Encrypted, "upgraded", secrets.Upgraded)
	}
	if len(secrets.Unreadable) > 0 {
		slog.Warn("legacy secrets sealed with another key left as stored; log in again to replace them",
			"usernames", secrets.Unreadable)
	}

	// 6. Metrics on a private registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 7. Platform adapters.
	if cfg.InstallBrowser {
		if err := browseradapter.Install(); err != nil {
			return err
		}
	}
	automation := browseradapter.New(cfg.Headless)
	defer func() {
		if err := automation.Close(); err != nil {
			slog.Error("error closing browser sessions", "error", err)
		}
	}()
	platform := robloxadapter.NewClient(cfg.MetadataRPS)

	// 8. Services.
	lockSvc := application.NewInstanceLockService(instancelock.New(), cfg.LockInterval, m)
	defer lockSvc.Stop()

	resolver := application.NewMetadataResolver(platform.MetadataSources(), platform, m)
	enricher := application.NewEnrichmentWorker(resolver, lastPlayedStore, enrichmentQueueSize, m)
	go enricher.Start(ctx)

	accountSvc := application.NewAccountService(accountStore, platform, automation, cfg.ProfileDir, cfg.LoginTimeout)
	treeSvc := application.NewTreeService(accountStore, groupStore, settingsStore)
	launchSvc := application.NewLaunchService(
		accountStore,
		platform,
		osopen.New(),
		lastPlayedStore,
		settingsStore,
		lockSvc,
		enricher,
		application.LaunchConfig{
			Stagger:       cfg.LaunchStagger,
			BurstDuration: cfg.BurstDuration,
			BurstInterval: cfg.BurstInterval,
		},
		m,
	)
	historySvc := application.NewHistoryService(lastPlayedStore, enricher)
	settingsSvc := application.NewSettingsService(settingsStore, lockSvc)
	healthSvc := application.NewHealthService(db, cipher)

	if err := settingsSvc.Apply(ctx); err != nil {
		return err
	}

	// 9. HTTP API.
	apiHandler := httphandler.NewHandler(
		accountSvc, treeSvc, launchSvc, historySvc, settingsSvc, healthSvc,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		slog.Default(),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Batch launches stagger between accounts and can run long.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("ramn started", "listen_addr", cfg.ListenAddr)

	// 10. Wait for shutdown signal or a failed listener.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		return err
	}

	// 11. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
