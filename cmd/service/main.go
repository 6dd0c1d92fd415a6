// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Massy-Haddad/Lucid/internal/adapters/clients"
	"github.com/Massy-Haddad/Lucid/internal/adapters/clients/providers"
	"github.com/Massy-Haddad/Lucid/internal/adapters/featureflags"
	"github.com/Massy-Haddad/Lucid/internal/adapters/http"
	"github.com/Massy-Haddad/Lucid/internal/adapters/http/handlers"
	"github.com/Massy-Haddad/Lucid/internal/adapters/identity"
	"github.com/Massy-Haddad/Lucid/internal/adapters/images"
	"github.com/Massy-Haddad/Lucid/internal/adapters/storage/docstore"
	"github.com/Massy-Haddad/Lucid/internal/adapters/storage/snapcache"
	"github.com/Massy-Haddad/Lucid/internal/app"
	"github.com/Massy-Haddad/Lucid/internal/platform/config"
	"github.com/Massy-Haddad/Lucid/internal/platform/logging"
	"github.com/Massy-Haddad/Lucid/internal/platform/telemetry"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()

	// 6. Create quote provider adapters, one instrumented client each
	movieProvider, err := newMovieProvider(cfg, logger)
	if err != nil {
		return err
	}

	philosophyProvider, err := newPhilosophyProvider(cfg, logger)
	if err != nil {
		return err
	}

	animeProvider, err := newAnimeProvider(cfg, logger)
	if err != nil {
		return err
	}

	for _, checker := range []ports.HealthChecker{movieProvider, philosophyProvider, animeProvider} {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering provider health check: %w", err)
		}
	}

	// 7. Create the saved-quotes document store
	docStore, closeStore, err := newDocumentStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 8. Create the offline snapshot cache and anonymous identity
	snapshotCache := snapcache.NewFileCache(snapcache.FileCacheConfig{
		Path:   cfg.Cache.Path,
		Logger: logger,
	})

	userIdentity := identity.NewAnonymousIdentity(identity.AnonymousIdentityConfig{
		Path:   cfg.Identity.Path,
		Logger: logger,
	})

	// 9. Create the application layer: state store, sync engine, controller
	syncEngine := app.NewSyncEngine(app.SyncEngineConfig{
		Store:          docStore,
		Cache:          snapshotCache,
		Identity:       userIdentity,
		Logger:         logger,
		DebounceWindow: cfg.Sync.DebounceWindow,
	})

	flagValues := make(map[string]bool, len(cfg.Features.Feeds))
	for category, enabled := range cfg.Features.Feeds {
		flagValues["feeds."+category] = enabled
	}

	controller := app.NewController(app.ControllerConfig{
		Store:      app.NewStore(),
		Sync:       syncEngine,
		Movie:      movieProvider,
		Philosophy: philosophyProvider,
		Anime:      animeProvider,
		Images:     images.NewResolver(),
		Flags:      featureflags.NewStaticFlags(flagValues),
		Logger:     logger,
	})

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("starting controller: %w", err)
	}
	defer controller.Stop()

	// Prefetch all feeds so the first request has content. Failures are
	// tolerated per category.
	go controller.WarmUp(ctx)

	// 10. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	quotesHandler := handlers.NewQuotesHandler(controller)
	savedHandler := handlers.NewSavedHandler(controller)

	// 11. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 12. Setup router with all middleware and routes
	routerCfg := http.RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		QuotesHandler: quotesHandler,
		SavedHandler:  savedHandler,
		Timeout:       http.DefaultRequestTimeout,
	}
	http.SetupRouter(server.Engine(), routerCfg)

	// 13. Start server (non-blocking)
	serverErr := server.Start()

	// 14. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// newMovieProvider builds the movie quote adapter over its own client.
func newMovieProvider(cfg *config.Config, logger *slog.Logger) (*providers.MovieProvider, error) {
	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.Providers.Movie.BaseURL,
		ServiceName: cfg.Providers.Movie.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating movie client: %w", err)
	}

	return providers.NewMovieProvider(providers.MovieProviderConfig{
		Client: client,
		Logger: logger,
	}), nil
}

// newPhilosophyProvider builds the philosophy quote adapter. The API key,
// when configured, is injected on every attempt including retries.
func newPhilosophyProvider(cfg *config.Config, logger *slog.Logger) (*providers.NinjasProvider, error) {
	var authFunc func(*nethttp.Request)

	if key := cfg.Providers.Philosophy.APIKey; key != "" {
		authFunc = func(req *nethttp.Request) {
			req.Header.Set("X-Api-Key", key)
		}
	}

	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.Providers.Philosophy.BaseURL,
		ServiceName: cfg.Providers.Philosophy.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		AuthFunc:    authFunc,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating philosophy client: %w", err)
	}

	return providers.NewNinjasProvider(providers.NinjasProviderConfig{
		Client: client,
		Logger: logger,
	}), nil
}

// newAnimeProvider builds the anime quote adapter over its own client.
func newAnimeProvider(cfg *config.Config, logger *slog.Logger) (*providers.AnimeProvider, error) {
	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.Providers.Anime.BaseURL,
		ServiceName: cfg.Providers.Anime.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating anime client: %w", err)
	}

	return providers.NewAnimeProvider(providers.AnimeProviderConfig{
		Client: client,
		Logger: logger,
	}), nil
}

// newDocumentStore builds the saved-quotes store per the configured driver.
// The returned close function releases the underlying database, if any.
func newDocumentStore(cfg *config.Config, logger *slog.Logger) (ports.DocumentStore, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := docstore.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening document store: %w", err)
		}

		store := docstore.NewSQLiteStore(docstore.SQLiteStoreConfig{
			DB:     db,
			Logger: logger,
		})

		return store, func() { _ = db.Close() }, nil

	case "memory":
		return docstore.NewMemoryStore(nil), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
