package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	httpapi "github.com/aussiebroadwan/gatekeep/internal/gate/http"
	"github.com/aussiebroadwan/gatekeep/internal/gate/service"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/ratecounter"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"

	"time"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the token service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	counter ratecounter.Counter

	tokenService        *service.TokenService
	clientService       *service.ClientService
	linkService         *service.LinkService
	throttleService     *service.ThrottleService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeep",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.validateConfig(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCounter(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatekeep starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatekeep...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.counter.Close(); err != nil {
		app.logger.Error("error closing counter backend", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatekeep stopped")
	return nil
}

// validateConfig fails fast on knobs that would otherwise surface as
// request-time errors.
func (app *Application) validateConfig() error {
	if app.cfg.TokenLength < 40 || app.cfg.TokenLength%2 != 0 {
		return fmt.Errorf("token length must be an even number >= 40, got %d", app.cfg.TokenLength)
	}

	if app.cfg.DefaultTokenTTL <= 0 {
		return fmt.Errorf("default token TTL must be positive, got %s", app.cfg.DefaultTokenTTL)
	}

	if app.cfg.DefaultThrottleRate != "" {
		if _, _, err := service.ParseRate(app.cfg.DefaultThrottleRate); err != nil {
			return fmt.Errorf("default throttle rate: %w", err)
		}
	}

	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCounter picks the throttle counter backend: Redis when configured so
// windows are shared across instances, in-process otherwise.
func (app *Application) initCounter() error {
	if app.cfg.RedisAddr == "" {
		app.counter = ratecounter.NewMemoryCounter()
		app.logger.Info("throttle counters kept in-process (no redis configured)")
		return nil
	}

	counter, err := ratecounter.NewRedisCounter(ratecounter.RedisConfig{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize counter backend: %w", err)
	}

	app.counter = counter
	app.logger.Info("throttle counters backed by redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:       app.db,
		TokenLength: app.cfg.TokenLength,
	}

	// Audit every renewal; listeners run once per successful renew.
	app.tokenService.OnRenewal(func(ctx context.Context, ev domain.TokenRenewed) {
		app.logger.Info("token renewed",
			"link_id", ev.Token.LinkID,
			"new_expiry", ev.NewExpiry,
			"actor", ev.Actor,
		)
	})

	app.clientService = &service.ClientService{Store: app.db}
	app.linkService = &service.LinkService{Store: app.db}
	app.throttleService = &service.ThrottleService{
		Counter:     app.counter,
		DefaultRate: app.cfg.DefaultThrottleRate,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.TokenRetention,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.counter, app.logger)

	router.TokenService = app.tokenService
	router.ClientService = app.clientService
	router.LinkService = app.linkService
	router.ThrottleService = app.throttleService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
