package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/patientsportal/portal/internal/portal/http"
	"github.com/patientsportal/portal/internal/portal/service"
	"github.com/patientsportal/portal/internal/portal/store/drivers/sqlite"
	"github.com/patientsportal/portal/pkg/cryptox"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/jwtx"
	"github.com/patientsportal/portal/pkg/slogx"
	"github.com/patientsportal/portal/pkg/totpx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application holds the portal service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     *sqlite.Store
	redis  *redis.Client
	issuer *jwtx.HS256Issuer
	hasher *cryptox.PasswordHasher

	authService         *service.AuthService
	mfaService          *service.MFAService
	reportService       *service.ReportService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "patients-portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	hasher, err := InitPasswordHasher(cfg)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.hasher = hasher

	issuer, err := InitTokenIssuer(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.issuer = issuer

	app.initRedis()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("portal starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown drains in-flight requests, stops housekeeping and closes stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down portal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("error closing redis", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("portal stopped")
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initRedis connects the shared rate limit store. An unreachable Redis is
// not fatal: limits fall back to per-process buckets.
func (app *Application) initRedis() {
	if app.cfg.RedisAddr == "" {
		app.logger.Info("rate limits are per process", "reason", "RATELIMIT_REDIS_ADDR not set")
		return
	}

	rdb := redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		app.logger.Warn("redis unavailable, rate limits are per process",
			"addr", app.cfg.RedisAddr,
			"error", err,
		)
		_ = rdb.Close()
		return
	}

	app.redis = rdb
	app.logger.Info("rate limits shared through redis", "addr", app.cfg.RedisAddr)
}

func (app *Application) initServices() {
	engine := totpx.New(app.cfg.MFAIssuer)
	challenges := &service.ChallengeService{Store: app.db}

	app.authService = &service.AuthService{
		Store:  app.db,
		Hasher: app.hasher,
		Tokens: app.issuer,
		Refresh: &service.RefreshService{
			Store: app.db,
			TTL:   app.cfg.RefreshTTL,
		},
		Challenges: challenges,
		TOTP:       engine,
	}
	app.mfaService = &service.MFAService{
		Store:      app.db,
		TOTP:       engine,
		Challenges: challenges,
	}
	app.reportService = &service.ReportService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Auth:  app.authService,
		Token: app.cfg.BootstrapToken,
	}

	if app.cfg.BootstrapToken == "" {
		app.logger.Info("bootstrap disabled", "reason", "BOOTSTRAP_TOKEN not set")
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.issuer,
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.AllowedOrigins,
	)

	router.Limits = &httpx.RateLimiters{Redis: app.redis}
	if app.redis != nil {
		rdb := app.redis
		router.ReadyChecks = map[string]httpapi.Pinger{
			"ratelimit": httpapi.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		}
	}

	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.ReportService = app.reportService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		// Uploads are capped at 20 MiB; leave room for slow links.
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
	}
}
