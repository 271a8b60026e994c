package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/osvaldoandrade/taskdeck/internal/logging"
	"github.com/osvaldoandrade/taskdeck/internal/metrics"
	"github.com/osvaldoandrade/taskdeck/internal/middleware"
	"github.com/osvaldoandrade/taskdeck/internal/ratelimit"
	"github.com/osvaldoandrade/taskdeck/internal/services"
	"github.com/osvaldoandrade/taskdeck/internal/tracing"
	"github.com/osvaldoandrade/taskdeck/pkg/auth"
	"github.com/osvaldoandrade/taskdeck/pkg/config"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// devToken is accepted in dev when no auth provider is configured.
const devToken = "dev-token"

type Application struct {
	Config          *config.Config
	Engine          *gin.Engine
	Store           persistence.PluginPersistence
	Catalog         services.CatalogService
	Executions      services.ExecutionService
	Logger          *slog.Logger
	Validator       auth.Validator
	RateLimiter     ratelimit.Limiter
	TracingShutdown func(context.Context) error

	// limiterClient is closed on Close when the limiter does not share the
	// storage connection.
	limiterClient *redis.Client
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithValidator replaces the validators built from cfg.Auth.
func WithValidator(validator auth.Validator) ApplicationOption {
	return func(app *Application) error {
		app.Validator = validator
		return nil
	}
}

// WithPersistence replaces the plugin built from cfg.Persistence.
func WithPersistence(store persistence.PluginPersistence) ApplicationOption {
	return func(app *Application) error {
		app.Store = store
		return nil
	}
}

func WithLogger(logger *slog.Logger) ApplicationOption {
	return func(app *Application) error {
		app.Logger = logger
		return nil
	}
}

func WithRateLimiter(lim ratelimit.Limiter) ApplicationOption {
	return func(app *Application) error {
		app.RateLimiter = lim
		return nil
	}
}

// redisBacked is implemented by storage plugins that can share their
// connection with the rate limiter.
type redisBacked interface {
	Client() *redis.Client
}

func NewApplication(cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	app := &Application{Config: cfg}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.Logger == nil {
		app.Logger = logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("service", "taskdeck", "env", cfg.Env)
		slog.SetDefault(app.Logger)
	}
	logger := app.Logger

	shutdown, err := tracing.Setup(context.Background(), cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	app.TracingShutdown = shutdown

	if app.Store == nil {
		raw, err := cfg.Persistence.Raw()
		if err != nil {
			return nil, err
		}
		store, err := persistence.NewPersistence(cfg.Persistence.Type, persistence.PluginConfig{
			Config:        raw,
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("persistence: %w", err)
		}
		app.Store = store
	}
	metrics.RegisterStorageCollector(app.Store, logger)

	if app.Validator == nil {
		providers := make([]auth.ProviderConfig, 0, len(cfg.Auth))
		for _, pc := range cfg.Auth {
			raw, err := pc.Raw()
			if err != nil {
				return nil, err
			}
			providers = append(providers, auth.ProviderConfig{Type: pc.Type, Config: raw})
		}
		if len(providers) == 0 && cfg.IsDev() {
			logger.Warn("no auth providers configured; accepting static token", "token", devToken)
			providers = append(providers, auth.ProviderConfig{
				Type:   "static",
				Config: json.RawMessage(`{"token":"` + devToken + `","subject":"dev","raw":{"role":"ADMIN"}}`),
			})
		}
		validator, err := auth.NewChain(providers)
		if err != nil {
			return nil, err
		}
		app.Validator = validator
	}

	if app.RateLimiter == nil {
		app.RateLimiter = app.newLimiter()
	}

	app.Catalog = services.NewCatalogService(app.Store.TaskStorage(), logger)
	app.Executions = services.NewExecutionService(app.Store.TaskStorage(), app.Store.ExecutionStorage(), logger, time.Now)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
		middleware.TracingMiddleware(cfg.Tracing.ServiceName),
		middleware.MetricsMiddleware(),
	)
	app.Engine = engine

	logger.Info("application ready",
		"persistence", cfg.Persistence.Type,
		"auth_providers", len(cfg.Auth),
		"tracing", cfg.Tracing.Enabled,
	)
	return app, nil
}

// newLimiter shares the storage Redis when there is one and only dials
// cfg.RedisAddr when a bucket is actually enabled.
func (app *Application) newLimiter() ratelimit.Limiter {
	cfg := app.Config
	if !ratelimit.Bucket(cfg.RateLimit.CreateExecution).Enabled() && !ratelimit.Bucket(cfg.RateLimit.Admin).Enabled() {
		return nil
	}
	if rb, ok := app.Store.(redisBacked); ok {
		return ratelimit.NewTokenBucketLimiter(rb.Client())
	}
	app.limiterClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	return ratelimit.NewTokenBucketLimiter(app.limiterClient)
}

// Close flushes traces and releases storage connections.
func (app *Application) Close(ctx context.Context) error {
	var errs []error
	if app.TracingShutdown != nil {
		errs = append(errs, app.TracingShutdown(ctx))
	}
	if app.limiterClient != nil {
		errs = append(errs, app.limiterClient.Close())
	}
	if app.Store != nil {
		errs = append(errs, app.Store.Close())
	}
	return errors.Join(errs...)
}
