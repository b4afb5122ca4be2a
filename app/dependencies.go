package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/theflex/pms-backend/config"
	"github.com/theflex/pms-backend/handlers"
	"github.com/theflex/pms-backend/internal/syncbridge"
	"github.com/theflex/pms-backend/middleware"
	"github.com/theflex/pms-backend/repositories"
	"github.com/theflex/pms-backend/repositories/postgres"
	"github.com/theflex/pms-backend/repositories/redis"
	"github.com/theflex/pms-backend/services/hostaway"
	"github.com/theflex/pms-backend/services/tokenmanagement"
	"github.com/theflex/pms-backend/supabase"
	"github.com/theflex/pms-backend/tenant"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client
	Logger *zap.Logger

	// Repositories
	Users repositories.UserRepository

	// Services
	Tenants  *tenant.Resolver
	Bridge   *syncbridge.Runner
	Hostaway *hostaway.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
// Postgres and Redis are optional and only connected when configured.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initRedis(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	deps.initServices(cfg)
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection pool
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if !cfg.Database.Enabled() {
		d.Logger.Warn("DATABASE_URL not set, database disabled")
		return nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db
	d.Users = postgres.NewUserRepository(db, d.Logger)
	return nil
}

// initRedis initializes the Redis client
func (d *Dependencies) initRedis(ctx context.Context, cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		d.Logger.Warn("redis not configured, redis disabled")
		return nil
	}

	client, err := redis.NewClient(ctx, cfg.Redis, d.Logger)
	if err != nil {
		return err
	}
	d.Redis = client
	return nil
}

// initServices wires the tenant resolver and the Hostaway token lookup
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Tenants = tenant.NewResolver(d.Logger)
	d.Bridge = syncbridge.New(cfg.TokenService.Timeout, cfg.TokenService.MaxWorkers)

	var tokens hostaway.TokenService = tokenmanagement.Unconfigured{}
	if cfg.TokenService.URL != "" {
		tokens = tokenmanagement.NewClient(cfg.TokenService, cfg.Supabase.ServiceRoleKey)
		d.Logger.Info("token management client initialized",
			zap.String("url", cfg.TokenService.URL))
	} else {
		d.Logger.Warn("TOKEN_SERVICE_URL not set, hostaway tokens resolved from HOSTAWAY_TOKENS only")
	}

	d.Hostaway = hostaway.NewService(tokens, cfg.Hostaway.TokensBlob, d.Bridge, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	cronSecret := cfg.CronSecretOrDefault()

	validator, err := supabase.NewValidator(supabase.ConfigFrom(cfg.Supabase))
	if err != nil {
		d.Logger.Warn("supabase jwt secret not configured, authenticated endpoints disabled", zap.Error(err))
		// Use reject-all validator so protected routes return 401
		d.AuthMiddleware = middleware.NewAuthMiddleware(&rejectAllValidator{}, d.Tenants, cronSecret, d.Logger)
		return
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Tenants, cronSecret, d.Logger)
	d.Logger.Info("auth middleware initialized")
}

// HealthHandler builds the health handler from whichever stores are configured
func (d *Dependencies) HealthHandler() *handlers.HealthHandler {
	// A nil *redis.Client must not become a non-nil interface
	var cache handlers.HealthChecker
	if d.Redis != nil {
		cache = d.Redis
	}
	if d.DB != nil {
		return handlers.NewHealthHandler(d.DB.DB, cache, d.Logger)
	}
	return handlers.NewHealthHandler(nil, cache, d.Logger)
}

// rejectAllValidator rejects all tokens (used when no JWT secret is configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (tenant.ClaimSet, error) {
	return nil, errors.New("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
