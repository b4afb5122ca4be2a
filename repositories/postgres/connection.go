package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/theflex/pms-backend/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool and waits until it answers
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns())
	db.SetMaxIdleConns(cfg.PoolSize)
	db.SetConnMaxLifetime(cfg.PoolRecycle)

	wrapped := &DB{DB: db, logger: logger}
	if err := wrapped.connect(ctx, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return wrapped, nil
}

// connect pings the pool, retrying MaxRetries times with exponential backoff
func (db *DB) connect(ctx context.Context, cfg config.DatabaseConfig) error {
	delay := cfg.RetryDelay
	var err error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err = db.ping(ctx, cfg.PoolTimeout); err == nil {
			return nil
		}
		if attempt == cfg.MaxRetries {
			break
		}

		db.logger.Warn("database ping failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to connect to database: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("failed to ping database after %d retries: %w", cfg.MaxRetries, err)
}

func (db *DB) ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}
