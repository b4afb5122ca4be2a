package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/theflex/pms-backend/config"
	"go.uber.org/zap"
)

// Client wraps the go-redis client
type Client struct {
	*goredis.Client
	logger *zap.Logger
}

// NewClient creates a Redis client from REDIS_URL or the host/port/db fields.
// The connection is verified with PING.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	opts, err := goredis.ParseURL(cfg.ConnectionURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := &Client{
		Client: goredis.NewClient(opts),
		logger: logger,
	}

	if err := client.HealthCheck(ctx); err != nil {
		_ = client.Client.Close()
		return nil, err
	}

	logger.Info("redis connection established",
		zap.String("connection", cfg.LogString()))

	return client, nil
}

// Close closes the Redis client
func (c *Client) Close() error {
	c.logger.Info("closing redis connection")
	return c.Client.Close()
}

// HealthCheck pings Redis
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
