// Package cache keeps in-flight intake sessions in Redis.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
)

const dialTimeout = 5 * time.Second

// NewRedisClient connects to Redis. cfg.URL is either a redis:// URL or a
// host:port address.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts := &redis.Options{Addr: cfg.URL}
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = dialTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis session arena connected",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB))

	return client, nil
}
