package locking

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/config"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/logger"
)

// NewRedisClient connects to the lock store, verifies connectivity, and
// returns the client.
func NewRedisClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	start := time.Now()

	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port)),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info(ctx, "redis_connected", "Connected to Redis lock store", map[string]any{
		"host":        cfg.Redis.Host,
		"port":        cfg.Redis.Port,
		"db":          cfg.Redis.DB,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return rdb, nil
}
