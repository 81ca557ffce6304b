package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tmarsden/tradescout-backend/config"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
)

// CoordinateCache is the shared (cross-process) cache tier for geocoded
// coordinate lookups. It is optional: a nil *CoordinateCache is safe to use
// and behaves as an always-miss cache, so the pipeline degrades to the
// in-process tier when Redis is unreachable.
type CoordinateCache struct {
	client *redis.Client
}

// Connect opens a Redis connection and verifies it with a ping.
func Connect(cfg *config.RedisConfig) (*CoordinateCache, error) {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return &CoordinateCache{client: client}, nil
}

// Close closes the Redis connection.
func (c *CoordinateCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	logger.Info("Closing Redis connection", nil)
	return c.client.Close()
}

// GetCoordinates returns the cached coordinates for a cache key, or
// (nil, nil) on a miss.
func (c *CoordinateCache) GetCoordinates(ctx context.Context, key string) (*model.Coordinates, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to read coordinate cache", err, map[string]interface{}{
			"key": key,
		})
		return nil, err
	}

	var coords model.Coordinates
	if err := json.Unmarshal([]byte(val), &coords); err != nil {
		// treat a corrupt entry as a miss and drop it
		c.client.Del(ctx, key)
		return nil, nil
	}
	return &coords, nil
}

// SetCoordinates stores coordinates under a cache key with the given TTL.
func (c *CoordinateCache) SetCoordinates(ctx context.Context, key string, coords model.Coordinates, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	payload, err := json.Marshal(coords)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		logger.Error("Failed to write coordinate cache", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	return nil
}
