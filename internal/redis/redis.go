// Package redis holds the shared client used for the payment webhook
// locks.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"milebot/internal/config"
	"milebot/pkg/log"
)

var client *redis.Client

// Init connects and pings with a short timeout so a dead redis fails
// startup instead of the first webhook.
func Init(cfg *config.Config) error {
	c := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.GetAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolTimeout:  cfg.Redis.PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}

	client = c
	log.Info("Redis connected")
	return nil
}

// Close closes the shared client.
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// GetClient returns the shared client.
func GetClient() *redis.Client {
	return client
}
