package redis

import (
	"github.com/redis/go-redis/v9"

	"task-service/internal/config"
)

// NewClient builds a Redis client from config. Connections are established lazily.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
