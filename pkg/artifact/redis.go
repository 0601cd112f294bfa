package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for a Redis-backed index.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// HashKey is the Redis hash holding the key→path records.
	HashKey string
}

// DefaultRedisConfig returns sensible defaults for a local Redis.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		HashKey:      "serve:artifacts",
	}
}

// RedisIndex stores artifact records in a Redis hash so multiple serving
// processes sharing one build-output volume agree on artifact locations.
type RedisIndex struct {
	client  *redis.Client
	hashKey string
}

// ConnectRedis creates a Redis-backed index, verifying the connection.
func ConnectRedis(ctx context.Context, cfg *RedisConfig) (*RedisIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	hashKey := cfg.HashKey
	if hashKey == "" {
		hashKey = "serve:artifacts"
	}
	return &RedisIndex{client: client, hashKey: hashKey}, nil
}

func (r *RedisIndex) Get(ctx context.Context, key string) (string, bool, error) {
	path, err := r.client.HGet(ctx, r.hashKey, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read artifact record: %w", err)
	}
	return path, true, nil
}

func (r *RedisIndex) Put(ctx context.Context, key, path string) error {
	if err := r.client.HSet(ctx, r.hashKey, key, path).Err(); err != nil {
		return fmt.Errorf("failed to write artifact record: %w", err)
	}
	return nil
}

func (r *RedisIndex) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.hashKey).Err(); err != nil {
		return fmt.Errorf("failed to reset artifact index: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}
