package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "lumi:"

// RedisConfig holds configuration for the Redis KV
type RedisConfig struct {
	URL       string        // e.g. "redis://localhost:6379/0"
	TTL       time.Duration // 0 = no expiration
	KeyPrefix string        // default "lumi:"
}

// Redis is a Redis-backed KV
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisFromClient wraps an existing client
func NewRedisFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = defaultRedisPrefix
	}
	if ttl < 0 {
		ttl = 0
	}

	return &Redis{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get returns the value stored under key. A missing key is not an error.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.keyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ KV = (*Redis)(nil)
