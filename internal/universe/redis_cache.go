package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when the cache holds no symbol list
var ErrCacheMiss = errors.New("universe cache miss")

// Cache stores the symbol universe between runs
type Cache interface {
	GetSymbols(ctx context.Context) ([]string, error)
	SetSymbols(ctx context.Context, symbols []string) error
}

// RedisCache stores the symbol universe as a JSON list under one key
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisConfig configures a RedisCache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "dataset-compiler:universe"
	}
	return &RedisCache{client: client, key: key, ttl: cfg.TTL}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetSymbols returns the cached symbols or ErrCacheMiss
func (c *RedisCache) GetSymbols(ctx context.Context) ([]string, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached universe: %w", err)
	}

	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("failed to decode cached universe: %w", err)
	}
	if len(symbols) == 0 {
		return nil, ErrCacheMiss
	}
	return symbols, nil
}

// SetSymbols replaces the cached symbols
func (c *RedisCache) SetSymbols(ctx context.Context, symbols []string) error {
	data, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("failed to encode universe: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache universe: %w", err)
	}
	return nil
}
