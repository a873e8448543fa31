package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/j-soro/housing-ml-pipeline/config"
)

// CacheService wraps redis for response caching and run event fan-out.
// Every method tolerates a nil client, so the API keeps serving when redis
// is down; reads behave as misses and writes are dropped.
type CacheService struct {
	client *redis.Client
}

// NewCacheService connects to redis and verifies the connection. Redis may
// come up after the API when the stack starts together, so the ping is
// retried for a while before giving up. On failure the returned service is
// still usable, just disabled.
func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for attempt := 1; attempt <= 10; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		log.Printf("redis ping attempt %d failed: %v", attempt, lastErr)
		time.Sleep(2 * time.Second)
	}

	return &CacheService{client: nil}, fmt.Errorf("redis unreachable after 10 attempts: %w", lastErr)
}

// Available reports whether a live redis connection backs this service.
func (c *CacheService) Available() bool {
	return c.client != nil
}

// Get loads the cached value for key into dest. A miss returns nil and
// leaves dest untouched, so callers must check a field of dest to tell a
// hit from a miss.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return redis.Nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set stores value under key for ttl.
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes key from the cache.
func (c *CacheService) Delete(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// Publish sends payload as JSON on the given pub/sub channel.
func (c *CacheService) Publish(ctx context.Context, channel string, payload any) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, channel, data).Err()
}

// Subscribe opens a pub/sub subscription on channel. Returns nil when redis
// is unavailable; callers must handle that.
func (c *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if c.client == nil {
		return nil
	}
	return c.client.Subscribe(ctx, channel)
}

func (c *CacheService) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
