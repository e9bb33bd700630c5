package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kunduachyut/linkfro-chat-relay/internal/config"
	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
)

// RedisMessageCache implements MessageCache over Redis.
type RedisMessageCache struct {
	client *redis.Client
	prefix string
}

// NewRedisMessageCache connects to Redis and returns a history cache.
func NewRedisMessageCache(cfg config.RedisConfig, prefix string) (*RedisMessageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisMessageCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisMessageCache) key(purchaseID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, purchaseID)
}

func (c *RedisMessageCache) Get(ctx context.Context, purchaseID string) ([]domain.Message, error) {
	data, err := c.client.Get(ctx, c.key(purchaseID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var messages []domain.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return messages, nil
}

func (c *RedisMessageCache) Set(ctx context.Context, purchaseID string, messages []domain.Message, ttl time.Duration) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, c.key(purchaseID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisMessageCache) Invalidate(ctx context.Context, purchaseID string) error {
	if err := c.client.Del(ctx, c.key(purchaseID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

func (c *RedisMessageCache) Close() error {
	return c.client.Close()
}
