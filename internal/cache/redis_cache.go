package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

type RedisEntityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEntityCache wraps a connected client. A zero ttl keeps entries
// until they are invalidated.
func NewRedisEntityCache(client *redis.Client, ttl time.Duration) *RedisEntityCache {
	return &RedisEntityCache{client: client, ttl: ttl}
}

func (c *RedisEntityCache) ProfileKeyByID(userID string) string {
	return fmt.Sprintf("profile:id:%s", userID)
}

// ProfileKeyByName is case-insensitive, like user name lookups.
func (c *RedisEntityCache) ProfileKeyByName(userName string) string {
	return fmt.Sprintf("profile:name:%s", strings.ToLower(userName))
}

func (c *RedisEntityCache) PostKey(esID string) string {
	return esID
}

func (c *RedisEntityCache) get(ctx context.Context, key string, v interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get from redis: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return nil
}

func (c *RedisEntityCache) set(ctx context.Context, v interface{}, keys ...string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	pipe := c.client.TxPipeline()
	for _, key := range keys {
		pipe.Set(ctx, key, data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisEntityCache) GetProfile(ctx context.Context, key string) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.get(ctx, key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RedisEntityCache) SetProfile(ctx context.Context, p *domain.Profile) error {
	return c.set(ctx, p, c.ProfileKeyByID(p.UserID), c.ProfileKeyByName(p.UserName))
}

func (c *RedisEntityCache) GetPost(ctx context.Context, esID string) (*domain.Post, error) {
	var p domain.Post
	if err := c.get(ctx, c.PostKey(esID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RedisEntityCache) SetPost(ctx context.Context, p *domain.Post) error {
	return c.set(ctx, p, c.PostKey(p.ESID))
}

func (c *RedisEntityCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}
