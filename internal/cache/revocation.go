package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationStore keeps revoked token ids and per-user revocation
// times in Redis so every API replica sees a logout.
type RedisRevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

func revokedTokenKey(tokenID string) string {
	return fmt.Sprintf("jwt:revoked:%s", tokenID)
}

func revokedUserKey(userID string) string {
	return fmt.Sprintf("jwt:revoked_user:%s", userID)
}

func (s *RedisRevocationStore) RevokeToken(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedTokenKey(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) RevokeUser(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	if err := s.client.Set(ctx, revokedUserKey(userID), at.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) UserRevokedAt(ctx context.Context, userID string) (time.Time, bool, error) {
	sec, err := s.client.Get(ctx, revokedUserKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read user revocation: %w", err)
	}
	return time.Unix(sec, 0), true, nil
}
