package cache

import (
	"context"
	"errors"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// EntityCache holds read-through copies of profiles and post documents.
// Counters and viewer-specific fields are never cached.
type EntityCache interface {
	GetProfile(ctx context.Context, key string) (*domain.Profile, error)
	// SetProfile stores p under both its id key and its name key.
	SetProfile(ctx context.Context, p *domain.Profile) error
	GetPost(ctx context.Context, esID string) (*domain.Post, error)
	SetPost(ctx context.Context, p *domain.Post) error
	Delete(ctx context.Context, keys ...string) error
	ProfileKeyByID(userID string) string
	ProfileKeyByName(userName string) string
	PostKey(esID string) string
}
