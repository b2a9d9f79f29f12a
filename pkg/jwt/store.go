package jwt

import (
	"context"
	"sync"
	"time"
)

// RevocationStore persists revoked token ids and per-user revocation times.
type RevocationStore interface {
	RevokeToken(ctx context.Context, tokenID string, until time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	RevokeUser(ctx context.Context, userID string, at time.Time, ttl time.Duration) error
	UserRevokedAt(ctx context.Context, userID string) (time.Time, bool, error)
}

type userRevocation struct {
	at      time.Time
	expires time.Time
}

// MemoryStore is a process-local RevocationStore.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	users  map[string]userRevocation
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
		users:  make(map[string]userRevocation),
	}
}

func (s *MemoryStore) RevokeToken(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenID] = until
	return nil
}

func (s *MemoryStore) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	until, ok := s.tokens[tokenID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		s.mu.Lock()
		delete(s.tokens, tokenID)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) RevokeUser(_ context.Context, userID string, at time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = userRevocation{at: at, expires: at.Add(ttl)}
	return nil
}

func (s *MemoryStore) UserRevokedAt(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.users[userID]
	if !ok || time.Now().After(r.expires) {
		return time.Time{}, false, nil
	}
	return r.at, true, nil
}

// Cleanup drops expired entries.
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, until := range s.tokens {
		if now.After(until) {
			delete(s.tokens, id)
		}
	}
	for id, r := range s.users {
		if now.After(r.expires) {
			delete(s.users, id)
		}
	}
}
