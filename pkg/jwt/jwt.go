package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims represents JWT claims. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	UserName string `json:"userName"`
	Type     string `json:"type"`
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken      string `json:"token"`
	RefreshToken     string `json:"refreshToken"`
	AccessExpiresAt  int64  `json:"tokenExpiresAt"`
	RefreshExpiresAt int64  `json:"refreshExpiresAt"`
}

// Config holds JWT settings.
type Config struct {
	Issuer          string        `mapstructure:"issuer"`
	AccessDuration  time.Duration `mapstructure:"access_duration"`
	RefreshDuration time.Duration `mapstructure:"refresh_duration"`
	PrivateKeyPath  string        `mapstructure:"private_key_path"` // PEM; generated when empty
}

// Manager handles JWT operations.
type Manager struct {
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string
	store           RevocationStore
	now             func() time.Time
}

// NewManager creates a new JWT manager. A nil store falls back to an
// in-process MemoryStore.
func NewManager(cfg Config, store RevocationStore) (*Manager, error) {
	var privateKey *rsa.PrivateKey
	if cfg.PrivateKeyPath != "" {
		pem, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
	} else {
		var err error
		privateKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
	}

	return NewManagerWithKey(privateKey, cfg, store), nil
}

// NewManagerWithKey builds a manager around an existing key.
func NewManagerWithKey(key *rsa.PrivateKey, cfg Config, store RevocationStore) *Manager {
	if cfg.AccessDuration <= 0 {
		cfg.AccessDuration = 15 * time.Minute
	}
	if cfg.RefreshDuration <= 0 {
		cfg.RefreshDuration = 7 * 24 * time.Hour
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		privateKey:      key,
		publicKey:       &key.PublicKey,
		accessDuration:  cfg.AccessDuration,
		refreshDuration: cfg.RefreshDuration,
		issuer:          cfg.Issuer,
		store:           store,
		now:             time.Now,
	}
}

// GenerateTokenPair creates access and refresh tokens.
func (m *Manager) GenerateTokenPair(userID, userName string) (*TokenPair, error) {
	now := m.now()

	access, accessExp, err := m.issue(userID, userName, TypeAccess, now, m.accessDuration)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.issue(userID, userName, TypeRefresh, now, m.refreshDuration)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) issue(userID, userName, typ string, now time.Time, ttl time.Duration) (string, int64, error) {
	exp := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:   userID,
		UserName: userName,
		Type:     typ,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.privateKey)
	if err != nil {
		return "", 0, err
	}
	return token, exp.Unix(), nil
}

// ValidateToken parses a token, checks its signature, expiry and revocation
// state and returns the claims.
func (m *Manager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return m.publicKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := m.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	revokedAt, found, err := m.store.UserRevokedAt(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("check user revocation: %w", err)
	}
	if found && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(revokedAt.Truncate(time.Second)) {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// RefreshTokens creates a new token pair from a valid refresh token and
// revokes the refresh token that was used.
func (m *Manager) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.ValidateToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrInvalidToken
	}

	if err := m.store.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	return m.GenerateTokenPair(claims.UserID, claims.UserName)
}

// RevokeToken revokes a single token until its natural expiry.
func (m *Manager) RevokeToken(ctx context.Context, claims *Claims) error {
	until := m.now().Add(m.refreshDuration)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return m.store.RevokeToken(ctx, claims.ID, until)
}

// RevokeUserTokens revokes every token issued to the user before now.
func (m *Manager) RevokeUserTokens(ctx context.Context, userID string) error {
	return m.store.RevokeUser(ctx, userID, m.now(), m.refreshDuration)
}
