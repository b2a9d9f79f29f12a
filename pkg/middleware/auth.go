package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/pkg/jwt"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

const (
	UserIDKey     = "user_id"
	UserNameKey   = "user_name"
	ClaimsKey     = "claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// AuthMiddleware validates bearer JWTs for every route except an allow-list
// of public paths.
type AuthMiddleware struct {
	validator TokenValidator
	public    map[string]struct{}
	prefixes  []string
}

// NewAuthMiddleware creates a new auth middleware. Entries of publicPaths
// ending in "*" match by prefix, all others must equal the route pattern
// (gin FullPath) or the raw request path.
func NewAuthMiddleware(validator TokenValidator, publicPaths []string) *AuthMiddleware {
	m := &AuthMiddleware{
		validator: validator,
		public:    make(map[string]struct{}, len(publicPaths)),
	}
	for _, p := range publicPaths {
		if strings.HasSuffix(p, "*") {
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		m.public[p] = struct{}{}
	}
	return m
}

// IsPublic reports whether the request may skip authentication.
func (m *AuthMiddleware) IsPublic(c *gin.Context) bool {
	if _, ok := m.public[c.FullPath()]; ok {
		return true
	}
	path := c.Request.URL.Path
	if _, ok := m.public[path]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Gateway returns a middleware that requires a valid token on non-public
// routes. On public routes a valid token is still attached when present.
func (m *AuthMiddleware) Gateway() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if m.IsPublic(c) {
			if token, ok := bearerToken(c); ok {
				if claims, err := m.validator.ValidateToken(c.Request.Context(), token); err == nil {
					setClaims(c, claims)
				}
			}
			c.Next()
			return
		}
		m.authenticate(c)
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" {
		response.Unauthorized(c, "missing authorization header")
		return
	}

	token, ok := bearerToken(c)
	if !ok {
		response.Unauthorized(c, "invalid authorization format")
		return
	}

	claims, err := m.validator.ValidateToken(c.Request.Context(), token)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrExpiredToken):
		response.Unauthorized(c, "token expired")
		return
	case errors.Is(err, jwt.ErrRevokedToken), errors.Is(err, jwt.ErrInvalidToken):
		response.Forbidden(c, "invalid token")
		return
	default:
		response.InternalError(c, "failed to validate token")
		return
	}

	if claims.Type != jwt.TypeAccess {
		response.Forbidden(c, "invalid token")
		return
	}

	setClaims(c, claims)
	c.Next()
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(h, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	return token, token != ""
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(UserIDKey, claims.Subject)
	c.Set(UserNameKey, claims.UserName)
	c.Set(ClaimsKey, claims)
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetClaims extracts the validated claims from Gin context.
func GetClaims(c *gin.Context) *jwt.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*jwt.Claims); ok {
			return claims
		}
	}
	return nil
}
