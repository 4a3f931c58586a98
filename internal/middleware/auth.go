// Package middleware provides HTTP middleware for the Hola Lucia API.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/response"
)

// AuthConfig holds authentication middleware configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC secret used to verify bearer tokens.
	JWTSecret string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
	// SkipPaths are paths that don't require authentication.
	SkipPaths []string
}

// Claims are the bearer token claims this API relies on.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

var errMissingTenant = errors.New("token has no valid tenant_id claim")

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(cfg AuthConfig, token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.TenantID); err != nil {
		return nil, errMissingTenant
	}
	return claims, nil
}

// Auth returns a middleware that requires a valid bearer token and puts the
// caller's user and tenant ids in the request context.
func Auth(cfg AuthConfig) func(next http.Handler) http.Handler {
	skipPaths := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			claims, err := ParseToken(cfg, token)
			if err != nil {
				response.Error(w, apierrors.ErrUnauthorized.WithMessage("Invalid or expired token"))
				return
			}

			tenantID, _ := uuid.Parse(claims.TenantID)
			ctx := WithIdentity(r.Context(), claims.Subject, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// TenantIDKey is the context key for the tenant ID.
	TenantIDKey contextKey = "tenant_id"
	// UserIDKey is the context key for user ID.
	UserIDKey contextKey = "user_id"
)

// WithIdentity returns a context carrying the caller's user and tenant.
func WithIdentity(ctx context.Context, userID string, tenantID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantID retrieves the tenant ID from context.
func GetTenantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// GetUserID retrieves the user ID from context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}
