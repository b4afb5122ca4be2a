package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/theflex/pms-backend/internal/syncbridge"
	"github.com/theflex/pms-backend/tenant"
	"github.com/theflex/pms-backend/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating JWT tokens
type TokenValidator interface {
	// ValidateToken validates a JWT token and returns its claims
	ValidateToken(ctx context.Context, token string) (tenant.ClaimSet, error)
}

// TenantResolver extracts a tenant ID from verified claims
type TenantResolver interface {
	FromClaims(claims tenant.ClaimSet) (string, bool)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator  TokenValidator
	resolver   TenantResolver
	cronSecret string
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, resolver TenantResolver, cronSecret string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator:  validator,
		resolver:   resolver,
		cronSecret: cronSecret,
		logger:     logger,
	}
}

// cronSecretHeader carries the shared secret for internal endpoints
const cronSecretHeader = "X-Cron-Secret"

// authTokenCookieName is the cookie fallback for the access token
const authTokenCookieName = "sb-access-token"

// RequireAuth is a middleware that requires a valid Supabase JWT
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithClaims(ctx, claims)

		sub, _ := claims["sub"].(string)
		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", sub))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractTenant is a middleware that resolves the tenant ID from claims.
// This should be called after RequireAuth
func (m *AuthMiddleware) ExtractTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		claims := GetClaimsFromContext(ctx)
		if claims == nil {
			m.logger.Error("claims not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		tenantID, ok := m.resolver.FromClaims(claims)
		if !ok {
			_ = utils.WriteForbidden(w, "No tenant associated with this account")
			return
		}

		m.logger.Debug("tenant information extracted",
			zap.String("request_id", requestID),
			zap.String("tenant_id", tenantID))

		next.ServeHTTP(w, r.WithContext(WithTenantID(ctx, tenantID)))
	})
}

// RequireCronSecret guards internal endpoints with the X-Cron-Secret header
func (m *AuthMiddleware) RequireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(cronSecretHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(m.cronSecret)) != 1 {
			m.logger.Warn("invalid cron secret",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Invalid cron secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AsyncScope marks every request context as part of the concurrent serving
// pipeline, so blocking bridge calls are moved off the request goroutine
func AsyncScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(syncbridge.WithAsyncScope(r.Context())))
	})
}

// extractToken extracts the JWT from the Authorization header ("Bearer TOKEN")
// or the sb-access-token cookie. The header takes precedence.
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(authTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
