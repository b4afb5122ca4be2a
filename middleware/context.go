package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/theflex/pms-backend/tenant"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for verified JWT claims
	ClaimsKey contextKey = "claims"

	// TenantIDKey is the context key for the resolved tenant ID
	TenantIDKey contextKey = "tenant_id"
)

// GetRequestIDFromContext retrieves the chi request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) tenant.ClaimSet {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(tenant.ClaimSet); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims to the context
func WithClaims(ctx context.Context, claims tenant.ClaimSet) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetTenantIDFromContext retrieves the tenant ID from context
func GetTenantIDFromContext(ctx context.Context) string {
	if val := ctx.Value(TenantIDKey); val != nil {
		if tenantID, ok := val.(string); ok {
			return tenantID
		}
	}
	return ""
}

// WithTenantID adds a tenant ID to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}
