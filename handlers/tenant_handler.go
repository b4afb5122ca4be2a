package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/theflex/pms-backend/internal/observability"
	"github.com/theflex/pms-backend/middleware"
	"github.com/theflex/pms-backend/repositories"
	"github.com/theflex/pms-backend/supabase"
	"github.com/theflex/pms-backend/tenant"
	"github.com/theflex/pms-backend/utils"
	"go.uber.org/zap"
)

// UserTenantResolver extracts a tenant ID from a user record
type UserTenantResolver interface {
	FromUserRecord(user tenant.ClaimSet) (string, bool)
}

// UserRecordFinder loads a stored user record
type UserRecordFinder interface {
	GetUserRecord(ctx context.Context, id uuid.UUID) (tenant.ClaimSet, error)
}

// TenantResponse is returned by the tenant endpoints
type TenantResponse struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
}

// resolveTenantRequest is the body of POST /internal/tenants/resolve
type resolveTenantRequest struct {
	User tenant.ClaimSet `json:"user" validate:"required"`
}

// TenantHandler handles tenant HTTP requests
type TenantHandler struct {
	resolver UserTenantResolver
	users    UserRecordFinder
	logger   *zap.Logger
}

// NewTenantHandler creates a new TenantHandler. users may be nil when no
// database is configured.
func NewTenantHandler(resolver UserTenantResolver, users UserRecordFinder, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		resolver: resolver,
		users:    users,
		logger:   logger,
	}
}

// HandleCurrentTenant handles GET /api/v1/me/tenant.
// The tenant was resolved from the verified claims by ExtractTenant.
func (h *TenantHandler) HandleCurrentTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middleware.GetClaimsFromContext(ctx)

	_ = utils.WriteOK(w, TenantResponse{
		TenantID: middleware.GetTenantIDFromContext(ctx),
		UserID:   supabase.Subject(claims),
		Email:    supabase.Email(claims),
	})
}

// HandleResolveUserTenant handles POST /api/v1/internal/tenants/resolve
func (h *TenantHandler) HandleResolveUserTenant(w http.ResponseWriter, r *http.Request) {
	var req resolveTenantRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		_ = utils.WriteValidationError(w, err)
		return
	}

	tenantID, ok := h.resolver.FromUserRecord(req.User)
	if !ok {
		observability.WithRequest(r.Context(), h.logger).Debug("no tenant found for user record")
		_ = utils.WriteNotFound(w, "No tenant associated with this user")
		return
	}

	_ = utils.WriteOK(w, TenantResponse{TenantID: tenantID})
}

// HandleUserTenant handles GET /api/v1/internal/tenants/users/{userID}.
// The stored user record is resolved the same way as a posted one.
func (h *TenantHandler) HandleUserTenant(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithRequest(r.Context(), h.logger)

	if h.users == nil {
		_ = utils.WriteServiceUnavailable(w, "User store not configured")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	user, err := h.users.GetUserRecord(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = utils.WriteNotFound(w, "User not found")
			return
		}
		logger.Error("failed to load user record", zap.String("user_id", userID.String()), zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	tenantID, ok := h.resolver.FromUserRecord(user)
	if !ok {
		logger.Debug("no tenant found for user", zap.String("user_id", userID.String()))
		_ = utils.WriteNotFound(w, "No tenant associated with this user")
		return
	}

	_ = utils.WriteOK(w, TenantResponse{
		TenantID: tenantID,
		UserID:   userID.String(),
		Email:    supabase.Email(user),
	})
}
