package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/theflex/pms-backend/middleware"
	"github.com/theflex/pms-backend/repositories"
	"github.com/theflex/pms-backend/tenant"
	"go.uber.org/zap"
)

func TestHandleCurrentTenant(t *testing.T) {
	handler := NewTenantHandler(tenant.NewResolver(zap.NewNop()), nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/tenant", nil)
	ctx := middleware.WithClaims(req.Context(), tenant.ClaimSet{"sub": "user-1", "email": "host@theflex.global"})
	ctx = middleware.WithTenantID(ctx, "tenant-1")
	w := httptest.NewRecorder()

	handler.HandleCurrentTenant(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data TenantResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, TenantResponse{TenantID: "tenant-1", UserID: "user-1", Email: "host@theflex.global"}, response.Data)
}

func TestHandleResolveUserTenant(t *testing.T) {
	handler := NewTenantHandler(tenant.NewResolver(zap.NewNop()), nil, zap.NewNop())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantTenant string
	}{
		{
			name:       "top level tenant wins",
			body:       `{"user":{"tenant_id":"top","user_metadata":{"tenant_id":"meta"}}}`,
			wantStatus: http.StatusOK,
			wantTenant: "top",
		},
		{
			name:       "app metadata fallback",
			body:       `{"user":{"app_metadata":{"tenant_id":"app"}}}`,
			wantStatus: http.StatusOK,
			wantTenant: "app",
		},
		{
			name:       "numeric tenant id",
			body:       `{"user":{"tenant_id":12345678901234567}}`,
			wantStatus: http.StatusOK,
			wantTenant: "12345678901234567",
		},
		{
			name:       "no tenant",
			body:       `{"user":{"email":"guest@example.com"}}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing user",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `{"user":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/tenants/resolve", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.HandleResolveUserTenant(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var response struct {
				Data TenantResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantTenant, response.Data.TenantID)
		})
	}
}

// MockUserRecordFinder is a mock implementation of UserRecordFinder
type MockUserRecordFinder struct {
	mock.Mock
}

func (m *MockUserRecordFinder) GetUserRecord(ctx context.Context, id uuid.UUID) (tenant.ClaimSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tenant.ClaimSet), args.Error(1)
}

func TestHandleUserTenant(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		userID     string
		setupMock  func(m *MockUserRecordFinder)
		wantStatus int
		wantTenant string
	}{
		{
			name:   "tenant from app metadata",
			userID: userID.String(),
			setupMock: func(m *MockUserRecordFinder) {
				m.On("GetUserRecord", mock.Anything, userID).Return(tenant.ClaimSet{
					"id":           userID.String(),
					"email":        "host@theflex.global",
					"app_metadata": map[string]any{"tenant_id": "tenant-9"},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantTenant: "tenant-9",
		},
		{
			name:   "user without tenant",
			userID: userID.String(),
			setupMock: func(m *MockUserRecordFinder) {
				m.On("GetUserRecord", mock.Anything, userID).Return(tenant.ClaimSet{"id": userID.String()}, nil)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "unknown user",
			userID: userID.String(),
			setupMock: func(m *MockUserRecordFinder) {
				m.On("GetUserRecord", mock.Anything, userID).
					Return(nil, fmt.Errorf("user %s: %w", userID, repositories.ErrNotFound))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "store failure",
			userID: userID.String(),
			setupMock: func(m *MockUserRecordFinder) {
				m.On("GetUserRecord", mock.Anything, userID).Return(nil, errors.New("connection reset"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "invalid user id",
			userID:     "not-a-uuid",
			setupMock:  func(m *MockUserRecordFinder) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRecordFinder)
			tt.setupMock(users)
			handler := NewTenantHandler(tenant.NewResolver(zap.NewNop()), users, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/internal/tenants/users/"+tt.userID, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("userID", tt.userID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			handler.HandleUserTenant(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			users.AssertExpectations(t)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var response struct {
				Data TenantResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, TenantResponse{TenantID: tt.wantTenant, UserID: userID.String(), Email: "host@theflex.global"}, response.Data)
		})
	}

	t.Run("no user store", func(t *testing.T) {
		handler := NewTenantHandler(tenant.NewResolver(zap.NewNop()), nil, zap.NewNop())
		req := httptest.NewRequest(http.MethodGet, "/api/v1/internal/tenants/users/"+userID.String(), nil)
		w := httptest.NewRecorder()

		handler.HandleUserTenant(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
