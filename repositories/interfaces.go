package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/theflex/pms-backend/tenant"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// UserRepository reads Supabase auth users
type UserRepository interface {
	// GetUserRecord returns the user as a ClaimSet with id, email,
	// user_metadata and app_metadata keys
	GetUserRecord(ctx context.Context, id uuid.UUID) (tenant.ClaimSet, error)
}
