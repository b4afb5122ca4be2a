package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/theflex/pms-backend/repositories"
	"github.com/theflex/pms-backend/tenant"
	"go.uber.org/zap"
)

// UserRepository implements the repositories.UserRepository interface
// on top of the Supabase auth schema
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetUserRecord retrieves a user by ID
func (r *UserRepository) GetUserRecord(ctx context.Context, id uuid.UUID) (tenant.ClaimSet, error) {
	query := `
		SELECT id, email, raw_user_meta_data, raw_app_meta_data
		FROM auth.users
		WHERE id = $1
	`

	var (
		userID   string
		email    sql.NullString
		userMeta []byte
		appMeta  []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&userID, &email, &userMeta, &appMeta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	record := tenant.ClaimSet{"id": userID}
	if email.Valid {
		record["email"] = email.String
	}

	if meta, err := decodeMetadata(userMeta); err != nil {
		r.logger.Warn("ignoring unreadable user metadata", zap.String("user_id", userID), zap.Error(err))
	} else if meta != nil {
		record["user_metadata"] = meta
	}

	if meta, err := decodeMetadata(appMeta); err != nil {
		r.logger.Warn("ignoring unreadable app metadata", zap.String("user_id", userID), zap.Error(err))
	} else if meta != nil {
		record["app_metadata"] = meta
	}

	return record, nil
}

// decodeMetadata decodes a jsonb column, keeping numbers as json.Number so
// numeric tenant ids survive unchanged
func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var meta map[string]any
	if err := dec.Decode(&meta); err != nil {
		return nil, err
	}
	return meta, nil
}
