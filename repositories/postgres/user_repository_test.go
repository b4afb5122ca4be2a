package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theflex/pms-backend/repositories"
	"github.com/theflex/pms-backend/tenant"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var getUserQuery = regexp.QuoteMeta("SELECT id, email, raw_user_meta_data, raw_app_meta_data FROM auth.users WHERE id = $1")

func TestUserRepository_GetUserRecord(t *testing.T) {
	id := uuid.New()
	columns := []string{"id", "email", "raw_user_meta_data", "raw_app_meta_data"}

	t.Run("returns record with metadata", func(t *testing.T) {
		db, mock := newMockDB(t, zap.NewNop())
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(getUserQuery).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				id.String(),
				"host@theflex.global",
				[]byte(`{"full_name":"Host"}`),
				[]byte(`{"tenant_id":12345678901234567,"provider":"email"}`),
			))

		record, err := repo.GetUserRecord(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id.String(), record["id"])
		assert.Equal(t, "host@theflex.global", record["email"])
		assert.Equal(t, map[string]any{"full_name": "Host"}, record["user_metadata"])

		tenantID, ok := tenant.NewResolver(zap.NewNop()).FromUserRecord(record)
		assert.True(t, ok)
		assert.Equal(t, "12345678901234567", tenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null columns are omitted", func(t *testing.T) {
		db, mock := newMockDB(t, zap.NewNop())
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(getUserQuery).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), nil, nil, nil))

		record, err := repo.GetUserRecord(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, tenant.ClaimSet{"id": id.String()}, record)
	})

	t.Run("unreadable metadata is skipped with a warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		db, mock := newMockDB(t, zap.NewNop())
		repo := NewUserRepository(db, zap.New(core))

		mock.ExpectQuery(getUserQuery).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				id.String(), "a@b.c", []byte(`[1,2]`), []byte(`{"tenant_id":"t-1"}`)))

		record, err := repo.GetUserRecord(context.Background(), id)
		require.NoError(t, err)
		assert.NotContains(t, record, "user_metadata")
		assert.Equal(t, map[string]any{"tenant_id": "t-1"}, record["app_metadata"])
		assert.Equal(t, 1, logs.FilterMessage("ignoring unreadable user metadata").Len())
	})

	t.Run("missing user", func(t *testing.T) {
		db, mock := newMockDB(t, zap.NewNop())
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(getUserQuery).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.GetUserRecord(context.Background(), id)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := newMockDB(t, zap.NewNop())
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(getUserQuery).
			WithArgs(id).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetUserRecord(context.Background(), id)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestDecodeMetadata(t *testing.T) {
	meta, err := decodeMetadata([]byte(`{"tenant_id":42}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("42"), meta["tenant_id"])

	meta, err = decodeMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, meta)

	meta, err = decodeMetadata([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, meta)
}
