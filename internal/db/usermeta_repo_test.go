package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"commercekit/internal/types"
)

func TestUserMetaRepository_Get_Found(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "pro"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{int64(7), "_ict_account_tier"}).Return(row)

	v, ok, err := repo.Get(ctx, 7, "_ict_account_tier")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pro", v)
	db.AssertExpectations(t)
}

func TestUserMetaRepository_Get_Missing(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	v, ok, err := repo.Get(context.Background(), 7, "_ict_pro_expiry")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestUserMetaRepository_Get_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection reset")})

	_, _, err := repo.Get(context.Background(), 7, "k")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
}

func TestUserMetaRepository_Set(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "ON CONFLICT (user_id, meta_key)")
	}), []any{int64(3), "_ict_account_tier", "enterprise"}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.Set(ctx, 3, "_ict_account_tier", "enterprise"))
	db.AssertExpectations(t)
}

func TestUserMetaRepository_Set_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Set(context.Background(), 3, "k", "v")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestUserMetaRepository_Increment(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int64) = 101
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "RETURNING meta_value::bigint") &&
			strings.Contains(sql, "+ 1")
	}), []any{int64(5), "_ict_api_calls_count"}).Return(row)

	n, err := repo.Increment(ctx, 5, "_ict_api_calls_count")
	require.NoError(t, err)
	assert.Equal(t, int64(101), n)
	db.AssertExpectations(t)
}

func TestUserMetaRepository_Increment_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("deadlock detected")})

	_, err := repo.Increment(context.Background(), 5, "k")
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
}

func TestUserMetaRepository_SetAllMatching(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.HasPrefix(strings.TrimSpace(sql), "UPDATE user_meta")
	}), []any{"_ict_api_calls_count", "0"}).
		Return(pgconn.NewCommandTag("UPDATE 12"), nil)

	n, err := repo.SetAllMatching(ctx, "_ict_api_calls_count", "0")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	db.AssertExpectations(t)
}

func TestUserMetaRepository_SetAllMatching_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserMetaRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("timeout"))

	n, err := repo.SetAllMatching(context.Background(), "k", "0")
	assert.Zero(t, n)
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
}
