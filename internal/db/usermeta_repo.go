package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"commercekit/internal/types"
)

// UserMetaRepository stores per-user meta values in the user_meta table. It
// satisfies account.Store.
type UserMetaRepository struct {
	db DBTX
}

// NewUserMetaRepository creates a UserMetaRepository.
func NewUserMetaRepository(db DBTX) *UserMetaRepository {
	return &UserMetaRepository{db: db}
}

// Get returns the value for (userID, key). A missing row is not an error.
func (r *UserMetaRepository) Get(ctx context.Context, userID int64, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT meta_value FROM user_meta WHERE user_id = $1 AND meta_key = $2`,
		userID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.NewAppError(types.ErrCodeInternalDB, "failed to read user meta", err)
	}
	return value, true, nil
}

// Set upserts the value for (userID, key).
func (r *UserMetaRepository) Set(ctx context.Context, userID int64, key, value string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_meta (user_id, meta_key, meta_value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, meta_key) DO UPDATE
		   SET meta_value = EXCLUDED.meta_value`,
		userID, key, value,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to write user meta", err)
	}
	return nil
}

// Increment adds one to the stored counter in a single statement, so
// concurrent callers serialize on the row lock. The existing value is read
// by its leading digits; anything else counts as zero.
func (r *UserMetaRepository) Increment(ctx context.Context, userID int64, key string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO user_meta (user_id, meta_key, meta_value)
		 VALUES ($1, $2, '1')
		 ON CONFLICT (user_id, meta_key) DO UPDATE
		   SET meta_value = (
		     COALESCE(substring(user_meta.meta_value FROM '^\s*[-+]?(\d+)'), '0')::bigint + 1
		   )::text
		 RETURNING meta_value::bigint`,
		userID, key,
	).Scan(&n)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to increment user meta", err)
	}
	return n, nil
}

// SetAllMatching overwrites key for every user that has it.
func (r *UserMetaRepository) SetAllMatching(ctx context.Context, key, value string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_meta SET meta_value = $2 WHERE meta_key = $1`,
		key, value,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to bulk update user meta", err)
	}
	return tag.RowsAffected(), nil
}
