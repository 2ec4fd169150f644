package db

import (
	"context"

	"commercekit/internal/types"
)

// schemaStatements create the tables used by this package. Each statement
// is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_meta (
		user_id    BIGINT NOT NULL,
		meta_key   TEXT   NOT NULL,
		meta_value TEXT   NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, meta_key)
	)`,
	`CREATE INDEX IF NOT EXISTS user_meta_key_idx ON user_meta (meta_key)`,
	`CREATE TABLE IF NOT EXISTS post_meta (
		post_id    BIGINT NOT NULL,
		meta_key   TEXT   NOT NULL,
		meta_value TEXT   NOT NULL DEFAULT '',
		PRIMARY KEY (post_id, meta_key)
	)`,
	`CREATE TABLE IF NOT EXISTS job_locks (
		id         TEXT PRIMARY KEY,
		worker_id  TEXT NOT NULL,
		locked_at  TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS job_history (
		id          BIGSERIAL PRIMARY KEY,
		job_type    TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status      TEXT NOT NULL,
		items_count INT NOT NULL DEFAULT 0,
		error       TEXT
	)`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to apply schema", err)
		}
	}
	return nil
}
