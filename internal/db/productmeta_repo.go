package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"commercekit/internal/types"
)

// ProductSyncKey is the post_meta key holding a product's last sync time.
const ProductSyncKey = "_ict_last_sync_time"

// ProductMetaRepository tracks product sync timestamps in post_meta.
type ProductMetaRepository struct {
	db DBTX
}

func NewProductMetaRepository(db DBTX) *ProductMetaRepository {
	return &ProductMetaRepository{db: db}
}

// GetLastSync returns the raw stored timestamp for productID.
func (r *ProductMetaRepository) GetLastSync(ctx context.Context, productID int64) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT meta_value FROM post_meta WHERE post_id = $1 AND meta_key = $2`,
		productID, ProductSyncKey,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.NewAppError(types.ErrCodeInternalDB, "failed to read product sync meta", err)
	}
	return value, true, nil
}

// MarkSynced records at (in UTC) as productID's last sync time.
func (r *ProductMetaRepository) MarkSynced(ctx context.Context, productID int64, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO post_meta (post_id, meta_key, meta_value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (post_id, meta_key) DO UPDATE
		   SET meta_value = EXCLUDED.meta_value`,
		productID, ProductSyncKey, at.UTC().Format(types.MySQLDateTime),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to write product sync meta", err)
	}
	return nil
}

// GetSyncMeta returns the parsed sync record for productID. A missing or
// unparsable value yields ok=false.
func (r *ProductMetaRepository) GetSyncMeta(ctx context.Context, productID int64) (types.ProductSyncMeta, bool, error) {
	raw, ok, err := r.GetLastSync(ctx, productID)
	if err != nil || !ok {
		return types.ProductSyncMeta{}, false, err
	}
	at, perr := time.ParseInLocation(types.MySQLDateTime, raw, time.UTC)
	if perr != nil {
		return types.ProductSyncMeta{}, false, nil
	}
	return types.ProductSyncMeta{ProductID: productID, LastSynced: at}, true, nil
}
