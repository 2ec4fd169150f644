package scheduler

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"commercekit/internal/cache"
	"commercekit/internal/security"
	"commercekit/internal/types"
)

// markConcurrency bounds parallel product sync writes.
const markConcurrency = 4

// CommerceSource is the commerce client surface used by the refresher.
type CommerceSource interface {
	FetchSyncData(ctx context.Context) any
	FetchProducts(ctx context.Context, limit int) any
	ClearAllCaches(ctx context.Context) error
}

// ProductSyncMarker records that a product was synced.
type ProductSyncMarker interface {
	MarkSynced(ctx context.Context, productID int64, at time.Time) error
}

// RefreshResult summarizes a commerce refresh.
type RefreshResult struct {
	SyncDataAvailable bool `json:"sync_data_available"`
	PagesWarmed       int  `json:"pages_warmed"`
	ProductsMarked    int  `json:"products_marked"`
}

// CommerceRefresher clears and re-warms the commerce caches.
type CommerceRefresher struct {
	source    CommerceSource
	marker    ProductSyncMarker
	pageSizes []int
	clock     types.Clock
	logger    *slog.Logger
}

// NewCommerceRefresher creates a refresher that warms each of pageSizes.
// marker may be nil, in which case products are not marked.
func NewCommerceRefresher(source CommerceSource, marker ProductSyncMarker, pageSizes []int, clock types.Clock, logger *slog.Logger) *CommerceRefresher {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommerceRefresher{
		source:    source,
		marker:    marker,
		pageSizes: slices.Clone(pageSizes),
		clock:     clock,
		logger:    logger,
	}
}

// Clear drops every commerce cache entry.
func (r *CommerceRefresher) Clear(ctx context.Context) error {
	return r.source.ClearAllCaches(ctx)
}

// Refresh clears the caches, fetches the sync feed and every product page
// concurrently, then marks each fetched product as synced.
func (r *CommerceRefresher) Refresh(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult

	if err := r.source.ClearAllCaches(ctx); err != nil {
		return res, err
	}

	var (
		mu  sync.Mutex
		ids = make(map[int64]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		available := !cache.IsEmpty(r.source.FetchSyncData(gctx))
		mu.Lock()
		res.SyncDataAvailable = available
		mu.Unlock()
		return nil
	})
	for _, size := range r.pageSizes {
		g.Go(func() error {
			page := ProductIDs(r.source.FetchProducts(gctx, size))
			mu.Lock()
			defer mu.Unlock()
			if len(page) > 0 {
				res.PagesWarmed++
			}
			for _, id := range page {
				ids[id] = struct{}{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	if r.marker != nil && len(ids) > 0 {
		marked, err := r.markAll(ctx, ids)
		res.ProductsMarked = marked
		if err != nil {
			return res, err
		}
	}

	r.logger.InfoContext(ctx, "commerce caches refreshed",
		"sync_data", res.SyncDataAvailable,
		"pages", res.PagesWarmed,
		"products_marked", res.ProductsMarked,
	)
	return res, nil
}

func (r *CommerceRefresher) markAll(ctx context.Context, ids map[int64]struct{}) (int, error) {
	now := r.clock.Now()
	var (
		mu     sync.Mutex
		marked int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(markConcurrency)
	for id := range ids {
		g.Go(func() error {
			if err := r.marker.MarkSynced(gctx, id, now); err != nil {
				return err
			}
			mu.Lock()
			marked++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return marked, err
}

// ProductIDs extracts positive "id" fields from a decoded product list.
// Entries without a usable id are skipped.
func ProductIDs(data any) []int64 {
	list, ok := data.([]any)
	if !ok {
		return nil
	}

	var ids []int64
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var id int64
		switch v := obj["id"].(type) {
		case float64:
			if v == float64(int64(v)) {
				id = int64(v)
			}
		case string:
			id = security.AbsInt(v)
		}
		if id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
