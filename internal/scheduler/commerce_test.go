package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commercekit/internal/types"
)

type fakeSource struct {
	mu       sync.Mutex
	cleared  int
	clearErr error
	syncData any
	pages    map[int]any
	fetched  []int
}

func (f *fakeSource) FetchSyncData(context.Context) any { return f.syncData }

func (f *fakeSource) FetchProducts(_ context.Context, limit int) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, limit)
	if p, ok := f.pages[limit]; ok {
		return p
	}
	return []any{}
}

func (f *fakeSource) ClearAllCaches(context.Context) error {
	f.cleared++
	return f.clearErr
}

type fakeMarker struct {
	mu     sync.Mutex
	marked map[int64]time.Time
	err    error
}

func (m *fakeMarker) MarkSynced(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.marked == nil {
		m.marked = map[int64]time.Time{}
	}
	m.marked[id] = at
	return nil
}

func products(ids ...float64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{"id": id, "name": "p"}
	}
	return out
}

func TestRefresh_ClearsWarmsAndMarks(t *testing.T) {
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	source := &fakeSource{
		syncData: []any{map[string]any{"a": 1.0}},
		pages: map[int]any{
			10: products(1, 2),
			20: products(1, 2, 3),
			50: products(1, 2, 3),
		},
	}
	marker := &fakeMarker{}
	r := NewCommerceRefresher(source, marker, []int{10, 20, 50}, &types.FixedClock{T: now}, nil)

	res, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, source.cleared)
	assert.True(t, res.SyncDataAvailable)
	assert.Equal(t, 3, res.PagesWarmed)
	assert.Equal(t, 3, res.ProductsMarked)

	sort.Ints(source.fetched)
	assert.Equal(t, []int{10, 20, 50}, source.fetched)
	assert.Equal(t, map[int64]time.Time{1: now, 2: now, 3: now}, marker.marked)
}

func TestRefresh_EmptyUpstream(t *testing.T) {
	source := &fakeSource{syncData: []any{}}
	marker := &fakeMarker{}
	r := NewCommerceRefresher(source, marker, []int{10}, nil, nil)

	res, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, res.SyncDataAvailable)
	assert.Zero(t, res.PagesWarmed)
	assert.Empty(t, marker.marked)
}

func TestRefresh_ClearFailureStops(t *testing.T) {
	source := &fakeSource{clearErr: errors.New("redis down")}
	r := NewCommerceRefresher(source, nil, []int{10}, nil, nil)

	_, err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, source.clearErr)
	assert.Empty(t, source.fetched)
}

func TestRefresh_MarkFailure(t *testing.T) {
	source := &fakeSource{pages: map[int]any{10: products(5)}}
	marker := &fakeMarker{err: errors.New("db down")}
	r := NewCommerceRefresher(source, marker, []int{10}, nil, nil)

	res, err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, marker.err)
	assert.Zero(t, res.ProductsMarked)
}

func TestRefresh_NilMarkerSkipsMarking(t *testing.T) {
	source := &fakeSource{pages: map[int]any{10: products(5)}}
	r := NewCommerceRefresher(source, nil, []int{10}, nil, nil)

	res, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.PagesWarmed)
	assert.Zero(t, res.ProductsMarked)
}

func TestClear(t *testing.T) {
	source := &fakeSource{}
	r := NewCommerceRefresher(source, nil, nil, nil, nil)

	require.NoError(t, r.Clear(context.Background()))
	assert.Equal(t, 1, source.cleared)
}

func TestProductIDs(t *testing.T) {
	data := []any{
		map[string]any{"id": 7.0},
		map[string]any{"id": "12"},
		map[string]any{"id": 1.5},
		map[string]any{"id": 0.0},
		map[string]any{"name": "no id"},
		"not an object",
	}
	assert.Equal(t, []int64{7, 12}, ProductIDs(data))
	assert.Nil(t, ProductIDs(map[string]any{"id": 1.0}))
}
