package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetaKeys(t *testing.T) {
	keys := NewMetaKeys("")
	assert.Equal(t, MetaKeys{
		Tier:     "_ict_account_tier",
		Expiry:   "_ict_pro_expiry",
		Count:    "_ict_api_calls_count",
		LastSync: "_ict_last_sync_date",
	}, keys)

	custom := NewMetaKeys("_shop")
	assert.Equal(t, "_shop_api_calls_count", custom.Count)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, 1, "k", "v"))
	v, ok, err := s.Get(ctx, 1, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	n, err := s.Increment(ctx, 2, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Set(ctx, 3, "c", "41"))
	n, err = s.Increment(ctx, 3, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	changed, err := s.SetAllMatching(ctx, "c", "0")
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	v, _, _ = s.Get(ctx, 3, "c")
	assert.Equal(t, "0", v)
	_, ok, _ = s.Get(ctx, 1, "c")
	assert.False(t, ok)
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2026-05-01T10:00:00Z", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2026-05-01 10:00:00", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2026-05-01T10:00:00", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{" 2026-05-01 ", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"05/01/2026", time.Time{}, false},
		{"soon", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parseExpiry(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		if tt.ok {
			assert.True(t, tt.want.Equal(got), "%s: got %v", tt.raw, got)
		}
	}
}
