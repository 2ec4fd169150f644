package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commercekit/internal/types"
)

func TestMemoryCache_SetGetExpire(t *testing.T) {
	clock := &types.FixedClock{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]any{"a": 1.0}, time.Hour))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1.0}, v)

	clock.Advance(59 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Zero(t, c.Len())
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "missing"))

	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_Sweep(t *testing.T) {
	clock := &types.FixedClock{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", 1.0, time.Minute))
	require.NoError(t, c.Set(ctx, "long", 2.0, time.Hour))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}
