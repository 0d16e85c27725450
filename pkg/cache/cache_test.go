package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "p:AAPL", payload{"AAPL", 190.5}, time.Minute))
	var got payload
	require.NoError(t, mc.Get(ctx, "p:AAPL", &got))
	assert.Equal(t, payload{"AAPL", 190.5}, got)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "p:AAPL", &got), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.NoError(t, mc.Get(ctx, "c", &v))
}

func TestMemoryCacheLockAndPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "train:swing", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "train:swing", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "train:swing"))
	ok, _ = mc.TryLock(ctx, "train:swing", time.Minute)
	assert.True(t, ok)

	require.NoError(t, mc.Set(ctx, "pred:AAPL:swing", "x", 0))
	require.NoError(t, mc.Set(ctx, "pred:MSFT:swing", "y", 0))
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("pred:AAPL")))
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "pred:AAPL:swing", &s), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "pred:MSFT:swing", &s))
	assert.Equal(t, "y", s)
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	backend := NewMemoryCache()
	lc := NewLayeredCache(backend, WithMemoryMaxTTL(time.Minute))
	defer lc.Close()
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", payload{"MSFT", 410}, 0))
	var got payload
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "MSFT", got.Symbol)

	require.NoError(t, backend.Delete(ctx, "k"))
	require.NoError(t, lc.Get(ctx, "k", &got), "served from memory layer")

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestGetOrLoad(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (payload, error) {
		calls++
		return payload{"NVDA", 120}, nil
	}
	for i := 0; i < 3; i++ {
		v, err := GetOrLoad(ctx, mc, "n", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 120.0, v.Price)
	}
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := GetOrLoad(ctx, mc, "m", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "pred:AAPL:swing", GenerateKeyWithParams("pred", "AAPL", "swing"))
}
