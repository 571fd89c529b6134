package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	ID     string             `json:"id"`
	Scores map[string]float64 `json:"scores"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := report{ID: "r1", Scores: map[string]float64{"y_2010:y_2011": 0.25}}
	require.NoError(t, mc.Set(ctx, "k", in, time.Minute))

	out, err := Fetch[report](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	var s string
	require.NoError(t, mc.Set(ctx, "s", "plain", 0))
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)

	_, err = Fetch[report](ctx, mc, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestLayeredCacheReadsThroughL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()

	in := report{ID: "r2", Scores: map[string]float64{"a:b": 1.5}}
	require.NoError(t, l2.Set(ctx, "k", in, time.Minute))

	out, err := Fetch[report](ctx, lc, "k")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Served from L1 after L2 forgets the key.
	require.NoError(t, l2.Delete(ctx, "k"))
	out, err = Fetch[report](ctx, lc, "k")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, lc.Delete(ctx, "k"))
	_, err = Fetch[report](ctx, lc, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredCacheWritesThrough(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "k", report{ID: "r3"}, time.Hour))
	out, err := Fetch[report](ctx, l2, "k")
	require.NoError(t, err)
	assert.Equal(t, "r3", out.ID)

	ok, err := lc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeyFor(t *testing.T) {
	type req struct {
		Interval string `json:"interval"`
		Fold     string `json:"fold"`
	}
	a, err := KeyFor("report", req{"H8", "year"})
	require.NoError(t, err)
	b, err := KeyFor("report", req{"H8", "year"})
	require.NoError(t, err)
	c, err := KeyFor("report", req{"D", "year"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^report:[0-9a-f]{64}$`, a)
}
