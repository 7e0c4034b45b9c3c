package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var key = common.SeriesKey{
	Instrument: "GC",
	Dataset:    "GLBX.MDP3",
	Period:     time.Minute,
	From:       time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC),
	To:         time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC),
}

var bars = []common.Bar{
	{Symbol: "GC", OpenTime: key.From.Add(17), Period: time.Minute, Close: fixed.MustParse("2050.10"), BuyVolume: 30, SellVolume: 10, TotalVolume: 40, TickCount: 5},
}

func TestBarCache_CacheKey(t *testing.T) {
	assert.Equal(t, "flowdelta:bars:GC:GLBX.MDP3:1m0s:1704205800000000000:1704229200000000000", CacheKey(key))
}

func TestBarCache_DecodeBars(t *testing.T) {
	payload, err := json.Marshal(bars)
	require.NoError(t, err)

	got, err := decodeBars(payload)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, bars[0].OpenTime.Equal(got[0].OpenTime))
	assert.Equal(t, "2050.10", got[0].Close.String())
	assert.Equal(t, bars[0].Period, got[0].Period)

	_, err = decodeBars([]byte("{"))
	assert.Error(t, err)
}

func newTestCache(t *testing.T, ttl time.Duration) (*BarCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBarCache(client, ttl, zap.NewNop()), server
}

func TestBarCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t, time.Minute)

	require.NoError(t, cache.SaveBars(ctx, key, bars))
	assert.Equal(t, time.Minute, server.TTL(CacheKey(key)))

	got, ok, err := cache.LoadBars(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, bars[0].Close.String(), got[0].Close.String())
	assert.True(t, bars[0].OpenTime.Equal(got[0].OpenTime))
	assert.Equal(t, bars[0].TotalVolume, got[0].TotalVolume)

	other := key
	other.Instrument = "SI"
	_, ok, err = cache.LoadBars(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBarCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t, time.Minute)

	require.NoError(t, cache.SaveBars(ctx, key, bars))
	server.FastForward(2 * time.Minute)

	_, ok, err := cache.LoadBars(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBarCache_ClassifierKeys(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t, 0)

	aggressor, tickRule := key, key
	aggressor.Classifier = "aggressor"
	tickRule.Classifier = "tick-rule"

	require.NoError(t, cache.SaveBars(ctx, aggressor, bars))
	_, ok, err := cache.LoadBars(ctx, tickRule)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBarCache_CorruptPayload(t *testing.T) {
	cache, server := newTestCache(t, time.Minute)
	require.NoError(t, server.Set(CacheKey(key), "{"))

	_, _, err := cache.LoadBars(context.Background(), key)
	assert.Error(t, err)
}

func TestBarCache_Dial(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	cache, client, err := Dial(ctx, "redis://"+server.Addr(), "", time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	require.NoError(t, cache.SaveBars(ctx, key, bars))
	assert.True(t, server.Exists(CacheKey(key)))

	_, _, err = Dial(ctx, "://nope", "", time.Minute, zap.NewNop())
	assert.Error(t, err)

	down := miniredis.NewMiniRedis()
	require.NoError(t, down.Start())
	addr := down.Addr()
	down.Close()
	_, _, err = Dial(ctx, "redis://"+addr, "", time.Minute, zap.NewNop())
	assert.ErrorIs(t, err, common.ErrSourceUnavailable)
}
