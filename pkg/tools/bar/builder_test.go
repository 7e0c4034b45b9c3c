package bar

import (
	"strconv"
	"testing"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

func createTick(offset time.Duration, price float64, size int64, side common.Side) common.ClassifiedTick {
	return common.ClassifiedTick{
		Tick: common.Tick{
			TimeStamp: t0.Add(offset),
			Price:     fixed.MustParse(strconv.FormatFloat(price, 'f', -1, 64)),
			Size:      size,
			Symbol:    "GC",
		},
		Side: side,
	}
}

func TestBarBuilder_Aggregate(t *testing.T) {
	ticks := []common.ClassifiedTick{
		createTick(0, 2050.1, 10, common.SideBuy),
		createTick(20*time.Second, 2050.3, 4, common.SideSell),
		createTick(59*time.Second, 2050.2, 7, common.SideUnknown),
		createTick(time.Minute, 2051.0, 5, common.SideSell),
		createTick(3*time.Minute+time.Second, 2049.5, 2, common.SideBuy),
	}

	bars, err := Aggregate(ticks, time.Minute)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	first := bars[0]
	assert.Equal(t, "GC", first.Symbol)
	assert.True(t, first.OpenTime.Equal(t0))
	assert.Equal(t, time.Minute, first.Period)
	assert.Equal(t, "2050.2", first.Close.String())
	assert.Equal(t, int64(10), first.BuyVolume)
	assert.Equal(t, int64(4), first.SellVolume)
	assert.Equal(t, int64(14), first.TotalVolume)
	assert.Equal(t, 3, first.TickCount)

	assert.True(t, bars[1].OpenTime.Equal(t0.Add(time.Minute)))
	assert.Equal(t, int64(5), bars[1].SellVolume)

	// minute 2 has no ticks and is not filled
	assert.True(t, bars[2].OpenTime.Equal(t0.Add(3*time.Minute)))
	assert.Equal(t, int64(2), bars[2].BuyVolume)
}

func TestBarBuilder_ScenarioA(t *testing.T) {
	ticks := []common.ClassifiedTick{
		createTick(0, 99, 10, common.SideBuy),
		createTick(5*time.Second, 99.5, 5, common.SideSell),
		createTick(10*time.Second, 100.5, 10, common.SideBuy),
		createTick(20*time.Second, 99.75, 5, common.SideSell),
		createTick(30*time.Second, 100, 10, common.SideBuy),
	}

	bars, err := Aggregate(ticks, time.Minute)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(30), bars[0].BuyVolume)
	assert.Equal(t, int64(10), bars[0].SellVolume)
	assert.Equal(t, int64(40), bars[0].TotalVolume)
	assert.Equal(t, 5, bars[0].TickCount)
	assert.True(t, bars[0].Close.Eq(fixed.FromInt64(100, 0)))
}

func TestBarBuilder_UnknownOnlyBucket(t *testing.T) {
	bars, err := Aggregate([]common.ClassifiedTick{createTick(0, 100, 3, common.SideUnknown)}, time.Minute)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Zero(t, bars[0].TotalVolume)
	assert.Equal(t, 1, bars[0].TickCount)
}

func TestBarBuilder_Empty(t *testing.T) {
	bars, err := Aggregate(nil, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, bars)
	assert.Empty(t, bars)
}

func TestBarBuilder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ticks   []common.ClassifiedTick
		period  time.Duration
		wantErr error
	}{
		{
			name:    "zero width",
			ticks:   []common.ClassifiedTick{createTick(0, 100, 1, common.SideBuy)},
			period:  0,
			wantErr: common.ErrInvalidParameter,
		},
		{
			name:    "negative width",
			period:  -time.Minute,
			wantErr: common.ErrInvalidParameter,
		},
		{
			name: "missing size",
			ticks: []common.ClassifiedTick{
				createTick(0, 100, 1, common.SideBuy),
				createTick(time.Minute, 100, 0, common.SideBuy),
			},
			period:  time.Minute,
			wantErr: common.ErrInsufficientData,
		},
		{
			name: "out of order",
			ticks: []common.ClassifiedTick{
				createTick(time.Minute, 100, 1, common.SideBuy),
				createTick(0, 100, 1, common.SideBuy),
			},
			period:  time.Minute,
			wantErr: common.ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, err := Aggregate(tt.ticks, tt.period)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, bars)
		})
	}
}

func TestBarBuilder_Deterministic(t *testing.T) {
	var ticks []common.ClassifiedTick
	for i := 0; i < 500; i++ {
		side := common.Side(i % 3)
		ticks = append(ticks, createTick(time.Duration(i)*700*time.Millisecond, 2000+float64(i%17)/10, int64(1+i%5), side))
	}

	first, err := Aggregate(ticks, 30*time.Second)
	require.NoError(t, err)
	second, err := Aggregate(ticks, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBarBuilder_OnTickFlush(t *testing.T) {
	builder, err := NewBuilder("GC", 5*time.Minute)
	require.NoError(t, err)

	closed, err := builder.OnTick(createTick(time.Minute, 100, 1, common.SideBuy))
	require.NoError(t, err)
	assert.Nil(t, closed)

	closed, err = builder.OnTick(createTick(6*time.Minute, 101, 2, common.SideSell))
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.True(t, closed.OpenTime.Equal(t0))

	last := builder.Flush()
	require.NotNil(t, last)
	assert.True(t, last.OpenTime.Equal(t0.Add(5*time.Minute)))
	assert.Nil(t, builder.Flush())
}

func TestAlignedStart(t *testing.T) {
	tests := []struct {
		name   string
		ts     time.Time
		period time.Duration
		want   time.Time
	}{
		{"on boundary", t0, time.Minute, t0},
		{"inside bucket", t0.Add(89 * time.Second), time.Minute, t0.Add(time.Minute)},
		{"five minutes", t0.Add(7 * time.Minute), 5 * time.Minute, t0.Add(5 * time.Minute)},
		{"sub second", t0.Add(1500 * time.Millisecond), time.Second, t0.Add(time.Second)},
		{
			"before epoch",
			time.Date(1969, 12, 31, 23, 59, 30, 0, time.UTC),
			time.Minute,
			time.Date(1969, 12, 31, 23, 59, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlignedStart(tt.ts, tt.period)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}
