package synthetic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var from = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

func mustGenerator(t *testing.T, seed int64, options ...Option) *TickGenerator {
	t.Helper()
	g, err := NewTickGenerator(seed, options...)
	require.NoError(t, err)
	return g
}

func TestTickGenerator_LoadTicks(t *testing.T) {
	g, err := NewTickGenerator(42, WithTickInterval(100*time.Millisecond), WithSizeRange(1, 5))
	require.NoError(t, err)
	q := datasource.Query{Instrument: "GC", From: from, To: from.Add(10 * time.Minute)}

	batch, err := g.LoadTicks(context.Background(), q)
	require.NoError(t, err)
	require.NotZero(t, batch.Len())
	assert.Equal(t, "side", batch.SideField)

	var buys, sells int
	for i, tick := range batch.Ticks {
		assert.True(t, q.Contains(tick.TimeStamp))
		if i > 0 {
			assert.True(t, tick.TimeStamp.After(batch.Ticks[i-1].TimeStamp))
		}
		assert.GreaterOrEqual(t, tick.Size, int64(1))
		assert.LessOrEqual(t, tick.Size, int64(5))
		assert.True(t, tick.Price.IsPos())
		switch tick.SideIndicator {
		case 'B':
			buys++
		case 'A':
			sells++
		default:
			t.Fatalf("unexpected side %q", tick.SideIndicator)
		}
	}
	assert.NotZero(t, buys)
	assert.NotZero(t, sells)
}

func TestTickGenerator_Deterministic(t *testing.T) {
	q := datasource.Query{Instrument: "GC", From: from, To: from.Add(time.Minute)}

	a, err := mustGenerator(t, 7).LoadTicks(context.Background(), q)
	require.NoError(t, err)
	b, err := mustGenerator(t, 7).LoadTicks(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := mustGenerator(t, 8).LoadTicks(context.Background(), q)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestTickGenerator_StartPrice(t *testing.T) {
	g, err := NewTickGenerator(1, WithStartPrice(fixed.FromInt64(110000, 5)), WithTickSize(fixed.FromInt64(1, 5)))
	require.NoError(t, err)
	batch, err := g.LoadTicks(context.Background(), datasource.Query{Instrument: "6E", From: from, To: from.Add(time.Second)})
	require.NoError(t, err)
	for _, tick := range batch.Ticks {
		assert.Equal(t, 5, tick.Price.Scale())
	}
}

func TestTickGenerator_EmptyRange(t *testing.T) {
	batch, err := mustGenerator(t, 1).LoadTicks(context.Background(), datasource.Query{Instrument: "GC", From: from, To: from})
	require.NoError(t, err)
	assert.Zero(t, batch.Len())
}

func TestTickGenerator_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		option Option
		field  string
	}{
		{"inverted size range", WithSizeRange(5, 2), "max_size"},
		{"zero min size", WithSizeRange(0, 3), "min_size"},
		{"zero tick size", WithTickSize(fixed.Zero), "tick_size"},
		{"negative start price", WithStartPrice(fixed.NegOne), "start_price"},
		{"zero interval", WithTickInterval(0), "tick_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewTickGenerator(1, tt.option)
			assert.Nil(t, g)
			require.ErrorIs(t, err, common.ErrInvalidParameter)

			var paramErr *common.ParameterError
			require.True(t, errors.As(err, &paramErr))
			assert.Equal(t, tt.field, paramErr.Field)
		})
	}
}

func TestTickGenerator_SingleSize(t *testing.T) {
	g := mustGenerator(t, 3, WithSizeRange(4, 4))
	batch, err := g.LoadTicks(context.Background(), datasource.Query{Instrument: "GC", From: from, To: from.Add(10 * time.Second)})
	require.NoError(t, err)
	require.NotZero(t, batch.Len())
	for _, tick := range batch.Ticks {
		assert.Equal(t, int64(4), tick.Size)
	}
}
