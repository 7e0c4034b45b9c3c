package bar

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
)

// Builder folds a time ordered stream of classified ticks into fixed width
// bars. A bar is closed as soon as a tick of a later bucket arrives, the last
// bar is returned by Flush. Buckets without ticks produce no bar.
type Builder struct {
	symbol string
	period time.Duration

	current *common.Bar
	last    time.Time
	seen    bool
}

func NewBuilder(symbol string, period time.Duration) (*Builder, error) {
	if period <= 0 {
		return nil, common.NewParameterError("bar_width", period, "must be positive")
	}
	return &Builder{symbol: symbol, period: period}, nil
}

func (b *Builder) Period() time.Duration { return b.period }

// OnTick adds the tick to the bar in construction. When the tick opens a new
// bucket the previous bar is returned.
func (b *Builder) OnTick(tick common.ClassifiedTick) (*common.Bar, error) {
	if tick.Size <= 0 {
		return nil, fmt.Errorf("tick at %s has no usable size %d: %w",
			tick.TimeStamp.Format(time.RFC3339Nano), tick.Size, common.ErrInsufficientData)
	}
	if b.seen && tick.TimeStamp.Before(b.last) {
		return nil, fmt.Errorf("tick at %s precedes previous tick at %s: %w",
			tick.TimeStamp.Format(time.RFC3339Nano), b.last.Format(time.RFC3339Nano), common.ErrInsufficientData)
	}
	b.last = tick.TimeStamp
	b.seen = true

	openTime := AlignedStart(tick.TimeStamp, b.period)

	var closed *common.Bar
	if b.current != nil && !b.current.OpenTime.Equal(openTime) {
		closed = b.current
		b.current = nil
	}

	if b.current == nil {
		symbol := b.symbol
		if symbol == "" {
			symbol = tick.Symbol
		}
		b.current = &common.Bar{
			Symbol:   symbol,
			OpenTime: openTime,
			Period:   b.period,
		}
	}

	b.current.Close = tick.Price
	b.current.TickCount++

	switch tick.Side {
	case common.SideBuy:
		b.current.BuyVolume += tick.Size
	case common.SideSell:
		b.current.SellVolume += tick.Size
	default:
		// Unknown aggressor, excluded from both sides
	}
	b.current.TotalVolume = b.current.BuyVolume + b.current.SellVolume

	return closed, nil
}

// Flush returns the bar in construction, if any, and resets the builder.
func (b *Builder) Flush() *common.Bar {
	bar := b.current
	b.current = nil
	b.seen = false
	return bar
}

// Aggregate builds all bars of a complete tick sequence. It returns either the
// full bar sequence or an error, never a partial result.
func Aggregate(ticks []common.ClassifiedTick, period time.Duration) ([]common.Bar, error) {
	symbol := ""
	if len(ticks) > 0 {
		symbol = ticks[0].Symbol
	}

	builder, err := NewBuilder(symbol, period)
	if err != nil {
		return nil, err
	}

	bars := make([]common.Bar, 0)
	for _, tick := range ticks {
		closed, err := builder.OnTick(tick)
		if err != nil {
			return nil, err
		}
		if closed != nil {
			bars = append(bars, *closed)
		}
	}

	if last := builder.Flush(); last != nil {
		bars = append(bars, *last)
	}
	return bars, nil
}

// AlignedStart returns the start of the bucket containing ts. Buckets are
// aligned to the Unix epoch, so a 5 minute period starts at :00, :05, ...
func AlignedStart(ts time.Time, period time.Duration) time.Time {
	n := ts.UnixNano()
	p := int64(period)
	q := n / p
	if n%p != 0 && n < 0 {
		q--
	}
	return time.Unix(0, q*p).In(ts.Location())
}
