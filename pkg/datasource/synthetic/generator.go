package synthetic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
)

const (
	tickGeneratorComponentName = "datasource.synthetic.generator"
	sideFieldName              = "side"
)

// TickGenerator produces a reproducible random walk of trades. The aggressor
// side leans with the last price move: an uptick makes a buyer more likely,
// within a 30% to 70% band.
type TickGenerator struct {
	seed int64

	startPrice fixed.Point
	tickSize   fixed.Point
	priceScale int

	avgTickInterval time.Duration
	minSize         int64
	maxSize         int64
}

type Option func(*TickGenerator)

func WithStartPrice(price fixed.Point) Option {
	return func(g *TickGenerator) {
		g.startPrice = price
		g.priceScale = max(price.Scale(), g.tickSize.Scale())
	}
}

func WithTickSize(size fixed.Point) Option {
	return func(g *TickGenerator) {
		g.tickSize = size
		g.priceScale = max(g.startPrice.Scale(), size.Scale())
	}
}

func WithTickInterval(interval time.Duration) Option {
	return func(g *TickGenerator) {
		g.avgTickInterval = interval
	}
}

func WithSizeRange(minSize, maxSize int64) Option {
	return func(g *TickGenerator) {
		g.minSize = minSize
		g.maxSize = maxSize
	}
}

// NewTickGenerator applies the options over the defaults and rejects
// settings that could not produce valid ticks.
func NewTickGenerator(seed int64, options ...Option) (*TickGenerator, error) {
	g := &TickGenerator{
		seed:            seed,
		startPrice:      fixed.FromInt64(20500, 1),
		tickSize:        fixed.PointOne,
		priceScale:      1,
		avgTickInterval: 250 * time.Millisecond,
		minSize:         1,
		maxSize:         10,
	}

	for _, option := range options {
		option(g)
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *TickGenerator) validate() error {
	switch {
	case !g.startPrice.IsPos():
		return common.NewParameterError("start_price", g.startPrice, "must be positive")
	case !g.tickSize.IsPos():
		return common.NewParameterError("tick_size", g.tickSize, "must be positive")
	case g.avgTickInterval <= 0:
		return common.NewParameterError("tick_interval", g.avgTickInterval, "must be positive")
	case g.minSize < 1:
		return common.NewParameterError("min_size", g.minSize, "must be at least 1")
	case g.maxSize < g.minSize:
		return common.NewParameterError("max_size", g.maxSize, fmt.Sprintf("must not be below min_size %d", g.minSize))
	}
	return nil
}

func (g *TickGenerator) LoadTicks(ctx context.Context, q datasource.Query) (common.TickBatch, error) {
	batch := common.TickBatch{Symbol: q.Instrument, SideField: sideFieldName, Ticks: make([]common.Tick, 0)}
	if q.IsEmpty() {
		return batch, nil
	}

	rng := rand.New(rand.NewSource(g.seed)) // #nosec G404
	price := g.startPrice
	ts := q.From

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return common.TickBatch{}, err
			}
		}

		ts = ts.Add(g.nextInterval(rng))
		if !ts.Before(q.To) {
			break
		}

		steps := int64(math.Round(rng.NormFloat64()))
		next := price.Add(g.tickSize.MulInt64(steps))
		if next.IsPos() {
			price = next
		}

		buyRatio := min(0.7, max(0.3, 0.5+0.1*float64(steps)))

		side := byte('A')
		if rng.Float64() < buyRatio {
			side = 'B'
		}

		batch.Ticks = append(batch.Ticks, common.Tick{
			TimeStamp:     ts,
			Price:         price.Rescale(g.priceScale),
			Size:          g.minSize + rng.Int63n(g.maxSize-g.minSize+1),
			SideIndicator: side,
			Source:        tickGeneratorComponentName,
			Symbol:        q.Instrument,
		})
	}

	return batch, nil
}

func (g *TickGenerator) nextInterval(rng *rand.Rand) time.Duration {
	interval := time.Duration(rng.ExpFloat64() * float64(g.avgTickInterval))
	if interval < time.Microsecond {
		interval = time.Microsecond
	}
	return interval
}

func (g *TickGenerator) Close() error { return nil }
