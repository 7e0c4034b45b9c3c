package delta

import "github.com/peter-kozarec/flowdelta/pkg/common"

// Engine keeps the running sum of per bar deltas. There are no session
// resets, the sum spans the whole sequence.
type Engine struct {
	cumulative int64
}

func (e *Engine) Next(bar common.Bar) common.DeltaBar {
	d := bar.BuyVolume - bar.SellVolume
	e.cumulative += d
	return common.DeltaBar{Bar: bar, Delta: d, CumulativeDelta: e.cumulative}
}

func Compute(bars []common.Bar) []common.DeltaBar {
	var engine Engine
	out := make([]common.DeltaBar, len(bars))
	for i, bar := range bars {
		out[i] = engine.Next(bar)
	}
	return out
}

// Range returns the minimum and maximum cumulative delta of the sequence.
func Range(bars []common.DeltaBar) (lo, hi int64) {
	for i, bar := range bars {
		if i == 0 || bar.CumulativeDelta < lo {
			lo = bar.CumulativeDelta
		}
		if i == 0 || bar.CumulativeDelta > hi {
			hi = bar.CumulativeDelta
		}
	}
	return lo, hi
}
