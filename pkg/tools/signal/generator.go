package signal

import (
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
)

// Generator applies a symmetric level rule on the cumulative delta. The
// comparison is strict on both sides, a value equal to the threshold is no
// signal.
type Generator struct {
	threshold fixed.Point
	negative  fixed.Point
}

func NewGenerator(threshold fixed.Point) (*Generator, error) {
	if !threshold.IsPos() {
		return nil, common.NewParameterError("threshold", threshold, "must be positive")
	}
	return &Generator{threshold: threshold, negative: threshold.Neg()}, nil
}

func (g *Generator) Threshold() fixed.Point { return g.threshold }

func (g *Generator) Evaluate(cumulativeDelta int64) common.SignalValue {
	cum := fixed.FromInt64(cumulativeDelta, 0)
	switch {
	case cum.Gt(g.threshold):
		return common.SignalLong
	case cum.Lt(g.negative):
		return common.SignalShort
	default:
		return common.SignalNone
	}
}

func (g *Generator) Generate(bars []common.DeltaBar) []common.SignaledBar {
	out := make([]common.SignaledBar, len(bars))
	for i, bar := range bars {
		out[i] = common.SignaledBar{DeltaBar: bar, Signal: g.Evaluate(bar.CumulativeDelta)}
	}
	return out
}

// Count returns the number of long and short signals in the sequence.
func Count(bars []common.SignaledBar) (long, short int) {
	for _, bar := range bars {
		switch bar.Signal {
		case common.SignalLong:
			long++
		case common.SignalShort:
			short++
		}
	}
	return long, short
}
