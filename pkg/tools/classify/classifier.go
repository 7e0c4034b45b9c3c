package classify

import (
	"fmt"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"go.uber.org/zap"
)

const (
	Aggressor = "aggressor"
	TickRule  = "tick-rule"
)

const (
	IndicatorBid byte = 'B'
	IndicatorAsk byte = 'A'
)

// Diagnostic summarises a classification pass. MissingSideField is set when the
// batch carried no side information, in which case every tick is unknown.
type Diagnostic struct {
	MissingSideField bool `json:"missing_side_field"`
	Buy              int  `json:"buy"`
	Sell             int  `json:"sell"`
	Unknown          int  `json:"unknown"`
}

func (d *Diagnostic) count(side common.Side) {
	switch side {
	case common.SideBuy:
		d.Buy++
	case common.SideSell:
		d.Sell++
	default:
		d.Unknown++
	}
}

func (d Diagnostic) Total() int { return d.Buy + d.Sell + d.Unknown }

func (d Diagnostic) Fields() []zap.Field {
	return []zap.Field{
		zap.Bool("missing_side_field", d.MissingSideField),
		zap.Int("buy", d.Buy),
		zap.Int("sell", d.Sell),
		zap.Int("unknown", d.Unknown),
	}
}

type Classifier interface {
	Name() string
	Classify(batch common.TickBatch) ([]common.ClassifiedTick, Diagnostic)
}

func New(name string) (Classifier, error) {
	switch name {
	case "", Aggressor:
		return AggressorClassifier{}, nil
	case TickRule:
		return &TickRuleClassifier{}, nil
	default:
		return nil, fmt.Errorf("unable to select classifier: %w",
			common.NewParameterError("classifier", name, "expected aggressor or tick-rule"))
	}
}

// AggressorClassifier maps the provider aggressor indicator to a side.
// 'B' is a buyer initiated trade lifting the offer, 'A' a seller hitting the
// bid. Everything else, including 'N', is unknown.
type AggressorClassifier struct{}

func SideOf(indicator byte) common.Side {
	switch indicator {
	case IndicatorBid:
		return common.SideBuy
	case IndicatorAsk:
		return common.SideSell
	default:
		return common.SideUnknown
	}
}

func (AggressorClassifier) Name() string { return Aggressor }

func (AggressorClassifier) Classify(batch common.TickBatch) ([]common.ClassifiedTick, Diagnostic) {
	var diag Diagnostic
	diag.MissingSideField = !batch.HasSide()

	out := make([]common.ClassifiedTick, len(batch.Ticks))
	for i, tick := range batch.Ticks {
		side := common.SideUnknown
		if !diag.MissingSideField {
			side = SideOf(tick.SideIndicator)
		}
		out[i] = common.ClassifiedTick{Tick: tick, Side: side}
		diag.count(side)
	}
	return out, diag
}

// TickRuleClassifier infers the side from price movement. An uptick is a buy,
// a downtick a sell, and a zero tick repeats the last non zero side. The first
// tick of a batch has no reference price and stays unknown. It ignores the
// provider indicator entirely and must be selected explicitly.
type TickRuleClassifier struct{}

func (*TickRuleClassifier) Name() string { return TickRule }

func (*TickRuleClassifier) Classify(batch common.TickBatch) ([]common.ClassifiedTick, Diagnostic) {
	var diag Diagnostic
	diag.MissingSideField = !batch.HasSide()

	out := make([]common.ClassifiedTick, len(batch.Ticks))
	last := common.SideUnknown
	for i, tick := range batch.Ticks {
		side := common.SideUnknown
		if i > 0 {
			prev := batch.Ticks[i-1].Price
			switch {
			case tick.Price.Gt(prev):
				side = common.SideBuy
			case tick.Price.Lt(prev):
				side = common.SideSell
			default:
				side = last
			}
		}
		if side != common.SideUnknown {
			last = side
		}
		out[i] = common.ClassifiedTick{Tick: tick, Side: side}
		diag.count(side)
	}
	return out, diag
}
