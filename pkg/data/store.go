package data

import (
	"context"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility"
)

// BarStore persists aggregated bars per series. LoadBars reports false when
// nothing was stored under the key.
type BarStore interface {
	SaveBars(ctx context.Context, key common.SeriesKey, bars []common.Bar) error
	LoadBars(ctx context.Context, key common.SeriesKey) ([]common.Bar, bool, error)
}

// TradeStore persists the trade ledger of one run.
type TradeStore interface {
	SaveTrades(ctx context.Context, runID utility.ExecutionID, key common.SeriesKey, trades []common.Trade) error
	LoadTrades(ctx context.Context, runID utility.ExecutionID) ([]common.Trade, error)
}

type EquityStore interface {
	SaveEquity(ctx context.Context, runID utility.ExecutionID, points []common.EquityPoint) error
	LoadEquity(ctx context.Context, runID utility.ExecutionID) ([]common.EquityPoint, error)
}

// RunStore is implemented by stores that keep the full run output.
type RunStore interface {
	TradeStore
	EquityStore
}
