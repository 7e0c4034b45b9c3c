package common

import (
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
)

type PositionSide int

const (
	PositionSideLong PositionSide = iota
)

type Position struct {
	Side       PositionSide `json:"side"`
	EntryPrice fixed.Point  `json:"entry_price"`
	EntryTime  time.Time    `json:"entry_time"`
	Size       fixed.Point  `json:"size"`

	Symbol string `json:"symbol,omitempty"`
}

func (p Position) UnrealizedPnL(price fixed.Point) fixed.Point {
	return price.Sub(p.EntryPrice).Mul(p.Size)
}

func (p Position) Fields() []zap.Field {
	return []zap.Field{
		zap.Time("entry_time", p.EntryTime),
		zap.String("entry_price", p.EntryPrice.String()),
		zap.String("size", p.Size.String()),
	}
}

type TradeId = int64

// Trade is a closed round trip. It is only created when a position closes.
type Trade struct {
	Id         TradeId     `json:"id"`
	EntryPrice fixed.Point `json:"entry_price"`
	EntryTime  time.Time   `json:"entry_time"`
	ExitPrice  fixed.Point `json:"exit_price"`
	ExitTime   time.Time   `json:"exit_time"`
	Size       fixed.Point `json:"size"`
	PnL        fixed.Point `json:"pnl"`
	ReturnPct  fixed.Point `json:"return_pct"`

	Symbol string `json:"symbol,omitempty"`
}

func (t Trade) Duration() time.Duration { return t.ExitTime.Sub(t.EntryTime) }

func (t Trade) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("id", t.Id),
		zap.Time("entry_time", t.EntryTime),
		zap.String("entry_price", t.EntryPrice.String()),
		zap.Time("exit_time", t.ExitTime),
		zap.String("exit_price", t.ExitPrice.String()),
		zap.String("size", t.Size.String()),
		zap.String("pnl", t.PnL.String()),
		zap.String("return_pct", t.ReturnPct.Rescale(2).String()),
	}
}

// EquityPoint is the account value after a processed bar. Equity includes
// the unrealized P&L of an open position marked at the bar close.
type EquityPoint struct {
	TimeStamp time.Time   `json:"ts"`
	Equity    fixed.Point `json:"equity"`
	Capital   fixed.Point `json:"capital"`
}
