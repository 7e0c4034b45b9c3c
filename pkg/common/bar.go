package common

import (
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
)

// Bar summarises all classified ticks whose timestamp falls in
// [OpenTime, OpenTime+Period). TotalVolume excludes ticks of unknown side.
type Bar struct {
	Symbol      string        `json:"symbol,omitempty"`
	OpenTime    time.Time     `json:"ts"`
	Period      time.Duration `json:"period"`
	Close       fixed.Point   `json:"close"`
	BuyVolume   int64         `json:"buy_volume"`
	SellVolume  int64         `json:"sell_volume"`
	TotalVolume int64         `json:"total_volume"`
	TickCount   int           `json:"tick_count"`
}


func (b Bar) Fields() []zap.Field {
	return []zap.Field{
		zap.Time("ts", b.OpenTime),
		zap.Duration("period", b.Period),
		zap.String("close", b.Close.String()),
		zap.Int64("buy_volume", b.BuyVolume),
		zap.Int64("sell_volume", b.SellVolume),
		zap.Int64("total_volume", b.TotalVolume),
	}
}

type DeltaBar struct {
	Bar
	Delta           int64 `json:"delta"`
	CumulativeDelta int64 `json:"cumulative_delta"`
}

type SignaledBar struct {
	DeltaBar
	Signal SignalValue `json:"signal"`
}

func (b SignaledBar) Fields() []zap.Field {
	return append(b.Bar.Fields(),
		zap.Int64("delta", b.Delta),
		zap.Int64("cumulative_delta", b.CumulativeDelta),
		zap.Stringer("signal", b.Signal))
}
