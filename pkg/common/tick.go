package common

import (
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Side int8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Tick is a single executed trade as delivered by the data provider.
// SideIndicator holds the raw aggressor field ('B', 'A', 'N', ...) and is 0
// when the provider does not deliver one.
type Tick struct {
	TimeStamp     time.Time   `json:"ts"`
	Price         fixed.Point `json:"price"`
	Size          int64       `json:"size"`
	SideIndicator byte        `json:"side,omitempty"`

	Source string `json:"src,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// TickBatch is the ordered tick sequence for one instrument and time range.
// SideField names the provider column the indicators were read from, empty
// when the source carries no side information at all.
type TickBatch struct {
	Symbol    string `json:"symbol"`
	SideField string `json:"side_field,omitempty"`
	Ticks     []Tick `json:"ticks"`
}

func (b TickBatch) Len() int      { return len(b.Ticks) }
func (b TickBatch) HasSide() bool { return b.SideField != "" }

type ClassifiedTick struct {
	Tick
	Side Side `json:"aggressor"`
}

func (t ClassifiedTick) Fields() []zap.Field {
	return []zap.Field{
		zap.Time("ts", t.TimeStamp),
		zap.String("price", t.Price.String()),
		zap.Int64("size", t.Size),
		zap.Stringer("side", t.Side),
	}
}
