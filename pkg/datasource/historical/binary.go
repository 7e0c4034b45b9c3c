package historical

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
)

// sideAbsent marks records dumped from a source without a side field.
const sideAbsent int32 = -1

// BinaryTrade is the on disk record, 32 bytes without padding. The price is
// stored as coefficient and scale so that decimal prices survive exactly.
type BinaryTrade struct {
	TimeStamp  int64
	Price      int64
	PriceScale int32
	Side       int32
	Size       int64
}

func NewBinaryTrade(tick common.Tick, hasSide bool) (BinaryTrade, error) {
	coef, scale, err := tick.Price.Mantissa()
	if err != nil {
		return BinaryTrade{}, err
	}
	scale32, err := utility.I64ToI32(int64(scale))
	if err != nil {
		return BinaryTrade{}, fmt.Errorf("price scale %d: %w", scale, err)
	}
	side := sideAbsent
	if hasSide {
		side = int32(tick.SideIndicator)
	}
	return BinaryTrade{
		TimeStamp:  tick.TimeStamp.UnixNano(),
		Price:      coef,
		PriceScale: scale32,
		Side:       side,
		Size:       tick.Size,
	}, nil
}

func (b BinaryTrade) ToTick(tick *common.Tick) {
	tick.TimeStamp = time.Unix(0, b.TimeStamp).UTC()
	tick.Price = fixed.FromInt64(b.Price, int(b.PriceScale))
	tick.Size = b.Size
	tick.SideIndicator = 0
	if b.HasSide() {
		tick.SideIndicator = byte(b.Side) // #nosec G115
	}
}

func (b BinaryTrade) HasSide() bool { return b.Side != sideAbsent }
