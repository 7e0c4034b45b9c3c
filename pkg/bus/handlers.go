package bus

import (
	"context"

	"github.com/peter-kozarec/flowdelta/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type BarEventHandler EventHandler[common.SignaledBar]
type EquityEventHandler EventHandler[common.EquityPoint]
type PositionOpenedEventHandler EventHandler[common.Position]
type PositionClosedEventHandler EventHandler[common.Trade]
