package middleware

import (
	"context"

	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"github.com/peter-kozarec/flowdelta/pkg/common"
)

//goland:noinspection ALL
var (
	NoopBarHdl    bus.BarEventHandler            = func(context.Context, common.SignaledBar) {}
	NoopEquityHdl bus.EquityEventHandler         = func(context.Context, common.EquityPoint) {}
	NoopPosOpnHdl bus.PositionOpenedEventHandler = func(context.Context, common.Position) {}
	NoopPosClsHdl bus.PositionClosedEventHandler = func(context.Context, common.Trade) {}
)
