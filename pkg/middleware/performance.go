package middleware

import (
	"context"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"go.uber.org/zap"
)

// Performance measures the time spent in the wrapped handlers.
type Performance struct {
	logger *zap.Logger

	barEventCounter            int64
	equityEventCounter         int64
	positionOpenedEventCounter int64
	positionClosedEventCounter int64

	totalBarHandlerDur     time.Duration
	totalEquityHandlerDur  time.Duration
	totalPosOpenHandlerDur time.Duration
	totalPosClosHandlerDur time.Duration
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithBar(handler bus.BarEventHandler) bus.BarEventHandler {
	return func(ctx context.Context, bar common.SignaledBar) {
		startTime := time.Now()
		handler(ctx, bar)
		p.totalBarHandlerDur += time.Since(startTime)
		p.barEventCounter++
	}
}

func (p *Performance) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, point common.EquityPoint) {
		startTime := time.Now()
		handler(ctx, point)
		p.totalEquityHandlerDur += time.Since(startTime)
		p.equityEventCounter++
	}
}

func (p *Performance) WithPositionOpened(handler bus.PositionOpenedEventHandler) bus.PositionOpenedEventHandler {
	return func(ctx context.Context, position common.Position) {
		startTime := time.Now()
		handler(ctx, position)
		p.totalPosOpenHandlerDur += time.Since(startTime)
		p.positionOpenedEventCounter++
	}
}

func (p *Performance) WithPositionClosed(handler bus.PositionClosedEventHandler) bus.PositionClosedEventHandler {
	return func(ctx context.Context, trade common.Trade) {
		startTime := time.Now()
		handler(ctx, trade)
		p.totalPosClosHandlerDur += time.Since(startTime)
		p.positionClosedEventCounter++
	}
}

func (p *Performance) PrintStatistics() {
	var fields []zap.Field

	appendAvg := func(name string, total time.Duration, count int64) {
		if count == 0 {
			return
		}
		fields = append(fields,
			zap.Duration(name+"_avg_duration", total/time.Duration(count)),
			zap.Duration(name+"_total_duration", total))
	}

	appendAvg("bar", p.totalBarHandlerDur, p.barEventCounter)
	appendAvg("equity", p.totalEquityHandlerDur, p.equityEventCounter)
	appendAvg("position_opened", p.totalPosOpenHandlerDur, p.positionOpenedEventCounter)
	appendAvg("position_closed", p.totalPosClosHandlerDur, p.positionClosedEventCounter)

	if len(fields) == 0 {
		p.logger.Info("handler performance: no events")
		return
	}
	p.logger.Info("handler performance", fields...)
}
