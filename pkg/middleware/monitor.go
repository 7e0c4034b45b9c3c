package middleware

import (
	"context"

	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"go.uber.org/zap"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorBars
	MonitorSignals
	MonitorEquity
	MonitorPositionsOpened
	MonitorPositionsClosed
)

type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithBar(handler bus.BarEventHandler) bus.BarEventHandler {
	return func(ctx context.Context, bar common.SignaledBar) {
		if m.enabled(MonitorBars) || (bar.Signal != common.SignalNone && m.enabled(MonitorSignals)) {
			m.logger.Info("bar", bar.Fields()...)
		}
		handler(ctx, bar)
	}
}

func (m *Monitor) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, point common.EquityPoint) {
		if m.enabled(MonitorEquity) {
			m.logger.Info("equity",
				zap.Time("ts", point.TimeStamp),
				zap.String("equity", point.Equity.String()),
				zap.String("capital", point.Capital.String()))
		}
		handler(ctx, point)
	}
}

func (m *Monitor) WithPositionOpened(handler bus.PositionOpenedEventHandler) bus.PositionOpenedEventHandler {
	return func(ctx context.Context, position common.Position) {
		if m.enabled(MonitorPositionsOpened) {
			m.logger.Info("position opened", position.Fields()...)
		}
		handler(ctx, position)
	}
}

func (m *Monitor) WithPositionClosed(handler bus.PositionClosedEventHandler) bus.PositionClosedEventHandler {
	return func(ctx context.Context, trade common.Trade) {
		if m.enabled(MonitorPositionsClosed) {
			m.logger.Info("position closed", trade.Fields()...)
		}
		handler(ctx, trade)
	}
}
