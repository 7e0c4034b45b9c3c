package simulation

import (
	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"go.uber.org/zap"
)

type Option func(*Simulator)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

func WithBarHandler(handler bus.BarEventHandler) Option {
	return func(s *Simulator) {
		s.onBar = handler
	}
}

func WithEquityHandler(handler bus.EquityEventHandler) Option {
	return func(s *Simulator) {
		s.onEquity = handler
	}
}

func WithPositionOpenedHandler(handler bus.PositionOpenedEventHandler) Option {
	return func(s *Simulator) {
		s.onPositionOpened = handler
	}
}

func WithPositionClosedHandler(handler bus.PositionClosedEventHandler) Option {
	return func(s *Simulator) {
		s.onPositionClosed = handler
	}
}
