package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
)

// State is the outcome of a simulation run. It is owned by the caller once
// Run returns and is never touched by the simulator again.
type State struct {
	Capital  fixed.Point
	Position *common.Position
	Trades   []common.Trade
	Equity   []common.EquityPoint
	Entries  []common.Position
}

// Simulator runs a long only, single position backtest over signaled bars.
// It holds no per run state, so one instance can serve several sequential
// runs. Concurrent runs need separate instances.
type Simulator struct {
	logger *zap.Logger
	cfg    Configuration

	onBar            bus.BarEventHandler
	onEquity         bus.EquityEventHandler
	onPositionOpened bus.PositionOpenedEventHandler
	onPositionClosed bus.PositionClosedEventHandler
}

func NewSimulator(cfg Configuration, options ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		logger: zap.NewNop(),
		cfg:    cfg,
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

func (s *Simulator) Configuration() Configuration { return s.cfg }

// Run walks the bars once. The first bar only seeds the previous signal. From
// the second bar on a flat book opens a long position on a fresh long signal,
// and an open position is closed on a short signal. A position still open
// after the last bar stays open.
func (s *Simulator) Run(ctx context.Context, bars []common.SignaledBar) (*State, error) {
	if err := validateBars(bars); err != nil {
		return nil, err
	}

	state := &State{
		Capital: s.cfg.InitialCapital,
		Trades:  make([]common.Trade, 0),
		Equity:  make([]common.EquityPoint, 0, max(len(bars)-1, 0)),
	}

	if len(bars) == 0 {
		return state, nil
	}

	prevSignal := bars[0].Signal
	var tradeId common.TradeId

	for _, bar := range bars[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch {
		case state.Position == nil && bar.Signal == common.SignalLong && prevSignal != common.SignalLong:
			size := state.Capital.Mul(s.cfg.PositionSizeFraction).Div(bar.Close)
			if size.IsPos() {
				position := common.Position{
					Side:       common.PositionSideLong,
					EntryPrice: bar.Close,
					EntryTime:  bar.OpenTime,
					Size:       size,
					Symbol:     bar.Symbol,
				}
				state.Position = &position
				state.Entries = append(state.Entries, position)
				s.logger.Debug("position opened", position.Fields()...)
				s.emitPositionOpened(ctx, position)
			}

		case state.Position != nil && bar.Signal == common.SignalShort:
			tradeId++
			trade := closePosition(tradeId, *state.Position, bar)
			state.Capital = state.Capital.Add(trade.PnL)
			state.Position = nil
			state.Trades = append(state.Trades, trade)
			s.logger.Debug("position closed", trade.Fields()...)
			s.emitPositionClosed(ctx, trade)
		}

		equity := state.Capital
		if state.Position != nil {
			equity = equity.Add(state.Position.UnrealizedPnL(bar.Close))
		}
		point := common.EquityPoint{
			TimeStamp: bar.OpenTime,
			Equity:    equity,
			Capital:   state.Capital,
		}
		state.Equity = append(state.Equity, point)

		s.emitBar(ctx, bar)
		s.emitEquity(ctx, point)

		prevSignal = bar.Signal
	}

	return state, nil
}

func closePosition(id common.TradeId, position common.Position, bar common.SignaledBar) common.Trade {
	pnl := bar.Close.Sub(position.EntryPrice).Mul(position.Size)
	ret := bar.Close.Sub(position.EntryPrice).Div(position.EntryPrice).Mul(fixed.Hundred)
	return common.Trade{
		Id:         id,
		EntryPrice: position.EntryPrice,
		EntryTime:  position.EntryTime,
		ExitPrice:  bar.Close,
		ExitTime:   bar.OpenTime,
		Size:       position.Size,
		PnL:        pnl,
		ReturnPct:  ret,
		Symbol:     position.Symbol,
	}
}

func validateBars(bars []common.SignaledBar) error {
	var prev time.Time
	for i, bar := range bars {
		if !bar.Close.IsPos() {
			return fmt.Errorf("bar %d at %s has non positive close %s: %w",
				i, bar.OpenTime.Format(time.RFC3339Nano), bar.Close, common.ErrInsufficientData)
		}
		if i > 0 && !bar.OpenTime.After(prev) {
			return fmt.Errorf("bar %d at %s does not follow %s: %w",
				i, bar.OpenTime.Format(time.RFC3339Nano), prev.Format(time.RFC3339Nano), common.ErrInsufficientData)
		}
		prev = bar.OpenTime
	}
	return nil
}

func (s *Simulator) emitBar(ctx context.Context, bar common.SignaledBar) {
	if s.onBar != nil {
		s.onBar(ctx, bar)
	}
}

func (s *Simulator) emitEquity(ctx context.Context, point common.EquityPoint) {
	if s.onEquity != nil {
		s.onEquity(ctx, point)
	}
}

func (s *Simulator) emitPositionOpened(ctx context.Context, position common.Position) {
	if s.onPositionOpened != nil {
		s.onPositionOpened(ctx, position)
	}
}

func (s *Simulator) emitPositionClosed(ctx context.Context, trade common.Trade) {
	if s.onPositionClosed != nil {
		s.onPositionClosed(ctx, trade)
	}
}
