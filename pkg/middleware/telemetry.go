package middleware

import (
	"context"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const namespace = "flowdelta"

// Telemetry counts pipeline events and records stage latency. The counters
// are registered on the registerer given to NewTelemetry.
type Telemetry struct {
	logger *zap.Logger

	tickCounter                int64
	barEventCounter            int64
	signalCounter              int64
	equityEventCounter         int64
	positionOpenedEventCounter int64
	positionClosedEventCounter int64

	ticks           *prometheus.CounterVec
	bars            prometheus.Counter
	signals         *prometheus.CounterVec
	equityPoints    prometheus.Counter
	positionsOpened prometheus.Counter
	positionsClosed prometheus.Counter
	stageDuration   *prometheus.HistogramVec
}

func NewTelemetry(logger *zap.Logger, registerer prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		logger: logger,
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Classified ticks by aggressor side.",
		}, []string{"side"}),
		bars: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bars_total",
			Help:      "Bars delivered to the simulator.",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Non neutral signals by direction.",
		}, []string{"signal"}),
		equityPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "equity_points_total",
			Help:      "Equity curve points recorded.",
		}),
		positionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_opened_total",
			Help:      "Long positions opened.",
		}),
		positionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_closed_total",
			Help:      "Positions closed into trades.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"stage"}),
	}

	registerer.MustRegister(t.ticks, t.bars, t.signals, t.equityPoints, t.positionsOpened, t.positionsClosed, t.stageDuration)
	return t
}

func (t *Telemetry) AddTicks(side common.Side, n int) {
	t.tickCounter += int64(n)
	t.ticks.WithLabelValues(side.String()).Add(float64(n))
}

func (t *Telemetry) ObserveStage(stage string, started time.Time) {
	t.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

func (t *Telemetry) WithBar(handler bus.BarEventHandler) bus.BarEventHandler {
	return func(ctx context.Context, bar common.SignaledBar) {
		t.barEventCounter++
		t.bars.Inc()
		if bar.Signal != common.SignalNone {
			t.signalCounter++
			t.signals.WithLabelValues(bar.Signal.String()).Inc()
		}
		handler(ctx, bar)
	}
}

func (t *Telemetry) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, point common.EquityPoint) {
		t.equityEventCounter++
		t.equityPoints.Inc()
		handler(ctx, point)
	}
}

func (t *Telemetry) WithPositionOpened(handler bus.PositionOpenedEventHandler) bus.PositionOpenedEventHandler {
	return func(ctx context.Context, position common.Position) {
		t.positionOpenedEventCounter++
		t.positionsOpened.Inc()
		handler(ctx, position)
	}
}

func (t *Telemetry) WithPositionClosed(handler bus.PositionClosedEventHandler) bus.PositionClosedEventHandler {
	return func(ctx context.Context, trade common.Trade) {
		t.positionClosedEventCounter++
		t.positionsClosed.Inc()
		handler(ctx, trade)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("ticks", t.tickCounter),
		zap.Int64("bar_events", t.barEventCounter),
		zap.Int64("signals", t.signalCounter),
		zap.Int64("equity_events", t.equityEventCounter),
		zap.Int64("position_opened_events", t.positionOpenedEventCounter),
		zap.Int64("position_closed_events", t.positionClosedEventCounter))
}
