package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/data"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
	"github.com/peter-kozarec/flowdelta/pkg/middleware"
	"github.com/peter-kozarec/flowdelta/pkg/tools/bar"
	"github.com/peter-kozarec/flowdelta/pkg/tools/classify"
	"github.com/peter-kozarec/flowdelta/pkg/tools/delta"
	"github.com/peter-kozarec/flowdelta/pkg/tools/signal"
	"github.com/peter-kozarec/flowdelta/pkg/utility"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
)

const (
	StageValidate  = "validate"
	StageLoad      = "load"
	StageClassify  = "classify"
	StageAggregate = "aggregate"
	StageSignal    = "signal"
	StageSimulate  = "simulate"
	StagePersist   = "persist"
)

const ledgerPreview = 5

// Request describes one backtest over [From, To).
type Request struct {
	Instrument string
	Dataset    string
	From       time.Time
	To         time.Time
	BarWidth   time.Duration
	Threshold  fixed.Point
	Simulation Configuration
	UseCached  bool
}

func (r Request) Query() datasource.Query {
	return datasource.Query{
		Instrument: r.Instrument,
		Dataset:    r.Dataset,
		From:       r.From,
		To:         r.To,
	}
}

// SeriesKey is the bar cache key of the request when its ticks are
// classified by the named classifier.
func (r Request) SeriesKey(classifier string) common.SeriesKey {
	return common.SeriesKey{
		Instrument: r.Instrument,
		Dataset:    r.Dataset,
		Period:     r.BarWidth,
		From:       r.From,
		To:         r.To,
		Classifier: classifier,
	}
}

func (r Request) Validate() error {
	if err := r.Query().Validate(); err != nil {
		return err
	}
	if r.BarWidth <= 0 {
		return common.NewParameterError("bar_width", r.BarWidth, "must be positive")
	}
	if !r.Threshold.IsPos() {
		return common.NewParameterError("threshold", r.Threshold, "must be positive")
	}
	return r.Simulation.Validate()
}

// RunError reports the stage a run failed in. It unwraps to the underlying
// cause, so errors.Is still matches the common sentinels.
type RunError struct {
	Instrument string
	From       time.Time
	To         time.Time
	Stage      string
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s [%s, %s) failed in %s: %v",
		e.Instrument, e.From.Format(time.RFC3339), e.To.Format(time.RFC3339), e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

type Result struct {
	RunID      utility.ExecutionID
	Bars       []common.SignaledBar
	State      *State
	Report     Report
	Diagnostic classify.Diagnostic
	Cached     bool
}

type ExecutorOption func(*Executor)

func WithBarCache(store data.BarStore) ExecutorOption {
	return func(e *Executor) {
		e.barCache = store
	}
}

func WithTradeSink(store data.TradeStore) ExecutorOption {
	return func(e *Executor) {
		e.tradeSink = store
	}
}

func WithEquitySink(store data.EquityStore) ExecutorOption {
	return func(e *Executor) {
		e.equitySink = store
	}
}

func WithClassifier(classifier classify.Classifier) ExecutorOption {
	return func(e *Executor) {
		e.classifier = classifier
	}
}

func WithTelemetry(telemetry *middleware.Telemetry) ExecutorOption {
	return func(e *Executor) {
		e.telemetry = telemetry
	}
}

func WithMonitor(monitor *middleware.Monitor) ExecutorOption {
	return func(e *Executor) {
		e.monitor = monitor
	}
}

func WithPerformance(performance *middleware.Performance) ExecutorOption {
	return func(e *Executor) {
		e.performance = performance
	}
}

// Executor runs the full pipeline for a request: load, classify, aggregate,
// delta, signal, simulate, summarize and persist.
type Executor struct {
	logger     *zap.Logger
	source     datasource.TickSource
	classifier classify.Classifier

	barCache   data.BarStore
	tradeSink  data.TradeStore
	equitySink data.EquityStore

	telemetry   *middleware.Telemetry
	monitor     *middleware.Monitor
	performance *middleware.Performance
}

func NewExecutor(logger *zap.Logger, source datasource.TickSource, options ...ExecutorOption) *Executor {
	e := &Executor{
		logger:     logger,
		source:     source,
		classifier: classify.AggressorClassifier{},
	}

	for _, option := range options {
		option(e)
	}

	return e
}

func (e *Executor) Run(ctx context.Context, req Request) (Result, error) {
	result := Result{RunID: utility.NewExecutionID()}
	logger := e.logger.With(zap.Stringer("run_id", result.RunID), zap.String("instrument", req.Instrument))

	fail := func(stage string, err error) (Result, error) {
		logger.Error("run failed", zap.String("stage", stage), zap.Error(err))
		return Result{}, &RunError{Instrument: req.Instrument, From: req.From, To: req.To, Stage: stage, Err: err}
	}

	if err := req.Validate(); err != nil {
		return fail(StageValidate, err)
	}

	bars, cached, err := e.cachedBars(ctx, req, logger)
	if err != nil {
		return fail(StageLoad, err)
	}

	if !cached {
		started := time.Now()
		batch, err := e.source.LoadTicks(ctx, req.Query())
		if err != nil {
			return fail(StageLoad, err)
		}
		e.observe(StageLoad, started)
		logger.Info("ticks loaded", zap.Int("ticks", batch.Len()), zap.String("side_field", batch.SideField))

		started = time.Now()
		ticks, diagnostic := e.classifier.Classify(batch)
		e.observe(StageClassify, started)
		e.countTicks(diagnostic)
		result.Diagnostic = diagnostic
		if diagnostic.MissingSideField && diagnostic.Unknown == diagnostic.Total() {
			logger.Warn("no side field in source, all volume is unknown", diagnostic.Fields()...)
		} else {
			logger.Info("ticks classified", diagnostic.Fields()...)
		}

		started = time.Now()
		if bars, err = bar.Aggregate(ticks, req.BarWidth); err != nil {
			return fail(StageAggregate, err)
		}
		e.observe(StageAggregate, started)

		if e.barCache != nil && len(bars) > 0 {
			if err := e.barCache.SaveBars(ctx, e.seriesKey(req), bars); err != nil {
				return fail(StagePersist, err)
			}
		}
	}
	result.Cached = cached

	started := time.Now()
	deltaBars := delta.Compute(bars)
	generator, err := signal.NewGenerator(req.Threshold)
	if err != nil {
		return fail(StageSignal, err)
	}
	result.Bars = generator.Generate(deltaBars)
	e.observe(StageSignal, started)

	lo, hi := delta.Range(deltaBars)
	long, short := signal.Count(result.Bars)
	logger.Info("signals generated",
		zap.Int("bars", len(result.Bars)),
		zap.Int64("cumulative_delta_min", lo),
		zap.Int64("cumulative_delta_max", hi),
		zap.Int("long_signals", long),
		zap.Int("short_signals", short))

	started = time.Now()
	audit := NewAudit(req.Simulation.InitialCapital)
	simulator, err := NewSimulator(req.Simulation, e.simulatorOptions(logger, audit)...)
	if err != nil {
		return fail(StageSimulate, err)
	}
	if result.State, err = simulator.Run(ctx, result.Bars); err != nil {
		return fail(StageSimulate, err)
	}
	e.observe(StageSimulate, started)

	result.Report = audit.GenerateReport(result.State.Capital)
	for _, trade := range result.State.Trades[:min(ledgerPreview, len(result.State.Trades))] {
		logger.Info("trade", trade.Fields()...)
	}

	if err := e.persist(ctx, req, result); err != nil {
		return fail(StagePersist, err)
	}

	logger.Info("run finished",
		zap.Int("trades", result.Report.TotalTrades),
		zap.String("final_capital", result.State.Capital.String()),
		zap.Bool("cached_bars", result.Cached))

	return result, nil
}

func (e *Executor) cachedBars(ctx context.Context, req Request, logger *zap.Logger) ([]common.Bar, bool, error) {
	if !req.UseCached || e.barCache == nil {
		return nil, false, nil
	}

	bars, ok, err := e.barCache.LoadBars(ctx, e.seriesKey(req))
	if err != nil {
		return nil, false, fmt.Errorf("unable to load cached bars: %w", err)
	}
	if ok {
		logger.Info("using cached bars", zap.String("series", e.seriesKey(req).String()), zap.Int("bars", len(bars)))
	}
	return bars, ok, nil
}

func (e *Executor) seriesKey(req Request) common.SeriesKey {
	return req.SeriesKey(e.classifier.Name())
}

func (e *Executor) persist(ctx context.Context, req Request, result Result) error {
	started := time.Now()
	defer e.observe(StagePersist, started)

	if e.tradeSink != nil {
		if err := e.tradeSink.SaveTrades(ctx, result.RunID, e.seriesKey(req), result.State.Trades); err != nil {
			return fmt.Errorf("unable to save trades: %w", err)
		}
	}
	if e.equitySink != nil {
		if err := e.equitySink.SaveEquity(ctx, result.RunID, result.State.Equity); err != nil {
			return fmt.Errorf("unable to save equity: %w", err)
		}
	}
	return nil
}

func (e *Executor) simulatorOptions(logger *zap.Logger, audit *Audit) []Option {
	var (
		barWrappers    []func(bus.BarEventHandler) bus.BarEventHandler
		equityWrappers []func(bus.EquityEventHandler) bus.EquityEventHandler
		openWrappers   []func(bus.PositionOpenedEventHandler) bus.PositionOpenedEventHandler
		closeWrappers  []func(bus.PositionClosedEventHandler) bus.PositionClosedEventHandler
	)

	if e.performance != nil {
		barWrappers = append(barWrappers, e.performance.WithBar)
		equityWrappers = append(equityWrappers, e.performance.WithEquity)
		openWrappers = append(openWrappers, e.performance.WithPositionOpened)
		closeWrappers = append(closeWrappers, e.performance.WithPositionClosed)
	}
	if e.telemetry != nil {
		barWrappers = append(barWrappers, e.telemetry.WithBar)
		equityWrappers = append(equityWrappers, e.telemetry.WithEquity)
		openWrappers = append(openWrappers, e.telemetry.WithPositionOpened)
		closeWrappers = append(closeWrappers, e.telemetry.WithPositionClosed)
	}
	if e.monitor != nil {
		barWrappers = append(barWrappers, e.monitor.WithBar)
		equityWrappers = append(equityWrappers, e.monitor.WithEquity)
		openWrappers = append(openWrappers, e.monitor.WithPositionOpened)
		closeWrappers = append(closeWrappers, e.monitor.WithPositionClosed)
	}

	return []Option{
		WithLogger(logger),
		WithBarHandler(middleware.Chain(barWrappers...)(middleware.NoopBarHdl)),
		WithEquityHandler(middleware.Chain(equityWrappers...)(audit.OnEquity)),
		WithPositionOpenedHandler(middleware.Chain(openWrappers...)(middleware.NoopPosOpnHdl)),
		WithPositionClosedHandler(middleware.Chain(closeWrappers...)(audit.OnPositionClosed)),
	}
}

func (e *Executor) observe(stage string, started time.Time) {
	if e.telemetry != nil {
		e.telemetry.ObserveStage(stage, started)
	}
}

func (e *Executor) countTicks(diagnostic classify.Diagnostic) {
	if e.telemetry == nil {
		return
	}
	e.telemetry.AddTicks(common.SideBuy, diagnostic.Buy)
	e.telemetry.AddTicks(common.SideSell, diagnostic.Sell)
	e.telemetry.AddTicks(common.SideUnknown, diagnostic.Unknown)
}
