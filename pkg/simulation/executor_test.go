package simulation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
	"github.com/peter-kozarec/flowdelta/pkg/middleware"
	"github.com/peter-kozarec/flowdelta/pkg/tools/classify"
	"github.com/peter-kozarec/flowdelta/pkg/utility"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	bars   map[string][]common.Bar
	trades map[utility.ExecutionID][]common.Trade
	equity map[utility.ExecutionID][]common.EquityPoint
}

func newMemStore() *memStore {
	return &memStore{
		bars:   make(map[string][]common.Bar),
		trades: make(map[utility.ExecutionID][]common.Trade),
		equity: make(map[utility.ExecutionID][]common.EquityPoint),
	}
}

func (m *memStore) SaveBars(_ context.Context, key common.SeriesKey, bars []common.Bar) error {
	m.bars[key.String()] = bars
	return nil
}

func (m *memStore) LoadBars(_ context.Context, key common.SeriesKey) ([]common.Bar, bool, error) {
	bars, ok := m.bars[key.String()]
	return bars, ok, nil
}

func (m *memStore) SaveTrades(_ context.Context, runID utility.ExecutionID, _ common.SeriesKey, trades []common.Trade) error {
	m.trades[runID] = trades
	return nil
}

func (m *memStore) LoadTrades(_ context.Context, runID utility.ExecutionID) ([]common.Trade, error) {
	return m.trades[runID], nil
}

func (m *memStore) SaveEquity(_ context.Context, runID utility.ExecutionID, points []common.EquityPoint) error {
	m.equity[runID] = points
	return nil
}

func (m *memStore) LoadEquity(_ context.Context, runID utility.ExecutionID) ([]common.EquityPoint, error) {
	return m.equity[runID], nil
}

type failingSource struct{}

func (failingSource) LoadTicks(context.Context, datasource.Query) (common.TickBatch, error) {
	return common.TickBatch{}, fmt.Errorf("%w: connection refused", common.ErrSourceUnavailable)
}

func (failingSource) Close() error { return nil }

func tradeTick(minute int, price int64, size int64, side byte) common.Tick {
	return common.Tick{
		TimeStamp:     start.Add(time.Duration(minute)*time.Minute + time.Second),
		Price:         fixed.FromInt64(price, 0),
		Size:          size,
		SideIndicator: side,
		Symbol:        "GC",
	}
}

// cumulative delta 1, 11, -19, -18 with threshold 5: long on minute 1,
// short on minute 2 and 3
func roundTripBatch() common.TickBatch {
	return common.TickBatch{
		Symbol:    "GC",
		SideField: "side",
		Ticks: []common.Tick{
			tradeTick(0, 100, 1, 'B'),
			tradeTick(1, 100, 10, 'B'),
			tradeTick(1, 100, 3, 'N'),
			tradeTick(2, 110, 30, 'A'),
			tradeTick(3, 105, 1, 'B'),
		},
	}
}

func testRequest() Request {
	return Request{
		Instrument: "GC",
		Dataset:    "GLBX.MDP3",
		From:       start,
		To:         start.Add(time.Hour),
		BarWidth:   time.Minute,
		Threshold:  fixed.FromInt(5, 0),
		Simulation: DefaultConfiguration(),
	}
}

func TestExecutor_Run(t *testing.T) {
	store := newMemStore()
	registry := prometheus.NewRegistry()
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	executor := NewExecutor(logger, datasource.NewStatic(roundTripBatch()),
		WithBarCache(store),
		WithTradeSink(store),
		WithEquitySink(store),
		WithTelemetry(middleware.NewTelemetry(logger, registry)),
		WithMonitor(middleware.NewMonitor(logger, middleware.MonitorPositionsClosed)),
		WithPerformance(middleware.NewPerformance(logger)))

	result, err := executor.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, classify.Diagnostic{Buy: 3, Sell: 1, Unknown: 1}, result.Diagnostic)
	require.Len(t, result.Bars, 4)
	assert.Equal(t, []int64{1, 11, -19, -18}, []int64{
		result.Bars[0].CumulativeDelta, result.Bars[1].CumulativeDelta,
		result.Bars[2].CumulativeDelta, result.Bars[3].CumulativeDelta,
	})
	assert.Equal(t, int64(10), result.Bars[1].TotalVolume)

	require.Len(t, result.State.Trades, 1)
	tr := result.State.Trades[0]
	assert.Equal(t, int64(1), tr.Id)
	assert.True(t, tr.EntryPrice.Eq(fixed.FromInt(100, 0)))
	assert.True(t, tr.ExitPrice.Eq(fixed.FromInt(110, 0)))
	assert.True(t, tr.PnL.Eq(fixed.FromInt(1000, 0)), tr.PnL.String())
	assert.Nil(t, result.State.Position)
	assert.True(t, result.State.Capital.Eq(fixed.FromInt(101000, 0)))
	assert.Len(t, result.State.Equity, 3)

	assert.Equal(t, 1, result.Report.TotalTrades)
	assert.True(t, result.Report.FinalCapital.Eq(fixed.FromInt(101000, 0)))
	assert.True(t, result.Report.ProfitFactor.IsZero())

	assert.Len(t, store.bars[testRequest().SeriesKey(classify.Aggressor).String()], 4)
	assert.Len(t, store.trades[result.RunID], 1)
	assert.Len(t, store.equity[result.RunID], 3)

	assert.Equal(t, 1, logs.FilterMessage("position closed").Len())
	assert.Equal(t, 1, logs.FilterMessage("trade").Len())
	signals := logs.FilterMessage("signals generated").All()
	require.Len(t, signals, 1)
	assert.Equal(t, int64(-19), signals[0].ContextMap()["cumulative_delta_min"])
	assert.Equal(t, int64(11), signals[0].ContextMap()["cumulative_delta_max"])
}

func TestExecutor_RunUsesCachedBars(t *testing.T) {
	store := newMemStore()
	req := testRequest()

	first, err := NewExecutor(zap.NewNop(), datasource.NewStatic(roundTripBatch()), WithBarCache(store)).Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	req.UseCached = true
	second, err := NewExecutor(zap.NewNop(), failingSource{}, WithBarCache(store)).Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Bars, second.Bars)
	assert.True(t, first.State.Capital.Eq(second.State.Capital))
}

func TestExecutor_RunCacheIsPerClassifier(t *testing.T) {
	store := newMemStore()
	req := testRequest()
	req.UseCached = true

	aggressor, err := NewExecutor(zap.NewNop(), datasource.NewStatic(roundTripBatch()), WithBarCache(store)).Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, aggressor.Cached)

	tickRule, err := NewExecutor(zap.NewNop(), datasource.NewStatic(roundTripBatch()),
		WithBarCache(store), WithClassifier(&classify.TickRuleClassifier{})).Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, tickRule.Cached)

	// prices 100 100 100 110 105, only the last two ticks move the price
	cumulative := make([]int64, 0, len(tickRule.Bars))
	for _, b := range tickRule.Bars {
		cumulative = append(cumulative, b.CumulativeDelta)
	}
	assert.Equal(t, []int64{0, 0, 30, 29}, cumulative)
	assert.Len(t, store.bars, 2)

	again, err := NewExecutor(zap.NewNop(), failingSource{},
		WithBarCache(store), WithClassifier(&classify.TickRuleClassifier{})).Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, tickRule.Bars, again.Bars)
}

func TestExecutor_RunErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   datasource.TickSource
		modify   func(*Request)
		stage    string
		sentinel error
	}{
		{"source unavailable", failingSource{}, func(*Request) {}, StageLoad, common.ErrSourceUnavailable},
		{"zero threshold", datasource.NewStatic(roundTripBatch()), func(r *Request) { r.Threshold = fixed.Zero }, StageValidate, common.ErrInvalidParameter},
		{"zero bar width", datasource.NewStatic(roundTripBatch()), func(r *Request) { r.BarWidth = 0 }, StageValidate, common.ErrInvalidParameter},
		{"empty instrument", datasource.NewStatic(roundTripBatch()), func(r *Request) { r.Instrument = "" }, StageValidate, common.ErrInvalidParameter},
		{"oversized position", datasource.NewStatic(roundTripBatch()), func(r *Request) { r.Simulation.PositionSizeFraction = fixed.Two }, StageValidate, common.ErrInvalidParameter},
		{"bad tick size", datasource.NewStatic(common.TickBatch{SideField: "side", Ticks: []common.Tick{tradeTick(0, 100, 0, 'B')}}), func(*Request) {}, StageAggregate, common.ErrInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.modify(&req)

			result, err := NewExecutor(zap.NewNop(), tt.source).Run(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, result.State)
			assert.ErrorIs(t, err, tt.sentinel)

			var runErr *RunError
			require.True(t, errors.As(err, &runErr))
			assert.Equal(t, tt.stage, runErr.Stage)
			assert.Equal(t, req.Instrument, runErr.Instrument)
		})
	}
}

func TestExecutor_RunParameterErrorField(t *testing.T) {
	req := testRequest()
	req.Threshold = fixed.FromInt(-1, 0)

	_, err := NewExecutor(zap.NewNop(), datasource.NewStatic(roundTripBatch())).Run(context.Background(), req)

	var paramErr *common.ParameterError
	require.True(t, errors.As(err, &paramErr))
	assert.Equal(t, "threshold", paramErr.Field)
}

func TestExecutor_ScenarioD(t *testing.T) {
	store := newMemStore()
	executor := NewExecutor(zap.NewNop(), datasource.NewStatic(common.TickBatch{Symbol: "GC", SideField: "side"}),
		WithTradeSink(store), WithEquitySink(store), WithBarCache(store))

	result, err := executor.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Empty(t, result.Bars)
	assert.Empty(t, result.State.Trades)
	assert.Empty(t, result.State.Equity)
	assert.Nil(t, result.State.Position)
	assert.Zero(t, result.Report.TotalTrades)
	assert.True(t, result.State.Capital.Eq(DefaultConfiguration().InitialCapital))
	assert.Empty(t, store.bars)
}

func TestExecutor_MissingSideField(t *testing.T) {
	batch := roundTripBatch()
	batch.SideField = ""

	core, logs := observer.New(zap.InfoLevel)
	result, err := NewExecutor(zap.New(core), datasource.NewStatic(batch)).Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, result.Diagnostic.MissingSideField)
	assert.Equal(t, 5, result.Diagnostic.Unknown)
	assert.Empty(t, result.State.Trades)
	for _, b := range result.Bars {
		assert.Zero(t, b.TotalVolume)
	}
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestExecutor_TickRuleClassifier(t *testing.T) {
	batch := roundTripBatch()
	batch.SideField = ""

	result, err := NewExecutor(zap.NewNop(), datasource.NewStatic(batch), WithClassifier(&classify.TickRuleClassifier{})).Run(context.Background(), testRequest())
	require.NoError(t, err)

	// prices 100 100 100 110 105, the leading flat run has no reference side
	assert.Equal(t, classify.Diagnostic{MissingSideField: true, Buy: 1, Sell: 1, Unknown: 3}, result.Diagnostic)
}

func TestRunError_Error(t *testing.T) {
	err := &RunError{Instrument: "GC", From: start, To: start.Add(time.Hour), Stage: StageLoad, Err: common.ErrSourceUnavailable}
	assert.Equal(t, "run GC [2024-02-05T14:00:00Z, 2024-02-05T15:00:00Z) failed in load: source unavailable", err.Error())
}
