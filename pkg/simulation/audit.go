package simulation

import (
	"context"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
)

// Audit collects closed trades and equity points and turns them into a
// Report. It can be fed incrementally through its handlers or in one go
// through Summarize.
type Audit struct {
	initialCapital fixed.Point

	trades []common.Trade
	equity []common.EquityPoint
}

func NewAudit(initialCapital fixed.Point) *Audit {
	return &Audit{
		initialCapital: initialCapital,
	}
}

func (a *Audit) OnPositionClosed(_ context.Context, trade common.Trade) {
	a.AddTrade(trade)
}

func (a *Audit) OnEquity(_ context.Context, point common.EquityPoint) {
	a.AddEquityPoint(point)
}

func (a *Audit) AddTrade(trade common.Trade) {
	a.trades = append(a.trades, trade)
}

func (a *Audit) AddEquityPoint(point common.EquityPoint) {
	a.equity = append(a.equity, point)
}

// Summarize computes the performance report of a finished run.
func Summarize(trades []common.Trade, initialCapital, finalCapital fixed.Point, equity []common.EquityPoint) Report {
	a := NewAudit(initialCapital)
	a.trades = trades
	a.equity = equity
	return a.GenerateReport(finalCapital)
}

func (a *Audit) GenerateReport(finalCapital fixed.Point) Report {
	report := Report{
		InitialCapital: a.initialCapital,
		FinalCapital:   finalCapital,
		WinRate:        fixed.Zero,
		AverageWin:     fixed.Zero,
		AverageLoss:    fixed.Zero,
		ProfitFactor:   fixed.Zero,
		TotalReturn:    fixed.Zero,
	}

	if len(a.equity) > 0 {
		report.StartDate = a.equity[0].TimeStamp
		report.EndDate = a.equity[len(a.equity)-1].TimeStamp
	}

	// --- Return Metrics ---
	if a.initialCapital.IsPos() {
		report.TotalReturn = finalCapital.Sub(a.initialCapital).Div(a.initialCapital).Mul(fixed.Hundred).Rescale(2)
	}

	// --- Max Drawdown ---
	peak := a.initialCapital
	for _, point := range a.equity {
		if point.Equity.Gt(peak) {
			peak = point.Equity
		}
		if !peak.IsPos() {
			continue
		}
		drawdown := peak.Sub(point.Equity).Div(peak)
		if drawdown.Gt(report.MaxDrawdown) {
			report.MaxDrawdown = drawdown
		}
	}
	report.MaxDrawdown = report.MaxDrawdown.Mul(fixed.Hundred).Rescale(2)

	// --- Trade Statistics ---
	var (
		totalDuration time.Duration
		totalProfit   = fixed.Zero
		totalLoss     = fixed.Zero
		returns       = make([]fixed.Point, 0, len(a.trades))
	)
	for _, trade := range a.trades {
		report.TotalTrades++
		totalDuration += trade.Duration()
		returns = append(returns, trade.ReturnPct)

		switch {
		case trade.PnL.IsPos():
			totalProfit = totalProfit.Add(trade.PnL)
			report.WinningTrades++
		case trade.PnL.IsNeg():
			totalLoss = totalLoss.Add(trade.PnL.Neg())
			report.LosingTrades++
		default:
			report.BreakevenTrades++
		}
	}

	// --- Averages & Ratios ---
	if report.WinningTrades > 0 {
		report.AverageWin = totalProfit.DivInt(report.WinningTrades).Rescale(2)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = totalLoss.DivInt(report.LosingTrades).Rescale(2)
	}
	// Zero when nothing was lost, an all winning run reports 0 rather than infinity.
	if totalLoss.IsPos() {
		report.ProfitFactor = totalProfit.Div(totalLoss).Rescale(2)
	}
	if report.AverageLoss.IsPos() {
		report.RiskRewardRatio = report.AverageWin.Div(report.AverageLoss).Rescale(2)
	}
	if report.TotalTrades > 0 {
		report.Expectancy = totalProfit.Sub(totalLoss).DivInt(report.TotalTrades).Rescale(2)
		report.AverageTradeDuration = totalDuration / time.Duration(report.TotalTrades)
		report.WinRate = fixed.FromInt(report.WinningTrades, 0).DivInt(report.TotalTrades).Mul(fixed.Hundred).Rescale(2)
	}

	// --- Per trade risk ratios ---
	report.SharpeRatio = fixed.SharpeRatio(returns, fixed.Zero).Rescale(2)
	report.SortinoRatio = fixed.SortinoRatio(returns, fixed.Zero).Rescale(2)

	return report
}
