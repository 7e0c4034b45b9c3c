package simulation

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Report struct {
	StartDate            time.Time     `json:"start_date"`
	EndDate              time.Time     `json:"end_date"`
	InitialCapital       fixed.Point   `json:"initial_capital"`
	FinalCapital         fixed.Point   `json:"final_capital"`
	TotalReturn          fixed.Point   `json:"total_return"`
	MaxDrawdown          fixed.Point   `json:"max_drawdown"`
	TotalTrades          int           `json:"total_trades"`
	WinningTrades        int           `json:"winning_trades"`
	LosingTrades         int           `json:"losing_trades"`
	BreakevenTrades      int           `json:"breakeven_trades"`
	WinRate              fixed.Point   `json:"win_rate"`
	Expectancy           fixed.Point   `json:"expectancy"`
	ProfitFactor         fixed.Point   `json:"profit_factor"`
	AverageWin           fixed.Point   `json:"avg_win"`
	AverageLoss          fixed.Point   `json:"avg_loss"`
	RiskRewardRatio      fixed.Point   `json:"risk_reward_ratio"`
	AverageTradeDuration time.Duration `json:"avg_trade_duration"`
	SharpeRatio          fixed.Point   `json:"sharpe_ratio"`
	SortinoRatio         fixed.Point   `json:"sortino_ratio"`
}

func (report Report) Print(logger *zap.Logger) {
	logger.Info("performance report",
		zap.String("initial_capital", report.InitialCapital.String()),
		zap.String("final_capital", report.FinalCapital.Rescale(2).String()),
		zap.String("total_return", fmt.Sprintf("%s%%", report.TotalReturn.String())),
		zap.String("max_drawdown", fmt.Sprintf("%s%%", report.MaxDrawdown.String())),
		zap.Time("start_date", report.StartDate),
		zap.Time("end_date", report.EndDate),
	)

	logger.Info("trade statistics",
		zap.Int("total_trades", report.TotalTrades),
		zap.Int("winning_trades", report.WinningTrades),
		zap.Int("losing_trades", report.LosingTrades),
		zap.Int("breakeven_trades", report.BreakevenTrades),
		zap.String("win_rate", fmt.Sprintf("%s%%", report.WinRate.String())),
		zap.String("expectancy", report.Expectancy.String()),
		zap.String("profit_factor", report.ProfitFactor.String()),
		zap.String("average_win", report.AverageWin.String()),
		zap.String("average_loss", report.AverageLoss.String()),
		zap.String("risk_reward_ratio", report.RiskRewardRatio.String()),
		zap.String("average_trade_duration", report.AverageTradeDuration.String()),
	)

	logger.Info("risk metrics",
		zap.String("sharpe_ratio", report.SharpeRatio.String()),
		zap.String("sortino_ratio", report.SortinoRatio.String()),
	)
}
