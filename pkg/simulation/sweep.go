package simulation

import (
	"context"
	"fmt"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/tools/signal"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"golang.org/x/sync/errgroup"
)

type SweepResult struct {
	Threshold    fixed.Point
	LongSignals  int
	ShortSignals int
	State        *State
	Report       Report
}

// Sweep backtests every threshold against the same delta bars. Each run gets
// its own generator and simulator, the bars are only read. At most limit runs
// execute at once, limit <= 0 means no bound. Results keep threshold order.
func Sweep(ctx context.Context, bars []common.DeltaBar, cfg Configuration, thresholds []fixed.Point, limit int) ([]SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(thresholds))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, threshold := range thresholds {
		g.Go(func() error {
			generator, err := signal.NewGenerator(threshold)
			if err != nil {
				return fmt.Errorf("sweep threshold %d: %w", i, err)
			}

			signaled := generator.Generate(bars)

			simulator, err := NewSimulator(cfg)
			if err != nil {
				return err
			}

			state, err := simulator.Run(ctx, signaled)
			if err != nil {
				return fmt.Errorf("sweep threshold %s: %w", threshold, err)
			}

			long, short := signal.Count(signaled)
			results[i] = SweepResult{
				Threshold:    threshold,
				LongSignals:  long,
				ShortSignals: short,
				State:        state,
				Report:       Summarize(state.Trades, cfg.InitialCapital, state.Capital, state.Equity),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
