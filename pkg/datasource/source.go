package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"go.uber.org/zap"
)

// Query selects the ticks of one instrument in the half open range [From, To).
type Query struct {
	Instrument string
	Dataset    string
	From       time.Time
	To         time.Time
}

func (q Query) Validate() error {
	if q.Instrument == "" {
		return common.NewParameterError("instrument", q.Instrument, "must not be empty")
	}
	if q.From.IsZero() {
		return common.NewParameterError("start", q.From, "must be set")
	}
	if q.To.Before(q.From) {
		return common.NewParameterError("end", q.To.Format(time.RFC3339), fmt.Sprintf("must not precede start %s", q.From.Format(time.RFC3339)))
	}
	return nil
}

func (q Query) Contains(ts time.Time) bool {
	return !ts.Before(q.From) && ts.Before(q.To)
}

func (q Query) IsEmpty() bool { return !q.To.After(q.From) }

func (q Query) Fields() []zap.Field {
	return []zap.Field{
		zap.String("instrument", q.Instrument),
		zap.String("dataset", q.Dataset),
		zap.Time("from", q.From),
		zap.Time("to", q.To),
	}
}

// TickSource delivers the complete tick batch of a query. Implementations are
// opened by their constructor and released with Close. Failures to produce
// data wrap common.ErrSourceUnavailable.
type TickSource interface {
	LoadTicks(ctx context.Context, q Query) (common.TickBatch, error)
	Close() error
}

// Static serves a fixed batch, filtered by the query range.
type Static struct {
	batch common.TickBatch
}

func NewStatic(batch common.TickBatch) *Static {
	return &Static{batch: batch}
}

func (s *Static) LoadTicks(ctx context.Context, q Query) (common.TickBatch, error) {
	out := common.TickBatch{Symbol: q.Instrument, SideField: s.batch.SideField, Ticks: make([]common.Tick, 0)}
	if q.IsEmpty() {
		return out, nil
	}
	for _, tick := range s.batch.Ticks {
		if err := ctx.Err(); err != nil {
			return common.TickBatch{}, err
		}
		if q.Contains(tick.TimeStamp) {
			out.Ticks = append(out.Ticks, tick)
		}
	}
	return out, nil
}

func (s *Static) Close() error { return nil }
