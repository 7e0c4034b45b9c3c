package historical

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
)

const (
	tickReaderComponentName = "datasource.historical.reader"
	sideFieldName           = "side"
	ctxCheckInterval        = 4096
)

// TickReader serves trades of a single instrument from a binary trade file
// produced by Writer.
// The side field is reported only when the file was dumped with side data.
type TickReader struct {
	source  *Source[BinaryTrade]
	symbol  string
	hasSide bool
}

func Open(path, symbol string) (*TickReader, error) {
	source := NewSource[BinaryTrade](path)
	if err := source.Open(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
	}

	hasSide := true
	var first BinaryTrade
	switch err := source.Read(0, &first); {
	case err == nil:
		hasSide = first.HasSide()
	case errors.Is(err, ErrEof):
	default:
		_ = source.Close()
		return nil, fmt.Errorf("unable to read first entry: %w: %w", common.ErrSourceUnavailable, err)
	}

	return &TickReader{source: source, symbol: symbol, hasSide: hasSide}, nil
}

func (t *TickReader) sideField() string {
	if t.hasSide {
		return sideFieldName
	}
	return ""
}

func (t *TickReader) Close() error {
	return t.source.Close()
}

func (t *TickReader) LoadTicks(ctx context.Context, q datasource.Query) (common.TickBatch, error) {
	batch := common.TickBatch{Symbol: q.Instrument, SideField: t.sideField(), Ticks: make([]common.Tick, 0)}

	if t.symbol != "" && !strings.EqualFold(t.symbol, q.Instrument) {
		return common.TickBatch{}, fmt.Errorf("file holds %s, not %s: %w", t.symbol, q.Instrument, common.ErrSourceUnavailable)
	}
	if q.IsEmpty() {
		return batch, nil
	}

	from, to := q.From.UnixNano(), q.To.UnixNano()
	idx, err := t.source.LowerBound(func(entry *BinaryTrade) bool { return entry.TimeStamp < from })
	if err != nil {
		return common.TickBatch{}, fmt.Errorf("unable to locate range start: %w: %w", common.ErrSourceUnavailable, err)
	}

	var entry BinaryTrade
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return common.TickBatch{}, err
			}
		}

		if err := t.source.Read(idx, &entry); err != nil {
			if err == ErrEof {
				break
			}
			return common.TickBatch{}, fmt.Errorf("error reading entry at index %d: %w: %w", idx, common.ErrSourceUnavailable, err)
		}
		idx++

		if entry.TimeStamp >= to {
			break
		}

		tick := common.Tick{Source: tickReaderComponentName, Symbol: q.Instrument}
		entry.ToTick(&tick)
		batch.Ticks = append(batch.Ticks, tick)
	}

	return batch, nil
}
