package parquet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/data"
	"github.com/peter-kozarec/flowdelta/pkg/utility"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const parallelism = 4

// Store writes one snappy compressed parquet file per bar series and per
// run below a root directory.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	for _, dir := range []string{"bars", "trades", "equity"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create %s directory: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) barPath(key common.SeriesKey) string {
	return filepath.Join(s.root, "bars", key.Slug()+".parquet")
}

func (s *Store) tradePath(runID utility.ExecutionID) string {
	return filepath.Join(s.root, "trades", runID.String()+".parquet")
}

func (s *Store) equityPath(runID utility.ExecutionID) string {
	return filepath.Join(s.root, "equity", runID.String()+".parquet")
}

func (s *Store) SaveBars(ctx context.Context, key common.SeriesKey, bars []common.Bar) error {
	records := make([]data.BarRecord, len(bars))
	for i, bar := range bars {
		records[i] = data.NewBarRecord(key, bar)
	}
	return writeFile(ctx, s.barPath(key), new(data.BarRecord), records)
}

func (s *Store) LoadBars(ctx context.Context, key common.SeriesKey) ([]common.Bar, bool, error) {
	records, err := readFile[data.BarRecord](ctx, s.barPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	bars := make([]common.Bar, 0, len(records))
	for _, r := range records {
		bar, err := r.ToBar()
		if err != nil {
			return nil, false, err
		}
		bars = append(bars, bar)
	}
	return bars, len(bars) > 0, nil
}

func (s *Store) SaveTrades(ctx context.Context, runID utility.ExecutionID, key common.SeriesKey, trades []common.Trade) error {
	records := make([]data.TradeRecord, len(trades))
	for i, trade := range trades {
		records[i] = data.NewTradeRecord(runID.String(), key, trade)
	}
	return writeFile(ctx, s.tradePath(runID), new(data.TradeRecord), records)
}

func (s *Store) LoadTrades(ctx context.Context, runID utility.ExecutionID) ([]common.Trade, error) {
	records, err := readFile[data.TradeRecord](ctx, s.tradePath(runID))
	if errors.Is(err, os.ErrNotExist) {
		return []common.Trade{}, nil
	}
	if err != nil {
		return nil, err
	}

	trades := make([]common.Trade, 0, len(records))
	for _, r := range records {
		trade, err := r.ToTrade()
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (s *Store) SaveEquity(ctx context.Context, runID utility.ExecutionID, points []common.EquityPoint) error {
	records := make([]data.EquityRecord, len(points))
	for i, point := range points {
		records[i] = data.NewEquityRecord(runID.String(), i, point)
	}
	return writeFile(ctx, s.equityPath(runID), new(data.EquityRecord), records)
}

func (s *Store) LoadEquity(ctx context.Context, runID utility.ExecutionID) ([]common.EquityPoint, error) {
	records, err := readFile[data.EquityRecord](ctx, s.equityPath(runID))
	if errors.Is(err, os.ErrNotExist) {
		return []common.EquityPoint{}, nil
	}
	if err != nil {
		return nil, err
	}

	points := make([]common.EquityPoint, 0, len(records))
	for _, r := range records {
		point, err := r.ToEquityPoint()
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}

func writeFile[T any](ctx context.Context, path string, schema *T, records []T) (err error) {
	tmp := path + ".tmp"

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("unable to create %q: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = fw.Close()
			_ = os.Remove(tmp)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, schema, parallelism)
	if err != nil {
		return fmt.Errorf("unable to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range records {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = pw.Write(r); err != nil {
			return fmt.Errorf("unable to write record: %w", err)
		}
	}

	if err = pw.WriteStop(); err != nil {
		return fmt.Errorf("unable to finish parquet file: %w", err)
	}
	if err = fw.Close(); err != nil {
		return fmt.Errorf("unable to close %q: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("unable to move %q into place: %w", path, err)
	}
	return nil
}

func readFile[T any](ctx context.Context, path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %q: %w", path, err)
	}
	defer func() {
		_ = fr.Close()
	}()

	pr, err := reader.NewParquetReader(fr, new(T), parallelism)
	if err != nil {
		return nil, fmt.Errorf("unable to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]T, int(pr.GetNumRows()))
	if len(records) == 0 {
		return records, nil
	}
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("unable to read %q: %w", path, err)
	}
	return records, nil
}

var (
	_ data.BarStore = (*Store)(nil)
	_ data.RunStore = (*Store)(nil)
)
