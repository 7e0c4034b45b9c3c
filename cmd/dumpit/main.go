package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peter-kozarec/flowdelta/internal/dbg"
	"github.com/peter-kozarec/flowdelta/pkg/data/duckdb"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
	"github.com/peter-kozarec/flowdelta/pkg/datasource/historical"
	"go.uber.org/zap"
)

// Full range of nanosecond timestamps, the sources compare Unix nanos.
var (
	defaultFrom = time.Unix(0, math.MinInt64).UTC()
	defaultTo   = time.Unix(0, math.MaxInt64).UTC()
)

// parseRange reads optional RFC3339 bounds, an empty bound keeps the default.
func parseRange(from, to string) (time.Time, time.Time, error) {
	start, end := defaultFrom, defaultTo
	var err error
	if from != "" {
		if start, err = time.Parse(time.RFC3339Nano, from); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from %q: %w", from, err)
		}
	}
	if to != "" {
		if end, err = time.Parse(time.RFC3339Nano, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to %q: %w", to, err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("to %s precedes from %s", end.Format(time.RFC3339Nano), start.Format(time.RFC3339Nano))
	}
	return start, end, nil
}

// dump copies the ticks of q from source into a binary trade file at out.
// A partially written file is removed on error.
func dump(ctx context.Context, source datasource.TickSource, q datasource.Query, out string) (int64, error) {
	batch, err := source.LoadTicks(ctx, q)
	if err != nil {
		return 0, err
	}

	w, err := historical.Create(out, batch.HasSide())
	if err != nil {
		return 0, err
	}

	for _, tick := range batch.Ticks {
		if err := w.Write(tick); err != nil {
			_ = w.Close()
			_ = os.Remove(out)
			return 0, err
		}
	}

	if err := w.Close(); err != nil {
		_ = os.Remove(out)
		return 0, fmt.Errorf("unable to close %q: %w", out, err)
	}
	return w.Count(), nil
}

func main() {
	in := flag.String("in", "", "trades CSV file, or table name when -db is set")
	db := flag.String("db", "", "duckdb database holding the trades table")
	out := flag.String("out", "", "binary trade file to create")
	symbol := flag.String("symbol", "", "symbol")
	fromFlag := flag.String("from", "", "first tick time, RFC3339, default unbounded")
	toFlag := flag.String("to", "", "end of the range, exclusive, RFC3339, default unbounded")
	flag.Parse()

	logger := dbg.NewDevLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if *in == "" || *out == "" || *symbol == "" {
		logger.Fatal("in, out and symbol are required")
	}

	from, to, err := parseRange(*fromFlag, *toFlag)
	if err != nil {
		logger.Fatal("invalid range", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader, err := duckdb.OpenTickReader(ctx, *db, *in)
	if err != nil {
		logger.Fatal("unable to open trades", zap.String("in", *in), zap.Error(err))
	}
	defer func(reader *duckdb.TickReader) {
		_ = reader.Close()
	}(reader)

	n, err := dump(ctx, reader, datasource.Query{Instrument: *symbol, From: from, To: to}, *out)
	if err != nil {
		logger.Error("failed to dump", zap.Error(err))
		return
	}

	logger.Info("dump finished", zap.String("symbol", *symbol), zap.String("out", *out), zap.Int64("trades", n))
}
