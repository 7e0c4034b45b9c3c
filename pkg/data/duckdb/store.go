package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/data"
	"github.com/peter-kozarec/flowdelta/pkg/utility"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bars (
	series       VARCHAR NOT NULL,
	symbol       VARCHAR,
	open_time    BIGINT NOT NULL,
	period       BIGINT NOT NULL,
	close        VARCHAR NOT NULL,
	buy_volume   BIGINT NOT NULL,
	sell_volume  BIGINT NOT NULL,
	total_volume BIGINT NOT NULL,
	tick_count   BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS trades (
	run_id      VARCHAR NOT NULL,
	series      VARCHAR NOT NULL,
	id          BIGINT NOT NULL,
	symbol      VARCHAR,
	entry_time  BIGINT NOT NULL,
	entry_price VARCHAR NOT NULL,
	exit_time   BIGINT NOT NULL,
	exit_price  VARCHAR NOT NULL,
	size        VARCHAR NOT NULL,
	pnl         VARCHAR NOT NULL,
	return_pct  VARCHAR NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS equity (
	run_id  VARCHAR NOT NULL,
	seq     BIGINT NOT NULL,
	ts      BIGINT NOT NULL,
	equity  VARCHAR NOT NULL,
	capital VARCHAR NOT NULL
)`,
}

// Store keeps bars, trades and equity curves in a duckdb database.
type Store struct {
	dataSourceName string
	db             *sql.DB
}

func NewStore(ctx context.Context, dataSourceName string) (*Store, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("error creating schema: %w", err)
		}
	}

	return &Store{dataSourceName: dataSourceName, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBars replaces the bars stored under key.
func (s *Store) SaveBars(ctx context.Context, key common.SeriesKey, bars []common.Bar) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE series = ?`, key.String()); err != nil {
			return fmt.Errorf("error deleting bars: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO bars VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("error preparing insert: %w", err)
		}
		defer func(stmt *sql.Stmt) {
			_ = stmt.Close()
		}(stmt)

		for _, bar := range bars {
			r := data.NewBarRecord(key, bar)
			if _, err := stmt.ExecContext(ctx, r.Series, r.Symbol, r.OpenTime, r.Period, r.Close, r.BuyVolume, r.SellVolume, r.TotalVolume, r.TickCount); err != nil {
				return fmt.Errorf("error inserting bar %d: %w", r.OpenTime, err)
			}
		}
		return nil
	})
}

func (s *Store) LoadBars(ctx context.Context, key common.SeriesKey) ([]common.Bar, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT series, symbol, open_time, period, close, buy_volume, sell_volume, total_volume, tick_count
		 FROM bars WHERE series = ? ORDER BY open_time`, key.String())
	if err != nil {
		return nil, false, fmt.Errorf("error querying bars: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var bars []common.Bar
	for rows.Next() {
		var (
			r      data.BarRecord
			symbol sql.NullString
		)
		if err := rows.Scan(&r.Series, &symbol, &r.OpenTime, &r.Period, &r.Close, &r.BuyVolume, &r.SellVolume, &r.TotalVolume, &r.TickCount); err != nil {
			return nil, false, fmt.Errorf("error scanning bar: %w", err)
		}
		r.Symbol = symbol.String

		bar, err := r.ToBar()
		if err != nil {
			return nil, false, err
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error scanning bars: %w", err)
	}

	return bars, len(bars) > 0, nil
}

func (s *Store) SaveTrades(ctx context.Context, runID utility.ExecutionID, key common.SeriesKey, trades []common.Trade) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO trades VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("error preparing insert: %w", err)
		}
		defer func(stmt *sql.Stmt) {
			_ = stmt.Close()
		}(stmt)

		for _, trade := range trades {
			r := data.NewTradeRecord(runID.String(), key, trade)
			if _, err := stmt.ExecContext(ctx, r.RunID, r.Series, r.Id, r.Symbol, r.EntryTime, r.EntryPrice, r.ExitTime, r.ExitPrice, r.Size, r.PnL, r.ReturnPct); err != nil {
				return fmt.Errorf("error inserting trade %d: %w", r.Id, err)
			}
		}
		return nil
	})
}

func (s *Store) LoadTrades(ctx context.Context, runID utility.ExecutionID) ([]common.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, entry_time, entry_price, exit_time, exit_price, size, pnl, return_pct
		 FROM trades WHERE run_id = ? ORDER BY id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("error querying trades: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	trades := make([]common.Trade, 0)
	for rows.Next() {
		var (
			r      data.TradeRecord
			symbol sql.NullString
		)
		if err := rows.Scan(&r.Id, &symbol, &r.EntryTime, &r.EntryPrice, &r.ExitTime, &r.ExitPrice, &r.Size, &r.PnL, &r.ReturnPct); err != nil {
			return nil, fmt.Errorf("error scanning trade: %w", err)
		}
		r.Symbol = symbol.String

		trade, err := r.ToTrade()
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning trades: %w", err)
	}

	return trades, nil
}

func (s *Store) SaveEquity(ctx context.Context, runID utility.ExecutionID, points []common.EquityPoint) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO equity VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("error preparing insert: %w", err)
		}
		defer func(stmt *sql.Stmt) {
			_ = stmt.Close()
		}(stmt)

		for i, point := range points {
			r := data.NewEquityRecord(runID.String(), i, point)
			if _, err := stmt.ExecContext(ctx, r.RunID, r.Seq, r.TimeStamp, r.Equity, r.Capital); err != nil {
				return fmt.Errorf("error inserting equity point %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Store) LoadEquity(ctx context.Context, runID utility.ExecutionID) ([]common.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, ts, equity, capital FROM equity WHERE run_id = ? ORDER BY seq`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("error querying equity: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	points := make([]common.EquityPoint, 0)
	for rows.Next() {
		var r data.EquityRecord
		if err := rows.Scan(&r.Seq, &r.TimeStamp, &r.Equity, &r.Capital); err != nil {
			return nil, fmt.Errorf("error scanning equity point: %w", err)
		}

		point, err := r.ToEquityPoint()
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning equity: %w", err)
	}

	return points, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

var (
	_ data.BarStore = (*Store)(nil)
	_ data.RunStore = (*Store)(nil)
)
