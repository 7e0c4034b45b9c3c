package data

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
)

// Records are the flat storage layout shared by the stores. Decimals are
// kept as text and timestamps as Unix nanoseconds so a round trip is exact.

type BarRecord struct {
	Series      string `parquet:"name=series, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol      string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	OpenTime    int64  `parquet:"name=open_time, type=INT64"`
	Period      int64  `parquet:"name=period, type=INT64"`
	Close       string `parquet:"name=close, type=BYTE_ARRAY, convertedtype=UTF8"`
	BuyVolume   int64  `parquet:"name=buy_volume, type=INT64"`
	SellVolume  int64  `parquet:"name=sell_volume, type=INT64"`
	TotalVolume int64  `parquet:"name=total_volume, type=INT64"`
	TickCount   int64  `parquet:"name=tick_count, type=INT64"`
}

func NewBarRecord(key common.SeriesKey, bar common.Bar) BarRecord {
	return BarRecord{
		Series:      key.String(),
		Symbol:      bar.Symbol,
		OpenTime:    bar.OpenTime.UnixNano(),
		Period:      int64(bar.Period),
		Close:       bar.Close.String(),
		BuyVolume:   bar.BuyVolume,
		SellVolume:  bar.SellVolume,
		TotalVolume: bar.TotalVolume,
		TickCount:   int64(bar.TickCount),
	}
}

func (r BarRecord) ToBar() (common.Bar, error) {
	closePrice, err := fixed.Parse(r.Close)
	if err != nil {
		return common.Bar{}, fmt.Errorf("bar %d close: %w", r.OpenTime, err)
	}
	return common.Bar{
		Symbol:      r.Symbol,
		OpenTime:    time.Unix(0, r.OpenTime).UTC(),
		Period:      time.Duration(r.Period),
		Close:       closePrice,
		BuyVolume:   r.BuyVolume,
		SellVolume:  r.SellVolume,
		TotalVolume: r.TotalVolume,
		TickCount:   int(r.TickCount),
	}, nil
}

type TradeRecord struct {
	RunID      string `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Series     string `parquet:"name=series, type=BYTE_ARRAY, convertedtype=UTF8"`
	Id         int64  `parquet:"name=id, type=INT64"`
	Symbol     string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	EntryTime  int64  `parquet:"name=entry_time, type=INT64"`
	EntryPrice string `parquet:"name=entry_price, type=BYTE_ARRAY, convertedtype=UTF8"`
	ExitTime   int64  `parquet:"name=exit_time, type=INT64"`
	ExitPrice  string `parquet:"name=exit_price, type=BYTE_ARRAY, convertedtype=UTF8"`
	Size       string `parquet:"name=size, type=BYTE_ARRAY, convertedtype=UTF8"`
	PnL        string `parquet:"name=pnl, type=BYTE_ARRAY, convertedtype=UTF8"`
	ReturnPct  string `parquet:"name=return_pct, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func NewTradeRecord(runID string, key common.SeriesKey, trade common.Trade) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		Series:     key.String(),
		Id:         trade.Id,
		Symbol:     trade.Symbol,
		EntryTime:  trade.EntryTime.UnixNano(),
		EntryPrice: trade.EntryPrice.String(),
		ExitTime:   trade.ExitTime.UnixNano(),
		ExitPrice:  trade.ExitPrice.String(),
		Size:       trade.Size.String(),
		PnL:        trade.PnL.String(),
		ReturnPct:  trade.ReturnPct.String(),
	}
}

func (r TradeRecord) ToTrade() (common.Trade, error) {
	var (
		trade = common.Trade{
			Id:        r.Id,
			Symbol:    r.Symbol,
			EntryTime: time.Unix(0, r.EntryTime).UTC(),
			ExitTime:  time.Unix(0, r.ExitTime).UTC(),
		}
		err error
	)

	for _, f := range []struct {
		name string
		raw  string
		dst  *fixed.Point
	}{
		{"entry_price", r.EntryPrice, &trade.EntryPrice},
		{"exit_price", r.ExitPrice, &trade.ExitPrice},
		{"size", r.Size, &trade.Size},
		{"pnl", r.PnL, &trade.PnL},
		{"return_pct", r.ReturnPct, &trade.ReturnPct},
	} {
		if *f.dst, err = fixed.Parse(f.raw); err != nil {
			return common.Trade{}, fmt.Errorf("trade %d %s: %w", r.Id, f.name, err)
		}
	}

	return trade, nil
}

type EquityRecord struct {
	RunID     string `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Seq       int64  `parquet:"name=seq, type=INT64"`
	TimeStamp int64  `parquet:"name=ts, type=INT64"`
	Equity    string `parquet:"name=equity, type=BYTE_ARRAY, convertedtype=UTF8"`
	Capital   string `parquet:"name=capital, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func NewEquityRecord(runID string, seq int, point common.EquityPoint) EquityRecord {
	return EquityRecord{
		RunID:     runID,
		Seq:       int64(seq),
		TimeStamp: point.TimeStamp.UnixNano(),
		Equity:    point.Equity.String(),
		Capital:   point.Capital.String(),
	}
}

func (r EquityRecord) ToEquityPoint() (common.EquityPoint, error) {
	equity, err := fixed.Parse(r.Equity)
	if err != nil {
		return common.EquityPoint{}, fmt.Errorf("equity point %d: %w", r.Seq, err)
	}
	capital, err := fixed.Parse(r.Capital)
	if err != nil {
		return common.EquityPoint{}, fmt.Errorf("equity point %d capital: %w", r.Seq, err)
	}
	return common.EquityPoint{
		TimeStamp: time.Unix(0, r.TimeStamp).UTC(),
		Equity:    equity,
		Capital:   capital,
	}, nil
}
