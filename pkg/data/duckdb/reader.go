package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/datasource"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
)

const tickReaderComponentName = "data.duckdb.reader"

var (
	timeColumns = []string{"ts_event", "ts_recv", "ts", "timestamp", "time"}
	sizeColumns = []string{"size", "quantity", "qty", "volume"}
	sideColumns = []string{"side", "action"}
)

// TickReader loads trades from a duckdb table or from a CSV file read with
// read_csv_auto. Columns are resolved by name when the reader is opened.
type TickReader struct {
	dataSourceName string
	relation       string
	db             *sql.DB

	timeColumn string
	timeIsNs   bool
	sizeColumn string
	sideColumn string
}

// OpenTickReader connects to dataSourceName ("" for an in-memory database)
// and inspects relation, either a table name or a path ending in .csv.
func OpenTickReader(ctx context.Context, dataSourceName, relation string) (*TickReader, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("%w: sql.Open: %w", common.ErrSourceUnavailable, err)
	}

	r := &TickReader{
		dataSourceName: dataSourceName,
		relation:       relationExpr(relation),
		db:             db,
	}

	if err := r.resolveColumns(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return r, nil
}

func (r *TickReader) Close() error {
	return r.db.Close()
}

// SideField is the column the aggressor indicator is read from, empty when
// the relation carries none.
func (r *TickReader) SideField() string {
	return r.sideColumn
}

func (r *TickReader) LoadTicks(ctx context.Context, q datasource.Query) (common.TickBatch, error) {
	batch := common.TickBatch{Symbol: q.Instrument, SideField: r.sideColumn, Ticks: make([]common.Tick, 0)}
	if q.IsEmpty() {
		return batch, nil
	}

	tsExpr := quoteIdent(r.timeColumn)
	if !r.timeIsNs {
		tsExpr = fmt.Sprintf("epoch_ns(%s)", tsExpr)
	}
	sideExpr := "NULL"
	if r.sideColumn != "" {
		sideExpr = fmt.Sprintf("CAST(%s AS VARCHAR)", quoteIdent(r.sideColumn))
	}

	query := fmt.Sprintf(
		`SELECT %[1]s AS ts, CAST(price AS VARCHAR), CAST(%[2]s AS BIGINT), %[3]s FROM %[4]s WHERE %[1]s >= ? AND %[1]s < ? ORDER BY ts`,
		tsExpr, quoteIdent(r.sizeColumn), sideExpr, r.relation)

	rows, err := r.db.QueryContext(ctx, query, q.From.UnixNano(), q.To.UnixNano())
	if err != nil {
		return common.TickBatch{}, fmt.Errorf("%w: error preparing query: %w", common.ErrSourceUnavailable, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var (
			ts    int64
			price string
			size  sql.NullInt64
			side  sql.NullString
		)
		if err := rows.Scan(&ts, &price, &size, &side); err != nil {
			return common.TickBatch{}, fmt.Errorf("%w: error scanning row: %w", common.ErrSourceUnavailable, err)
		}

		p, err := fixed.Parse(price)
		if err != nil {
			return common.TickBatch{}, fmt.Errorf("%w: price %q at %d: %w", common.ErrInsufficientData, price, ts, err)
		}

		tick := common.Tick{
			TimeStamp: time.Unix(0, ts).UTC(),
			Price:     p,
			Size:      size.Int64,
			Source:    tickReaderComponentName,
			Symbol:    q.Instrument,
		}
		if side.Valid && side.String != "" {
			tick.SideIndicator = side.String[0]
		}
		batch.Ticks = append(batch.Ticks, tick)
	}

	if err := rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return common.TickBatch{}, ctxErr
		}
		return common.TickBatch{}, fmt.Errorf("%w: error scanning rows: %w", common.ErrSourceUnavailable, err)
	}

	return batch, nil
}

func (r *TickReader) resolveColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", r.relation))
	if err != nil {
		return fmt.Errorf("%w: unable to inspect %s: %w", common.ErrSourceUnavailable, r.relation, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	types, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("%w: column types: %w", common.ErrSourceUnavailable, err)
	}

	columns := make(map[string]*sql.ColumnType, len(types))
	for _, t := range types {
		columns[strings.ToLower(t.Name())] = t
	}

	if _, ok := columns["price"]; !ok {
		return fmt.Errorf("%w: %s has no price column", common.ErrInsufficientData, r.relation)
	}

	timeType, ok := firstOf(columns, timeColumns)
	if !ok {
		return fmt.Errorf("%w: %s has no timestamp column (one of %s)", common.ErrInsufficientData, r.relation, strings.Join(timeColumns, ", "))
	}
	r.timeColumn = timeType.Name()
	r.timeIsNs = !strings.Contains(strings.ToUpper(timeType.DatabaseTypeName()), "TIMESTAMP")

	sizeType, ok := firstOf(columns, sizeColumns)
	if !ok {
		return fmt.Errorf("%w: %s has no size column (one of %s)", common.ErrInsufficientData, r.relation, strings.Join(sizeColumns, ", "))
	}
	r.sizeColumn = sizeType.Name()

	if sideType, ok := firstOf(columns, sideColumns); ok {
		r.sideColumn = sideType.Name()
	}

	return nil
}

func firstOf(columns map[string]*sql.ColumnType, names []string) (*sql.ColumnType, bool) {
	idx := slices.IndexFunc(names, func(name string) bool {
		_, ok := columns[name]
		return ok
	})
	if idx < 0 {
		return nil, false
	}
	return columns[names[idx]], true
}

func relationExpr(relation string) string {
	if strings.HasSuffix(strings.ToLower(relation), ".csv") {
		return fmt.Sprintf("read_csv_auto('%s')", strings.ReplaceAll(relation, "'", "''"))
	}
	return quoteIdent(relation)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
