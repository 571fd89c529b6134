package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TFoldSV/internal/domain/models"
	domrepo "TFoldSV/internal/domain/repository"
	pkgch "TFoldSV/pkg/clickhouse"
	applogger "TFoldSV/pkg/logger"
)

// CHBarSource reads raw OHLCV rows of one symbol from a ClickHouse table with columns
// (ts DateTime64, symbol, open, high, low, close, volume).
type CHBarSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarSource(ch *pkgch.Client, table string) *CHBarSource {
	return &CHBarSource{db: ch.DB(), table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHBarSource) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHBarSource) Name() string { return "clickhouse" }

func (s *CHBarSource) LoadBars(ctx context.Context, q domrepo.BarQuery) (models.RawTable, error) {
	start := time.Now()
	if q.Symbol == "" {
		return models.RawTable{}, fmt.Errorf("%w: symbol is required for the clickhouse source", models.ErrConfig)
	}
	query, args := barQuery(s.table, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.l.Error("clickhouse load_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", q.Symbol),
			applogger.Error(err),
		)
		return models.RawTable{}, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := models.RawTable{
		Columns: append([]string(nil), positionalColumns...),
		Times:   make([]time.Time, 0, 4096),
		Values:  make([][]float64, 0, 4096),
	}
	for rows.Next() {
		var ts time.Time
		var o, h, l, c, v float64
		if err := rows.Scan(&ts, &o, &h, &l, &c, &v); err != nil {
			s.l.Error("clickhouse load_bars scan error",
				applogger.String("table", s.table),
				applogger.String("symbol", q.Symbol),
				applogger.Error(err),
			)
			return models.RawTable{}, fmt.Errorf("scan bar: %w", err)
		}
		out.Times = append(out.Times, ts.UTC())
		out.Values = append(out.Values, []float64{o, h, l, c, v})
	}
	if err := rows.Err(); err != nil {
		return models.RawTable{}, fmt.Errorf("rows: %w", err)
	}

	s.l.Info("clickhouse load_bars ok",
		applogger.String("table", s.table),
		applogger.String("symbol", q.Symbol),
		applogger.Int("rows", out.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func barQuery(table string, q domrepo.BarQuery) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT ts, open, high, low, close, volume FROM %s WHERE symbol = ?", table)
	args := []interface{}{q.Symbol}
	if !q.From.IsZero() {
		b.WriteString(" AND ts >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		b.WriteString(" AND ts <= ?")
		args = append(args, q.To.UTC())
	}
	b.WriteString(" ORDER BY ts ASC")
	return b.String(), args
}
