package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"TFoldSV/internal/domain/models"
	domrepo "TFoldSV/internal/domain/repository"
	applogger "TFoldSV/pkg/logger"
	"TFoldSV/pkg/util"
)

const quoteDecimals = 5

var positionalColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// CSVBarSource reads timestamp,open,high,low,close[,volume] rows from a file, or from
// every .csv/.txt file of a directory in name order. The timestamp is the first column;
// a header row is detected and its names are kept.
type CSVBarSource struct {
	path   string
	invert bool
	l      *applogger.Logger
}

type CSVOption func(*CSVBarSource)

// WithInvertQuote converts every price to round(1/x, 5) and swaps high with low, turning
// a MXN/USD series into USD/MXN.
func WithInvertQuote(invert bool) CSVOption {
	return func(s *CSVBarSource) { s.invert = invert }
}

func WithCSVLogger(l *applogger.Logger) CSVOption {
	return func(s *CSVBarSource) { s.l = l }
}

func NewCSVBarSource(path string, opts ...CSVOption) *CSVBarSource {
	s := &CSVBarSource{path: path, l: applogger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CSVBarSource) Name() string { return "csv" }

func (s *CSVBarSource) LoadBars(ctx context.Context, q domrepo.BarQuery) (models.RawTable, error) {
	start := time.Now()
	files, err := csvFiles(s.path)
	if err != nil {
		return models.RawTable{}, err
	}

	var out models.RawTable
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return models.RawTable{}, err
		}
		part, err := s.readFile(f)
		if err != nil {
			return models.RawTable{}, fmt.Errorf("read %s: %w", f, err)
		}
		if out.Columns == nil {
			out.Columns = part.Columns
		} else if len(part.Columns) != len(out.Columns) {
			return models.RawTable{}, fmt.Errorf("%w: %s has %d columns, expected %d",
				models.ErrSchema, f, len(part.Columns), len(out.Columns))
		}
		out.Times = append(out.Times, part.Times...)
		out.Values = append(out.Values, part.Values...)
	}

	sortByTime(&out)
	out = clipRange(out, q.From, q.To)
	s.l.Info("csv bars loaded",
		applogger.String("path", s.path),
		applogger.Int("files", len(files)),
		applogger.Int("rows", out.Len()),
		applogger.Bool("invert_quote", s.invert),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CSVBarSource) readFile(path string) (models.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, err
	}
	defer f.Close()
	return readCSV(f, s.invert)
}

func readCSV(r io.Reader, invert bool) (models.RawTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var raw models.RawTable
	var prices priceColumns
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return models.RawTable{}, fmt.Errorf("%w: %v", models.ErrSchema, err)
		}

		if raw.Columns == nil {
			if len(rec) < 2 || len(rec) > len(positionalColumns) {
				return models.RawTable{}, fmt.Errorf("%w: %d columns", models.ErrSchema, len(rec))
			}
			if _, ok := util.ParseTime(rec[0]); !ok {
				raw.Columns = headerColumns(rec)
				prices = locatePrices(raw.Columns)
				continue
			}
			raw.Columns = append([]string(nil), positionalColumns[:len(rec)]...)
			prices = locatePrices(raw.Columns)
		}

		ts, ok := util.ParseTime(rec[0])
		if !ok {
			return models.RawTable{}, fmt.Errorf("%w: line %d: bad timestamp %q", models.ErrSchema, line, rec[0])
		}
		row := make([]float64, len(rec)-1)
		for i, cell := range rec[1:] {
			d, err := decimal.NewFromString(strings.TrimSpace(cell))
			if err != nil {
				return models.RawTable{}, fmt.Errorf("%w: line %d column %d: %v", models.ErrSchema, line, i+2, err)
			}
			if invert && prices.has(i) {
				if d.IsZero() {
					return models.RawTable{}, fmt.Errorf("%w: line %d: zero price cannot be inverted", models.ErrSchema, line)
				}
				d = decimal.NewFromInt(1).DivRound(d, quoteDecimals)
			}
			row[i] = d.InexactFloat64()
		}
		if invert && prices.high >= 0 && prices.low >= 0 {
			row[prices.high], row[prices.low] = row[prices.low], row[prices.high]
		}
		raw.Times = append(raw.Times, ts)
		raw.Values = append(raw.Values, row)
	}
	return raw, nil
}

// priceColumns holds value indices (timestamp excluded) of the price columns.
type priceColumns struct {
	open, high, low, close int
}

func (p priceColumns) has(i int) bool {
	return i == p.open || i == p.high || i == p.low || i == p.close
}

func locatePrices(columns []string) priceColumns {
	p := priceColumns{-1, -1, -1, -1}
	for i, c := range columns[1:] {
		switch c {
		case "open", "o":
			p.open = i
		case "high", "h":
			p.high = i
		case "low", "l":
			p.low = i
		case "close", "c":
			p.close = i
		}
	}
	return p
}

func headerColumns(rec []string) []string {
	cols := make([]string, len(rec))
	for i, name := range rec {
		cols[i] = strings.ToLower(strings.TrimSpace(name))
	}
	return cols
}

func csvFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.Type().IsRegular() && (ext == ".csv" || ext == ".txt") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("csv source: no .csv or .txt files in %s", path)
	}
	sort.Strings(files)
	return files, nil
}

type byTime struct{ t *models.RawTable }

func (b byTime) Len() int           { return len(b.t.Times) }
func (b byTime) Less(i, j int) bool { return b.t.Times[i].Before(b.t.Times[j]) }
func (b byTime) Swap(i, j int) {
	b.t.Times[i], b.t.Times[j] = b.t.Times[j], b.t.Times[i]
	b.t.Values[i], b.t.Values[j] = b.t.Values[j], b.t.Values[i]
}

func sortByTime(raw *models.RawTable) {
	if !sort.IsSorted(byTime{raw}) {
		sort.Stable(byTime{raw})
	}
}

// clipRange keeps rows with from <= t <= to; zero bounds are open.
func clipRange(raw models.RawTable, from, to time.Time) models.RawTable {
	if from.IsZero() && to.IsZero() {
		return raw
	}
	out := models.RawTable{Columns: raw.Columns}
	for i, t := range raw.Times {
		if (!from.IsZero() && t.Before(from)) || (!to.IsZero() && t.After(to)) {
			continue
		}
		out.Times = append(out.Times, t)
		out.Values = append(out.Values, raw.Values[i])
	}
	return out
}
