// Package labels derives the target variable of every row in a fold.
package labels

import (
	"fmt"
	"strings"
	"time"

	"TFoldSV/internal/domain/models"
)

// Mode selects the labeling function.
type Mode string

const (
	// Continuous labels a row with close - open.
	Continuous Mode = "continuous"
	// Binary labels a row with 1 when close > open and 0 otherwise. {0,1} rather than
	// {-1,1} keeps downstream cost functions numerically stable.
	Binary Mode = "binary"
)

var modeAliases = map[string]Mode{
	"continuous": Continuous, "co": Continuous,
	"binary": Binary, "b_co": Binary,
}

// Modes returns the supported modes.
func Modes() []Mode { return []Mode{Continuous, Binary} }

// ParseMode converts a raw mode name or alias into a Mode.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: unsupported label %q, accepted: continuous (co), binary (b_co)", models.ErrConfig, s)
}

// Label computes one label per row of table, keeping its order and index.
func Label(table models.Table, mode Mode) (models.LabelSeries, error) {
	var f func(b models.Bar) float64
	switch mode {
	case Continuous:
		f = func(b models.Bar) float64 { return b.Close - b.Open }
	case Binary:
		f = func(b models.Bar) float64 {
			if b.Close > b.Open {
				return 1
			}
			return 0
		}
	default:
		return models.LabelSeries{}, fmt.Errorf("%w: unsupported label %q", models.ErrConfig, mode)
	}

	out := models.LabelSeries{
		Mode:   string(mode),
		Index:  make([]time.Time, table.Len()),
		Values: make([]float64, table.Len()),
	}
	for i, b := range table.Bars {
		out.Index[i] = b.Time
		out.Values[i] = f(b)
	}
	return out, nil
}
