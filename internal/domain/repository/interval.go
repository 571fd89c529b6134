package repository

import (
	"fmt"
	"strings"
	"time"

	"TFoldSV/internal/domain/models"
)

// Interval is a fixed-width bar resolution.
type Interval string

const (
	IntervalM1  Interval = "M1"
	IntervalM5  Interval = "M5"
	IntervalM15 Interval = "M15"
	IntervalM30 Interval = "M30"
	IntervalH1  Interval = "H1"
	IntervalH4  Interval = "H4"
	IntervalH8  Interval = "H8"
	IntervalD   Interval = "D"
)

var intervalWidths = map[Interval]time.Duration{
	IntervalM1:  time.Minute,
	IntervalM5:  5 * time.Minute,
	IntervalM15: 15 * time.Minute,
	IntervalM30: 30 * time.Minute,
	IntervalH1:  time.Hour,
	IntervalH4:  4 * time.Hour,
	IntervalH8:  8 * time.Hour,
	IntervalD:   24 * time.Hour,
}

// pandas-style offsets ("8H", "1D", ...).
var intervalAliases = map[string]Interval{
	"1MIN": IntervalM1, "1T": IntervalM1,
	"5MIN": IntervalM5, "5T": IntervalM5,
	"15MIN": IntervalM15, "15T": IntervalM15,
	"30MIN": IntervalM30, "30T": IntervalM30,
	"1H": IntervalH1, "H": IntervalH1,
	"4H": IntervalH4,
	"8H": IntervalH8,
	"1D": IntervalD, "D1": IntervalD,
}

// Intervals returns the supported intervals from finest to coarsest.
func Intervals() []Interval {
	return []Interval{IntervalM1, IntervalM5, IntervalM15, IntervalM30, IntervalH1, IntervalH4, IntervalH8, IntervalD}
}

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	_, ok := intervalWidths[iv]
	return ok
}

// Duration returns the bucket width, or 0 for an unsupported interval.
func (iv Interval) Duration() time.Duration { return intervalWidths[iv] }

// DefaultInterval is used when no interval is configured.
func DefaultInterval() Interval { return IntervalH8 }

// ParseInterval converts a raw string (canonical name or pandas alias) to an Interval.
func ParseInterval(s string) (Interval, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return DefaultInterval(), nil
	}
	if iv := Interval(raw); IsValidInterval(iv) {
		return iv, nil
	}
	if iv, ok := intervalAliases[raw]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("%w: unsupported interval %q", models.ErrConfig, s)
}
