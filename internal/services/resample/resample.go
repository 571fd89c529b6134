// Package resample downsamples raw OHLC(V) rows into fixed-width buckets.
package resample

import (
	"fmt"
	"time"

	"TFoldSV/internal/domain/models"
	"TFoldSV/internal/domain/repository"
)

// Options configures a resample call.
type Options struct {
	Interval  repository.Interval
	AutoNames bool
	ColNames  []string
}

// Resample aggregates raw into buckets of opts.Interval: first open, max high, min low,
// last close and summed volume. Buckets without rows are dropped. Buckets are aligned to
// UTC boundaries and the output is in UTC. raw is never modified.
func Resample(raw models.RawTable, opts Options) (models.Table, error) {
	width := opts.Interval.Duration()
	if width <= 0 {
		return models.Table{}, fmt.Errorf("%w: unsupported interval %q", models.ErrConfig, opts.Interval)
	}
	schema, err := ResolveSchema(raw.Columns, opts)
	if err != nil {
		return models.Table{}, err
	}
	if err := validateRows(raw); err != nil {
		return models.Table{}, err
	}
	if native := NativeSpacing(raw.Times); native > 0 && width < native {
		return models.Table{}, fmt.Errorf("%w: target %s (%s) is finer than source spacing %s",
			models.ErrResampleDirection, opts.Interval, width, native)
	}

	out := models.Table{Bars: make([]models.Bar, 0, estimateBuckets(raw.Times, width)), HasVolume: schema.HasVolume}
	for i, ts := range raw.Times {
		bucket := ts.UTC().Truncate(width)
		o, h, l, c, v := schema.bar(raw.Values[i])
		last := len(out.Bars) - 1
		if last < 0 || !out.Bars[last].Time.Equal(bucket) {
			out.Bars = append(out.Bars, models.Bar{Time: bucket, Open: o, High: h, Low: l, Close: c, Volume: v})
			continue
		}
		b := &out.Bars[last]
		if h > b.High {
			b.High = h
		}
		if l < b.Low {
			b.Low = l
		}
		b.Close = c
		b.Volume += v
	}
	return out, nil
}

// NativeSpacing returns the smallest positive gap between consecutive timestamps,
// or 0 when it cannot be determined.
func NativeSpacing(times []time.Time) time.Duration {
	var smallest time.Duration
	for i := 1; i < len(times); i++ {
		d := times[i].Sub(times[i-1])
		if d <= 0 {
			continue
		}
		if smallest == 0 || d < smallest {
			smallest = d
		}
	}
	return smallest
}

func validateRows(raw models.RawTable) error {
	if len(raw.Times) != len(raw.Values) {
		return fmt.Errorf("%w: %d timestamps for %d rows", models.ErrSchema, len(raw.Times), len(raw.Values))
	}
	want := len(raw.Columns) - 1
	for i, row := range raw.Values {
		if len(row) != want {
			return fmt.Errorf("%w: row %d has %d values, want %d", models.ErrSchema, i, len(row), want)
		}
		if i > 0 && raw.Times[i].Before(raw.Times[i-1]) {
			return fmt.Errorf("%w: timestamps not ascending at row %d", models.ErrSchema, i)
		}
	}
	return nil
}

func estimateBuckets(times []time.Time, width time.Duration) int {
	if len(times) < 2 {
		return len(times)
	}
	n := int(times[len(times)-1].Sub(times[0])/width) + 1
	if n > len(times) || n <= 0 {
		return len(times)
	}
	return n
}
