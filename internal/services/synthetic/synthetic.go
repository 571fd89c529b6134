// Package synthetic generates reproducible OHLCV series for exploration and tests.
//
// Prices follow a random walk with drift: every intraday step adds N(mu, sigma)/steps
// to the level, and each bar's high/low are the extremes of its path, so
// low <= min(open, close) <= max(open, close) <= high holds by construction.
package synthetic

import (
	"math"
	"math/rand"
	"time"

	"TFoldSV/internal/domain/models"
)

const (
	defSeed  = 123
	defMu    = 0.1
	defSigma = 0.1
	defBase  = 100.0
	defSteps = 4
)

// Config parametrises a generated series. Zero values fall back to defaults.
type Config struct {
	Seed  int64
	Mu    float64
	Sigma float64
	Base  float64
	Start time.Time
	Step  time.Duration
	Bars  int
	Steps int // intraday steps per bar
}

func (c Config) withDefaults() Config {
	if c.Seed == 0 {
		c.Seed = defSeed
	}
	if c.Mu == 0 && c.Sigma == 0 {
		c.Mu, c.Sigma = defMu, defSigma
	}
	if c.Base == 0 {
		c.Base = defBase
	}
	if c.Start.IsZero() {
		c.Start = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.Step <= 0 {
		c.Step = time.Hour
	}
	if c.Steps < 1 {
		c.Steps = defSteps
	}
	return c
}

// RandomWalk returns the cumulative sum of n draws from N(mu, sigma).
func RandomWalk(n int, mu, sigma float64, seed int64) []float64 {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	level := 0.0
	for i := range out {
		level += mu + sigma*rng.NormFloat64()
		out[i] = level
	}
	return out
}

// RawBars builds an OHLCV RawTable with positional column names.
func RawBars(cfg Config) models.RawTable {
	cfg = cfg.withDefaults()
	raw := models.RawTable{Columns: []string{"timestamp", "open", "high", "low", "close", "volume"}}
	if cfg.Bars <= 0 {
		return raw
	}
	raw.Times = make([]time.Time, 0, cfg.Bars)
	raw.Values = make([][]float64, 0, cfg.Bars)

	rng := rand.New(rand.NewSource(cfg.Seed))
	scale := 1 / float64(cfg.Steps)
	level := cfg.Base
	for i := 0; i < cfg.Bars; i++ {
		open := level
		high, low := open, open
		for s := 0; s < cfg.Steps; s++ {
			level += (cfg.Mu + cfg.Sigma*rng.NormFloat64()) * scale
			high = math.Max(high, level)
			low = math.Min(low, level)
		}
		vol := float64(100 + rng.Intn(900))
		raw.Times = append(raw.Times, cfg.Start.Add(time.Duration(i)*cfg.Step))
		raw.Values = append(raw.Values, []float64{open, high, low, level, vol})
	}
	return raw
}
