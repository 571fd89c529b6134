package models

import "time"

// Bar is a single OHLCV record. OHLC sanity (high >= low, ...) is assumed from the source
// and never re-validated here.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

// Table is an ordered sequence of bars with strictly increasing timestamps.
type Table struct {
	Bars      []Bar `json:"bars"`
	HasVolume bool  `json:"has_volume"`
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Bars) }

// Slice returns a table sharing the bars in [i, j). Callers must not mutate the result.
func (t Table) Slice(i, j int) Table {
	return Table{Bars: t.Bars[i:j], HasVolume: t.HasVolume}
}

// RawTable is what an ingestion collaborator hands to the core: named columns
// (timestamp included) plus the numeric cells of every row in column order.
type RawTable struct {
	Columns []string
	Times   []time.Time
	Values  [][]float64
}

// Len returns the number of rows.
func (r RawTable) Len() int { return len(r.Times) }
