package models

import "time"

// FoldSet holds the folds produced by one partitioning call.
// Keys lists fold keys in chronological order.
type FoldSet struct {
	Policy   string           `json:"policy"`
	Keys     []string         `json:"keys"`
	Tables   map[string]Table `json:"-"`
	Excluded []int            `json:"excluded_years,omitempty"`
}

// NewFoldSet returns an empty set for policy.
func NewFoldSet(policy string) FoldSet {
	return FoldSet{Policy: policy, Keys: []string{}, Tables: map[string]Table{}}
}

// Len returns the number of folds.
func (f FoldSet) Len() int { return len(f.Keys) }

// Get returns the fold stored under key.
func (f FoldSet) Get(key string) (Table, bool) {
	t, ok := f.Tables[key]
	return t, ok
}

// Rows returns the total number of rows across all folds.
func (f FoldSet) Rows() int {
	n := 0
	for _, t := range f.Tables {
		n += t.Len()
	}
	return n
}

// FoldSummary describes a fold without its rows.
type FoldSummary struct {
	Key   string    `json:"key"`
	Rows  int       `json:"rows"`
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Summaries returns per-fold summaries in key order.
func (f FoldSet) Summaries() []FoldSummary {
	out := make([]FoldSummary, 0, len(f.Keys))
	for _, k := range f.Keys {
		t := f.Tables[k]
		s := FoldSummary{Key: k, Rows: t.Len()}
		if t.Len() > 0 {
			s.Start = t.Bars[0].Time
			s.End = t.Bars[t.Len()-1].Time
		}
		out = append(out, s)
	}
	return out
}
