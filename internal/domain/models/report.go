package models

import "time"

// FoldReportRequest asks for one fold-divergence report. Empty fields fall back to the
// configured pipeline defaults.
type FoldReportRequest struct {
	Symbol       string     `json:"symbol" validate:"omitempty,max=32"`
	From         time.Time  `json:"from,omitempty"`
	To           time.Time  `json:"to,omitempty"`
	Interval     string     `json:"interval" validate:"omitempty,max=8"`
	FoldSize     string     `json:"fold_size" validate:"omitempty,max=16"`
	Label        string     `json:"label" validate:"omitempty,max=16"`
	Distribution string     `json:"distribution" default:"gamma" validate:"omitempty,max=16"`
	Shift        *bool      `json:"shift,omitempty"`
	Pairs        []FoldPair `json:"pairs,omitempty" validate:"omitempty,max=256,dive"`
	NoCache      bool       `json:"no_cache,omitempty"`
}

// FoldReport is the outcome of one report run.
type FoldReport struct {
	RunID         string            `json:"run_id"`
	Symbol        string            `json:"symbol,omitempty"`
	Source        string            `json:"source"`
	Interval      string            `json:"interval"`
	FoldSize      string            `json:"fold_size"`
	Label         string            `json:"label"`
	Distribution  string            `json:"distribution"`
	Shift         bool              `json:"shift"`
	RawRows       int               `json:"raw_rows"`
	Rows          int               `json:"rows"`
	Folds         []FoldSummary     `json:"folds"`
	ExcludedYears []int             `json:"excluded_years,omitempty"`
	Scores        []DivergenceScore `json:"scores"`
	Errors        map[string]string `json:"errors,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Cached        bool              `json:"cached"`
}

// FoldOptions lists the accepted values of every report parameter.
type FoldOptions struct {
	Intervals     []string `json:"intervals"`
	FoldSizes     []string `json:"fold_sizes"`
	Labels        []string `json:"labels"`
	Distributions []string `json:"distributions"`
}
