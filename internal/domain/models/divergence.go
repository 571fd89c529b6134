package models

import "time"

// LabelSeries is a target variable aligned 1:1 with the rows of a fold.
type LabelSeries struct {
	Mode   string      `json:"mode"`
	Index  []time.Time `json:"index"`
	Values []float64   `json:"values"`
}

// Len returns the number of labels.
func (l LabelSeries) Len() int { return len(l.Values) }

// DistributionFit holds Gamma parameters in shape/rate form.
type DistributionFit struct {
	Alpha float64 `json:"alpha"` // shape, a.k.a. k
	Beta  float64 `json:"beta"`  // rate, 1/theta
}

// Theta returns the scale parameter.
func (d DistributionFit) Theta() float64 { return 1 / d.Beta }

// FoldPair is an ordered pair of fold keys; divergence is computed as KLD(From||To).
type FoldPair struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

func (p FoldPair) String() string { return p.From + ":" + p.To }

// DivergenceScore is the divergence of one fold's labels from another's.
type DivergenceScore struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	Distribution string  `json:"distribution"`
	Value        float64 `json:"value"`
}

// Pair returns the ordered pair the score was computed for.
func (s DivergenceScore) Pair() FoldPair { return FoldPair{From: s.From, To: s.To} }
