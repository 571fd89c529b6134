package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TFoldSV/internal/domain/models"
	domrepo "TFoldSV/internal/domain/repository"
	"TFoldSV/internal/services/divergence"
	"TFoldSV/internal/services/folds"
	"TFoldSV/internal/services/labels"
	"TFoldSV/internal/services/resample"
	"TFoldSV/internal/services/synthetic"
)

// threeYears is daily synthetic data spanning 2010..2012.
func threeYears() models.RawTable {
	return synthetic.RawBars(synthetic.Config{Step: 24 * time.Hour, Bars: 3 * 365})
}

func yearParams(workers int) PipelineParams {
	return PipelineParams{
		Resample:     resample.Options{Interval: domrepo.IntervalD, AutoNames: true},
		Policy:       folds.PolicyYear,
		LabelMode:    labels.Continuous,
		Distribution: divergence.Gamma,
		Shift:        true,
		Workers:      workers,
	}
}

// mixedYears builds binary-label fixtures: every 2010 bar closes up, so its labels
// have zero variance; 2011 and 2012 alternate.
func mixedYears() models.RawTable {
	raw := models.RawTable{Columns: []string{"timestamp", "open", "high", "low", "close"}}
	add := func(year int, up []bool) {
		for i, u := range up {
			closePx := 0.9
			if u {
				closePx = 1.1
			}
			raw.Times = append(raw.Times, time.Date(year, 3, 1+i, 0, 0, 0, 0, time.UTC))
			raw.Values = append(raw.Values, []float64{1, 1.2, 0.8, closePx})
		}
	}
	add(2010, []bool{true, true, true, true, true, true})
	add(2011, []bool{true, false, true, false, true, false})
	add(2012, []bool{true, true, false, true, true, false})
	return raw
}

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	scores int
	folds  int
}

func newCountingMetrics() *countingMetrics { return &countingMetrics{errors: map[string]int{}} }

func (m *countingMetrics) RecordRows(string, int) {}
func (m *countingMetrics) RecordFolds(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folds = n
}
func (m *countingMetrics) RecordDivergence(string, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores++
}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}
func (m *countingMetrics) RecordLatency(string, float64) {}

func TestFoldPipelineRunAllPairs(t *testing.T) {
	res, err := NewFoldPipeline().Run(context.Background(), threeYears(), yearParams(4))
	require.NoError(t, err)

	assert.Equal(t, []string{"y_2010", "y_2011", "y_2012"}, res.Folds.Keys)
	assert.Equal(t, res.Table.Len(), res.Folds.Rows())
	assert.Empty(t, res.Errors)
	require.Len(t, res.Scores, 6)

	want := AllPairs(res.Folds.Keys)
	for i, s := range res.Scores {
		assert.Equal(t, want[i], s.Pair())
		assert.Equal(t, "gamma", s.Distribution)
		assert.GreaterOrEqual(t, s.Value, 0.0)
	}
	for _, key := range res.Folds.Keys {
		table, _ := res.Folds.Get(key)
		assert.Equal(t, table.Len(), res.Labels[key].Len())
	}
}

func TestFoldPipelineDeterministicAcrossWorkers(t *testing.T) {
	raw := threeYears()
	one, err := NewFoldPipeline().Run(context.Background(), raw, yearParams(1))
	require.NoError(t, err)
	many, err := NewFoldPipeline().Run(context.Background(), raw, yearParams(16))
	require.NoError(t, err)
	assert.Equal(t, one.Scores, many.Scores)
}

func TestFoldPipelineExplicitPairs(t *testing.T) {
	params := yearParams(2)
	params.Pairs = []models.FoldPair{
		{From: "y_2012", To: "y_2010"},
		{From: "y_2010", To: "y_2099"},
	}
	res, err := NewFoldPipeline().Run(context.Background(), threeYears(), params)
	require.NoError(t, err)

	require.Len(t, res.Scores, 1)
	assert.Equal(t, models.FoldPair{From: "y_2012", To: "y_2010"}, res.Scores[0].Pair())
	require.Contains(t, res.Errors, "y_2010:y_2099")
	assert.Contains(t, res.Errors["y_2010:y_2099"], "unknown fold")
}

func TestFoldPipelineDegenerateFoldsAreReportedPerPair(t *testing.T) {
	m := newCountingMetrics()
	params := PipelineParams{
		Resample:  resample.Options{Interval: domrepo.IntervalD},
		Policy:    folds.PolicyYear,
		LabelMode: labels.Binary,
	}
	res, err := NewFoldPipeline(WithPipelineMetrics(m)).Run(context.Background(), mixedYears(), params)
	require.NoError(t, err)

	assert.Equal(t, 3, m.folds)
	require.Len(t, res.Scores, 2)
	assert.Equal(t, models.FoldPair{From: "y_2011", To: "y_2012"}, res.Scores[0].Pair())
	assert.Equal(t, models.FoldPair{From: "y_2012", To: "y_2011"}, res.Scores[1].Pair())
	assert.Len(t, res.Errors, 4)
	for _, key := range []string{"y_2010:y_2011", "y_2010:y_2012", "y_2011:y_2010", "y_2012:y_2010"} {
		assert.Contains(t, res.Errors, key)
	}
	assert.Equal(t, 4, m.errors["degenerate_sample"])
	assert.Equal(t, 2, m.scores)
}

func TestFoldPipelineAbortsOnResampleErrors(t *testing.T) {
	params := yearParams(2)
	params.Resample.Interval = domrepo.IntervalH1
	_, err := NewFoldPipeline().Run(context.Background(), threeYears(), params)
	assert.True(t, errors.Is(err, models.ErrResampleDirection))

	raw := threeYears()
	raw.Columns = raw.Columns[:3]
	params = yearParams(2)
	params.Resample.AutoNames = false
	_, err = NewFoldPipeline().Run(context.Background(), raw, params)
	assert.True(t, errors.Is(err, models.ErrSchema))
}

func TestFoldPipelineRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*PipelineParams){
		"label":        func(p *PipelineParams) { p.LabelMode = "log_return" },
		"distribution": func(p *PipelineParams) { p.Distribution = "weibull" },
		"policy":       func(p *PipelineParams) { p.Policy = "monthly" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			params := yearParams(1)
			mutate(&params)
			_, err := NewFoldPipeline().Run(context.Background(), threeYears(), params)
			assert.True(t, errors.Is(err, models.ErrConfig), "got %v", err)
		})
	}
}

func TestFoldPipelineAcceptsAliases(t *testing.T) {
	params := yearParams(2)
	params.LabelMode = "co"
	params.Distribution = "GAMMA"
	params.Policy = "y"
	params.Resample.Interval = "1d"
	res, err := NewFoldPipeline().Run(context.Background(), threeYears(), params)
	require.NoError(t, err)
	assert.Equal(t, "continuous", res.Labels["y_2010"].Mode)
	assert.Equal(t, "year", res.Folds.Policy)
	assert.Len(t, res.Scores, 6)
}

func TestFoldPipelineEmptyInput(t *testing.T) {
	raw := models.RawTable{Columns: []string{"timestamp", "open", "high", "low", "close"}}
	res, err := NewFoldPipeline().Run(context.Background(), raw, yearParams(1))
	require.NoError(t, err)
	assert.Zero(t, res.Folds.Len())
	assert.Empty(t, res.Scores)
}

func TestFoldPipelineCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFoldPipeline().Run(ctx, threeYears(), yearParams(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAllPairs(t *testing.T) {
	assert.Nil(t, AllPairs([]string{"a"}))
	assert.Equal(t, []models.FoldPair{
		{From: "a", To: "b"}, {From: "a", To: "c"},
		{From: "b", To: "a"}, {From: "b", To: "c"},
		{From: "c", To: "a"}, {From: "c", To: "b"},
	}, AllPairs([]string{"a", "b", "c"}))
}
