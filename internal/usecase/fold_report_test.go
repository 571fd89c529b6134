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
	"TFoldSV/pkg/cache"
)

type fakeSource struct {
	raw   models.RawTable
	err   error
	calls int
	last  domrepo.BarQuery
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) LoadBars(_ context.Context, q domrepo.BarQuery) (models.RawTable, error) {
	s.calls++
	s.last = q
	return s.raw, s.err
}

type fakeStore struct {
	mu     sync.Mutex
	runID  string
	scores []models.DivergenceScore
	err    error
}

func (s *fakeStore) StoreScores(_ context.Context, runID, _ string, scores []models.DivergenceScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID, s.scores = runID, scores
	return s.err
}

func (s *fakeStore) Close() error { return nil }

type fakePublisher struct {
	keys []string
}

func (p *fakePublisher) PublishReport(_ context.Context, key string, _ interface{}) error {
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func reportDefaults() ReportDefaults {
	return ReportDefaults{
		Symbol:       "MXNUSD",
		Interval:     "D",
		FoldSize:     "year",
		Label:        "continuous",
		Distribution: "gamma",
		Shift:        true,
		AutoNames:    true,
		Workers:      2,
	}
}

func TestFoldReportGenerate(t *testing.T) {
	src := &fakeSource{raw: threeYears()}
	store := &fakeStore{}
	pub := &fakePublisher{}
	uc := NewFoldReportUseCase(src, NewFoldPipeline(),
		WithReportDefaults(reportDefaults()),
		WithScoreStore(store),
		WithReportPublisher(pub),
	)

	rep, err := uc.Generate(context.Background(), models.FoldReportRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, "fake", rep.Source)
	assert.Equal(t, "MXNUSD", rep.Symbol)
	assert.Equal(t, "D", rep.Interval)
	assert.Equal(t, "year", rep.FoldSize)
	assert.Equal(t, "continuous", rep.Label)
	assert.True(t, rep.Shift)
	assert.Equal(t, 3*365, rep.RawRows)
	assert.Len(t, rep.Folds, 3)
	assert.Len(t, rep.Scores, 6)
	assert.False(t, rep.Cached)

	assert.Equal(t, rep.RunID, store.runID)
	assert.Equal(t, rep.Scores, store.scores)
	assert.Equal(t, []string{rep.RunID}, pub.keys)
	assert.Equal(t, "MXNUSD", src.last.Symbol)
}

func TestFoldReportRequestOverridesDefaults(t *testing.T) {
	src := &fakeSource{raw: threeYears()}
	uc := NewFoldReportUseCase(src, nil, WithReportDefaults(reportDefaults()))

	noShift := false
	rep, err := uc.Generate(context.Background(), models.FoldReportRequest{
		FoldSize: "80-20",
		Label:    "b_co",
		Shift:    &noShift,
		Pairs:    []models.FoldPair{{From: "h_8", To: "h_2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "holdout-80-20", rep.FoldSize)
	assert.Equal(t, "binary", rep.Label)
	assert.False(t, rep.Shift)
	// Three years give 2 train and 0 validation years.
	assert.Equal(t, []int{2012}, rep.ExcludedYears)
	assert.Empty(t, rep.Scores)
	assert.Contains(t, rep.Errors, "h_8:h_2")
}

func TestFoldReportServesFromCache(t *testing.T) {
	src := &fakeSource{raw: threeYears()}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	uc := NewFoldReportUseCase(src, NewFoldPipeline(),
		WithReportDefaults(reportDefaults()),
		WithReportCache(mem, time.Minute),
	)
	ctx := context.Background()

	first, err := uc.Generate(ctx, models.FoldReportRequest{})
	require.NoError(t, err)
	second, err := uc.Generate(ctx, models.FoldReportRequest{Interval: "1D"})
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Scores, second.Scores)

	third, err := uc.Generate(ctx, models.FoldReportRequest{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.NotEqual(t, first.RunID, third.RunID)

	_, err = uc.Generate(ctx, models.FoldReportRequest{FoldSize: "quarter"})
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestFoldReportErrors(t *testing.T) {
	ctx := context.Background()

	uc := NewFoldReportUseCase(&fakeSource{raw: threeYears()}, nil, WithReportDefaults(reportDefaults()))
	_, err := uc.Generate(ctx, models.FoldReportRequest{Interval: "W"})
	assert.ErrorIs(t, err, models.ErrConfig)

	_, err = uc.Generate(ctx, models.FoldReportRequest{Interval: "M1"})
	assert.ErrorIs(t, err, models.ErrResampleDirection)

	_, err = uc.Generate(ctx, models.FoldReportRequest{
		From: time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, models.ErrConfig)

	boom := errors.New("connection refused")
	uc = NewFoldReportUseCase(&fakeSource{err: boom}, nil)
	_, err = uc.Generate(ctx, models.FoldReportRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestFoldReportStoreFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{err: errors.New("clickhouse down")}
	uc := NewFoldReportUseCase(&fakeSource{raw: threeYears()}, nil,
		WithReportDefaults(reportDefaults()), WithScoreStore(store))
	rep, err := uc.Generate(context.Background(), models.FoldReportRequest{})
	require.NoError(t, err)
	assert.Len(t, rep.Scores, 6)
}

func TestFoldReportOptions(t *testing.T) {
	opts := NewFoldReportUseCase(&fakeSource{}, nil).Options()
	assert.Contains(t, opts.Intervals, "H8")
	assert.Equal(t, []string{"quarter", "semester", "year", "holdout-80-20"}, opts.FoldSizes)
	assert.Equal(t, []string{"continuous", "binary"}, opts.Labels)
	assert.Equal(t, []string{"gamma"}, opts.Distributions)
}

func TestFoldReportValidateDefaults(t *testing.T) {
	uc := NewFoldReportUseCase(&fakeSource{}, nil)
	require.NoError(t, uc.ValidateDefaults())

	d := reportDefaults()
	d.FoldSize = "decade"
	uc = NewFoldReportUseCase(&fakeSource{}, nil, WithReportDefaults(d))
	assert.ErrorIs(t, uc.ValidateDefaults(), models.ErrConfig)
}
