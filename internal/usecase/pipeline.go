package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"TFoldSV/internal/domain/models"
	domrepo "TFoldSV/internal/domain/repository"
	"TFoldSV/internal/services/divergence"
	"TFoldSV/internal/services/folds"
	"TFoldSV/internal/services/labels"
	"TFoldSV/internal/services/resample"
	"TFoldSV/pkg/logger"
)

const defaultWorkers = 4

// PipelineParams configures one run of the fold pipeline.
type PipelineParams struct {
	Resample     resample.Options
	Policy       folds.Policy
	LabelMode    labels.Mode
	Distribution divergence.Distribution
	Shift        bool
	// Pairs restricts divergence to these ordered pairs. Empty means every ordered pair
	// of distinct folds.
	Pairs   []models.FoldPair
	Workers int
}

// PipelineResult is everything one run produced. Errors maps a fold key or a
// "from:to" pair key to the failure that prevented its result.
type PipelineResult struct {
	Table  models.Table                  `json:"-"`
	Folds  models.FoldSet                `json:"folds"`
	Labels map[string]models.LabelSeries `json:"-"`
	Scores []models.DivergenceScore      `json:"scores"`
	Errors map[string]string             `json:"errors,omitempty"`
}

// FoldPipeline runs resample, partition, label and divergence in sequence, fanning out
// per fold and per pair on a bounded pool.
type FoldPipeline struct {
	log     *logger.Logger
	metrics domrepo.Metrics
}

type PipelineOption func(*FoldPipeline)

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *FoldPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *FoldPipeline) { p.metrics = m }
}

func NewFoldPipeline(opts ...PipelineOption) *FoldPipeline {
	p := &FoldPipeline{log: logger.Nop(), metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	return p
}

// Run executes the pipeline on raw. Resample and partition failures abort the run;
// labeling and divergence failures are recorded per key and the rest still complete.
// Policy, interval, label and distribution aliases are normalised first.
func (p *FoldPipeline) Run(ctx context.Context, raw models.RawTable, params PipelineParams) (*PipelineResult, error) {
	start := time.Now()
	defer func() { p.metrics.RecordLatency("pipeline", time.Since(start).Seconds()) }()

	if params.Distribution == "" {
		params.Distribution = divergence.Gamma
	}
	dist, err := divergence.ParseDistribution(string(params.Distribution))
	if err != nil {
		p.metrics.RecordError("config")
		return nil, err
	}
	mode, err := labels.ParseMode(string(params.LabelMode))
	if err != nil {
		p.metrics.RecordError("config")
		return nil, err
	}
	policy, err := folds.ParsePolicy(string(params.Policy))
	if err != nil {
		p.metrics.RecordError("config")
		return nil, err
	}
	if params.Resample.Interval != "" {
		if params.Resample.Interval, err = domrepo.ParseInterval(string(params.Resample.Interval)); err != nil {
			p.metrics.RecordError("config")
			return nil, err
		}
	}
	params.Distribution, params.LabelMode, params.Policy = dist, mode, policy

	p.metrics.RecordRows("raw", raw.Len())
	table, err := resample.Resample(raw, params.Resample)
	if err != nil {
		p.metrics.RecordError(errorKind(err))
		return nil, fmt.Errorf("resample: %w", err)
	}
	p.metrics.RecordRows("resampled", table.Len())

	set, err := folds.FormFolds(table, params.Policy)
	if err != nil {
		p.metrics.RecordError(errorKind(err))
		return nil, fmt.Errorf("form folds: %w", err)
	}
	p.metrics.RecordFolds(set.Policy, set.Len())
	if len(set.Excluded) > 0 {
		p.log.Warn("holdout remainder years excluded",
			logger.String("policy", set.Policy),
			logger.Any("years", set.Excluded))
	}

	res := &PipelineResult{
		Table:  table,
		Folds:  set,
		Labels: make(map[string]models.LabelSeries, set.Len()),
		Scores: []models.DivergenceScore{},
		Errors: map[string]string{},
	}

	workers := params.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	if err := p.labelFolds(ctx, res, params.LabelMode, workers); err != nil {
		return nil, err
	}
	if err := p.scorePairs(ctx, res, params, workers); err != nil {
		return nil, err
	}

	p.log.Info("fold pipeline finished",
		logger.String("policy", set.Policy),
		logger.Int("rows", table.Len()),
		logger.Int("folds", set.Len()),
		logger.Int("scores", len(res.Scores)),
		logger.Int("errors", len(res.Errors)),
		logger.Duration("duration_ms", time.Since(start)))
	return res, nil
}

func (p *FoldPipeline) labelFolds(ctx context.Context, res *PipelineResult, mode labels.Mode, workers int) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, key := range res.Folds.Keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table, _ := res.Folds.Get(key)
			series, err := labels.Label(table, mode)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.fail(res, key, err)
				return nil
			}
			res.Labels[key] = series
			return nil
		})
	}
	return g.Wait()
}

func (p *FoldPipeline) scorePairs(ctx context.Context, res *PipelineResult, params PipelineParams, workers int) error {
	pairs := params.Pairs
	if len(pairs) == 0 {
		pairs = AllPairs(res.Folds.Keys)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			value, err := p.score(res, pair, params)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.fail(res, pair.String(), err)
				return nil
			}
			res.Scores = append(res.Scores, models.DivergenceScore{
				From:         pair.From,
				To:           pair.To,
				Distribution: string(params.Distribution),
				Value:        value,
			})
			p.metrics.RecordDivergence(string(params.Distribution), value)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sortScores(res.Scores, res.Folds.Keys)
	return nil
}

// score reads the labels map without the lock: labelFolds has finished writing it.
func (p *FoldPipeline) score(res *PipelineResult, pair models.FoldPair, params PipelineParams) (float64, error) {
	from, err := foldLabels(res, pair.From)
	if err != nil {
		return 0, err
	}
	to, err := foldLabels(res, pair.To)
	if err != nil {
		return 0, err
	}
	return divergence.FitAndDiverge(from.Values, to.Values, params.Distribution, params.Shift)
}

func foldLabels(res *PipelineResult, key string) (models.LabelSeries, error) {
	if _, ok := res.Folds.Get(key); !ok {
		return models.LabelSeries{}, fmt.Errorf("%w: unknown fold %q", models.ErrConfig, key)
	}
	series, ok := res.Labels[key]
	if !ok {
		return models.LabelSeries{}, fmt.Errorf("fold %q has no labels", key)
	}
	return series, nil
}

// fail records err under key. Callers hold the result lock.
func (p *FoldPipeline) fail(res *PipelineResult, key string, err error) {
	err = &models.FoldError{Key: key, Err: err}
	res.Errors[key] = err.Error()
	p.metrics.RecordError(errorKind(err))
	p.log.Warn("fold step failed", logger.String("key", key), logger.Error(err))
}

// AllPairs returns every ordered pair of distinct keys, in key order.
func AllPairs(keys []string) []models.FoldPair {
	if len(keys) < 2 {
		return nil
	}
	out := make([]models.FoldPair, 0, len(keys)*(len(keys)-1))
	for _, from := range keys {
		for _, to := range keys {
			if from != to {
				out = append(out, models.FoldPair{From: from, To: to})
			}
		}
	}
	return out
}

func sortScores(scores []models.DivergenceScore, keys []string) {
	rank := make(map[string]int, len(keys))
	for i, k := range keys {
		rank[k] = i
	}
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if rank[a.From] != rank[b.From] {
			return rank[a.From] < rank[b.From]
		}
		return rank[a.To] < rank[b.To]
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrSchema):
		return "schema"
	case errors.Is(err, models.ErrResampleDirection):
		return "resample_direction"
	case errors.Is(err, models.ErrConfig):
		return "config"
	case errors.Is(err, models.ErrDegenerateSample):
		return "degenerate_sample"
	default:
		return "internal"
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordRows(string, int)           {}
func (nopMetrics) RecordFolds(string, int)          {}
func (nopMetrics) RecordDivergence(string, float64) {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLatency(string, float64)    {}
