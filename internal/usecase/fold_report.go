package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"TFoldSV/internal/domain/models"
	domrepo "TFoldSV/internal/domain/repository"
	"TFoldSV/internal/services/divergence"
	"TFoldSV/internal/services/folds"
	"TFoldSV/internal/services/labels"
	"TFoldSV/internal/services/resample"
	"TFoldSV/pkg/cache"
	"TFoldSV/pkg/logger"
)

const reportCachePrefix = "fold_report"

// ReportDefaults fills the fields a request leaves empty.
type ReportDefaults struct {
	Symbol       string
	Interval     string
	FoldSize     string
	Label        string
	Distribution string
	Shift        bool
	AutoNames    bool
	ColNames     []string
	Workers      int
}

// FoldReportUseCase loads bars from a source, runs the fold pipeline on them and hands
// the report to the cache, the score store and the publisher. Only the source is
// required; the other collaborators are skipped when nil.
type FoldReportUseCase struct {
	source    domrepo.BarSource
	pipeline  *FoldPipeline
	cache     cache.Service
	cacheTTL  time.Duration
	store     domrepo.ScoreStore
	publisher domrepo.ReportPublisher
	defaults  ReportDefaults
	timeout   time.Duration
	log       *logger.Logger
	now       func() time.Time
}

type ReportOption func(*FoldReportUseCase)

func WithReportCache(c cache.Service, ttl time.Duration) ReportOption {
	return func(uc *FoldReportUseCase) {
		uc.cache = c
		uc.cacheTTL = ttl
	}
}

func WithScoreStore(s domrepo.ScoreStore) ReportOption {
	return func(uc *FoldReportUseCase) { uc.store = s }
}

func WithReportPublisher(p domrepo.ReportPublisher) ReportOption {
	return func(uc *FoldReportUseCase) { uc.publisher = p }
}

func WithReportDefaults(d ReportDefaults) ReportOption {
	return func(uc *FoldReportUseCase) { uc.defaults = d }
}

func WithReportTimeout(d time.Duration) ReportOption {
	return func(uc *FoldReportUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

func WithReportLogger(l *logger.Logger) ReportOption {
	return func(uc *FoldReportUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

func NewFoldReportUseCase(source domrepo.BarSource, pipeline *FoldPipeline, opts ...ReportOption) *FoldReportUseCase {
	uc := &FoldReportUseCase{
		source:   source,
		pipeline: pipeline,
		cacheTTL: time.Hour,
		defaults: ReportDefaults{
			Interval:     string(domrepo.DefaultInterval()),
			FoldSize:     string(folds.PolicyYear),
			Label:        string(labels.Binary),
			Distribution: string(divergence.Gamma),
			AutoNames:    true,
		},
		timeout: 2 * time.Minute,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.pipeline == nil {
		uc.pipeline = NewFoldPipeline(WithPipelineLogger(uc.log))
	}
	return uc
}

// reportKey is the normalised request a report is cached under.
type reportKey struct {
	Source       string            `json:"source"`
	Symbol       string            `json:"symbol"`
	From         time.Time         `json:"from"`
	To           time.Time         `json:"to"`
	Interval     domrepo.Interval  `json:"interval"`
	Policy       folds.Policy      `json:"policy"`
	Mode         labels.Mode       `json:"mode"`
	Distribution string            `json:"distribution"`
	Shift        bool              `json:"shift"`
	Pairs        []models.FoldPair `json:"pairs,omitempty"`
}

// Generate produces the report for req, serving it from cache when an identical
// request was answered before.
func (uc *FoldReportUseCase) Generate(ctx context.Context, req models.FoldReportRequest) (*models.FoldReport, error) {
	if uc.source == nil {
		return nil, errors.New("no bar source configured")
	}
	key, params, err := uc.resolve(req)
	if err != nil {
		return nil, err
	}
	log := uc.log.With(logger.String("source", key.Source), logger.String("symbol", key.Symbol))

	cacheKey := ""
	if uc.cache != nil {
		if cacheKey, err = cache.KeyFor(reportCachePrefix, key); err != nil {
			return nil, err
		}
		if !req.NoCache {
			if cached, err := cache.Fetch[models.FoldReport](ctx, uc.cache, cacheKey); err == nil {
				cached.Cached = true
				log.Debug("fold report served from cache", logger.String("run_id", cached.RunID))
				return &cached, nil
			} else if !errors.Is(err, cache.ErrCacheMiss) {
				log.Warn("report cache read failed", logger.Error(err))
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	raw, err := uc.source.LoadBars(ctx, domrepo.BarQuery{Symbol: key.Symbol, From: key.From, To: key.To})
	if err != nil {
		return nil, fmt.Errorf("load bars from %s: %w", key.Source, err)
	}

	res, err := uc.pipeline.Run(ctx, raw, params)
	if err != nil {
		return nil, err
	}

	report := &models.FoldReport{
		RunID:         uuid.NewString(),
		Symbol:        key.Symbol,
		Source:        key.Source,
		Interval:      string(key.Interval),
		FoldSize:      string(key.Policy),
		Label:         string(key.Mode),
		Distribution:  key.Distribution,
		Shift:         key.Shift,
		RawRows:       raw.Len(),
		Rows:          res.Table.Len(),
		Folds:         res.Folds.Summaries(),
		ExcludedYears: res.Folds.Excluded,
		Scores:        res.Scores,
		Errors:        res.Errors,
		GeneratedAt:   uc.now().UTC(),
	}
	log = log.With(logger.String("run_id", report.RunID))

	if uc.store != nil && len(report.Scores) > 0 {
		if err := uc.store.StoreScores(ctx, report.RunID, report.Symbol, report.Scores); err != nil {
			log.Warn("storing divergence scores failed", logger.Error(err))
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishReport(ctx, report.RunID, report); err != nil {
			log.Warn("publishing fold report failed", logger.Error(err))
		}
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, cacheKey, report, uc.cacheTTL); err != nil {
			log.Warn("report cache write failed", logger.Error(err))
		}
	}

	log.Info("fold report generated",
		logger.String("fold_size", report.FoldSize),
		logger.Int("folds", len(report.Folds)),
		logger.Int("scores", len(report.Scores)))
	return report, nil
}

// Options lists the accepted values of every report parameter.
func (uc *FoldReportUseCase) Options() models.FoldOptions {
	out := models.FoldOptions{}
	for _, iv := range domrepo.Intervals() {
		out.Intervals = append(out.Intervals, string(iv))
	}
	for _, p := range folds.Policies() {
		out.FoldSizes = append(out.FoldSizes, string(p))
	}
	for _, m := range labels.Modes() {
		out.Labels = append(out.Labels, string(m))
	}
	for _, d := range divergence.Distributions() {
		out.Distributions = append(out.Distributions, string(d))
	}
	return out
}

// ValidateDefaults reports whether the configured defaults form a valid request.
func (uc *FoldReportUseCase) ValidateDefaults() error {
	if uc.source == nil {
		return errors.New("no bar source configured")
	}
	_, _, err := uc.resolve(models.FoldReportRequest{})
	return err
}

func (uc *FoldReportUseCase) resolve(req models.FoldReportRequest) (reportKey, PipelineParams, error) {
	d := uc.defaults
	key := reportKey{
		Source: uc.source.Name(),
		Symbol: firstNonEmpty(req.Symbol, d.Symbol),
		From:   req.From.UTC(),
		To:     req.To.UTC(),
		Shift:  d.Shift,
		Pairs:  req.Pairs,
	}
	if req.Shift != nil {
		key.Shift = *req.Shift
	}
	if !key.From.IsZero() && !key.To.IsZero() && key.To.Before(key.From) {
		return reportKey{}, PipelineParams{}, fmt.Errorf("%w: range end %s precedes start %s",
			models.ErrConfig, key.To.Format(time.RFC3339), key.From.Format(time.RFC3339))
	}

	var err error
	if key.Interval, err = domrepo.ParseInterval(firstNonEmpty(req.Interval, d.Interval)); err != nil {
		return reportKey{}, PipelineParams{}, err
	}
	if key.Policy, err = folds.ParsePolicy(firstNonEmpty(req.FoldSize, d.FoldSize)); err != nil {
		return reportKey{}, PipelineParams{}, err
	}
	if key.Mode, err = labels.ParseMode(firstNonEmpty(req.Label, d.Label)); err != nil {
		return reportKey{}, PipelineParams{}, err
	}
	dist, err := divergence.ParseDistribution(firstNonEmpty(req.Distribution, d.Distribution))
	if err != nil {
		return reportKey{}, PipelineParams{}, err
	}
	key.Distribution = string(dist)

	params := PipelineParams{
		Resample:     resample.Options{Interval: key.Interval, AutoNames: d.AutoNames, ColNames: d.ColNames},
		Policy:       key.Policy,
		LabelMode:    key.Mode,
		Distribution: dist,
		Shift:        key.Shift,
		Pairs:        req.Pairs,
		Workers:      d.Workers,
	}
	return key, params, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
