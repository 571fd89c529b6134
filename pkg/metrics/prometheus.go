package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	rows        *prometheus.CounterVec
	folds       *prometheus.GaugeVec
	divergence  *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the pipeline metrics on reg. A nil reg means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		rows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfold_rows_total",
				Help: "Rows seen per pipeline stage",
			},
			[]string{"stage"},
		),
		folds: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tfold_folds",
				Help: "Folds produced by the last run per policy",
			},
			[]string{"policy"},
		),
		divergence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tfold_divergence",
				Help:    "Divergence scores between folds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"distribution"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfold_errors_total",
				Help: "Pipeline errors by kind",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tfold_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRows adds n rows seen at stage.
func (r *Recorder) RecordRows(stage string, n int) {
	r.rows.WithLabelValues(stage).Add(float64(n))
}

// RecordFolds sets the fold count of the last run for policy.
func (r *Recorder) RecordFolds(policy string, n int) {
	r.folds.WithLabelValues(policy).Set(float64(n))
}

// RecordDivergence observes one divergence score.
func (r *Recorder) RecordDivergence(distribution string, value float64) {
	r.divergence.WithLabelValues(distribution).Observe(value)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
