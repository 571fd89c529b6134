package repository

import (
	"context"
	"time"

	"TFoldSV/internal/domain/models"
)

// BarQuery selects the raw bars a report is computed from. Sources that serve a single
// series (CSV files, synthetic data) ignore Symbol; zero From/To mean unbounded.
type BarQuery struct {
	Symbol string
	From   time.Time
	To     time.Time
}

// BarSource is the ingestion collaborator: it yields validated OHLC(V) rows.
type BarSource interface {
	Name() string
	LoadBars(ctx context.Context, q BarQuery) (models.RawTable, error)
}

// ScoreStore persists divergence scores of a report run.
type ScoreStore interface {
	StoreScores(ctx context.Context, runID, symbol string, scores []models.DivergenceScore) error
	Close() error
}

// ReportPublisher ships finished reports to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, key string, report interface{}) error
	Close() error
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordRows(stage string, n int)
	RecordFolds(policy string, n int)
	RecordDivergence(distribution string, value float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
