package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TFoldSV/internal/domain/models"
	pkgch "TFoldSV/pkg/clickhouse"
	applogger "TFoldSV/pkg/logger"
)

const scoreChunkSize = 2000

// Schema returns the DDL for the bar and score tables.
func Schema(database, barsTable, scoresTable string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            ts DateTime64(3, 'UTC'),
            symbol LowCardinality(String),
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, ts)`, barsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            run_id UUID,
            symbol LowCardinality(String),
            from_fold String,
            to_fold String,
            distribution LowCardinality(String),
            value Float64,
            created_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        ORDER BY (symbol, created_at, run_id)`, scoresTable),
	}
}

// CHScoreStore appends divergence scores to a ClickHouse table.
type CHScoreStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

func NewCHScoreStore(ch *pkgch.Client, table string) *CHScoreStore {
	return &CHScoreStore{db: ch.DB(), table: table, l: applogger.Nop(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHScoreStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// StoreScores inserts scores in multi-row VALUES chunks.
func (s *CHScoreStore) StoreScores(ctx context.Context, runID, symbol string, scores []models.DivergenceScore) error {
	at := s.now().UTC()
	for start := 0; start < len(scores); start += scoreChunkSize {
		end := min(start+scoreChunkSize, len(scores))
		q, args := scoreInsert(s.table, runID, symbol, scores[start:end], at)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_scores error",
				applogger.String("table", s.table),
				applogger.String("run_id", runID),
				applogger.Error(err),
			)
			return fmt.Errorf("store scores: %w", err)
		}
	}
	s.l.Debug("clickhouse store_scores ok",
		applogger.String("run_id", runID),
		applogger.Int("rows", len(scores)),
	)
	return nil
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *CHScoreStore) Close() error { return nil }

func scoreInsert(table, runID, symbol string, scores []models.DivergenceScore, at time.Time) (string, []interface{}) {
	values := make([]string, 0, len(scores))
	args := make([]interface{}, 0, len(scores)*7)
	for _, sc := range scores {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, runID, symbol, sc.From, sc.To, sc.Distribution, sc.Value, at)
	}
	q := fmt.Sprintf("INSERT INTO %s (run_id, symbol, from_fold, to_fold, distribution, value, created_at) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}
