package repository

import (
	"context"

	"TFoldSV/internal/domain/models"
	domrepo "TFoldSV/internal/domain/repository"
	"TFoldSV/internal/services/synthetic"
)

// SyntheticBarSource serves a reproducible random-walk series.
type SyntheticBarSource struct {
	cfg synthetic.Config
}

func NewSyntheticBarSource(cfg synthetic.Config) *SyntheticBarSource {
	return &SyntheticBarSource{cfg: cfg}
}

func (s *SyntheticBarSource) Name() string { return "synthetic" }

func (s *SyntheticBarSource) LoadBars(ctx context.Context, q domrepo.BarQuery) (models.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return models.RawTable{}, err
	}
	return clipRange(synthetic.RawBars(s.cfg), q.From, q.To), nil
}
