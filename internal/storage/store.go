package storage

import (
	"context"

	"gazepomdp/internal/model"
)

// Store persists trained policies and the per-run records produced around
// them.
type Store interface {
	Init(ctx context.Context) error
	SavePolicy(ctx context.Context, genome model.Genome) error
	GetPolicy(ctx context.Context, id string) (model.Genome, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveEvaluationSummary(ctx context.Context, summary model.EvaluationSummary) error
	GetEvaluationSummary(ctx context.Context, runID string) (model.EvaluationSummary, bool, error)
}
