package scape

import "context"

// Trace is a free-form diagnostic record. It is never read back by the
// decision process.
type Trace map[string]any

type Agent interface {
	ID() string
}

// StepAgent maps one observation vector to one action vector.
type StepAgent interface {
	Agent
	RunStep(ctx context.Context, input []float64) ([]float64, error)
}
