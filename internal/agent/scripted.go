package agent

import (
	"context"
	"fmt"

	"gazepomdp/internal/noise"
)

// BeliefFollower fixates wherever the current belief puts the target. It is
// the hand-written baseline the trained policies are compared against.
type BeliefFollower struct{}

func (BeliefFollower) ID() string {
	return "belief-follower"
}

func (BeliefFollower) RunStep(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) < 2 {
		return nil, fmt.Errorf("input size mismatch: got=%d want>=2", len(inputs))
	}
	return []float64{inputs[0], inputs[1]}, nil
}

// RandomAgent samples actions uniformly from [-1, 1]².
type RandomAgent struct {
	rng *noise.Source
}

func NewRandomAgent(rng *noise.Source) *RandomAgent {
	return &RandomAgent{rng: rng}
}

func (*RandomAgent) ID() string {
	return "random"
}

func (a *RandomAgent) RunStep(ctx context.Context, _ []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []float64{a.rng.Float64()*2 - 1, a.rng.Float64()*2 - 1}, nil
}
