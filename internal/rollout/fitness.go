package rollout

import (
	"context"
	"errors"
	"sync/atomic"

	"gonum.org/v1/gonum/stat"

	"gazepomdp/internal/agent"
	"gazepomdp/internal/model"
	"gazepomdp/internal/noise"
	"gazepomdp/internal/scape"
)

// Evaluator scores policy genomes by their mean return over a fixed batch of
// episodes. Every call replays the same seeds, so two genomes are compared on
// identical targets and noise.
type Evaluator struct {
	Runner   *Runner
	Episodes int

	steps atomic.Int64
}

// Fitness satisfies tuning.FitnessFn.
func (e *Evaluator) Fitness(ctx context.Context, genome model.Genome) (float64, error) {
	if e.Runner == nil {
		return 0, errors.New("runner is required")
	}
	result, err := e.Runner.Run(ctx, e.Episodes, PolicyAgents(genome), nil)
	if err != nil {
		return 0, err
	}
	e.steps.Add(int64(result.Steps))
	return MeanReturn(result.Episodes), nil
}

// StepsUsed is the number of environment steps consumed by Fitness so far.
func (e *Evaluator) StepsUsed() int {
	return int(e.steps.Load())
}

// PolicyAgents returns a factory running genome in every worker.
func PolicyAgents(genome model.Genome) AgentFactory {
	id := genome.ID
	if id == "" {
		id = "policy"
	}
	return func(worker int, _ *noise.Source) (scape.StepAgent, error) {
		return agent.NewCortex(id, genome)
	}
}

func MeanReturn(episodes []scape.EpisodeSummary) float64 {
	if len(episodes) == 0 {
		return 0
	}
	returns := make([]float64, len(episodes))
	for i, ep := range episodes {
		returns[i] = ep.Return
	}
	return stat.Mean(returns, nil)
}
