package scape

import (
	"context"
	"fmt"

	"gazepomdp/internal/theory"
)

// EpisodeSummary describes one finished episode.
type EpisodeSummary struct {
	Steps     int     `json:"steps"`
	Return    float64 `json:"return"`
	Success   bool    `json:"success"`
	Truncated bool    `json:"truncated"`
}

// StepObserver receives every transition of an episode. prev is the
// observation the agent acted on.
type StepObserver func(step int, prev theory.Observation, action []float64, result StepResult) error

// RunEpisode resets env and steps it with agent until done.
func RunEpisode(ctx context.Context, env Env, agent StepAgent, observe StepObserver) (EpisodeSummary, error) {
	obs, err := env.Reset(ctx)
	if err != nil {
		return EpisodeSummary{}, err
	}

	var summary EpisodeSummary
	for step := 1; ; step++ {
		action, err := agent.RunStep(ctx, obs.Vector())
		if err != nil {
			return EpisodeSummary{}, fmt.Errorf("agent %s step %d: %w", agent.ID(), step, err)
		}
		result, err := env.Step(ctx, action)
		if err != nil {
			return EpisodeSummary{}, err
		}
		if observe != nil {
			if err := observe(step, obs, action, result); err != nil {
				return EpisodeSummary{}, err
			}
		}
		summary.Steps = step
		summary.Return += result.Reward
		obs = result.Observation
		if result.Done {
			truncated, _ := result.Info[InfoTruncated].(bool)
			summary.Truncated = truncated
			summary.Success = !truncated
			return summary, nil
		}
	}
}
