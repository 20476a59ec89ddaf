package platform

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gazepomdp/internal/model"
	"gazepomdp/internal/rollout"
	"gazepomdp/internal/scape"
	"gazepomdp/internal/stats"
)

type EvaluationConfig struct {
	RunID    string
	Scape    scape.Config
	Workers  int
	Episodes int
	// Agents overrides the policy; scripted and random baselines use it.
	Agents   rollout.AgentFactory
	PolicyID string
	Policy   *model.Genome
	Sink     rollout.Sink
}

type EvaluationResult struct {
	Summary  model.EvaluationSummary
	Episodes []scape.EpisodeSummary
}

// RunEvaluation plays cfg.Episodes episodes with a frozen policy, streams the
// trace to cfg.Sink and stores the summary.
func (p *Polis) RunEvaluation(ctx context.Context, cfg EvaluationConfig) (EvaluationResult, error) {
	if cfg.RunID == "" {
		return EvaluationResult{}, errors.New("run id is required")
	}
	agents := cfg.Agents
	policyID := cfg.PolicyID
	if agents == nil {
		policy := cfg.Policy
		if policy == nil {
			if policyID == "" {
				return EvaluationResult{}, errors.New("a policy, policy id or agent factory is required")
			}
			stored, ok, err := p.store.GetPolicy(ctx, policyID)
			if err != nil {
				return EvaluationResult{}, fmt.Errorf("load policy %s: %w", policyID, err)
			}
			if !ok {
				return EvaluationResult{}, fmt.Errorf("policy not found: %s", policyID)
			}
			policy = &stored
		}
		policyID = policy.ID
		agents = rollout.PolicyAgents(*policy)
	}

	runCtx, release, err := p.beginRun(ctx, cfg.RunID)
	if err != nil {
		return EvaluationResult{}, err
	}
	defer release()

	runner := &rollout.Runner{Scape: cfg.Scape, Workers: cfg.Workers, Logger: p.logger}
	result, err := runner.Run(runCtx, cfg.Episodes, agents, cfg.Sink)
	if err != nil {
		return EvaluationResult{}, err
	}

	summary := stats.Summarize(cfg.RunID, policyID, result.Episodes)
	if err := p.store.SaveEvaluationSummary(ctx, summary); err != nil {
		return EvaluationResult{}, fmt.Errorf("save evaluation summary: %w", err)
	}
	p.logger.Info("evaluation finished",
		zap.String("run_id", cfg.RunID),
		zap.String("policy_id", policyID),
		zap.Int("episodes", summary.Episodes),
		zap.Float64("mean_return", summary.MeanReturn),
		zap.Float64("success_rate", summary.SuccessRate),
	)
	return EvaluationResult{Summary: summary, Episodes: result.Episodes}, nil
}
