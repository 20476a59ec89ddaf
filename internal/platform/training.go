package platform

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"gazepomdp/internal/genotype"
	"gazepomdp/internal/model"
	"gazepomdp/internal/rollout"
	"gazepomdp/internal/scape"
	"gazepomdp/internal/tuning"
)

type StopCause string

const (
	StopCauseBudget    StopCause = "budget"
	StopCauseGoal      StopCause = "goal"
	StopCauseCancelled StopCause = "cancelled"
)

type TrainingConfig struct {
	RunID string
	// Scape.Seed seeds both the evaluation batches and the optimizer.
	Scape            scape.Config
	Workers          int
	Timesteps        int
	EvalEpisodes     int
	AttemptsPerRound int
	HiddenNeurons    int
	Tuning           TuningSettings
	// Initial, when set, continues training from an existing policy.
	Initial *model.Genome
}

type TuningSettings struct {
	Steps              int
	StepSize           float64
	PerturbationRange  float64
	AnnealingFactor    float64
	MinImprovement     float64
	CandidateSelection string
	GoalFitness        *float64
}

type TrainingResult struct {
	RunID          string
	Policy         model.Genome
	BestByRound    []float64
	InitialFitness float64
	BestFitness    float64
	StepsUsed      int
	Rounds         int
	StopCause      StopCause
	Reports        []tuning.TuneReport
}

// RunTraining hill-climbs a policy genome until the environment step budget
// is spent, the goal fitness is reached, or the run is cancelled. A cancelled
// run that completed at least one round returns its best policy and no error.
func (p *Polis) RunTraining(ctx context.Context, cfg TrainingConfig) (TrainingResult, error) {
	if err := validateTraining(cfg); err != nil {
		return TrainingResult{}, err
	}
	runCtx, release, err := p.beginRun(ctx, cfg.RunID)
	if err != nil {
		return TrainingResult{}, err
	}
	defer release()

	logger := p.logger.With(zap.String("run_id", cfg.RunID))
	seed := cfg.Scape.Seed
	rng := rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))

	var policy model.Genome
	if cfg.Initial != nil {
		policy = genotype.Clone(*cfg.Initial)
	} else {
		policy, err = genotype.ConstructPolicy(cfg.RunID+"-policy", cfg.HiddenNeurons, rng)
		if err != nil {
			return TrainingResult{}, fmt.Errorf("construct policy: %w", err)
		}
	}

	evaluator := &rollout.Evaluator{
		Runner:   &rollout.Runner{Scape: cfg.Scape, Workers: cfg.Workers, Logger: p.logger},
		Episodes: cfg.EvalEpisodes,
	}
	exo := &tuning.Exoself{
		Rand:               rng,
		Steps:              cfg.Tuning.Steps,
		StepSize:           cfg.Tuning.StepSize,
		PerturbationRange:  cfg.Tuning.PerturbationRange,
		AnnealingFactor:    cfg.Tuning.AnnealingFactor,
		MinImprovement:     cfg.Tuning.MinImprovement,
		CandidateSelection: cfg.Tuning.CandidateSelection,
		GoalFitness:        cfg.Tuning.GoalFitness,
		Logger:             logger,
	}

	result := TrainingResult{RunID: cfg.RunID, Policy: policy, StopCause: StopCauseBudget}
	for evaluator.StepsUsed() < cfg.Timesteps {
		tuned, report, err := exo.Tune(runCtx, result.Policy, cfg.AttemptsPerRound, evaluator.Fitness)
		if err != nil {
			if errors.Is(err, context.Canceled) && result.Rounds > 0 {
				result.StopCause = StopCauseCancelled
				break
			}
			return TrainingResult{}, fmt.Errorf("round %d: %w", result.Rounds+1, err)
		}
		if result.Rounds == 0 {
			result.InitialFitness = report.InitialFitness
		}
		result.Rounds++
		result.Policy = tuned
		result.BestFitness = report.BestFitness
		result.BestByRound = append(result.BestByRound, report.BestFitness)
		result.Reports = append(result.Reports, report)
		logger.Info("training round complete",
			zap.Int("round", result.Rounds),
			zap.Float64("best_fitness", report.BestFitness),
			zap.Int("accepted", report.AcceptedCandidates),
			zap.Int("steps_used", evaluator.StepsUsed()),
		)
		if report.GoalReached {
			result.StopCause = StopCauseGoal
			break
		}
	}
	result.StepsUsed = evaluator.StepsUsed()

	result.Policy.VersionedRecord = model.VersionedRecord{
		SchemaVersion: genotype.CurrentSchemaVersion,
		CodecVersion:  genotype.CurrentCodecVersion,
	}
	persistCtx := context.WithoutCancel(ctx)
	if err := p.store.SavePolicy(persistCtx, result.Policy); err != nil {
		return TrainingResult{}, fmt.Errorf("save policy: %w", err)
	}
	if err := p.store.SaveFitnessHistory(persistCtx, cfg.RunID, result.BestByRound); err != nil {
		return TrainingResult{}, fmt.Errorf("save fitness history: %w", err)
	}
	logger.Info("training finished",
		zap.String("stop_cause", string(result.StopCause)),
		zap.Int("rounds", result.Rounds),
		zap.Float64("best_fitness", result.BestFitness),
	)
	return result, nil
}

func validateTraining(cfg TrainingConfig) error {
	switch {
	case cfg.RunID == "":
		return errors.New("run id is required")
	case cfg.Timesteps <= 0:
		return fmt.Errorf("timesteps must be > 0, got %d", cfg.Timesteps)
	case cfg.EvalEpisodes <= 0:
		return fmt.Errorf("eval episodes must be > 0, got %d", cfg.EvalEpisodes)
	case cfg.AttemptsPerRound <= 0:
		return fmt.Errorf("attempts per round must be > 0, got %d", cfg.AttemptsPerRound)
	}
	return tuning.ValidateCandidateSelection(cfg.Tuning.CandidateSelection)
}
