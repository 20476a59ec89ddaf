// Package gazepomdp is the public entry point for training and evaluating
// gaze-pointing policies.
package gazepomdp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gazepomdp/internal/agent"
	"gazepomdp/internal/config"
	"gazepomdp/internal/model"
	"gazepomdp/internal/noise"
	"gazepomdp/internal/platform"
	"gazepomdp/internal/rollout"
	"gazepomdp/internal/scape"
	"gazepomdp/internal/stats"
	"gazepomdp/internal/storage"
)

// Baseline agents usable instead of a trained policy.
const (
	AgentPolicy         = "policy"
	AgentBeliefFollower = "belief"
	AgentRandom         = "random"
)

type Options struct {
	// Config defaults to config.NewDefaultConfig().
	Config *config.Config
	Logger *zap.Logger
}

type Client struct {
	cfg    *config.Config
	store  storage.Store
	polis  *platform.Polis
	logger *zap.Logger
	now    func() time.Time
}

type TrainRequest struct {
	// Seed overrides run.seed; zero in both means time-derived.
	Seed      uint64
	Timesteps int
	// ContinueRunID resumes from the policy.json of an earlier training run.
	ContinueRunID string
}

type TrainSummary struct {
	RunID          string
	PolicyID       string
	ArtifactsDir   string
	Seed           uint64
	BestByRound    []float64
	InitialFitness float64
	BestFitness    float64
	StepsUsed      int
	Rounds         int
	StopCause      string
}

type EvaluateRequest struct {
	// PolicyRunID loads policy.json from that training run's artifacts.
	PolicyRunID string
	// PolicyID loads a policy from the store.
	PolicyID string
	// Agent selects a baseline when no policy is named; defaults to belief.
	Agent    string
	Episodes int
	Seed     uint64
}

type EvaluateSummary struct {
	RunID        string
	ArtifactsDir string
	TracePath    string
	Seed         uint64
	Summary      model.EvaluationSummary
}

type RunsRequest struct {
	Limit int
	Kind  string
}

type RunItem struct {
	RunID        string
	Kind         string
	PolicyID     string
	CreatedAtUTC string
	Seed         uint64
	Workers      int
	Episodes     int
	Fitness      float64
}

func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	kind := cfg.Storage.Kind
	if kind == "" {
		kind = storage.DefaultStoreKind()
	}
	store, err := storage.NewStore(kind, cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, store: store, logger: logger, now: time.Now}, nil
}

func (c *Client) Close() error {
	if c.polis != nil {
		c.polis.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Config returns the resolved configuration the client runs with.
func (c *Client) Config() config.Config {
	return *c.cfg
}

// NewEnv builds a standalone episodic environment from the client's task,
// theory and episode settings.
func (c *Client) NewEnv(seed uint64) (scape.Env, error) {
	sc := c.cfg.ScapeConfig(c.resolveSeed(seed))
	sc.Logger = c.logger
	return scape.NewGazeScape(sc)
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return TrainSummary{}, err
	}
	tr := c.cfg.Training
	if req.Timesteps > 0 {
		tr.Timesteps = req.Timesteps
	}
	seed := c.resolveSeed(req.Seed)
	runID := uuid.NewString()

	var initial *model.Genome
	if req.ContinueRunID != "" {
		policy, ok, err := stats.ReadPolicy(c.cfg.Run.ArtifactsDir, req.ContinueRunID)
		if err != nil {
			return TrainSummary{}, err
		}
		if !ok {
			return TrainSummary{}, fmt.Errorf("run %s has no policy artifact", req.ContinueRunID)
		}
		initial = &policy
	}

	result, err := p.RunTraining(ctx, platform.TrainingConfig{
		RunID:            runID,
		Scape:            c.cfg.ScapeConfig(seed),
		Workers:          c.cfg.Run.Workers,
		Timesteps:        tr.Timesteps,
		EvalEpisodes:     tr.EvalEpisodes,
		AttemptsPerRound: tr.AttemptsPerRound,
		HiddenNeurons:    tr.HiddenNeurons,
		Tuning: platform.TuningSettings{
			Steps:              tr.PerturbSteps,
			StepSize:           tr.StepSize,
			PerturbationRange:  tr.PerturbationRange,
			AnnealingFactor:    tr.AnnealingFactor,
			MinImprovement:     tr.MinImprovement,
			CandidateSelection: tr.CandidateSelection,
			GoalFitness:        tr.GoalFitness,
		},
		Initial: initial,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	runCfg := c.runConfig(runID, stats.RunKindTrain, seed)
	runCfg.PolicyID = result.Policy.ID
	runCfg.Timesteps = tr.Timesteps
	runCfg.EvalEpisodes = tr.EvalEpisodes
	runCfg.AttemptsPerRound = tr.AttemptsPerRound
	runCfg.CandidateSelection = tr.CandidateSelection
	runCfg.HiddenNeurons = tr.HiddenNeurons
	runCfg.GoalFitness = tr.GoalFitness
	runDir, err := stats.WriteRunArtifacts(c.cfg.Run.ArtifactsDir, stats.RunArtifacts{
		Config: runCfg,
		History: &stats.FitnessHistory{
			BestByRound:      result.BestByRound,
			InitialFitness:   result.InitialFitness,
			FinalBestFitness: result.BestFitness,
			StepsUsed:        result.StepsUsed,
			GoalReached:      result.StopCause == platform.StopCauseGoal,
		},
		Policy: &result.Policy,
	})
	if err != nil {
		return TrainSummary{}, err
	}
	if err := stats.AppendRunIndex(c.cfg.Run.ArtifactsDir, stats.RunIndexEntry{
		RunID:        runID,
		Kind:         stats.RunKindTrain,
		Scape:        runCfg.Scape,
		PolicyID:     result.Policy.ID,
		Seed:         seed,
		Workers:      c.cfg.Run.Workers,
		Fitness:      result.BestFitness,
		CreatedAtUTC: c.now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return TrainSummary{}, err
	}

	return TrainSummary{
		RunID:          runID,
		PolicyID:       result.Policy.ID,
		ArtifactsDir:   filepath.Clean(runDir),
		Seed:           seed,
		BestByRound:    append([]float64(nil), result.BestByRound...),
		InitialFitness: result.InitialFitness,
		BestFitness:    result.BestFitness,
		StepsUsed:      result.StepsUsed,
		Rounds:         result.Rounds,
		StopCause:      string(result.StopCause),
	}, nil
}

func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return EvaluateSummary{}, err
	}
	if req.PolicyRunID != "" && req.PolicyID != "" {
		return EvaluateSummary{}, errors.New("use either policy run id or policy id")
	}
	episodes := req.Episodes
	if episodes <= 0 {
		episodes = c.cfg.Evaluation.Episodes
	}
	seed := c.resolveSeed(req.Seed)
	runID := uuid.NewString()

	evalCfg := platform.EvaluationConfig{
		RunID:    runID,
		Scape:    c.cfg.ScapeConfig(seed),
		Workers:  c.cfg.Run.Workers,
		Episodes: episodes,
		PolicyID: req.PolicyID,
	}
	switch {
	case req.PolicyRunID != "":
		policy, ok, err := stats.ReadPolicy(c.cfg.Run.ArtifactsDir, req.PolicyRunID)
		if err != nil {
			return EvaluateSummary{}, err
		}
		if !ok {
			return EvaluateSummary{}, fmt.Errorf("run %s has no policy artifact", req.PolicyRunID)
		}
		evalCfg.Policy = &policy
	case req.PolicyID != "":
	default:
		agents, name, err := baselineAgents(req.Agent)
		if err != nil {
			return EvaluateSummary{}, err
		}
		evalCfg.Agents = agents
		evalCfg.PolicyID = name
	}

	runDir := stats.RunDir(c.cfg.Run.ArtifactsDir, runID)
	tracePath := c.cfg.Evaluation.TracePath
	if tracePath == "" {
		tracePath = stats.TraceFile
	}
	if !filepath.IsAbs(tracePath) {
		tracePath = filepath.Join(runDir, tracePath)
	}
	trace, err := stats.CreateTraceFile(tracePath)
	if err != nil {
		return EvaluateSummary{}, err
	}
	evalCfg.Sink = trace

	result, err := p.RunEvaluation(ctx, evalCfg)
	if closeErr := trace.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.RemoveAll(runDir); rmErr != nil {
			c.logger.Warn("remove failed evaluation run", zap.String("run_id", runID), zap.Error(rmErr))
		}
		return EvaluateSummary{}, err
	}

	runCfg := c.runConfig(runID, stats.RunKindEvaluate, seed)
	runCfg.PolicyID = result.Summary.PolicyID
	runCfg.Episodes = episodes
	if _, err := stats.WriteRunArtifacts(c.cfg.Run.ArtifactsDir, stats.RunArtifacts{
		Config:  runCfg,
		Summary: &result.Summary,
	}); err != nil {
		return EvaluateSummary{}, err
	}
	if err := stats.AppendRunIndex(c.cfg.Run.ArtifactsDir, stats.RunIndexEntry{
		RunID:        runID,
		Kind:         stats.RunKindEvaluate,
		Scape:        runCfg.Scape,
		PolicyID:     result.Summary.PolicyID,
		Seed:         seed,
		Workers:      c.cfg.Run.Workers,
		Fitness:      result.Summary.MeanReturn,
		Episodes:     episodes,
		CreatedAtUTC: c.now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return EvaluateSummary{}, err
	}

	return EvaluateSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		TracePath:    filepath.Clean(tracePath),
		Seed:         seed,
		Summary:      result.Summary,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	entries, err := stats.ListRunIndex(c.cfg.Run.ArtifactsDir)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		if req.Kind != "" && e.Kind != req.Kind {
			continue
		}
		out = append(out, RunItem{
			RunID:        e.RunID,
			Kind:         e.Kind,
			PolicyID:     e.PolicyID,
			CreatedAtUTC: e.CreatedAtUTC,
			Seed:         e.Seed,
			Workers:      e.Workers,
			Episodes:     e.Episodes,
			Fitness:      e.Fitness,
		})
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Logger: c.logger})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func (c *Client) resolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	if c.cfg.Run.Seed != 0 {
		return c.cfg.Run.Seed
	}
	return uint64(c.now().UnixNano())
}

func (c *Client) runConfig(runID, kind string, seed uint64) stats.RunConfig {
	return stats.RunConfig{
		RunID:                 runID,
		Kind:                  kind,
		Scape:                 "gaze-pointing",
		Seed:                  seed,
		Workers:               c.cfg.Run.Workers,
		MaxSteps:              c.cfg.Episode.MaxSteps,
		TargetWidth:           c.cfg.Task.TargetWidth,
		TargetLocStd:          c.cfg.Task.TargetLocStd,
		FixedTarget:           append([]float64(nil), c.cfg.Task.FixedTarget...),
		OculomotorNoiseWeight: c.cfg.Theory.OculomotorNoiseWeight,
		StimulusNoiseWeight:   c.cfg.Theory.StimulusNoiseWeight,
		StepCost:              c.cfg.Theory.StepCost,
		PriorStd:              c.cfg.Theory.PriorStd,
		TrackFixation:         c.cfg.Theory.TrackFixation,
	}
}

func baselineAgents(name string) (rollout.AgentFactory, string, error) {
	switch name {
	case "", AgentBeliefFollower:
		return func(int, *noise.Source) (scape.StepAgent, error) {
			return agent.BeliefFollower{}, nil
		}, AgentBeliefFollower, nil
	case AgentRandom:
		return func(_ int, rng *noise.Source) (scape.StepAgent, error) {
			return agent.NewRandomAgent(rng), nil
		}, AgentRandom, nil
	case AgentPolicy:
		return nil, "", errors.New("agent policy requires a policy run id or policy id")
	default:
		return nil, "", fmt.Errorf("unknown agent: %s", name)
	}
}
