package scape

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gazepomdp/internal/geometry"
	"gazepomdp/internal/noise"
	"gazepomdp/internal/task"
	"gazepomdp/internal/theory"
)

const (
	DefaultMaxSteps = 500
	gazeScapeName   = "gaze-pointing"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrNotReset      = errors.New("episode not reset")
	ErrEpisodeDone   = errors.New("episode already terminated")
)

// Env is the episodic decision-process surface consumed by policy
// optimizers.
type Env interface {
	ActionSpace() Box
	ObservationSpace() Box
	Reset(ctx context.Context) (theory.Observation, error)
	Step(ctx context.Context, action []float64) (StepResult, error)
}

type StepResult struct {
	Observation theory.Observation
	Reward      float64
	// Done is set both when the target is acquired and when the step cap is
	// exceeded; Info["truncated"] tells the two apart.
	Done bool
	Info Trace
}

// Info keys.
const (
	InfoStep        = "n_step"
	InfoTargetWidth = "target_width"
	InfoTargetX     = "target_x"
	InfoTargetY     = "target_y"
	InfoFixationX   = "fixation_x"
	InfoFixationY   = "fixation_y"
	InfoTruncated   = "truncated"
)

type phase int

const (
	phaseIdle phase = iota
	phaseActive
	phaseTerminated
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseActive:
		return "active"
	case phaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Config struct {
	Task     task.Config
	Theory   theory.Params
	MaxSteps int
	Seed     uint64
	Logger   *zap.Logger
}

// GazeScape composes the external task and a theory into one episodic
// environment. It owns both exclusively and is not safe for concurrent use;
// parallel rollouts build one GazeScape per worker.
type GazeScape struct {
	task     *task.GazeTask
	theory   theory.Theory
	maxSteps int
	logger   *zap.Logger

	phase   phase
	nStep   int
	episode int
}

// NewGazeScape builds the task and the gaze theory from cfg, both drawing
// from one random source seeded with cfg.Seed.
func NewGazeScape(cfg Config) (*GazeScape, error) {
	rng := noise.New(cfg.Seed)
	gt, err := task.NewGazeTask(cfg.Task, rng)
	if err != nil {
		return nil, fmt.Errorf("task: %w", err)
	}
	th, err := theory.NewGazeTheory(cfg.Theory, rng)
	if err != nil {
		return nil, fmt.Errorf("theory: %w", err)
	}
	return NewScape(gt, th, cfg.MaxSteps, cfg.Logger)
}

// NewScape wires an existing task and theory. maxSteps <= 0 selects
// DefaultMaxSteps.
func NewScape(gt *task.GazeTask, th theory.Theory, maxSteps int, logger *zap.Logger) (*GazeScape, error) {
	if gt == nil || th == nil {
		return nil, errors.New("task and theory are required")
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GazeScape{
		task:     gt,
		theory:   th,
		maxSteps: maxSteps,
		logger:   logger.Named("scape"),
	}, nil
}

func (s *GazeScape) Name() string {
	return gazeScapeName
}

func (s *GazeScape) ActionSpace() Box {
	return NewBox(2, geometry.DomainMin, geometry.DomainMax)
}

// ObservationSpace declares [-1, 1] for the uncertainty component as well.
// The std is non-negative and never exceeds the prior, which is capped at
// DomainMax.
func (s *GazeScape) ObservationSpace() Box {
	return NewBox(3, geometry.DomainMin, geometry.DomainMax)
}

func (s *GazeScape) MaxSteps() int {
	return s.maxSteps
}

// StepCount is the number of steps taken in the current episode.
func (s *GazeScape) StepCount() int {
	return s.nStep
}

// Episode is the number of resets performed so far.
func (s *GazeScape) Episode() int {
	return s.episode
}

// External returns a copy of the ground-truth state.
func (s *GazeScape) External() task.ExternalState {
	return s.task.State()
}

func (s *GazeScape) Reset(ctx context.Context) (theory.Observation, error) {
	if err := ctx.Err(); err != nil {
		return theory.Observation{}, err
	}
	s.nStep = 0
	ext := s.task.Reset()
	obs := s.theory.Reset(ext)
	s.phase = phaseActive
	s.episode++
	s.logger.Debug("episode reset",
		zap.Int("episode", s.episode),
		zap.Float64("target_x", ext.Target.X),
		zap.Float64("target_y", ext.Target.Y),
		zap.Float64("width", ext.Width),
	)
	return obs, nil
}

func (s *GazeScape) Step(ctx context.Context, action []float64) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	switch s.phase {
	case phaseIdle:
		return StepResult{}, ErrNotReset
	case phaseTerminated:
		return StepResult{}, ErrEpisodeDone
	}

	clipped, err := s.ActionSpace().Clip(action)
	if err != nil {
		return StepResult{}, err
	}
	target, _ := geometry.FromSlice(clipped)

	obs, reward, done, err := theory.Step(s.theory, s.task, target)
	if err != nil {
		return StepResult{}, err
	}
	s.nStep++

	truncated := false
	if s.nStep > s.maxSteps && !done {
		truncated = true
		done = true
	}
	if done {
		s.phase = phaseTerminated
		s.logger.Debug("episode terminated",
			zap.Int("episode", s.episode),
			zap.Int("steps", s.nStep),
			zap.Bool("truncated", truncated),
			zap.Float64("reward", reward),
		)
	}

	return StepResult{
		Observation: obs,
		Reward:      reward,
		Done:        done,
		Info:        s.info(truncated),
	}, nil
}

func (s *GazeScape) info(truncated bool) Trace {
	ext := s.task.State()
	return Trace{
		InfoStep:        s.nStep,
		InfoTargetWidth: ext.Width,
		InfoTargetX:     ext.Target.X,
		InfoTargetY:     ext.Target.Y,
		InfoFixationX:   ext.Fixation.X,
		InfoFixationY:   ext.Fixation.Y,
		InfoTruncated:   truncated,
	}
}
