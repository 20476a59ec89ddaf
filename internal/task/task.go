// Package task holds the ground truth of the pointing task: where the target
// is, where gaze currently rests, and whether the target has been acquired.
package task

import (
	"errors"
	"fmt"

	"gazepomdp/internal/geometry"
	"gazepomdp/internal/noise"
)

var ErrNotReady = errors.New("task not reset")

// ExternalState is the ground-truth world. The target is fixed for the
// lifetime of an episode; the fixation moves only through Step.
type ExternalState struct {
	Fixation geometry.Point2D `json:"fixation"`
	Target   geometry.Point2D `json:"target"`
	Width    float64          `json:"width"`
}

// Radius is the acquisition tolerance around the target.
func (s ExternalState) Radius() float64 {
	return s.Width / 2
}

type Config struct {
	Width        float64
	TargetLocStd float64
	// FixedTarget, when set, replaces the sampled target on every reset.
	FixedTarget *geometry.Point2D
}

func (c Config) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("target width must be > 0, got %g", c.Width)
	}
	if c.TargetLocStd <= 0 {
		return fmt.Errorf("target location std must be > 0, got %g", c.TargetLocStd)
	}
	if c.FixedTarget != nil && (!c.FixedTarget.IsFinite() || !geometry.InDomain(*c.FixedTarget)) {
		return fmt.Errorf("fixed target %v outside [-1, 1]", *c.FixedTarget)
	}
	return nil
}

// GazeTask is the external pointing task.
type GazeTask struct {
	cfg   Config
	rng   *noise.Source
	state ExternalState
	ready bool
}

func NewGazeTask(cfg Config, rng *noise.Source) (*GazeTask, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	return &GazeTask{cfg: cfg, rng: rng}, nil
}

// Reset draws a new target, parks the fixation in the corner and replaces
// the whole external state.
func (t *GazeTask) Reset() ExternalState {
	target := geometry.ClipDomain(geometry.Point2D{
		X: t.rng.Normal(0, t.cfg.TargetLocStd),
		Y: t.rng.Normal(0, t.cfg.TargetLocStd),
	})
	if t.cfg.FixedTarget != nil {
		target = *t.cfg.FixedTarget
	}
	t.state = ExternalState{
		Fixation: geometry.Corner,
		Target:   target,
		Width:    t.cfg.Width,
	}
	t.ready = true
	return t.state
}

// Step moves the fixation to action and reports whether the target is
// acquired. The action is taken as ground truth; callers clip upstream.
func (t *GazeTask) Step(action geometry.Point2D) (ExternalState, bool, error) {
	if !t.ready {
		return ExternalState{}, false, ErrNotReady
	}
	t.state.Fixation = action
	done := geometry.Distance(t.state.Fixation, t.state.Target) < t.state.Radius()
	return t.state, done, nil
}

// State returns a copy of the current external state.
func (t *GazeTask) State() ExternalState {
	return t.state
}
