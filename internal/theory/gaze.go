package theory

import (
	"errors"
	"fmt"

	"gazepomdp/internal/bayes"
	"gazepomdp/internal/geometry"
	"gazepomdp/internal/noise"
	"gazepomdp/internal/task"
)

const DefaultPriorStd = 0.1

// InternalState is the theory's view of the world.
type InternalState struct {
	Fixation  geometry.Point2D `json:"fixation"`
	Target    geometry.Point2D `json:"target"`
	TargetStd float64          `json:"target_std"`
	Width     float64          `json:"width"`
	Action    geometry.Point2D `json:"action"`
}

type Params struct {
	OculomotorNoiseWeight float64
	StimulusNoiseWeight   float64
	// StepCost is carried for configuration compatibility; the reward does
	// not use it.
	StepCost float64
	// PriorStd is the belief uncertainty at episode start. Zero means
	// DefaultPriorStd.
	PriorStd float64
	// TrackFixation moves the internal fixation to each motor response.
	// Off by default: the internal fixation stays at the starting corner
	// and the reward is measured from there.
	TrackFixation bool
}

func (p Params) Validate() error {
	if p.OculomotorNoiseWeight < 0 {
		return fmt.Errorf("oculomotor noise weight must be >= 0, got %g", p.OculomotorNoiseWeight)
	}
	if p.StimulusNoiseWeight < 0 {
		return fmt.Errorf("stimulus noise weight must be >= 0, got %g", p.StimulusNoiseWeight)
	}
	if p.PriorStd < 0 || p.PriorStd > geometry.DomainMax {
		return fmt.Errorf("prior std must be in [0, %g], got %g", geometry.DomainMax, p.PriorStd)
	}
	return nil
}

// GazeTheory is the foveated gaze model: motor noise grows with saccade
// length, perceptual noise grows with target eccentricity.
type GazeTheory struct {
	params   Params
	priorStd float64
	rng      *noise.Source
	state    InternalState
	ready    bool
}

func NewGazeTheory(params Params, rng *noise.Source) (*GazeTheory, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	priorStd := params.PriorStd
	if priorStd == 0 {
		priorStd = DefaultPriorStd
	}
	return &GazeTheory{params: params, priorStd: priorStd, rng: rng}, nil
}

func (g *GazeTheory) Params() Params {
	return g.params
}

// State returns a copy of the internal state.
func (g *GazeTheory) State() InternalState {
	return g.state
}

func (g *GazeTheory) Ready() bool {
	return g.ready
}

func (g *GazeTheory) Reset(ext task.ExternalState) Observation {
	g.state = InternalState{
		Fixation:  geometry.Corner,
		Target:    geometry.Point2D{},
		TargetStd: g.priorStd,
		Width:     ext.Width,
		Action:    geometry.Corner,
	}
	g.ready = true
	return g.Observe()
}

func (g *GazeTheory) StageAction(action geometry.Point2D) {
	g.state.Action = action
}

// Respond turns the commanded fixation into a noisy landing point.
func (g *GazeTheory) Respond(action geometry.Point2D) geometry.Point2D {
	moveDistance := geometry.Distance(g.state.Fixation, action)
	response := geometry.ClipDomain(g.rng.Jitter(action, g.params.OculomotorNoiseWeight*moveDistance))
	if g.params.TrackFixation {
		g.state.Fixation = response
	}
	return response
}

// Perceive samples the target location with noise scaled by the
// eccentricity between the target and the fixation reported in ext.
func (g *GazeTheory) Perceive(ext task.ExternalState) (geometry.Point2D, float64) {
	eccentricity := geometry.Distance(ext.Target, ext.Fixation)
	std := g.params.StimulusNoiseWeight * eccentricity
	return g.rng.Jitter(ext.Target, std), std
}

func (g *GazeTheory) UpdateBelief(stimulus geometry.Point2D, std float64) error {
	posterior, posteriorStd, err := bayes.FusePoint(stimulus, std, g.state.Target, g.state.TargetStd)
	if err != nil {
		return err
	}
	g.state.Target = posterior
	g.state.TargetStd = posteriorStd
	return nil
}

func (g *GazeTheory) Observe() Observation {
	return Observation{X: g.state.Target.X, Y: g.state.Target.Y, Std: g.state.TargetStd}
}

// Reward is zero once the believed target lies within the acquisition
// radius of the internal fixation, otherwise the negative distance.
func (g *GazeTheory) Reward() float64 {
	distance := geometry.Distance(g.state.Fixation, g.state.Target)
	if distance < g.state.Width/2 {
		return 0
	}
	return -distance
}
