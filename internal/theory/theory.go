// Package theory models the agent's side of the pointing task: noisy motor
// output, noisy foveated perception and a Bayesian belief about the target.
//
// Step is the fixed decision cycle. It drives any Theory through the same
// sequence so that alternative perception or motor models only need to
// supply the individual capabilities.
package theory

import (
	"fmt"

	"gazepomdp/internal/geometry"
	"gazepomdp/internal/task"
)

// Observation is what the policy sees: the belief mean and its uncertainty.
type Observation struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Std float64 `json:"std"`
}

// Vector returns the observation as [x, y, std].
func (o Observation) Vector() []float64 {
	return []float64{o.X, o.Y, o.Std}
}

// Environment is the external task as seen from the theory.
type Environment interface {
	Step(action geometry.Point2D) (task.ExternalState, bool, error)
}

// Theory is the capability set the decision cycle needs.
type Theory interface {
	Reset(ext task.ExternalState) Observation
	StageAction(action geometry.Point2D)
	Respond(action geometry.Point2D) geometry.Point2D
	Perceive(ext task.ExternalState) (stimulus geometry.Point2D, std float64)
	UpdateBelief(stimulus geometry.Point2D, std float64) error
	Observe() Observation
	Reward() float64
}

// Step runs one decision cycle: the action becomes a motor response, the
// environment moves the fixation, the theory perceives the target from the
// state the environment returned and folds the stimulus into its belief.
func Step(th Theory, env Environment, action geometry.Point2D) (Observation, float64, bool, error) {
	th.StageAction(action)
	response := th.Respond(action)

	ext, done, err := env.Step(response)
	if err != nil {
		return Observation{}, 0, false, fmt.Errorf("environment step: %w", err)
	}

	stimulus, std := th.Perceive(ext)
	if err := th.UpdateBelief(stimulus, std); err != nil {
		return Observation{}, 0, false, fmt.Errorf("update belief: %w", err)
	}
	return th.Observe(), th.Reward(), done, nil
}
