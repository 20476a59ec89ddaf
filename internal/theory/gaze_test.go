package theory

import (
	"errors"
	"math"
	"testing"

	"gazepomdp/internal/bayes"
	"gazepomdp/internal/geometry"
	"gazepomdp/internal/noise"
	"gazepomdp/internal/task"
)

func newFixedTask(t *testing.T, target geometry.Point2D, width float64) *task.GazeTask {
	t.Helper()
	gt, err := task.NewGazeTask(task.Config{Width: width, TargetLocStd: 0.3, FixedTarget: &target}, noise.New(1))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return gt
}

func newTheory(t *testing.T, params Params, seed uint64) *GazeTheory {
	t.Helper()
	th, err := NewGazeTheory(params, noise.New(seed))
	if err != nil {
		t.Fatalf("new theory: %v", err)
	}
	return th
}

func TestGazeTheoryResetObservation(t *testing.T) {
	gt := newFixedTask(t, geometry.Point2D{X: 0.5, Y: 0.5}, 0.2)
	th := newTheory(t, Params{OculomotorNoiseWeight: 0.01, StimulusNoiseWeight: 0.09}, 1)

	obs := th.Reset(gt.Reset())
	if obs != (Observation{X: 0, Y: 0, Std: 0.1}) {
		t.Fatalf("unexpected reset observation: %+v", obs)
	}
	state := th.State()
	if state.Fixation != geometry.Corner || state.Action != geometry.Corner {
		t.Fatalf("unexpected reset state: %+v", state)
	}
	if state.Width != 0.2 {
		t.Fatalf("width not copied from task: %f", state.Width)
	}
}

func TestStepZeroNoiseEndToEnd(t *testing.T) {
	target := geometry.Point2D{X: 0.3, Y: -0.2}
	gt := newFixedTask(t, target, 0.15)
	th := newTheory(t, Params{}, 1)
	th.Reset(gt.Reset())

	obs, _, done, err := Step(th, gt, target)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if gt.State().Fixation != target {
		t.Fatalf("expected external fixation %v, got %v", target, gt.State().Fixation)
	}
	if !done {
		t.Fatal("expected done after landing on the target")
	}
	if obs.X != target.X || obs.Y != target.Y || obs.Std != 0 {
		t.Fatalf("expected exact belief at target, got %+v", obs)
	}
}

func TestStepEccentricityUsesNewFixation(t *testing.T) {
	target := geometry.Point2D{X: 0.3, Y: -0.2}
	gt := newFixedTask(t, target, 0.15)
	// Large stimulus noise: a stimulus measured from the old corner fixation
	// would be visibly noisy.
	th := newTheory(t, Params{StimulusNoiseWeight: 1}, 11)
	th.Reset(gt.Reset())

	obs, _, _, err := Step(th, gt, target)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if obs.Std != 0 || obs.X != target.X || obs.Y != target.Y {
		t.Fatalf("expected zero-eccentricity stimulus, got %+v", obs)
	}
}

func TestStepRewardUsesCornerFixationByDefault(t *testing.T) {
	target := geometry.Point2D{X: 0.3, Y: -0.2}
	gt := newFixedTask(t, target, 0.15)
	th := newTheory(t, Params{}, 1)
	th.Reset(gt.Reset())

	for i := 0; i < 3; i++ {
		_, reward, _, err := Step(th, gt, target)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		want := -geometry.Distance(geometry.Corner, target)
		if math.Abs(reward-want) > 1e-12 {
			t.Fatalf("step %d: reward=%f want %f", i, reward, want)
		}
	}
	if th.State().Fixation != geometry.Corner {
		t.Fatalf("internal fixation moved: %v", th.State().Fixation)
	}
}

func TestStepTrackedFixationConvergesToZeroReward(t *testing.T) {
	target := geometry.Point2D{X: 0.3, Y: -0.2}
	gt := newFixedTask(t, target, 0.15)
	th := newTheory(t, Params{TrackFixation: true}, 1)
	prevStd := th.Reset(gt.Reset()).Std

	const steps = 10
	prevDistance := math.Inf(1)
	var reward float64
	for k := 1; k <= steps; k++ {
		frac := float64(k) / steps
		action := geometry.Point2D{
			X: geometry.Corner.X + (target.X-geometry.Corner.X)*frac,
			Y: geometry.Corner.Y + (target.Y-geometry.Corner.Y)*frac,
		}
		obs, r, _, err := Step(th, gt, action)
		if err != nil {
			t.Fatalf("step %d: %v", k, err)
		}
		if obs.Std > prevStd {
			t.Fatalf("step %d: uncertainty grew %f -> %f", k, prevStd, obs.Std)
		}
		prevStd = obs.Std
		distance := geometry.Distance(th.State().Fixation, geometry.Point2D{X: obs.X, Y: obs.Y})
		if distance > prevDistance+1e-12 {
			t.Fatalf("step %d: distance grew %f -> %f", k, prevDistance, distance)
		}
		prevDistance = distance
		reward = r
	}
	if reward != 0 {
		t.Fatalf("expected zero reward on target, got %f", reward)
	}
}

func TestStepStimulusNoiseStrictlyShrinksUncertainty(t *testing.T) {
	target := geometry.Point2D{X: 0.6, Y: 0.4}
	gt := newFixedTask(t, target, 0.05)
	th := newTheory(t, Params{StimulusNoiseWeight: 0.2}, 4)
	prev := th.Reset(gt.Reset()).Std

	for i := 0; i < 20; i++ {
		obs, _, _, err := Step(th, gt, geometry.Point2D{X: 0, Y: 0})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if obs.Std >= prev {
			t.Fatalf("step %d: std %f not below %f", i, obs.Std, prev)
		}
		prev = obs.Std
	}
}

func TestRespondClipsToDomain(t *testing.T) {
	th := newTheory(t, Params{OculomotorNoiseWeight: 5}, 2)
	th.Reset(task.ExternalState{Width: 0.1})
	for i := 0; i < 100; i++ {
		response := th.Respond(geometry.Point2D{X: 1, Y: 1})
		if !geometry.InDomain(response) {
			t.Fatalf("response out of domain: %v", response)
		}
	}
}

func TestNewGazeTheoryValidatesParams(t *testing.T) {
	if _, err := NewGazeTheory(Params{OculomotorNoiseWeight: -1}, noise.New(1)); err == nil {
		t.Fatal("expected error for negative noise weight")
	}
	if _, err := NewGazeTheory(Params{}, nil); err == nil {
		t.Fatal("expected error without random source")
	}
	if _, err := NewGazeTheory(Params{PriorStd: 1.5}, noise.New(1)); err == nil {
		t.Fatal("expected error for prior std outside the observation bounds")
	}
	if _, err := NewGazeTheory(Params{PriorStd: geometry.DomainMax}, noise.New(1)); err != nil {
		t.Fatalf("prior std at the bound: %v", err)
	}
}

type recordingTheory struct {
	calls     []string
	perceived task.ExternalState
	updateErr error
}

func (r *recordingTheory) Reset(task.ExternalState) Observation { return Observation{} }
func (r *recordingTheory) StageAction(geometry.Point2D)       { r.calls = append(r.calls, "stage") }
func (r *recordingTheory) Respond(a geometry.Point2D) geometry.Point2D {
	r.calls = append(r.calls, "respond")
	return a
}
func (r *recordingTheory) Perceive(ext task.ExternalState) (geometry.Point2D, float64) {
	r.calls = append(r.calls, "perceive")
	r.perceived = ext
	return ext.Target, 0
}
func (r *recordingTheory) UpdateBelief(geometry.Point2D, float64) error {
	r.calls = append(r.calls, "update")
	return r.updateErr
}
func (r *recordingTheory) Observe() Observation {
	r.calls = append(r.calls, "observe")
	return Observation{}
}
func (r *recordingTheory) Reward() float64 {
	r.calls = append(r.calls, "reward")
	return -1
}

type stubEnvironment struct {
	state task.ExternalState
	err   error
}

func (s *stubEnvironment) Step(action geometry.Point2D) (task.ExternalState, bool, error) {
	s.state.Fixation = action
	return s.state, false, s.err
}

func TestStepCallOrder(t *testing.T) {
	th := &recordingTheory{}
	env := &stubEnvironment{state: task.ExternalState{Target: geometry.Point2D{X: 0.1}, Width: 0.1}}
	if _, _, _, err := Step(th, env, geometry.Point2D{X: 0.5, Y: 0.5}); err != nil {
		t.Fatalf("step: %v", err)
	}
	want := []string{"stage", "respond", "perceive", "update", "observe", "reward"}
	if len(th.calls) != len(want) {
		t.Fatalf("calls=%v want %v", th.calls, want)
	}
	for i := range want {
		if th.calls[i] != want[i] {
			t.Fatalf("calls=%v want %v", th.calls, want)
		}
	}
	if th.perceived.Fixation != (geometry.Point2D{X: 0.5, Y: 0.5}) {
		t.Fatalf("perception did not see the updated fixation: %+v", th.perceived)
	}
}

func TestStepPropagatesErrors(t *testing.T) {
	envErr := errors.New("boom")
	if _, _, _, err := Step(&recordingTheory{}, &stubEnvironment{err: envErr}, geometry.Point2D{}); !errors.Is(err, envErr) {
		t.Fatalf("expected environment error, got %v", err)
	}
	th := &recordingTheory{updateErr: bayes.ErrNumericDegeneracy}
	if _, _, _, err := Step(th, &stubEnvironment{}, geometry.Point2D{}); !errors.Is(err, bayes.ErrNumericDegeneracy) {
		t.Fatalf("expected numeric degeneracy, got %v", err)
	}
}
