package scape

import (
	"context"
	"errors"
	"math"
	"testing"

	"gazepomdp/internal/geometry"
	"gazepomdp/internal/task"
	"gazepomdp/internal/theory"
)

func newTestScape(t *testing.T, target geometry.Point2D, params theory.Params, maxSteps int) *GazeScape {
	t.Helper()
	s, err := NewGazeScape(Config{
		Task:     task.Config{Width: 0.15, TargetLocStd: 0.3, FixedTarget: &target},
		Theory:   params,
		MaxSteps: maxSteps,
		Seed:     7,
	})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	return s
}

func TestGazeScapeEndToEndSingleStep(t *testing.T) {
	target := geometry.Point2D{X: 0.3, Y: -0.2}
	s := newTestScape(t, target, theory.Params{}, 0)
	ctx := context.Background()

	obs, err := s.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if obs != (theory.Observation{X: 0, Y: 0, Std: 0.1}) {
		t.Fatalf("unexpected initial observation: %+v", obs)
	}

	result, err := s.Step(ctx, []float64{0.3, -0.2})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !result.Done {
		t.Fatal("expected done on first step")
	}
	if result.Info[InfoFixationX] != 0.3 || result.Info[InfoFixationY] != -0.2 {
		t.Fatalf("unexpected fixation info: %+v", result.Info)
	}
	if result.Info[InfoTruncated] != false || result.Info[InfoStep] != 1 {
		t.Fatalf("unexpected info: %+v", result.Info)
	}
	if result.Info[InfoTargetWidth] != 0.15 || result.Info[InfoTargetX] != 0.3 || result.Info[InfoTargetY] != -0.2 {
		t.Fatalf("unexpected target info: %+v", result.Info)
	}
	if _, err := s.Step(ctx, []float64{0.3, -0.2}); !errors.Is(err, ErrEpisodeDone) {
		t.Fatalf("expected ErrEpisodeDone, got %v", err)
	}
}

func TestGazeScapeTruncatesAfterMaxSteps(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{X: 0.5, Y: 0.5}, theory.Params{}, 5)
	ctx := context.Background()
	if _, err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	for i := 1; i <= 5; i++ {
		result, err := s.Step(ctx, []float64{-1, -1})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if result.Done {
			t.Fatalf("unexpected done at step %d", i)
		}
	}
	result, err := s.Step(ctx, []float64{-1, -1})
	if err != nil {
		t.Fatalf("final step: %v", err)
	}
	if !result.Done || result.Info[InfoTruncated] != true {
		t.Fatalf("expected truncation, got done=%t info=%+v", result.Done, result.Info)
	}
	if s.StepCount() != 6 {
		t.Fatalf("expected 6 steps, got %d", s.StepCount())
	}

	if _, err := s.Reset(ctx); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if s.StepCount() != 0 || s.Episode() != 2 {
		t.Fatalf("reset did not restart counters: steps=%d episode=%d", s.StepCount(), s.Episode())
	}
}

func TestGazeScapeStepBeforeReset(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{}, theory.Params{}, 0)
	if _, err := s.Step(context.Background(), []float64{0, 0}); !errors.Is(err, ErrNotReset) {
		t.Fatalf("expected ErrNotReset, got %v", err)
	}
}

func TestGazeScapeRejectsMalformedActions(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{}, theory.Params{}, 0)
	ctx := context.Background()
	if _, err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, action := range [][]float64{nil, {0.1}, {0.1, 0.2, 0.3}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		if _, err := s.Step(ctx, action); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("action %v: expected ErrInvalidAction, got %v", action, err)
		}
	}
}

func TestGazeScapeClipsOutOfRangeActions(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{X: 1, Y: 1}, theory.Params{}, 0)
	ctx := context.Background()
	if _, err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	result, err := s.Step(ctx, []float64{4, 9})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if result.Info[InfoFixationX] != 1.0 || result.Info[InfoFixationY] != 1.0 {
		t.Fatalf("expected clipped fixation, got %+v", result.Info)
	}
	if !result.Done {
		t.Fatal("expected done at the clipped corner target")
	}
}

func TestGazeScapeSpaces(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{}, theory.Params{}, 0)
	if s.ActionSpace().Dim() != 2 || s.ObservationSpace().Dim() != 3 {
		t.Fatalf("unexpected space dims: %d %d", s.ActionSpace().Dim(), s.ObservationSpace().Dim())
	}
	if !s.ActionSpace().Contains([]float64{-1, 1}) || s.ActionSpace().Contains([]float64{-1.1, 0}) {
		t.Fatal("unexpected action space membership")
	}
	if s.MaxSteps() != DefaultMaxSteps {
		t.Fatalf("expected default max steps, got %d", s.MaxSteps())
	}
}

func TestGazeScapeResetObservationInsideSpaceAtMaxPrior(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{}, theory.Params{PriorStd: geometry.DomainMax}, 0)
	obs, err := s.Reset(context.Background())
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !s.ObservationSpace().Contains(obs.Vector()) {
		t.Fatalf("reset observation %v outside observation space", obs.Vector())
	}

	if _, err := NewGazeScape(Config{
		Task:   task.Config{Width: 0.15, TargetLocStd: 0.3},
		Theory: theory.Params{PriorStd: 1.5},
		Seed:   7,
	}); err == nil {
		t.Fatal("expected error for prior std above the observation bound")
	}
}

func TestGazeScapeSameSeedSameEpisode(t *testing.T) {
	run := func() []float64 {
		s, err := NewGazeScape(Config{
			Task:   task.Config{Width: 0.15, TargetLocStd: 0.3},
			Theory: theory.Params{OculomotorNoiseWeight: 0.01, StimulusNoiseWeight: 0.09},
			Seed:   99,
		})
		if err != nil {
			t.Fatalf("new scape: %v", err)
		}
		ctx := context.Background()
		if _, err := s.Reset(ctx); err != nil {
			t.Fatalf("reset: %v", err)
		}
		var trail []float64
		for i := 0; i < 5; i++ {
			result, err := s.Step(ctx, []float64{0.1 * float64(i), -0.1 * float64(i)})
			if err != nil {
				t.Fatalf("step: %v", err)
			}
			trail = append(trail, result.Observation.Vector()...)
			if result.Done {
				break
			}
		}
		return trail
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("trail lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("trails diverged at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

type fixedAgent struct {
	action []float64
}

func (fixedAgent) ID() string { return "fixed" }

func (a fixedAgent) RunStep(context.Context, []float64) ([]float64, error) {
	return append([]float64(nil), a.action...), nil
}

func TestRunEpisodeSummarizesHitAndMiss(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{X: 0.3, Y: -0.2}, theory.Params{}, 3)

	summary, err := RunEpisode(context.Background(), s, fixedAgent{action: []float64{0.3, -0.2}}, nil)
	if err != nil {
		t.Fatalf("run hit episode: %v", err)
	}
	if !summary.Success || summary.Truncated || summary.Steps != 1 {
		t.Fatalf("unexpected hit summary: %+v", summary)
	}
	want := -geometry.Distance(geometry.Corner, geometry.Point2D{X: 0.3, Y: -0.2})
	if math.Abs(summary.Return-want) > 1e-12 {
		t.Fatalf("return=%f want %f", summary.Return, want)
	}

	summary, err = RunEpisode(context.Background(), s, fixedAgent{action: []float64{-1, 1}}, nil)
	if err != nil {
		t.Fatalf("run miss episode: %v", err)
	}
	if summary.Success || !summary.Truncated || summary.Steps != 4 {
		t.Fatalf("unexpected miss summary: %+v", summary)
	}
	if summary.Return >= 0 {
		t.Fatalf("expected negative return, got %f", summary.Return)
	}
}

func TestRunEpisodeObserverSeesEveryStep(t *testing.T) {
	s := newTestScape(t, geometry.Point2D{X: 0.5, Y: 0.5}, theory.Params{}, 2)
	var steps []int
	summary, err := RunEpisode(context.Background(), s, fixedAgent{action: []float64{0, 0}}, func(step int, prev theory.Observation, action []float64, result StepResult) error {
		steps = append(steps, step)
		return nil
	})
	if err != nil {
		t.Fatalf("run episode: %v", err)
	}
	if summary.Steps != 3 || len(steps) != 3 || !summary.Truncated || summary.Success {
		t.Fatalf("unexpected summary %+v steps=%v", summary, steps)
	}
}
