package task

import (
	"errors"
	"testing"

	"gazepomdp/internal/geometry"
	"gazepomdp/internal/noise"
)

func newTestTask(t *testing.T, cfg Config, seed uint64) *GazeTask {
	t.Helper()
	gt, err := NewGazeTask(cfg, noise.New(seed))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return gt
}

func TestGazeTaskResetBounds(t *testing.T) {
	// A wide spread forces clipping on a good share of draws.
	gt := newTestTask(t, Config{Width: 0.15, TargetLocStd: 2.0}, 3)
	for i := 0; i < 200; i++ {
		state := gt.Reset()
		if !geometry.InDomain(state.Target) {
			t.Fatalf("target out of domain: %v", state.Target)
		}
		if state.Fixation != geometry.Corner {
			t.Fatalf("expected corner fixation, got %v", state.Fixation)
		}
		if state.Width != 0.15 {
			t.Fatalf("unexpected width %f", state.Width)
		}
	}
}

func TestGazeTaskStepBeforeResetFails(t *testing.T) {
	gt := newTestTask(t, Config{Width: 0.15, TargetLocStd: 0.3}, 1)
	if _, _, err := gt.Step(geometry.Point2D{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestGazeTaskDoneMatchesDistance(t *testing.T) {
	target := geometry.Point2D{X: 0.3, Y: -0.2}
	gt := newTestTask(t, Config{Width: 0.15, TargetLocStd: 0.3, FixedTarget: &target}, 1)
	gt.Reset()

	actions := []geometry.Point2D{
		{X: 0.3, Y: -0.2},
		{X: 0.36, Y: -0.2},
		{X: 0.376, Y: -0.2},
		{X: -0.5, Y: 0.5},
		{X: 0.3, Y: -0.13},
	}
	for _, action := range actions {
		state, done, err := gt.Step(action)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if state.Fixation != action {
			t.Fatalf("fixation not set to action: %v", state.Fixation)
		}
		want := geometry.Distance(action, target) < 0.075
		if done != want {
			t.Fatalf("action %v: done=%t want %t", action, done, want)
		}
		if state.Target != target {
			t.Fatalf("target moved within episode: %v", state.Target)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{Width: 0, TargetLocStd: 0.3},
		{Width: 0.1, TargetLocStd: -1},
		{Width: 0.1, TargetLocStd: 0.3, FixedTarget: &geometry.Point2D{X: 2}},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
	if _, err := NewGazeTask(Config{Width: 0.1, TargetLocStd: 0.3}, nil); err == nil {
		t.Fatal("expected error without random source")
	}
}
