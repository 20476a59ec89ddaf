package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gazepomdp/internal/geometry"
	"gazepomdp/internal/task"
)

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 0.15, cfg.Task.TargetWidth)
	assert.Equal(t, 0.3, cfg.Task.TargetLocStd)
	assert.Equal(t, 0.01, cfg.Theory.OculomotorNoiseWeight)
	assert.Equal(t, 0.09, cfg.Theory.StimulusNoiseWeight)
	assert.Equal(t, 0.1, cfg.Theory.PriorStd)
	assert.False(t, cfg.Theory.TrackFixation)
	assert.Equal(t, 500, cfg.Episode.MaxSteps)
	assert.Equal(t, 100000, cfg.Training.Timesteps)
	assert.Equal(t, "best_so_far", cfg.Training.CandidateSelection)
	assert.Equal(t, "memory", cfg.Storage.Kind)
	assert.Equal(t, 1, cfg.Run.Workers)
	assert.Nil(t, cfg.TaskParams().FixedTarget)
}

func TestYAMLOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	yaml := `
task:
  target_width: 0.2
  fixed_target: [0.3, -0.2]
theory:
  oculomotor_noise_weight: 0
  stimulus_noise_weight: 0
  track_fixation: true
episode:
  max_steps: 50
training:
  candidate_selection: dynamic_random
  goal_fitness: -1.5
`
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	want := task.Config{Width: 0.2, TargetLocStd: 0.3, FixedTarget: &geometry.Point2D{X: 0.3, Y: -0.2}}
	if diff := cmp.Diff(want, cfg.TaskParams()); diff != "" {
		t.Fatalf("task params mismatch (-want +got):\n%s", diff)
	}
	th := cfg.TheoryParams()
	assert.Zero(t, th.OculomotorNoiseWeight)
	assert.True(t, th.TrackFixation)

	sc := cfg.ScapeConfig(42)
	assert.Equal(t, 50, sc.MaxSteps)
	assert.Equal(t, uint64(42), sc.Seed)
	require.NotNil(t, cfg.Training.GoalFitness)
	assert.Equal(t, -1.5, *cfg.Training.GoalFitness)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GAZE_EPISODE_MAX_STEPS", "25")
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Episode.MaxSteps)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero width":          func(c *Config) { c.Task.TargetWidth = 0 },
		"negative loc std":    func(c *Config) { c.Task.TargetLocStd = -0.1 },
		"fixed target shape":  func(c *Config) { c.Task.FixedTarget = []float64{0.1} },
		"fixed target range":  func(c *Config) { c.Task.FixedTarget = []float64{1.5, 0} },
		"negative ocular":     func(c *Config) { c.Theory.OculomotorNoiseWeight = -1 },
		"negative stimulus":   func(c *Config) { c.Theory.StimulusNoiseWeight = -0.01 },
		"zero prior":          func(c *Config) { c.Theory.PriorStd = 0 },
		"prior above domain":  func(c *Config) { c.Theory.PriorStd = 1.5 },
		"zero max steps":      func(c *Config) { c.Episode.MaxSteps = 0 },
		"zero timesteps":      func(c *Config) { c.Training.Timesteps = 0 },
		"bad selection":       func(c *Config) { c.Training.CandidateSelection = "greedy" },
		"zero eval episodes":  func(c *Config) { c.Evaluation.Episodes = 0 },
		"zero workers":        func(c *Config) { c.Run.Workers = 0 },
		"unknown store kind":  func(c *Config) { c.Storage.Kind = "postgres" },
		"negative hidden":     func(c *Config) { c.Training.HiddenNeurons = -1 },
		"zero step size":      func(c *Config) { c.Training.StepSize = 0 },
		"zero perturb steps":  func(c *Config) { c.Training.PerturbSteps = 0 },
		"zero attempts/round": func(c *Config) { c.Training.AttemptsPerRound = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestNewConfigFromViperValidates(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("task.target_width", -1.0)
	_, err := NewConfigFromViper(v)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}
