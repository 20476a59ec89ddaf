// Package config loads and validates gazepomdp configuration through viper.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"gazepomdp/internal/geometry"
	"gazepomdp/internal/scape"
	"gazepomdp/internal/task"
	"gazepomdp/internal/theory"
	"gazepomdp/internal/tuning"
)

// ErrInvalidConfiguration wraps every validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

const EnvPrefix = "GAZE"

type Config struct {
	Task       TaskConfig       `mapstructure:"task" yaml:"task"`
	Theory     TheoryConfig     `mapstructure:"theory" yaml:"theory"`
	Episode    EpisodeConfig    `mapstructure:"episode" yaml:"episode"`
	Training   TrainingConfig   `mapstructure:"training" yaml:"training"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" yaml:"evaluation"`
	Run        RunConfig        `mapstructure:"run" yaml:"run"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
}

type TaskConfig struct {
	TargetWidth  float64   `mapstructure:"target_width" yaml:"target_width"`
	TargetLocStd float64   `mapstructure:"target_loc_std" yaml:"target_loc_std"`
	FixedTarget  []float64 `mapstructure:"fixed_target" yaml:"fixed_target"`
}

type TheoryConfig struct {
	OculomotorNoiseWeight float64 `mapstructure:"oculomotor_noise_weight" yaml:"oculomotor_noise_weight"`
	StimulusNoiseWeight   float64 `mapstructure:"stimulus_noise_weight" yaml:"stimulus_noise_weight"`
	StepCost              float64 `mapstructure:"step_cost" yaml:"step_cost"`
	PriorStd              float64 `mapstructure:"prior_std" yaml:"prior_std"`
	TrackFixation         bool    `mapstructure:"track_fixation" yaml:"track_fixation"`
}

type EpisodeConfig struct {
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
}

type TrainingConfig struct {
	Timesteps          int      `mapstructure:"timesteps" yaml:"timesteps"`
	EvalEpisodes       int      `mapstructure:"eval_episodes" yaml:"eval_episodes"`
	AttemptsPerRound   int      `mapstructure:"attempts_per_round" yaml:"attempts_per_round"`
	PerturbSteps       int      `mapstructure:"perturb_steps" yaml:"perturb_steps"`
	StepSize           float64  `mapstructure:"step_size" yaml:"step_size"`
	PerturbationRange  float64  `mapstructure:"perturbation_range" yaml:"perturbation_range"`
	AnnealingFactor    float64  `mapstructure:"annealing_factor" yaml:"annealing_factor"`
	MinImprovement     float64  `mapstructure:"min_improvement" yaml:"min_improvement"`
	CandidateSelection string   `mapstructure:"candidate_selection" yaml:"candidate_selection"`
	HiddenNeurons      int      `mapstructure:"hidden_neurons" yaml:"hidden_neurons"`
	GoalFitness        *float64 `mapstructure:"goal_fitness" yaml:"goal_fitness"`
}

type EvaluationConfig struct {
	Episodes  int    `mapstructure:"episodes" yaml:"episodes"`
	TracePath string `mapstructure:"trace_path" yaml:"trace_path"`
}

type RunConfig struct {
	Seed         uint64 `mapstructure:"seed" yaml:"seed"`
	Workers      int    `mapstructure:"workers" yaml:"workers"`
	ArtifactsDir string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
}

type StorageConfig struct {
	Kind   string `mapstructure:"kind" yaml:"kind"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the default value of every recognized key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("task.target_width", 0.15)
	v.SetDefault("task.target_loc_std", 0.3)
	v.SetDefault("task.fixed_target", []float64{})

	v.SetDefault("theory.oculomotor_noise_weight", 0.01)
	v.SetDefault("theory.stimulus_noise_weight", 0.09)
	v.SetDefault("theory.step_cost", 0.0)
	v.SetDefault("theory.prior_std", theory.DefaultPriorStd)
	v.SetDefault("theory.track_fixation", false)

	v.SetDefault("episode.max_steps", scape.DefaultMaxSteps)

	v.SetDefault("training.timesteps", 100000)
	v.SetDefault("training.eval_episodes", 8)
	v.SetDefault("training.attempts_per_round", 4)
	v.SetDefault("training.perturb_steps", 2)
	v.SetDefault("training.step_size", 0.5)
	v.SetDefault("training.perturbation_range", 1.0)
	v.SetDefault("training.annealing_factor", 0.9)
	v.SetDefault("training.min_improvement", 0.0)
	v.SetDefault("training.candidate_selection", tuning.CandidateSelectBestSoFar)
	v.SetDefault("training.hidden_neurons", 4)

	v.SetDefault("evaluation.episodes", 10)
	v.SetDefault("evaluation.trace_path", "trace.csv")

	v.SetDefault("run.seed", 0)
	v.SetDefault("run.workers", 1)
	v.SetDefault("run.artifacts_dir", "runs")

	v.SetDefault("storage.kind", "memory")
	v.SetDefault("storage.db_path", "gaze.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gazepomdp")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
}

// BindEnv makes every key overridable as GAZE_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewDefaultConfig returns the configuration with only defaults applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Task.validate(); err != nil {
		return err
	}
	if err := c.Theory.validate(); err != nil {
		return err
	}
	if c.Episode.MaxSteps <= 0 {
		return invalid("episode.max_steps must be a positive integer, got %d", c.Episode.MaxSteps)
	}
	if err := c.Training.validate(); err != nil {
		return err
	}
	if c.Evaluation.Episodes <= 0 {
		return invalid("evaluation.episodes must be a positive integer, got %d", c.Evaluation.Episodes)
	}
	if c.Run.Workers <= 0 {
		return invalid("run.workers must be a positive integer, got %d", c.Run.Workers)
	}
	switch c.Storage.Kind {
	case "", "memory", "sqlite":
	default:
		return invalid("storage.kind must be memory or sqlite, got %q", c.Storage.Kind)
	}
	return nil
}

func (t TaskConfig) validate() error {
	if !positive(t.TargetWidth) {
		return invalid("task.target_width must be > 0, got %g", t.TargetWidth)
	}
	if !positive(t.TargetLocStd) {
		return invalid("task.target_loc_std must be > 0, got %g", t.TargetLocStd)
	}
	if len(t.FixedTarget) != 0 {
		p, err := geometry.FromSlice(t.FixedTarget)
		if err != nil {
			return invalid("task.fixed_target: %v", err)
		}
		if !p.IsFinite() || !geometry.InDomain(p) {
			return invalid("task.fixed_target %v outside [-1, 1]", p)
		}
	}
	return nil
}

func (t TheoryConfig) validate() error {
	if !nonNegative(t.OculomotorNoiseWeight) {
		return invalid("theory.oculomotor_noise_weight must be >= 0, got %g", t.OculomotorNoiseWeight)
	}
	if !nonNegative(t.StimulusNoiseWeight) {
		return invalid("theory.stimulus_noise_weight must be >= 0, got %g", t.StimulusNoiseWeight)
	}
	if !positive(t.PriorStd) || t.PriorStd > geometry.DomainMax {
		return invalid("theory.prior_std must be in (0, %g], got %g", geometry.DomainMax, t.PriorStd)
	}
	return nil
}

func (t TrainingConfig) validate() error {
	if t.Timesteps <= 0 {
		return invalid("training.timesteps must be a positive integer, got %d", t.Timesteps)
	}
	if t.EvalEpisodes <= 0 {
		return invalid("training.eval_episodes must be a positive integer, got %d", t.EvalEpisodes)
	}
	if t.AttemptsPerRound <= 0 {
		return invalid("training.attempts_per_round must be a positive integer, got %d", t.AttemptsPerRound)
	}
	if t.PerturbSteps <= 0 {
		return invalid("training.perturb_steps must be a positive integer, got %d", t.PerturbSteps)
	}
	if !positive(t.StepSize) {
		return invalid("training.step_size must be > 0, got %g", t.StepSize)
	}
	if !nonNegative(t.PerturbationRange) || !nonNegative(t.AnnealingFactor) || !nonNegative(t.MinImprovement) {
		return invalid("training perturbation_range, annealing_factor and min_improvement must be >= 0")
	}
	if t.HiddenNeurons < 0 {
		return invalid("training.hidden_neurons must be >= 0, got %d", t.HiddenNeurons)
	}
	if err := tuning.ValidateCandidateSelection(t.CandidateSelection); err != nil {
		return invalid("training.candidate_selection %q: %v", t.CandidateSelection, err)
	}
	return nil
}

// TaskParams converts the task section for the task package.
func (c *Config) TaskParams() task.Config {
	out := task.Config{Width: c.Task.TargetWidth, TargetLocStd: c.Task.TargetLocStd}
	if len(c.Task.FixedTarget) == 2 {
		p := geometry.Point2D{X: c.Task.FixedTarget[0], Y: c.Task.FixedTarget[1]}
		out.FixedTarget = &p
	}
	return out
}

// TheoryParams converts the theory section for the theory package.
func (c *Config) TheoryParams() theory.Params {
	return theory.Params{
		OculomotorNoiseWeight: c.Theory.OculomotorNoiseWeight,
		StimulusNoiseWeight:   c.Theory.StimulusNoiseWeight,
		StepCost:              c.Theory.StepCost,
		PriorStd:              c.Theory.PriorStd,
		TrackFixation:         c.Theory.TrackFixation,
	}
}

// ScapeConfig assembles an adapter configuration seeded with seed.
func (c *Config) ScapeConfig(seed uint64) scape.Config {
	return scape.Config{
		Task:     c.TaskParams(),
		Theory:   c.TheoryParams(),
		MaxSteps: c.Episode.MaxSteps,
		Seed:     seed,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
