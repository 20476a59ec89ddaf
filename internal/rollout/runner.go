// Package rollout runs batches of evaluation episodes with a frozen policy.
package rollout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gazepomdp/internal/model"
	"gazepomdp/internal/noise"
	"gazepomdp/internal/scape"
	"gazepomdp/internal/theory"
)

// agentStreamOffset separates agent random streams from environment streams
// derived from the same base seed.
const agentStreamOffset = 1 << 32

// Sink receives trace rows in episode order.
type Sink interface {
	Write(row model.TraceRow) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(row model.TraceRow) error

func (f SinkFunc) Write(row model.TraceRow) error {
	return f(row)
}

// AgentFactory builds the policy a worker steps with. rng is private to the
// worker and may be ignored by deterministic policies.
type AgentFactory func(worker int, rng *noise.Source) (scape.StepAgent, error)

// Runner spreads episodes across Workers goroutines. Worker w owns its own
// GazeScape seeded from (Scape.Seed, w) and plays episodes w, w+Workers, ...
type Runner struct {
	Scape   scape.Config
	Workers int
	Logger  *zap.Logger
}

type Result struct {
	Episodes []scape.EpisodeSummary
	Steps    int
}

type episodeOutcome struct {
	index   int
	summary scape.EpisodeSummary
	rows    []model.TraceRow
}

// Run plays episodes episodes. When sink is non-nil every step is written to
// it, one whole episode at a time and in episode order.
func (r *Runner) Run(ctx context.Context, episodes int, newAgent AgentFactory, sink Sink) (Result, error) {
	if episodes <= 0 {
		return Result{}, fmt.Errorf("episodes must be > 0, got %d", episodes)
	}
	if newAgent == nil {
		return Result{}, errors.New("agent factory is required")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > episodes {
		workers = episodes
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("rollout")
	base := noise.New(r.Scape.Seed)

	g, gctx := errgroup.WithContext(ctx)
	outcomes := make(chan episodeOutcome, workers)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			cfg := r.Scape
			cfg.Seed = base.Derive(uint64(w)).Seed()
			cfg.Logger = logger
			env, err := scape.NewGazeScape(cfg)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			agent, err := newAgent(w, base.Derive(agentStreamOffset+uint64(w)))
			if err != nil {
				return fmt.Errorf("worker %d agent: %w", w, err)
			}
			for ep := w; ep < episodes; ep += workers {
				out, err := playEpisode(gctx, env, agent, ep, sink != nil)
				if err != nil {
					return fmt.Errorf("episode %d: %w", ep, err)
				}
				logger.Debug("episode complete",
					zap.Int("worker", w),
					zap.Int("episode", ep),
					zap.Int("steps", out.summary.Steps),
					zap.Float64("return", out.summary.Return),
				)
				select {
				case outcomes <- out:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	result := Result{Episodes: make([]scape.EpisodeSummary, episodes)}
	collectErr := make(chan error, 1)
	go func() {
		collectErr <- collect(gctx, outcomes, episodes, sink, &result)
	}()

	err := g.Wait()
	close(outcomes)
	if cerr := <-collectErr; err == nil {
		err = cerr
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func playEpisode(ctx context.Context, env *scape.GazeScape, agent scape.StepAgent, index int, record bool) (episodeOutcome, error) {
	out := episodeOutcome{index: index}
	var observe scape.StepObserver
	if record {
		observe = func(step int, _ theory.Observation, action []float64, res scape.StepResult) error {
			out.rows = append(out.rows, traceRow(index, step, action, res))
			return nil
		}
	}
	summary, err := scape.RunEpisode(ctx, env, agent, observe)
	if err != nil {
		return episodeOutcome{}, err
	}
	out.summary = summary
	return out, nil
}

// collect reorders finished episodes so the sink sees them by index. It keeps
// draining outcomes after a sink failure so workers never block.
func collect(ctx context.Context, outcomes <-chan episodeOutcome, episodes int, sink Sink, result *Result) error {
	pending := make(map[int]episodeOutcome)
	next := 0
	var sinkErr error
	for out := range outcomes {
		pending[out.index] = out
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			result.Episodes[next] = ready.summary
			result.Steps += ready.summary.Steps
			if sink != nil && sinkErr == nil {
				for _, row := range ready.rows {
					if err := sink.Write(row); err != nil {
						sinkErr = fmt.Errorf("trace sink: %w", err)
						break
					}
				}
			}
			next++
		}
	}
	if sinkErr != nil {
		return sinkErr
	}
	if next != episodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("collected %d of %d episodes", next, episodes)
	}
	return nil
}

func traceRow(episode, step int, action []float64, res scape.StepResult) model.TraceRow {
	row := model.TraceRow{
		Episode:   episode,
		Step:      step,
		BeliefX:   res.Observation.X,
		BeliefY:   res.Observation.Y,
		BeliefStd: res.Observation.Std,
		Reward:    res.Reward,
		Done:      res.Done,
	}
	if len(action) == 2 {
		row.ActionX, row.ActionY = action[0], action[1]
	}
	row.TargetX, _ = res.Info[scape.InfoTargetX].(float64)
	row.TargetY, _ = res.Info[scape.InfoTargetY].(float64)
	row.TargetWidth, _ = res.Info[scape.InfoTargetWidth].(float64)
	row.FixationX, _ = res.Info[scape.InfoFixationX].(float64)
	row.FixationY, _ = res.Info[scape.InfoFixationY].(float64)
	row.Truncated, _ = res.Info[scape.InfoTruncated].(bool)
	return row
}
