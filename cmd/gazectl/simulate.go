package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gazepomdp/internal/agent"
	"gazepomdp/internal/noise"
	"gazepomdp/internal/scape"
	"gazepomdp/internal/stats"
	"gazepomdp/internal/theory"
	"gazepomdp/pkg/gazepomdp"
)

func newSimulateCommand(a *app) *cobra.Command {
	var (
		agentName string
		policyRun string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play one episode and print every step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			seed := a.cfg.Run.Seed
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			env, err := client.NewEnv(seed)
			if err != nil {
				return err
			}
			stepper, err := simulationAgent(agentName, policyRun, a.cfg.Run.ArtifactsDir, seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary, err := scape.RunEpisode(cmd.Context(), env, stepper, func(step int, prev theory.Observation, action []float64, res scape.StepResult) error {
				_, err := fmt.Fprintf(out, "step=%d obs=(%.4f, %.4f, %.4f) action=(%.4f, %.4f) fixation=(%.4f, %.4f) target=(%.4f, %.4f) reward=%.4f done=%t\n",
					step, prev.X, prev.Y, prev.Std, action[0], action[1],
					res.Info[scape.InfoFixationX], res.Info[scape.InfoFixationY],
					res.Info[scape.InfoTargetX], res.Info[scape.InfoTargetY],
					res.Reward, res.Done)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "steps=%d return=%.4f success=%t truncated=%t\n", summary.Steps, summary.Return, summary.Success, summary.Truncated)
			return nil
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", gazepomdp.AgentBeliefFollower, "agent: belief|random (ignored with --policy-run)")
	cmd.Flags().StringVar(&policyRun, "policy-run", "", "training run whose policy drives the episode")
	return cmd
}

func simulationAgent(name, policyRun, artifactsDir string, seed uint64) (scape.StepAgent, error) {
	if policyRun != "" {
		policy, ok, err := stats.ReadPolicy(artifactsDir, policyRun)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("run %s has no policy artifact", policyRun)
		}
		return agent.NewCortex(policy.ID, policy)
	}
	switch name {
	case gazepomdp.AgentBeliefFollower:
		return agent.BeliefFollower{}, nil
	case gazepomdp.AgentRandom:
		return agent.NewRandomAgent(noise.New(seed).Derive(1 << 32)), nil
	default:
		return nil, fmt.Errorf("unknown agent: %s", name)
	}
}
