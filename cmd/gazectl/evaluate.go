package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gazepomdp/pkg/gazepomdp"
)

func newEvaluateCommand(a *app) *cobra.Command {
	var req gazepomdp.EvaluateRequest
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run evaluation episodes with a frozen policy and write a step trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}
			s := summary.Summary
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s policy_id=%s seed=%d\n", summary.RunID, s.PolicyID, summary.Seed)
			fmt.Fprintf(out, "episodes=%d mean_return=%.4f std_return=%.4f mean_steps=%.2f success_rate=%.2f truncations=%d\n",
				s.Episodes, s.MeanReturn, s.StdReturn, s.MeanSteps, s.SuccessRate, s.Truncations)
			fmt.Fprintf(out, "trace=%s\n", summary.TracePath)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.PolicyRunID, "policy-run", "", "training run whose policy to evaluate")
	flags.StringVar(&req.PolicyID, "policy-id", "", "stored policy id to evaluate")
	flags.StringVar(&req.Agent, "agent", gazepomdp.AgentBeliefFollower, "baseline agent when no policy is given: belief|random")
	flags.IntVar(&req.Episodes, "episodes", 0, "episodes to run (overrides evaluation.episodes)")
	return cmd
}
