package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gazepomdp/pkg/gazepomdp"
)

func newTrainCommand(a *app) *cobra.Command {
	var (
		timesteps  int
		continueID string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Optimize a policy until the timestep budget is spent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Train(cmd.Context(), gazepomdp.TrainRequest{
				Timesteps:     timesteps,
				ContinueRunID: continueID,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s policy_id=%s seed=%d\n", summary.RunID, summary.PolicyID, summary.Seed)
			fmt.Fprintf(out, "rounds=%d steps=%d stop=%s\n", summary.Rounds, summary.StepsUsed, summary.StopCause)
			fmt.Fprintf(out, "initial_fitness=%.4f best_fitness=%.4f\n", summary.InitialFitness, summary.BestFitness)
			fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
			return nil
		},
	}
	cmd.Flags().IntVar(&timesteps, "timesteps", 0, "environment step budget (overrides training.timesteps)")
	cmd.Flags().StringVar(&continueID, "continue", "", "continue from the policy of an earlier training run")
	return cmd
}
