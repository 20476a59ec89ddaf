package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gazepomdp/pkg/gazepomdp"
)

func newRunsCommand(a *app) *cobra.Command {
	var req gazepomdp.RunsRequest
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Runs(cmd.Context(), req)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN_ID\tKIND\tPOLICY\tSEED\tFITNESS\tCREATED")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%s\n", item.RunID, item.Kind, item.PolicyID, item.Seed, item.Fitness, item.CreatedAtUTC)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", 20, "maximum runs to list")
	cmd.Flags().StringVar(&req.Kind, "kind", "", "only list runs of this kind: train|evaluate")
	return cmd
}
