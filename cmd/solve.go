package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eric2969/OR2025-Final/app"
	"github.com/eric2969/OR2025-Final/config"
	"github.com/eric2969/OR2025-Final/infra/logger"
)

var (
	solveFlags  planFlags
	greedyFlags planFlags
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Plan transfers and hides with the configured strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, &solveFlags, "")
	},
}

var greedyCmd = &cobra.Command{
	Use:   "greedy",
	Short: "Plan with the greedy heuristic",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, &greedyFlags, "greedy")
	},
}

func init() {
	solveFlags.register(solveCmd, true)
	greedyFlags.register(greedyCmd, false)
	rootCmd.AddCommand(solveCmd, greedyCmd)
}

func runPlan(cmd *cobra.Command, flags *planFlags, strategy string) error {
	mutate := func(cfg *config.Config) error {
		if strategy != "" {
			cfg.Solver.Strategy = strategy
		}
		return flags.apply(cmd, cfg)
	}
	return withService(mutate, func(ctx context.Context, svc *app.Service) error {
		log := logger.New(cmd.Name())
		out, err := svc.Solve(ctx, cmd.Name())
		if out != nil && out.Plan != nil {
			s := out.Plan.Summary
			log.Infof("run %s: objective=%.4f wait=%.4f dispatch=%.4f hide=%.4f quality=%s",
				out.RunID, s.Objective, s.WaitCost, s.DispatchCost, s.HideCost, s.Quality)
			for _, f := range out.Files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			if out.Publish != nil {
				log.Infof("published %d periods, %d acked, %d unacked",
					out.Publish.Sent, out.Publish.Acked, len(out.Publish.Unacked))
			}
		}
		return err
	})
}
