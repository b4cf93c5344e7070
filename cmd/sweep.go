package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eric2969/OR2025-Final/app"
	"github.com/eric2969/OR2025-Final/config"
	"github.com/eric2969/OR2025-Final/core/sensitivity"
)

var (
	sweepFlags   planFlags
	sweepX       string
	sweepXValues string
	sweepY       string
	sweepYValues string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate the planner over a two-parameter grid",
	Long: "Evaluate the planner over a two-parameter grid. Values are a comma list " +
		"(1,2,5) or an inclusive range start:stop:step. Parameters: " + strings.Join(sensitivity.Names(), ", "),
	RunE: runSweep,
}

func init() {
	sweepFlags.register(sweepCmd, true)
	fs := sweepCmd.Flags()
	fs.StringVar(&sweepX, "x", "truck_count", "first parameter")
	fs.StringVar(&sweepXValues, "x-values", "10,20,30", "values of the first parameter")
	fs.StringVar(&sweepY, "y", "hide_cost", "second parameter")
	fs.StringVar(&sweepYValues, "y-values", "0.02,0.04,0.08", "values of the second parameter")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	xs, err := sensitivity.ParseValues(sweepXValues)
	if err != nil {
		return err
	}
	ys, err := sensitivity.ParseValues(sweepYValues)
	if err != nil {
		return err
	}
	mutate := func(cfg *config.Config) error { return sweepFlags.apply(cmd, cfg) }
	return withService(mutate, func(ctx context.Context, svc *app.Service) error {
		res, path, err := svc.Sweep(ctx,
			sensitivity.Axis{Param: sweepX, Values: xs},
			sensitivity.Axis{Param: sweepY, Values: ys},
		)
		if res != nil {
			if best, ok := res.Best(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "best %s=%g %s=%g objective=%.4f mean_wait=%.4f\n",
					res.ParamX, best.X, res.ParamY, best.Y, best.Objective, best.MeanWait)
			}
			if path != "" {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
		}
		return err
	})
}
