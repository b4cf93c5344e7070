package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/eric2969/OR2025-Final/app"
	"github.com/eric2969/OR2025-Final/core/runlog"
)

var (
	historyLimit    int
	historyStrategy string
	historyRunID    string
	historySince    time.Duration
	historyJSON     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	RunE:  runHistory,
}

func init() {
	fs := historyCmd.Flags()
	fs.IntVar(&historyLimit, "limit", 20, "most recent runs to show; 0 for all")
	fs.StringVar(&historyStrategy, "strategy", "", "filter by strategy")
	fs.StringVar(&historyRunID, "run-id", "", "filter by run id")
	fs.DurationVar(&historySince, "since", 0, "only runs newer than this, e.g. 24h")
	fs.BoolVar(&historyJSON, "json", false, "print records as JSON lines")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	q := runlog.Query{Strategy: historyStrategy, RunID: historyRunID, Limit: historyLimit}
	if historySince > 0 {
		q.Start = time.Now().Add(-historySince)
	}
	return withService(nil, func(ctx context.Context, svc *app.Service) error {
		recs, err := svc.History(ctx, q)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			for _, r := range recs {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tRUN\tCOMMAND\tSTRATEGY\tOBJECTIVE\tQUALITY\tERROR")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%s\t%s\n",
				r.Timestamp.Format(time.RFC3339), r.RunID, r.Command, r.Strategy,
				r.Summary.Objective, r.Summary.Quality, r.Error)
		}
		return tw.Flush()
	})
}
