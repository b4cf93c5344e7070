package scenarios

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/core/rebalance"
	"github.com/eric2969/OR2025-Final/infra/logger"
	"github.com/eric2969/OR2025-Final/infra/metrics"
	"github.com/eric2969/OR2025-Final/infra/simplex"
)

const tolerance = 1e-6

func RunScenario(t *testing.T, sc *Scenario) {
	tbl, err := sc.Table()
	if err != nil {
		t.Fatalf("scenario %s: table: %v", sc.Name, err)
	}
	params := sc.Params.ToModel()
	initial := sc.Initial(tbl)

	for _, run := range sc.Runs {
		name := run.Strategy
		if run.StrictLedger {
			name += "-strict"
		}
		t.Run(name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			sink, err := metrics.NewPromSinkWithRegistry(reg)
			if err != nil {
				t.Fatalf("prom sink: %v", err)
			}
			planner, err := rebalance.NewPlanner(rebalance.Options{
				Strategy:     run.Strategy,
				Params:       params,
				BatchSize:    run.BatchSize,
				StrictLedger: run.StrictLedger,
				Solver:       simplex.New(logger.NopLogger{}),
				Metrics:      sink,
				Log:          logger.NopLogger{},
			})
			if err != nil {
				t.Fatalf("planner: %v", err)
			}
			planner.SetRunID(sc.Name)

			plan, err := planner.Plan(context.Background(), tbl, initial)
			if err != nil {
				t.Fatalf("plan: %v", err)
			}
			violations, err := rebalance.Verify(tbl, plan, params)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			for _, msg := range check(run.Expected, plan, len(violations)) {
				t.Errorf("scenario %s/%s: %s", sc.Name, name, msg)
			}
			if n := testutil.CollectAndCount(reg, "rebalance_run_objective"); n != 4 {
				t.Errorf("expected 4 objective series, got %d", n)
			}
		})
	}
}

// check returns one message per expectation the plan misses.
func check(exp Expected, plan *model.Plan, violations int) []string {
	var out []string
	intEq := func(name string, want *int, got int) {
		if want != nil && *want != got {
			out = append(out, fmt.Sprintf("%s: want %d, got %d", name, *want, got))
		}
	}
	floatEq := func(name string, want *float64, got float64) {
		if want != nil && (got-*want > tolerance || *want-got > tolerance) {
			out = append(out, fmt.Sprintf("%s: want %g, got %g", name, *want, got))
		}
	}
	intEq("transfers", exp.Transfers, len(plan.Transfers))
	intEq("dispatched", exp.Dispatched, plan.Summary.Dispatched)
	intEq("hides", exp.Hides, len(plan.Hides))
	intEq("hidden", exp.Hidden, plan.Summary.Hidden)
	intEq("ledger_deficits", exp.LedgerDeficits, plan.Summary.LedgerDeficits)
	intEq("violations", exp.Violations, violations)
	floatEq("wait_cost", exp.WaitCost, plan.Summary.WaitCost)
	floatEq("dispatch_cost", exp.DispatchCost, plan.Summary.DispatchCost)
	if exp.Final != nil && fmt.Sprint(exp.Final) != fmt.Sprint(plan.Final) {
		out = append(out, fmt.Sprintf("final: want %v, got %v", exp.Final, plan.Final))
	}
	if exp.Quality != "" && exp.Quality != string(plan.Summary.Quality) {
		out = append(out, fmt.Sprintf("quality: want %s, got %s", exp.Quality, plan.Summary.Quality))
	}
	return out
}
