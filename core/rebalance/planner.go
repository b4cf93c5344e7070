// Package rebalance plans vehicle transfers and hide/release events for a
// station network over a horizon of periods. It offers an exact strategy,
// which builds a mixed-integer program per window and hands it to an
// engine.Solver, and a greedy period-by-period heuristic.
package rebalance

import (
	"context"
	"fmt"
	"strings"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/engine"
	"github.com/eric2969/OR2025-Final/core/logger"
	"github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/core/model"
)

// Strategy names.
const (
	StrategyBatched = "batched"
	StrategyFull    = "full"
	StrategyGreedy  = "greedy"
)

// Planner produces a plan for a demand table.
type Planner interface {
	Plan(ctx context.Context, tbl *demand.Table, initial []int) (*model.Plan, error)
	Name() string
	SetRunID(id string)
}

// Options selects and configures a planner.
type Options struct {
	Strategy     string
	Params       model.Params
	Limits       engine.Params
	BatchSize    int
	StrictLedger bool
	Solver       engine.Solver
	Metrics      metrics.MetricsSink
	Log          logger.Logger
}

// NewPlanner returns the planner named by opts.Strategy. An empty strategy
// means batched, which needs a positive opts.BatchSize.
func NewPlanner(opts Options) (Planner, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Strategy)) {
	case "", StrategyBatched:
		if opts.BatchSize <= 0 {
			return nil, fmt.Errorf("rebalance: batched strategy needs a positive batch size, got %d; use %q for a single window", opts.BatchSize, StrategyFull)
		}
		return NewDriver(opts.Solver, opts.Params, opts.Limits, opts.BatchSize, opts.Metrics, opts.Log)
	case StrategyFull:
		return NewDriver(opts.Solver, opts.Params, opts.Limits, 0, opts.Metrics, opts.Log)
	case StrategyGreedy:
		return NewGreedy(opts.Params, opts.StrictLedger, opts.Metrics, opts.Log)
	default:
		return nil, fmt.Errorf("rebalance: unknown strategy %q", opts.Strategy)
	}
}
