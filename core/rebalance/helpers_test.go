package rebalance

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/engine"
	"github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/infra/logger"
	"github.com/eric2969/OR2025-Final/infra/simplex"
)

type station struct {
	id     string
	cap    int
	borrow []float64
	ret    []float64
}

func buildTable(t *testing.T, periods []string, stations ...station) *demand.Table {
	t.Helper()
	var rows []demand.Row
	for _, s := range stations {
		for p, label := range periods {
			rows = append(rows, demand.Row{
				StationID:   s.id,
				StationName: "Station " + s.id,
				Area:        "test",
				Period:      label,
				Capacity:    s.cap,
				Borrow:      at(s.borrow, p),
				Return:      at(s.ret, p),
			})
		}
	}
	tbl, err := demand.NewTable(rows, demand.Options{AllowZeroCapacity: true})
	require.NoError(t, err)
	return tbl
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%02d:%02d", 8+i/2, 30*(i%2))
	}
	return out
}

func testParams() model.Params {
	p := model.DefaultParams()
	p.ServiceRate = 5
	p.DispatchCost = 0.01
	p.TransportDelay = 0
	return p
}

func exactDriver(t *testing.T, params model.Params, batch int, sink metrics.MetricsSink) *Driver {
	t.Helper()
	d, err := NewDriver(simplex.New(logger.NopLogger{}), params, engine.Params{}, batch, sink, logger.NopLogger{})
	require.NoError(t, err)
	return d
}

func greedyPlanner(t *testing.T, params model.Params, strict bool) *Greedy {
	t.Helper()
	g, err := NewGreedy(params, strict, nil, logger.NopLogger{})
	require.NoError(t, err)
	return g
}

// recordingSink keeps every event it receives.
type recordingSink struct {
	windows []metrics.WindowEvent
	runs    []metrics.RunEvent
}

func (r *recordingSink) RecordWindow(ev metrics.WindowEvent) error {
	r.windows = append(r.windows, ev)
	return nil
}

func (r *recordingSink) RecordRun(ev metrics.RunEvent) error {
	r.runs = append(r.runs, ev)
	return nil
}

// failingWindow delegates to inner except for the named window.
func failingWindow(inner engine.Solver, name string, err error) engine.Solver {
	return engine.SolverFunc(func(ctx context.Context, p *engine.Problem, params engine.Params) (engine.Result, error) {
		if p.Name == name {
			return engine.Result{Nodes: 1}, err
		}
		return inner.Solve(ctx, p, params)
	})
}

func mixedInstance(t *testing.T) *demand.Table {
	return buildTable(t, labels(4),
		station{id: "S1", cap: 10, borrow: []float64{6, 2, 0, 5}, ret: []float64{0, 7, 2, 0}},
		station{id: "S2", cap: 15, borrow: []float64{0, 9, 3, 1}, ret: []float64{12, 0, 6, 0}},
		station{id: "S3", cap: 12, borrow: []float64{4, 0, 8, 2}, ret: []float64{1, 5, 0, 9}},
	)
}

func mixedParams() model.Params {
	return model.Params{
		ServiceRate:       5,
		DispatchCost:      0.05,
		HideCost:          0.04,
		TruckCapacity:     5,
		TruckCount:        2,
		MaxVisitsPerTruck: 2,
		MaxHideFraction:   0.4,
		TransportDelay:    1,
		InitialFill:       0.35,
	}
}
