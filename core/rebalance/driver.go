package rebalance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/engine"
	"github.com/eric2969/OR2025-Final/core/logger"
	"github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/core/monitoring"
)

// WindowError reports the window that stopped a batched run.
type WindowError struct {
	Index int
	First string
	Last  string
	Err   error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("window %d (%s-%s): %v", e.Index, e.First, e.Last, e.Err)
}

func (e *WindowError) Unwrap() error { return e.Err }

// Driver solves the horizon window by window, feeding the rounded ending
// inventory of each window into the next one. Windows never run
// concurrently. A window cannot see demand beyond its own end, so the plan is
// window-locally optimal; a batch size <= 0 solves the whole horizon as one
// window instead.
type Driver struct {
	solver    engine.Solver
	params    model.Params
	limits    engine.Params
	batchSize int
	log       logger.Logger
	metrics   metrics.MetricsSink
	runID     string
}

// NewDriver creates a driver. A nil sink disables metrics.
func NewDriver(solver engine.Solver, params model.Params, limits engine.Params, batchSize int, sink metrics.MetricsSink, log logger.Logger) (*Driver, error) {
	if solver == nil || log == nil {
		return nil, errors.New("rebalance: nil parameter provided to NewDriver")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("rebalance: %w", err)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Driver{
		solver:    solver,
		params:    params,
		limits:    limits,
		batchSize: batchSize,
		log:       log,
		metrics:   sink,
	}, nil
}

// SetRunID tags emitted metrics with id.
func (d *Driver) SetRunID(id string) { d.runID = id }

// Name returns the strategy name reported in plans.
func (d *Driver) Name() string {
	if d.batchSize <= 0 {
		return StrategyFull
	}
	return StrategyBatched
}

// Plan solves every window of tbl in order starting from initial, or from
// params.InitialFill when initial is nil. When a window fails the plan of the
// completed windows is returned together with a *WindowError.
func (d *Driver) Plan(ctx context.Context, tbl *demand.Table, initial []int) (*model.Plan, error) {
	start := time.Now()
	if initial == nil {
		initial = model.InitialInventory(tbl.Stations, d.params.InitialFill)
	}
	if len(initial) != tbl.NumStations() {
		return nil, fmt.Errorf("initial inventory has %d entries for %d stations", len(initial), tbl.NumStations())
	}
	plan := &model.Plan{
		Strategy: d.Name(),
		Delay:    d.params.TransportDelay,
		Initial:  append([]int(nil), initial...),
	}
	windows := Partition(tbl.NumPeriods(), d.batchSize)
	d.log.Infof("planning %d stations over %d periods in %d window(s)", tbl.NumStations(), tbl.NumPeriods(), len(windows))

	b0 := append([]int(nil), initial...)
	solved := 0
	for _, w := range windows {
		report, sol, err := d.solveWindow(ctx, tbl, w, b0)
		if err != nil {
			werr := &WindowError{Index: w.Index, First: tbl.Label(w.Start), Last: tbl.Label(w.End - 1), Err: err}
			d.log.Errorf("%v", werr)
			monitoring.CaptureException(werr, monitoring.Tags(
				"component", "rebalance-driver",
				"strategy", plan.Strategy,
				"window", strconv.Itoa(w.Index),
				"run_id", d.runID,
			))
			d.record(metrics.WindowEvent{
				Window: w.Index, FirstPeriod: werr.First, LastPeriod: werr.Last,
				Quality: string(model.QualityPartial), Elapsed: report.Elapsed, Nodes: report.Nodes, Err: err.Error(),
			}, plan.Strategy)
			plan.Final = b0
			d.finish(tbl, plan, solved, start, true)
			return plan, werr
		}
		plan.Transfers = append(plan.Transfers, sol.Transfers...)
		plan.Hides = append(plan.Hides, sol.Hides...)
		plan.Windows = append(plan.Windows, report)
		b0 = sol.Ending
		solved = w.End
	}
	plan.Final = b0
	d.finish(tbl, plan, solved, start, false)
	return plan, nil
}

func (d *Driver) solveWindow(ctx context.Context, tbl *demand.Table, w Window, b0 []int) (model.WindowReport, WindowSolution, error) {
	report := model.WindowReport{
		Index:     w.Index,
		Start:     w.Start,
		End:       w.End,
		FirstTime: tbl.Label(w.Start),
		LastTime:  tbl.Label(w.End - 1),
		Initial:   append([]int(nil), b0...),
	}
	m, err := BuildModel(tbl, w, b0, d.params)
	if err != nil {
		return report, WindowSolution{}, err
	}
	p := m.Problem()
	d.log.Debugw("window model built", map[string]any{
		"window":      w.Index,
		"periods":     w.Len(),
		"variables":   p.NumVars(),
		"integers":    p.NumIntegers(),
		"constraints": len(p.Constraints),
	})

	if err := ctx.Err(); err != nil {
		return report, WindowSolution{}, fmt.Errorf("%w: %v", engine.ErrNoSolution, err)
	}
	res, err := d.solver.Solve(ctx, p, d.limits)
	report.Nodes, report.Elapsed = res.Nodes, res.Elapsed
	if err != nil {
		return report, WindowSolution{}, err
	}
	if err := p.Check(res.Values, 1e-5); err != nil {
		d.log.Warnf("window %d assignment outside tolerance: %v", w.Index, err)
	}
	sol := m.Extract(res)

	report.Quality = qualityOf(res.Status)
	report.Objective = res.Objective
	report.Bound = res.Bound
	report.Gap = res.Gap()
	report.Ending = sol.Ending
	if report.Quality != model.QualityOptimal {
		d.log.Warnf("window %d accepted as %s (gap %.4f)", w.Index, report.Quality, report.Gap)
	}
	d.log.Infof("window %d %s-%s solved: objective=%.3f status=%s nodes=%d elapsed=%s",
		w.Index, report.FirstTime, report.LastTime, res.Objective, res.Status, res.Nodes, res.Elapsed.Round(time.Millisecond))

	ev := metrics.WindowEvent{
		Window: w.Index, FirstPeriod: report.FirstTime, LastPeriod: report.LastTime,
		Quality: string(report.Quality), Objective: res.Objective, Bound: res.Bound, Gap: report.Gap,
		Nodes: res.Nodes, Elapsed: res.Elapsed,
	}
	for _, t := range sol.Transfers {
		ev.Dispatched += t.Quantity
	}
	for _, h := range sol.Hides {
		ev.Hidden += h.Hidden
		ev.Released += h.Released
	}
	d.record(ev, d.Name())
	return report, sol, nil
}

func (d *Driver) record(ev metrics.WindowEvent, strategy string) {
	ev.RunID, ev.Strategy, ev.Time = d.runID, strategy, time.Now()
	if err := d.metrics.RecordWindow(ev); err != nil {
		d.log.Warnf("metrics: record window %d: %v", ev.Window, err)
	}
}

// finish prices the plan over the solved periods and emits the run summary.
func (d *Driver) finish(tbl *demand.Table, plan *model.Plan, solved int, start time.Time, failed bool) {
	quality := model.QualityOptimal
	for _, w := range plan.Windows {
		quality = quality.Worse(w.Quality)
	}
	if failed {
		quality = model.QualityPartial
	}
	summarize(tbl, plan, d.params, solved, quality, time.Since(start), d.log)
	emitRun(d.metrics, d.runID, tbl, plan, failed, d.log)
}

func qualityOf(s engine.Status) model.Quality {
	switch s {
	case engine.StatusOptimal:
		return model.QualityOptimal
	case engine.StatusGapLimited:
		return model.QualityGapLimited
	default:
		return model.QualityTimeLimited
	}
}

// summarize fills plan.Summary from a replay of the first horizon periods.
func summarize(tbl *demand.Table, plan *model.Plan, params model.Params, horizon int, q model.Quality, runtime time.Duration, log logger.Logger) {
	r, err := EvaluateUntil(tbl, plan, params, horizon)
	if err != nil {
		log.Errorf("replay plan: %v", err)
		plan.Summary = model.Summary{Quality: q, Runtime: runtime}
		return
	}
	plan.Summary = r.Summary
	plan.Summary.Quality = q
	plan.Summary.Runtime = runtime
}

func emitRun(sink metrics.MetricsSink, runID string, tbl *demand.Table, plan *model.Plan, failed bool, log logger.Logger) {
	s := plan.Summary
	ev := metrics.RunEvent{
		RunID:          runID,
		Strategy:       plan.Strategy,
		Quality:        string(s.Quality),
		Stations:       tbl.NumStations(),
		Periods:        tbl.NumPeriods(),
		Windows:        len(plan.Windows),
		Objective:      s.Objective,
		WaitCost:       s.WaitCost,
		DispatchCost:   s.DispatchCost,
		HideCost:       s.HideCost,
		Dispatched:     s.Dispatched,
		Hidden:         s.Hidden,
		Released:       s.Released,
		LedgerDeficits: s.LedgerDeficits,
		Runtime:        s.Runtime,
		Failed:         failed,
		Time:           time.Now(),
	}
	if err := metrics.RecordRun(sink, ev); err != nil {
		log.Warnf("metrics: record run: %v", err)
	}
}
