// Package sensitivity evaluates a planner over a two-parameter grid.
package sensitivity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/logger"
	"github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/core/rebalance"
)

// setters maps sweepable parameter names to the field they overwrite.
var setters = map[string]func(*model.Params, float64){
	"service_rate":      func(p *model.Params, v float64) { p.ServiceRate = v },
	"dispatch_cost":     func(p *model.Params, v float64) { p.DispatchCost = v },
	"hide_cost":         func(p *model.Params, v float64) { p.HideCost = v },
	"truck_count":       func(p *model.Params, v float64) { p.TruckCount = int(math.Round(v)) },
	"truck_capacity":    func(p *model.Params, v float64) { p.TruckCapacity = int(math.Round(v)) },
	"max_hide_fraction": func(p *model.Params, v float64) { p.MaxHideFraction = v },
}

// Names returns the sweepable parameter names in sorted order.
func Names() []string {
	out := make([]string, 0, len(setters))
	for n := range setters {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Apply returns p with the named parameter set to v.
func Apply(p model.Params, name string, v float64) (model.Params, error) {
	set, ok := setters[name]
	if !ok {
		return p, fmt.Errorf("sensitivity: unknown parameter %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	set(&p, v)
	return p, nil
}

// Axis is one dimension of the grid.
type Axis struct {
	Param  string
	Values []float64
}

// ParseValues reads either a comma list ("1,2,5") or an inclusive range
// "start:stop:step".
func ParseValues(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("sensitivity: empty value list")
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("sensitivity: range %q must be start:stop:step", s)
		}
		var r [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("sensitivity: range %q: %w", s, err)
			}
			r[i] = v
		}
		start, stop, step := r[0], r[1], r[2]
		if step <= 0 || stop < start {
			return nil, fmt.Errorf("sensitivity: range %q needs step > 0 and stop >= start", s)
		}
		var out []float64
		for k := 0; ; k++ {
			v := start + float64(k)*step
			if v > stop+1e-9 {
				break
			}
			out = append(out, math.Round(v*1e9)/1e9)
		}
		return out, nil
	}
	var out []float64
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("sensitivity: value %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Point is the outcome of one grid cell. Objective and MeanWait are NaN when
// the planner failed.
type Point struct {
	X         float64
	Y         float64
	Objective float64
	MeanWait  float64
	Quality   model.Quality
	Err       string
}

// Failed reports whether the planner returned an error for this point.
func (p Point) Failed() bool { return p.Err != "" }

// Result holds the grid in X-major order.
type Result struct {
	ParamX string
	ParamY string
	Points []Point
}

// PlannerFunc builds a planner for one parameter bundle.
type PlannerFunc func(params model.Params) (rebalance.Planner, error)

// Sweeper runs a planner for every cell of a grid.
type Sweeper struct {
	tbl     *demand.Table
	base    model.Params
	initial []int
	build   PlannerFunc
	log     logger.Logger
	sink    metrics.MetricsSink
	runID   string
}

// NewSweeper creates a sweeper. initial may be nil to derive B0 from each
// point's InitialFill. A nil sink disables metrics.
func NewSweeper(tbl *demand.Table, base model.Params, initial []int, build PlannerFunc, sink metrics.MetricsSink, log logger.Logger) (*Sweeper, error) {
	if tbl == nil || build == nil || log == nil {
		return nil, errors.New("sensitivity: nil parameter provided to NewSweeper")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Sweeper{tbl: tbl, base: base, initial: initial, build: build, log: log, sink: sink}, nil
}

// SetRunID tags emitted sweep points with id.
func (s *Sweeper) SetRunID(id string) { s.runID = id }

// Run evaluates every (x, y) pair. Points whose planner fails are kept with
// NaN values; only context cancellation aborts the sweep, returning the
// points completed so far.
func (s *Sweeper) Run(ctx context.Context, x, y Axis) (*Result, error) {
	for _, a := range []Axis{x, y} {
		if _, err := Apply(s.base, a.Param, 0); err != nil {
			return nil, err
		}
		if len(a.Values) == 0 {
			return nil, fmt.Errorf("sensitivity: no values for %s", a.Param)
		}
	}
	if x.Param == y.Param {
		return nil, fmt.Errorf("sensitivity: both axes sweep %s", x.Param)
	}

	res := &Result{ParamX: x.Param, ParamY: y.Param}
	total := len(x.Values) * len(y.Values)
	for _, xv := range x.Values {
		for _, yv := range y.Values {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("sensitivity: stopped after %d of %d points: %w", len(res.Points), total, err)
			}
			pt := s.point(ctx, x.Param, xv, y.Param, yv)
			res.Points = append(res.Points, pt)
			s.record(x.Param, y.Param, pt)
			if pt.Failed() {
				s.log.Warnf("sweep %s=%g %s=%g failed: %s", x.Param, xv, y.Param, yv, pt.Err)
				continue
			}
			s.log.Infof("sweep %s=%g %s=%g objective=%.3f mean_wait=%.4f",
				x.Param, xv, y.Param, yv, pt.Objective, pt.MeanWait)
		}
	}
	return res, nil
}

func (s *Sweeper) point(ctx context.Context, px string, xv float64, py string, yv float64) Point {
	pt := Point{X: xv, Y: yv, Objective: math.NaN(), MeanWait: math.NaN()}
	params, _ := Apply(s.base, px, xv)
	params, _ = Apply(params, py, yv)

	planner, err := s.build(params)
	if err != nil {
		pt.Err = err.Error()
		return pt
	}
	planner.SetRunID(s.runID)
	plan, err := planner.Plan(ctx, s.tbl, s.initial)
	if err != nil {
		pt.Err = err.Error()
		return pt
	}
	r, err := rebalance.Evaluate(s.tbl, plan, params)
	if err != nil {
		pt.Err = err.Error()
		return pt
	}
	pt.Objective = plan.Summary.Objective
	pt.MeanWait = r.MeanWait()
	pt.Quality = plan.Summary.Quality
	return pt
}

func (s *Sweeper) record(px, py string, pt Point) {
	err := metrics.RecordSweepPoint(s.sink, metrics.SweepPoint{
		RunID:     s.runID,
		ParamX:    px,
		ValueX:    pt.X,
		ParamY:    py,
		ValueY:    pt.Y,
		Objective: pt.Objective,
		MeanWait:  pt.MeanWait,
		Failed:    pt.Failed(),
		Time:      time.Now(),
	})
	if err != nil {
		s.log.Warnf("metrics: record sweep point: %v", err)
	}
}

// Best returns the successful point with the lowest objective.
func (r *Result) Best() (Point, bool) {
	var best Point
	found := false
	for _, p := range r.Points {
		if p.Failed() || math.IsNaN(p.Objective) {
			continue
		}
		if !found || p.Objective < best.Objective {
			best, found = p, true
		}
	}
	return best, found
}
