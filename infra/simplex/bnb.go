// Package simplex implements engine.Solver with a best-bound branch-and-bound
// search over LP relaxations solved by gonum's simplex routine.
package simplex

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/eric2969/OR2025-Final/core/engine"
	"github.com/eric2969/OR2025-Final/core/logger"
	infralogger "github.com/eric2969/OR2025-Final/infra/logger"
)

const (
	defaultTol    = 1e-9
	defaultIntTol = 1e-6
)

// BranchAndBound solves mixed-integer problems. The zero value is usable.
type BranchAndBound struct {
	// Tol is the simplex reduced-cost tolerance.
	Tol float64
	// IntTol is the distance to the nearest integer accepted as integral.
	IntTol float64
	Log    logger.Logger
}

// New returns a solver logging to log.
func New(log logger.Logger) *BranchAndBound {
	return &BranchAndBound{Tol: defaultTol, IntTol: defaultIntTol, Log: log}
}

type node struct {
	lo, hi []float64
	bound  float64
	depth  int
}

// nodeQueue is a min-heap on bound, deeper nodes first on ties.
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return q[i].depth > q[j].depth
}
func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)   { *q = append(*q, x.(*node)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

func (q nodeQueue) best() float64 {
	if len(q) == 0 {
		return math.Inf(1)
	}
	return q[0].bound
}

// Solve implements engine.Solver. The search dives into the child closest to
// the relaxation value and keeps the sibling in a best-bound queue. It stops
// when the tree is exhausted, the gap tolerance is met, or the time, node or
// context limit is reached; in the latter case the incumbent is returned with
// StatusTimeLimited. The time and context limits also interrupt a running
// relaxation. p.Start, when feasible, is returned if the search ends without
// a better assignment.
func (s *BranchAndBound) Solve(ctx context.Context, p *engine.Problem, params engine.Params) (engine.Result, error) {
	start := time.Now()
	log := infralogger.OrNop(s.Log)
	tol, intTol := s.Tol, s.IntTol
	if tol <= 0 {
		tol = defaultTol
	}
	if intTol <= 0 {
		intTol = defaultIntTol
	}
	if params.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.TimeLimit)
		defer cancel()
	}

	n := len(p.Vars)
	lo, hi := make([]float64, n), make([]float64, n)
	for i, v := range p.Vars {
		lo[i], hi[i] = v.Lower, v.Upper
		if v.Kind != engine.Continuous {
			lo[i] = math.Ceil(lo[i] - intTol)
			if !math.IsInf(hi[i], 1) {
				hi[i] = math.Floor(hi[i] + intTol)
			}
		}
	}

	var (
		incumbent []float64
		incObj    = math.Inf(1)
		queue     = &nodeQueue{}
		dive      = &node{lo: lo, hi: hi, bound: rootBound(p, lo, hi)}
		nodes     int
		failed    = math.Inf(1)
		status    = engine.StatusOptimal
	)
	prunable := func(bound float64) bool {
		return bound >= incObj-1e-9-1e-9*math.Abs(incObj)
	}

	for {
		if dive == nil {
			if queue.Len() == 0 {
				break
			}
			dive = heap.Pop(queue).(*node)
		}
		cur := dive
		dive = nil
		if prunable(cur.bound) {
			continue
		}
		if incumbent != nil && engine.RelativeGap(incObj, math.Min(cur.bound, queue.best())) <= params.Gap {
			heap.Push(queue, cur)
			status = engine.StatusGapLimited
			break
		}
		if ctx.Err() != nil || (params.MaxNodes > 0 && nodes >= params.MaxNodes) {
			heap.Push(queue, cur)
			status = engine.StatusTimeLimited
			break
		}

		nodes++
		obj, x, err := relaxWithin(ctx, p, cur.lo, cur.hi, tol)
		if err != nil {
			switch {
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				heap.Push(queue, cur)
				status = engine.StatusTimeLimited
				log.Warnf("%s: relaxation of node %d abandoned at the time limit", p.Name, nodes)
			case errors.Is(err, errNodeInfeasible):
			case errors.Is(err, engine.ErrUnbounded):
				return engine.Result{Nodes: nodes, Elapsed: time.Since(start)}, fmt.Errorf("%s: %w", p.Name, engine.ErrUnbounded)
			default:
				failed = math.Min(failed, cur.bound)
				log.Warnf("node %d of %s skipped: %v", nodes, p.Name, err)
			}
			if status == engine.StatusTimeLimited {
				break
			}
			continue
		}
		if prunable(obj) {
			continue
		}

		k := branchVar(p, x, intTol)
		if k < 0 {
			for i, v := range p.Vars {
				if v.Kind != engine.Continuous {
					x[i] = math.Round(x[i])
				}
			}
			incumbent, incObj = x, p.Evaluate(x)
			log.Debugw("incumbent", map[string]any{"problem": p.Name, "objective": incObj, "node": nodes, "depth": cur.depth})
			continue
		}

		v := x[k]
		down := &node{lo: cur.lo, hi: clone(cur.hi), bound: obj, depth: cur.depth + 1}
		down.hi[k] = math.Floor(v)
		up := &node{lo: clone(cur.lo), hi: cur.hi, bound: obj, depth: cur.depth + 1}
		up.lo[k] = math.Ceil(v)
		if v-math.Floor(v) >= 0.5 {
			dive = up
			heap.Push(queue, down)
		} else {
			dive = down
			heap.Push(queue, up)
		}
	}

	if seed, ok := startAssignment(p); ok && (incumbent == nil || p.Evaluate(seed) < incObj-1e-9) {
		incumbent, incObj = seed, p.Evaluate(seed)
		log.Debugf("%s: returning the start assignment (objective %.4f)", p.Name, incObj)
	}

	res := engine.Result{Nodes: nodes, Elapsed: time.Since(start)}
	if incumbent == nil {
		if status == engine.StatusOptimal && math.IsInf(failed, 1) {
			return res, fmt.Errorf("%s: %w", p.Name, engine.ErrInfeasible)
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%s: %w: %v", p.Name, engine.ErrNoSolution, err)
		}
		return res, fmt.Errorf("%s: %w", p.Name, engine.ErrNoSolution)
	}

	res.Values = incumbent
	res.Objective = incObj
	res.Bound = math.Min(incObj, math.Min(queue.best(), failed))
	res.Status = status
	switch {
	case status == engine.StatusOptimal && res.Bound < incObj-1e-9:
		res.Status = engine.StatusGapLimited
	case status == engine.StatusGapLimited && res.Bound >= incObj-1e-9:
		res.Status = engine.StatusOptimal
	}
	log.Debugf("%s solved: status=%s objective=%.4f bound=%.4f nodes=%d", p.Name, res.Status, res.Objective, res.Bound, nodes)
	return res, nil
}

type relaxation struct {
	obj float64
	x   []float64
	err error
}

// relaxWithin runs relax until it finishes or ctx is done. gonum's simplex
// cannot be interrupted, so an abandoned relaxation completes in the
// background and its result is dropped.
func relaxWithin(ctx context.Context, p *engine.Problem, lo, hi []float64, tol float64) (float64, []float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	done := make(chan relaxation, 1)
	go func() {
		obj, x, err := relax(p, lo, hi, tol)
		done <- relaxation{obj: obj, x: x, err: err}
	}()
	select {
	case r := <-done:
		return r.obj, r.x, r.err
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// rootBound is the objective floor implied by the variable bounds alone.
func rootBound(p *engine.Problem, lo, hi []float64) float64 {
	var b float64
	for i, v := range p.Vars {
		switch {
		case v.Cost > 0:
			b += v.Cost * lo[i]
		case v.Cost < 0:
			if math.IsInf(hi[i], 1) {
				return math.Inf(-1)
			}
			b += v.Cost * hi[i]
		}
	}
	return b
}

// startAssignment returns a copy of p.Start when it satisfies p.
func startAssignment(p *engine.Problem) ([]float64, bool) {
	if len(p.Start) == 0 {
		return nil, false
	}
	if err := p.Check(p.Start, 1e-6); err != nil {
		return nil, false
	}
	return clone(p.Start), true
}

// branchVar returns the most fractional integer variable, or -1.
func branchVar(p *engine.Problem, x []float64, intTol float64) int {
	best, bestDist := -1, intTol
	for i, v := range p.Vars {
		if v.Kind == engine.Continuous {
			continue
		}
		f := x[i] - math.Floor(x[i])
		d := math.Min(f, 1-f)
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
