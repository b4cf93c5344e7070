// Package engine defines the contract between the rebalancing model and the
// mixed-integer solver that executes it. The model only ever talks to a
// Solver, so backends can be swapped without touching the formulation.
package engine

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	// ErrInfeasible reports that no assignment satisfies the constraints.
	ErrInfeasible = errors.New("engine: problem infeasible")
	// ErrNoSolution reports that the limits were hit before any feasible assignment was found.
	ErrNoSolution = errors.New("engine: no feasible solution within limits")
	// ErrUnbounded reports an objective without a finite minimum.
	ErrUnbounded = errors.New("engine: problem unbounded")
)

// Params are solver limits, applied identically to every solve.
type Params struct {
	// TimeLimit bounds the wall-clock time of one solve. Zero means no limit.
	TimeLimit time.Duration
	// Gap is the accepted relative distance between incumbent and best bound.
	Gap float64
	// MaxNodes caps the branch-and-bound tree. Zero means no cap.
	MaxNodes int
}

// Status says how a returned assignment was obtained.
type Status int

const (
	// StatusOptimal means the search proved optimality.
	StatusOptimal Status = iota
	// StatusGapLimited means the search stopped once the gap tolerance was met.
	StatusGapLimited
	// StatusTimeLimited means the time, node or context limit stopped the search.
	StatusTimeLimited
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusGapLimited:
		return "gap_limited"
	case StatusTimeLimited:
		return "time_limited"
	default:
		return "unknown"
	}
}

// Result is the best assignment found by a Solver.
type Result struct {
	Status    Status
	Objective float64
	// Bound is the best proven lower bound on the optimum.
	Bound   float64
	Values  []float64
	Nodes   int
	Elapsed time.Duration
}

// Value returns the value of variable v.
func (r Result) Value(v int) float64 {
	if v < 0 || v >= len(r.Values) {
		return 0
	}
	return r.Values[v]
}

// Gap returns the relative gap between the objective and the bound.
func (r Result) Gap() float64 { return RelativeGap(r.Objective, r.Bound) }

// Proven reports whether the assignment is known to be optimal.
func (r Result) Proven() bool { return r.Status == StatusOptimal }

// RelativeGap computes |incumbent - bound| / |incumbent| with a zero-safe denominator.
func RelativeGap(incumbent, bound float64) float64 {
	diff := math.Abs(incumbent - bound)
	if diff <= 1e-9 {
		return 0
	}
	den := math.Abs(incumbent)
	if den < 1e-9 {
		return math.Inf(1)
	}
	return diff / den
}

// Solver minimizes a Problem. Implementations must return their best
// assignment once Params.TimeLimit elapses or ctx is done.
type Solver interface {
	Solve(ctx context.Context, p *Problem, params Params) (Result, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, p *Problem, params Params) (Result, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, p *Problem, params Params) (Result, error) {
	return f(ctx, p, params)
}
