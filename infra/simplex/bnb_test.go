package simplex

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/eric2969/OR2025-Final/core/engine"
	"github.com/eric2969/OR2025-Final/infra/logger"
)

func solve(t *testing.T, p *engine.Problem, params engine.Params) (engine.Result, error) {
	t.Helper()
	return New(logger.NopLogger{}).Solve(context.Background(), p, params)
}

func TestContinuousLP(t *testing.T) {
	p := engine.NewProblem("lp")
	x := p.AddVar("x", engine.Continuous, 0, math.Inf(1), -1)
	y := p.AddVar("y", engine.Continuous, 0, math.Inf(1), -1)
	p.AddConstraint("a", engine.LessEq, 4, engine.Term{Var: x, Coef: 1}, engine.Term{Var: y, Coef: 2})
	p.AddConstraint("b", engine.LessEq, 6, engine.Term{Var: x, Coef: 3}, engine.Term{Var: y, Coef: 1})

	res, err := solve(t, p, engine.Params{})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOptimal, res.Status)
	assert.InDelta(t, -2.8, res.Objective, 1e-6)
	assert.InDelta(t, 1.6, res.Value(x), 1e-6)
	assert.InDelta(t, 1.2, res.Value(y), 1e-6)
	assert.Equal(t, 1, res.Nodes)
}

func TestIntegerProgram(t *testing.T) {
	p := engine.NewProblem("ip")
	x := p.AddVar("x", engine.Integer, 0, math.Inf(1), -5)
	y := p.AddVar("y", engine.Integer, 0, math.Inf(1), -4)
	p.AddConstraint("a", engine.LessEq, 24, engine.Term{Var: x, Coef: 6}, engine.Term{Var: y, Coef: 4})
	p.AddConstraint("b", engine.LessEq, 6, engine.Term{Var: x, Coef: 1}, engine.Term{Var: y, Coef: 2})

	res, err := solve(t, p, engine.Params{})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOptimal, res.Status)
	assert.InDelta(t, -20, res.Objective, 1e-6)
	assert.Equal(t, 4.0, res.Value(x))
	assert.Equal(t, 0.0, res.Value(y))
	assert.InDelta(t, res.Objective, res.Bound, 1e-6)
	assert.NoError(t, p.Check(res.Values, 1e-6))
}

func knapsack() *engine.Problem {
	p := engine.NewProblem("knapsack")
	values := []float64{10, 13, 7, 8}
	weights := []float64{3, 4, 2, 3}
	terms := make([]engine.Term, len(values))
	for i := range values {
		v := p.AddVar("take", engine.Binary, 0, 1, -values[i])
		terms[i] = engine.Term{Var: v, Coef: weights[i]}
	}
	p.AddConstraint("weight", engine.LessEq, 7, terms...)
	return p
}

func TestBinaryKnapsack(t *testing.T) {
	p := knapsack()
	res, err := solve(t, p, engine.Params{})
	require.NoError(t, err)
	assert.True(t, res.Proven())
	assert.InDelta(t, -23, res.Objective, 1e-6)
	assert.Equal(t, []float64{1, 1, 0, 0}, res.Values)
}

func TestLooseGapStillFeasible(t *testing.T) {
	p := knapsack()
	res, err := solve(t, p, engine.Params{Gap: 1})
	require.NoError(t, err)
	assert.NoError(t, p.Check(res.Values, 1e-6))
	assert.LessOrEqual(t, res.Bound, res.Objective+1e-9)
	assert.LessOrEqual(t, res.Gap(), 1.0)
}

func TestFixedVariablesAndEqualities(t *testing.T) {
	p := engine.NewProblem("eq")
	x := p.AddVar("x", engine.Integer, 3, 3, 1)
	y := p.AddVar("y", engine.Continuous, 0, 10, 2)
	free := p.AddVar("unused", engine.Integer, 1, 4, 1)
	p.AddConstraint("sum", engine.Equal, 5, engine.Term{Var: x, Coef: 1}, engine.Term{Var: y, Coef: 1})

	res, err := solve(t, p, engine.Params{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Value(x))
	assert.InDelta(t, 2.0, res.Value(y), 1e-9)
	assert.Equal(t, 1.0, res.Value(free))
	assert.InDelta(t, 8.0, res.Objective, 1e-9)
}

func TestNoColumnsLeft(t *testing.T) {
	p := engine.NewProblem("const")
	x := p.AddVar("x", engine.Continuous, 2, 2, 3)
	p.AddConstraint("ok", engine.LessEq, 5, engine.Term{Var: x, Coef: 1})
	res, err := solve(t, p, engine.Params{})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, res.Objective, 1e-12)

	p.AddConstraint("bad", engine.GreaterEq, 3, engine.Term{Var: x, Coef: 1})
	_, err = solve(t, p, engine.Params{})
	assert.ErrorIs(t, err, engine.ErrInfeasible)
}

func TestInfeasibleLP(t *testing.T) {
	p := engine.NewProblem("infeasible")
	x := p.AddVar("x", engine.Continuous, 0, 1, 1)
	y := p.AddVar("y", engine.Continuous, 0, 1, 1)
	p.AddConstraint("cover", engine.GreaterEq, 5, engine.Term{Var: x, Coef: 1}, engine.Term{Var: y, Coef: 1})
	_, err := solve(t, p, engine.Params{})
	assert.ErrorIs(t, err, engine.ErrInfeasible)
}

func TestIntegerInfeasibleAfterBranching(t *testing.T) {
	p := engine.NewProblem("gap")
	x := p.AddVar("x", engine.Integer, 0, 10, 1)
	p.AddConstraint("lo", engine.GreaterEq, 2.5, engine.Term{Var: x, Coef: 1})
	p.AddConstraint("hi", engine.LessEq, 2.7, engine.Term{Var: x, Coef: 1})
	res, err := solve(t, p, engine.Params{})
	assert.ErrorIs(t, err, engine.ErrInfeasible)
	assert.GreaterOrEqual(t, res.Nodes, 2)
}

func TestUnboundedUnusedVariable(t *testing.T) {
	p := engine.NewProblem("unbounded")
	x := p.AddVar("x", engine.Continuous, 0, 4, 1)
	p.AddVar("free", engine.Continuous, 0, math.Inf(1), -1)
	p.AddConstraint("row", engine.LessEq, 3, engine.Term{Var: x, Coef: 1})
	_, err := solve(t, p, engine.Params{})
	assert.ErrorIs(t, err, engine.ErrUnbounded)
}

func TestNodeLimitWithoutIncumbent(t *testing.T) {
	_, err := solve(t, knapsack(), engine.Params{MaxNodes: 1})
	assert.ErrorIs(t, err, engine.ErrNoSolution)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New(nil).Solve(ctx, knapsack(), engine.Params{})
	assert.ErrorIs(t, err, engine.ErrNoSolution)
	assert.Equal(t, 0, res.Nodes)
}

func TestNumericFailureIsNotInfeasible(t *testing.T) {
	orig := lpSolve
	defer func() { lpSolve = orig }()
	lpSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		return 0, nil, errors.New("singular basis")
	}
	_, err := solve(t, knapsack(), engine.Params{})
	assert.ErrorIs(t, err, engine.ErrNoSolution)
	assert.NotErrorIs(t, err, engine.ErrInfeasible)
}

func TestLPSolveRecoversPanics(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 1})
	_, _, err := lpSolve([]float64{1, 1}, a, []float64{1, 2, 3}, 1e-9, nil)
	assert.ErrorIs(t, err, errNumeric)
}

func TestStartReturnedAtNodeLimit(t *testing.T) {
	p := knapsack()
	p.Start = []float64{0, 0, 1, 0}
	res, err := solve(t, p, engine.Params{MaxNodes: 1})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusTimeLimited, res.Status)
	assert.Equal(t, []float64{0, 0, 1, 0}, res.Values)
	assert.InDelta(t, -7, res.Objective, 1e-9)
	assert.Less(t, res.Bound, res.Objective)
	assert.False(t, math.IsInf(res.Bound, 0))
}

func TestStartDoesNotChangeExactResult(t *testing.T) {
	p := knapsack()
	p.Start = []float64{0, 0, 1, 0}
	res, err := solve(t, p, engine.Params{})
	require.NoError(t, err)
	assert.True(t, res.Proven())
	assert.InDelta(t, -23, res.Objective, 1e-6)
	assert.Equal(t, []float64{1, 1, 0, 0}, res.Values)
}

func TestInfeasibleStartIgnored(t *testing.T) {
	p := knapsack()
	p.Start = []float64{1, 1, 1, 1}
	_, err := solve(t, p, engine.Params{MaxNodes: 1})
	assert.ErrorIs(t, err, engine.ErrNoSolution)

	p.Start = []float64{0, 0}
	_, err = solve(t, p, engine.Params{MaxNodes: 1})
	assert.ErrorIs(t, err, engine.ErrNoSolution)
}

func TestTimeLimitInterruptsRelaxation(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	orig := lpSolve
	defer func() { lpSolve = orig }()
	defer close(release)
	lpSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		close(entered)
		<-release
		return 0, nil, errors.New("released")
	}

	p := knapsack()
	p.Start = []float64{1, 0, 1, 0}
	begin := time.Now()
	res, err := solve(t, p, engine.Params{TimeLimit: 50 * time.Millisecond})
	elapsed := time.Since(begin)
	<-entered

	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, engine.StatusTimeLimited, res.Status)
	assert.Equal(t, 1, res.Nodes)
	assert.InDelta(t, -17, res.Objective, 1e-9)
	assert.NoError(t, p.Check(res.Values, 1e-6))
}

func TestTimeLimitWithoutStart(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	orig := lpSolve
	defer func() { lpSolve = orig }()
	defer close(release)
	lpSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		close(entered)
		<-release
		return 0, nil, errors.New("released")
	}

	begin := time.Now()
	_, err := solve(t, knapsack(), engine.Params{TimeLimit: 50 * time.Millisecond})
	elapsed := time.Since(begin)
	<-entered

	assert.ErrorIs(t, err, engine.ErrNoSolution)
	assert.ErrorContains(t, err, context.DeadlineExceeded.Error())
	assert.Less(t, elapsed, time.Second)
}

func TestRelaxStartsFromIdentityBasis(t *testing.T) {
	orig := lpSolve
	defer func() { lpSolve = orig }()
	var calls int
	lpSolve = func(c []float64, a mat.Matrix, b []float64, tol float64, basis []int) (float64, []float64, error) {
		calls++
		rows, _ := a.Dims()
		if !assert.Len(t, basis, rows) {
			return orig(c, a, b, tol, basis)
		}
		for r, j := range basis {
			assert.Equal(t, 1.0, a.At(r, j), "row %d", r)
			assert.GreaterOrEqual(t, b[r], 0.0, "row %d", r)
			for q := range rows {
				if q != r {
					assert.Zero(t, a.At(q, j), "column %d row %d", j, q)
				}
			}
		}
		return orig(c, a, b, tol, basis)
	}

	p := engine.NewProblem("mixed")
	x := p.AddVar("x", engine.Continuous, 0, 8, 1)
	y := p.AddVar("y", engine.Continuous, 1, 6, 2)
	z := p.AddVar("z", engine.Continuous, 0, math.Inf(1), -1)
	p.AddConstraint("cover", engine.GreaterEq, 4, engine.Term{Var: x, Coef: 1}, engine.Term{Var: y, Coef: 1})
	p.AddConstraint("link", engine.Equal, 3, engine.Term{Var: z, Coef: 1}, engine.Term{Var: x, Coef: -1})
	p.AddConstraint("cap", engine.LessEq, 0, engine.Term{Var: x, Coef: 1}, engine.Term{Var: y, Coef: -2})

	res, err := solve(t, p, engine.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, p.Check(res.Values, 1e-6))
}

func TestImpliedUpperBounds(t *testing.T) {
	p := engine.NewProblem("implied")
	x := p.AddVar("x", engine.Continuous, 0, 5, 0)
	z := p.AddVar("z", engine.Binary, 0, 1, 0)
	y := p.AddVar("y", engine.Continuous, 0, 10, 0)
	a := p.AddVar("a", engine.Continuous, 0, 1, 0)
	b := p.AddVar("b", engine.Continuous, 0, 1, 0)
	w := p.AddVar("w", engine.Continuous, 0, 2, 0)
	p.AddConstraint("gate", engine.LessEq, 0, engine.Term{Var: x, Coef: 1}, engine.Term{Var: z, Coef: -5})
	p.AddConstraint("cap", engine.LessEq, 3, engine.Term{Var: y, Coef: 1})
	p.AddConstraint("ab", engine.LessEq, 0, engine.Term{Var: a, Coef: 1}, engine.Term{Var: b, Coef: -1})
	p.AddConstraint("ba", engine.LessEq, 0, engine.Term{Var: b, Coef: 1}, engine.Term{Var: a, Coef: -1})
	p.AddConstraint("loose", engine.GreaterEq, -7, engine.Term{Var: w, Coef: -1})

	n := len(p.Vars)
	lo, hi, x0, col := make([]float64, n), make([]float64, n), make([]float64, n), make([]int, n)
	for i, v := range p.Vars {
		lo[i], hi[i], col[i] = v.Lower, v.Upper, i
	}
	got := impliedUpper(p, lo, hi, x0, col)
	assert.True(t, got[x], "x follows from z")
	assert.False(t, got[z], "z is leaned on")
	assert.True(t, got[y])
	assert.NotEqual(t, got[a], got[b], "exactly one of a mutual pair")
	assert.False(t, got[w], "w <= 7 is looser than its bound")
}

func TestBranchVarMostFractional(t *testing.T) {
	p := engine.NewProblem("branch")
	p.AddVar("a", engine.Integer, 0, 5, 0)
	p.AddVar("b", engine.Integer, 0, 5, 0)
	p.AddVar("c", engine.Continuous, 0, 5, 0)
	assert.Equal(t, 1, branchVar(p, []float64{1.1, 2.45, 0.5}, 1e-6))
	assert.Equal(t, -1, branchVar(p, []float64{1, 2.0000001, 0.5}, 1e-6))
}
