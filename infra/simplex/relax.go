package simplex

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/eric2969/OR2025-Final/core/engine"
)

var (
	errNodeInfeasible = errors.New("relaxation infeasible")
	errNumeric        = errors.New("simplex numeric failure")
)

const (
	boundEps = 1e-9
	// artificialTol is the largest artificial value, relative to its row's
	// right-hand side, still read as zero.
	artificialTol = 1e-7
	// artificialWeight scales the largest objective coefficient into the
	// penalty carried by artificial columns.
	artificialWeight = 1e5
)

// lpSolve points to the standard-form LP routine. It can be overridden in
// tests to simulate numeric failures. basis must name one feasible column
// per row so gonum does not search for a starting basis itself.
var lpSolve = func(c []float64, a mat.Matrix, b []float64, tol float64, basis []int) (opt float64, x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errNumeric, r)
		}
	}()
	return lp.Simplex(c, a, b, tol, basis)
}

type stdRow struct {
	cols  []int
	coefs []float64
	rhs   float64
	// slack is +1 for <= rows, -1 for >= rows and 0 for equalities.
	slack float64
}

// relax solves the LP relaxation of p under node bounds lo/hi.
//
// Variables are shifted by their lower bound so every column is >= 0, fixed
// and unreferenced variables are eliminated, and finite upper bounds that no
// row already implies become rows with a slack. Every inequality gets its
// own slack column. Rows are sign-normalised to a non-negative right-hand
// side, preferring a +1 slack on zero rows. A row whose slack cannot start
// at that value gets an artificial
// column priced far above any real cost. Slacks and artificials together
// form the identity basis lp.Simplex starts from.
//
//gocyclo:ignore
func relax(p *engine.Problem, lo, hi []float64, tol float64) (float64, []float64, error) {
	n := len(p.Vars)
	x := make([]float64, n)
	col := make([]int, n)
	used := make([]bool, n)
	for _, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Coef != 0 {
				used[t.Var] = true
			}
		}
	}

	ncols := 0
	for i, v := range p.Vars {
		col[i] = -1
		if lo[i] > hi[i]+boundEps {
			return 0, nil, errNodeInfeasible
		}
		if math.IsInf(lo[i], -1) {
			return 0, nil, fmt.Errorf("%w: variable %s has no lower bound", errNumeric, v.Name)
		}
		switch {
		case hi[i]-lo[i] <= boundEps:
			x[i] = lo[i]
		case !used[i]:
			if v.Cost >= 0 {
				x[i] = lo[i]
			} else if math.IsInf(hi[i], 1) {
				return 0, nil, engine.ErrUnbounded
			} else {
				x[i] = hi[i]
			}
		default:
			x[i] = lo[i]
			col[i] = ncols
			ncols++
		}
	}

	var rows []stdRow
	for _, c := range p.Constraints {
		r := stdRow{rhs: c.RHS}
		for _, t := range c.Terms {
			r.rhs -= t.Coef * x[t.Var]
			if col[t.Var] >= 0 && t.Coef != 0 {
				r.cols = append(r.cols, col[t.Var])
				r.coefs = append(r.coefs, t.Coef)
			}
		}
		if len(r.cols) == 0 {
			if !constantRowHolds(c.Sense, r.rhs) {
				return 0, nil, errNodeInfeasible
			}
			continue
		}
		switch c.Sense {
		case engine.LessEq:
			r.slack = 1
		case engine.GreaterEq:
			r.slack = -1
		}
		rows = append(rows, r)
	}
	implied := impliedUpper(p, lo, hi, x, col)
	for i := range p.Vars {
		if col[i] >= 0 && !math.IsInf(hi[i], 1) && !implied[i] {
			rows = append(rows, stdRow{cols: []int{col[i]}, coefs: []float64{1}, rhs: hi[i] - lo[i], slack: 1})
		}
	}
	if ncols == 0 {
		return p.Evaluate(x), x, nil
	}

	m := len(rows)
	sign := make([]float64, m)
	nslack, nart := 0, 0
	for ri, r := range rows {
		sign[ri] = 1
		if r.rhs < 0 || (r.rhs == 0 && r.slack < 0) {
			sign[ri] = -1
		}
		if r.slack != 0 {
			nslack++
		}
		if sign[ri]*r.slack <= 0 {
			nart++
		}
	}
	width := ncols + nslack + nart

	a := mat.NewDense(m, width, nil)
	b := make([]float64, m)
	c := make([]float64, width)
	cmax := 0.0
	for i, v := range p.Vars {
		if col[i] >= 0 {
			c[col[i]] = v.Cost
			cmax = math.Max(cmax, math.Abs(v.Cost))
		}
	}
	penalty := artificialWeight * (1 + cmax)

	basis := make([]int, m)
	artRow := make(map[int]int, nart)
	nextSlack, nextArt := ncols, ncols+nslack
	for ri, r := range rows {
		s := sign[ri]
		for k, j := range r.cols {
			a.Set(ri, j, a.At(ri, j)+s*r.coefs[k])
		}
		b[ri] = s * r.rhs
		if r.slack != 0 {
			a.Set(ri, nextSlack, s*r.slack)
			if s*r.slack > 0 {
				basis[ri] = nextSlack
			}
			nextSlack++
		}
		if s*r.slack <= 0 {
			a.Set(ri, nextArt, 1)
			c[nextArt] = penalty
			basis[ri] = nextArt
			artRow[nextArt] = ri
			nextArt++
		}
	}

	_, y, err := lpSolve(c, a, b, tol, basis)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return 0, nil, errNodeInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return 0, nil, engine.ErrUnbounded
		case errors.Is(err, errNumeric):
			return 0, nil, err
		default:
			return 0, nil, fmt.Errorf("%w: %v", errNumeric, err)
		}
	}
	for j, ri := range artRow {
		if y[j] > artificialTol*math.Max(1, b[ri]) {
			return 0, nil, errNodeInfeasible
		}
	}
	for i := range p.Vars {
		if col[i] >= 0 {
			x[i] = math.Min(math.Max(lo[i]+y[col[i]], lo[i]), hi[i])
		}
	}
	return p.Evaluate(x), x, nil
}

// impliedUpper reports the free columns whose upper bound already follows
// from a row and the bounds of the other variables in it. Bounds derived
// from lower bounds alone are found first; a second pass may lean on those
// or on explicit upper bounds, which are then pinned so that no implication
// ever rests on a dropped bound.
func impliedUpper(p *engine.Problem, lo, hi, x []float64, col []int) []bool {
	n := len(p.Vars)
	free := make([]bool, n)
	dropped := make([]bool, n)
	pinned := make([]bool, n)

	// each calls fn with every row written as sum(coef*var) <= rhs.
	each := func(fn func(terms []engine.Term, scale, rhs float64)) {
		for _, c := range p.Constraints {
			switch c.Sense {
			case engine.LessEq:
				fn(c.Terms, 1, c.RHS)
			case engine.GreaterEq:
				fn(c.Terms, -1, -c.RHS)
			default:
				fn(c.Terms, 1, c.RHS)
				fn(c.Terms, -1, -c.RHS)
			}
		}
	}
	candidate := func(k int) bool { return col[k] >= 0 && !math.IsInf(hi[k], 1) }

	each(func(terms []engine.Term, scale, rhs float64) {
		for _, tk := range terms {
			k, ak := tk.Var, scale*tk.Coef
			if ak <= 0 || free[k] || !candidate(k) {
				continue
			}
			rest, ok := rhs, true
			for _, tj := range terms {
				if tj.Var == k {
					continue
				}
				aj := scale * tj.Coef
				switch {
				case col[tj.Var] < 0:
					rest -= aj * x[tj.Var]
				case aj > 0:
					rest -= aj * lo[tj.Var]
				default:
					ok = false
				}
			}
			if ok && rest/ak <= hi[k]+boundEps {
				free[k] = true
			}
		}
	})
	copy(dropped, free)

	each(func(terms []engine.Term, scale, rhs float64) {
		for _, tk := range terms {
			k, ak := tk.Var, scale*tk.Coef
			if ak <= 0 || dropped[k] || pinned[k] || !candidate(k) {
				continue
			}
			rest, ok := rhs, true
			var leans []int
			for _, tj := range terms {
				j := tj.Var
				if j == k {
					continue
				}
				aj := scale * tj.Coef
				switch {
				case col[j] < 0:
					rest -= aj * x[j]
				case aj > 0:
					rest -= aj * lo[j]
				case math.IsInf(hi[j], 1) || (dropped[j] && !free[j]):
					ok = false
				default:
					rest -= aj * hi[j]
					if !free[j] {
						leans = append(leans, j)
					}
				}
			}
			if !ok || rest/ak > hi[k]+boundEps {
				continue
			}
			dropped[k] = true
			for _, j := range leans {
				pinned[j] = true
			}
		}
	})
	return dropped
}

func constantRowHolds(s engine.Sense, rhs float64) bool {
	const eps = 1e-7
	switch s {
	case engine.LessEq:
		return rhs >= -eps
	case engine.GreaterEq:
		return rhs <= eps
	default:
		return math.Abs(rhs) <= eps
	}
}
