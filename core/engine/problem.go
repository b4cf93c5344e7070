package engine

import (
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// Var is a bounded decision variable. Upper may be +Inf.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
	Cost  float64
}

// Sense is the relation of a row to its right-hand side.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Term is one coefficient of a row.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a linear row sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimization over bounded variables and linear rows.
type Problem struct {
	Name        string
	Vars        []Var
	Constraints []Constraint
	// Start is an optional feasible assignment. A solver returns it when its
	// limits stop the search before anything better is found.
	Start []float64
}

// NewProblem returns an empty problem.
func NewProblem(name string) *Problem { return &Problem{Name: name} }

// AddVar appends a variable and returns its index. Binary variables are
// clamped to [0,1].
func (p *Problem) AddVar(name string, kind VarKind, lower, upper, cost float64) int {
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	p.Vars = append(p.Vars, Var{Name: name, Kind: kind, Lower: lower, Upper: upper, Cost: cost})
	return len(p.Vars) - 1
}

// AddConstraint appends a row and returns its index. Zero coefficients are dropped.
func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) int {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: kept, Sense: sense, RHS: rhs})
	return len(p.Constraints) - 1
}

// NumVars returns the number of variables.
func (p *Problem) NumVars() int { return len(p.Vars) }

// NumIntegers returns the number of integer and binary variables.
func (p *Problem) NumIntegers() int {
	n := 0
	for _, v := range p.Vars {
		if v.Kind != Continuous {
			n++
		}
	}
	return n
}

// Evaluate returns the objective value of an assignment.
func (p *Problem) Evaluate(values []float64) float64 {
	var obj float64
	for i, v := range p.Vars {
		if i < len(values) {
			obj += v.Cost * values[i]
		}
	}
	return obj
}

// Activity returns the left-hand side of row c under values.
func (c Constraint) Activity(values []float64) float64 {
	var s float64
	for _, t := range c.Terms {
		s += t.Coef * values[t.Var]
	}
	return s
}

// Check validates bounds, integrality and rows within tol.
func (p *Problem) Check(values []float64, tol float64) error {
	if len(values) != len(p.Vars) {
		return fmt.Errorf("assignment has %d values for %d variables", len(values), len(p.Vars))
	}
	for i, v := range p.Vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return fmt.Errorf("variable %s=%g outside [%g,%g]", v.Name, x, v.Lower, v.Upper)
		}
		if v.Kind != Continuous && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("variable %s=%g is not integral", v.Name, x)
		}
	}
	for _, c := range p.Constraints {
		lhs := c.Activity(values)
		ok := true
		switch c.Sense {
		case LessEq:
			ok = lhs <= c.RHS+tol
		case GreaterEq:
			ok = lhs >= c.RHS-tol
		case Equal:
			ok = math.Abs(lhs-c.RHS) <= tol
		}
		if !ok {
			return fmt.Errorf("row %s violated: %g %s %g", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}
