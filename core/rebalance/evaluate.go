package rebalance

import (
	"fmt"
	"math"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/model"
)

// Replay is a plan re-simulated against the demand table.
type Replay struct {
	// Inventory is the end-of-period stock, indexed by station then period.
	Inventory [][]int
	// HiddenStock is the running Σ(hidden - released) per station and period.
	HiddenStock [][]int
	// WaitBorrow and WaitReturn are max(0, unmet)/μ per station and period.
	WaitBorrow [][]float64
	WaitReturn [][]float64
	Summary    model.Summary
}

// MeanWait returns the average wait per station, period and demand side.
func (r *Replay) MeanWait() float64 {
	var n int
	for _, row := range r.WaitBorrow {
		n += len(row)
	}
	if n == 0 {
		return 0
	}
	return r.Summary.WaitCost / float64(2*n)
}

// Evaluate replays plan from plan.Initial using plan.Delay and prices it with
// the weights of params. Transfers arriving after the last period leave the
// horizon in transit. Evaluate does not reject infeasible plans; use Verify
// for that.
func Evaluate(tbl *demand.Table, plan *model.Plan, params model.Params) (*Replay, error) {
	return EvaluateUntil(tbl, plan, params, tbl.NumPeriods())
}

// EvaluateUntil is Evaluate restricted to the first horizon periods. It prices
// partial plans without charging wait for periods that were never solved.
func EvaluateUntil(tbl *demand.Table, plan *model.Plan, params model.Params, horizon int) (*Replay, error) {
	S, T := tbl.NumStations(), min(horizon, tbl.NumPeriods())
	if T < 0 {
		T = 0
	}
	if len(plan.Initial) != S {
		return nil, fmt.Errorf("plan initial inventory has %d entries for %d stations", len(plan.Initial), S)
	}
	if params.ServiceRate <= 0 {
		return nil, fmt.Errorf("service rate must be positive, got %v", params.ServiceRate)
	}

	delta := make([][]int, S)
	moved := make([][]int, S)
	for i := range delta {
		delta[i] = make([]int, T)
		moved[i] = make([]int, T)
	}
	var sum model.Summary
	for _, tr := range plan.Transfers {
		if tr.From < 0 || tr.From >= S || tr.To < 0 || tr.To >= S || tr.Period < 0 || tr.Period >= T {
			return nil, fmt.Errorf("transfer %s>%s at period %d outside the table", tr.FromID, tr.ToID, tr.Period)
		}
		delta[tr.From][tr.Period] -= tr.Quantity
		if arrive := tr.Period + plan.Delay; arrive < T {
			delta[tr.To][arrive] += tr.Quantity
		}
		sum.Dispatched += tr.Quantity
	}
	for _, h := range plan.Hides {
		if h.Station < 0 || h.Station >= S || h.Period < 0 || h.Period >= T {
			return nil, fmt.Errorf("hide event for %s at period %d outside the table", h.StationID, h.Period)
		}
		delta[h.Station][h.Period] += h.Released - h.Hidden
		moved[h.Station][h.Period] += h.Hidden - h.Released
		sum.Hidden += h.Hidden
		sum.Released += h.Released
	}

	r := &Replay{
		Inventory:   make([][]int, S),
		HiddenStock: make([][]int, S),
		WaitBorrow:  make([][]float64, S),
		WaitReturn:  make([][]float64, S),
	}
	mu := params.ServiceRate
	for i := 0; i < S; i++ {
		r.Inventory[i] = make([]int, T)
		r.HiddenStock[i] = make([]int, T)
		r.WaitBorrow[i] = make([]float64, T)
		r.WaitReturn[i] = make([]float64, T)
		c := float64(tbl.Capacity(i))
		b, stock := plan.Initial[i], 0
		for t := 0; t < T; t++ {
			b += delta[i][t]
			stock += moved[i][t]
			r.Inventory[i][t] = b
			r.HiddenStock[i][t] = stock
			if stock < 0 {
				sum.LedgerDeficits++
			}
			wb := math.Max(0, tbl.Borrow(i, t)-float64(b)) / mu
			wr := math.Max(0, tbl.Return(i, t)-(c-float64(b))) / mu
			r.WaitBorrow[i][t] = wb
			r.WaitReturn[i][t] = wr
			sum.WaitCost += wb + wr
		}
	}
	sum.DispatchCost = params.DispatchCost * float64(sum.Dispatched)
	sum.HideCost = params.HideCost * float64(sum.Hidden+sum.Released)
	sum.Objective = sum.WaitCost + sum.DispatchCost + sum.HideCost
	r.Summary = sum
	return r, nil
}

// Final returns the inventory after the last period, or plan.Initial when the
// horizon is empty.
func (r *Replay) Final(initial []int) []int {
	out := make([]int, len(initial))
	for i := range out {
		if n := len(r.Inventory[i]); n > 0 {
			out[i] = r.Inventory[i][n-1]
		} else {
			out[i] = initial[i]
		}
	}
	return out
}
