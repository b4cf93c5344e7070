package rebalance

import (
	"fmt"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/model"
)

// Violation kinds reported by Verify.
const (
	ViolationCapacity  = "capacity"
	ViolationExclusion = "hide_release_exclusion"
	ViolationLedger    = "hide_ledger"
	ViolationHideCap   = "hide_cap"
	ViolationDispatch  = "dispatch_budget"
	ViolationStops     = "stop_budget"
	ViolationTransfer  = "transfer"
)

// Violation is one broken invariant of a plan.
type Violation struct {
	Kind    string `json:"kind"`
	Station string `json:"station,omitempty"`
	Period  string `json:"period,omitempty"`
	Detail  string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s station=%s period=%s: %s", v.Kind, v.Station, v.Period, v.Detail)
}

// Verify replays plan and returns every invariant it breaks, in period order.
// A nil result means the plan keeps inventory within capacity, never hides
// and releases at once, never releases unhidden stock, respects the per-period
// hide cap and stays within the fleet's per-period dispatch and stop budgets.
func Verify(tbl *demand.Table, plan *model.Plan, params model.Params) ([]Violation, error) {
	return VerifyUntil(tbl, plan, params, tbl.NumPeriods())
}

// VerifyUntil is Verify restricted to the first horizon periods.
func VerifyUntil(tbl *demand.Table, plan *model.Plan, params model.Params, horizon int) ([]Violation, error) {
	r, err := EvaluateUntil(tbl, plan, params, horizon)
	if err != nil {
		return nil, err
	}
	var out []Violation
	add := func(kind string, station, period int, format string, args ...any) {
		v := Violation{Kind: kind, Detail: fmt.Sprintf(format, args...)}
		if station >= 0 {
			v.Station = tbl.Stations[station].ID
		}
		if period >= 0 {
			v.Period = tbl.Label(period)
		}
		out = append(out, v)
	}

	T := max(0, min(horizon, tbl.NumPeriods()))
	volume := make([]int, T)
	stops := make([]int, T)
	for _, tr := range plan.Transfers {
		if tr.Period >= T {
			continue
		}
		if tr.From == tr.To || tr.Quantity <= 0 {
			add(ViolationTransfer, tr.From, tr.Period, "transfer %s>%s of %d", tr.FromID, tr.ToID, tr.Quantity)
		}
		volume[tr.Period] += tr.Quantity
		stops[tr.Period]++
	}
	for t := 0; t < T; t++ {
		if volume[t] > params.DispatchBudget() {
			add(ViolationDispatch, -1, t, "dispatched %d > budget %d", volume[t], params.DispatchBudget())
		}
		if stops[t] > params.StopBudget() {
			add(ViolationStops, -1, t, "%d stops > budget %d", stops[t], params.StopBudget())
		}
	}

	seen := make(map[[2]int]bool)
	for _, h := range plan.Hides {
		if h.Period >= T {
			continue
		}
		key := [2]int{h.Station, h.Period}
		if h.Hidden > 0 && h.Released > 0 || seen[key] {
			add(ViolationExclusion, h.Station, h.Period, "hidden %d and released %d", h.Hidden, h.Released)
		}
		seen[key] = true
		if limit := params.MaxHide(tbl.Capacity(h.Station)); h.Hidden > limit {
			add(ViolationHideCap, h.Station, h.Period, "hidden %d > cap %d", h.Hidden, limit)
		}
	}

	for i := range r.Inventory {
		c := tbl.Capacity(i)
		for t, b := range r.Inventory[i] {
			if b < 0 || b > c {
				add(ViolationCapacity, i, t, "inventory %d outside [0,%d]", b, c)
			}
			if s := r.HiddenStock[i][t]; s < 0 {
				add(ViolationLedger, i, t, "hidden stock %d", s)
			}
		}
	}
	return out, nil
}
