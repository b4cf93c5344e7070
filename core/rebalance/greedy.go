package rebalance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/logger"
	"github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/core/model"
)

// Greedy plans period by period without search. Transfers are instantaneous
// and there is no lookahead.
//
// Releases are capped by shortage, the hide cap and free docks only. The
// running hidden stock is tracked and every station-period where it goes
// negative is reported in Summary.LedgerDeficits. Strict mode additionally
// caps each release by the station's hidden stock, matching the exact model.
type Greedy struct {
	params  model.Params
	strict  bool
	log     logger.Logger
	metrics metrics.MetricsSink
	runID   string
}

// NewGreedy creates a greedy planner. A nil sink disables metrics.
func NewGreedy(params model.Params, strictLedger bool, sink metrics.MetricsSink, log logger.Logger) (*Greedy, error) {
	if log == nil {
		return nil, errors.New("rebalance: nil logger provided to NewGreedy")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("rebalance: %w", err)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Greedy{params: params, strict: strictLedger, log: log, metrics: sink}, nil
}

// SetRunID tags emitted metrics with id.
func (g *Greedy) SetRunID(id string) { g.runID = id }

// Name returns the strategy name reported in plans.
func (g *Greedy) Name() string { return StrategyGreedy }

// Plan runs the heuristic over every period of tbl. A nil initial uses
// params.InitialFill. The context is checked between periods.
func (g *Greedy) Plan(ctx context.Context, tbl *demand.Table, initial []int) (*model.Plan, error) {
	start := time.Now()
	if initial == nil {
		initial = model.InitialInventory(tbl.Stations, g.params.InitialFill)
	}
	if err := tbl.CheckInitial(initial); err != nil {
		return nil, err
	}
	plan := &model.Plan{Strategy: StrategyGreedy, Initial: append([]int(nil), initial...)}
	b := append([]int(nil), initial...)
	stock := make([]int, tbl.NumStations())

	for t := 0; t < tbl.NumPeriods(); t++ {
		if err := ctx.Err(); err != nil {
			plan.Final = b
			summarize(tbl, plan, g.params, t, model.QualityPartial, time.Since(start), g.log)
			emitRun(g.metrics, g.runID, tbl, plan, true, g.log)
			return plan, fmt.Errorf("greedy stopped at period %s: %w", tbl.Label(t), err)
		}
		plan.Transfers = append(plan.Transfers, g.match(tbl, t, b)...)
		plan.Hides = append(plan.Hides, g.hideRelease(tbl, t, b, stock)...)
	}
	plan.Final = b
	summarize(tbl, plan, g.params, tbl.NumPeriods(), model.QualityHeuristic, time.Since(start), g.log)
	if d := plan.Summary.LedgerDeficits; d > 0 {
		g.log.Warnf("greedy plan releases unhidden stock in %d station-period(s)", d)
	}
	g.log.Infof("greedy plan: objective=%.3f dispatched=%d hidden=%d released=%d",
		plan.Summary.Objective, plan.Summary.Dispatched, plan.Summary.Hidden, plan.Summary.Released)
	emitRun(g.metrics, g.runID, tbl, plan, false, g.log)
	return plan, nil
}

// unmet rounds a fractional shortfall up to whole vehicles.
func unmet(demand float64, available int) int {
	v := math.Ceil(demand - float64(available) - 1e-9)
	if v <= 0 {
		return 0
	}
	return int(v)
}

// byAmount returns station indices with a positive amount, largest first and
// ties by station order.
func byAmount(amount []int) []int {
	var idx []int
	for i, a := range amount {
		if a > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return amount[idx[a]] > amount[idx[b]] })
	return idx
}

// match moves vehicles from return-overflow stations to borrow-shortage
// stations within the per-period dispatch and stop budgets, updating b.
func (g *Greedy) match(tbl *demand.Table, t int, b []int) []model.Transfer {
	S := tbl.NumStations()
	need := make([]int, S)
	over := make([]int, S)
	for i := 0; i < S; i++ {
		c := tbl.Capacity(i)
		if c <= 0 {
			continue
		}
		need[i] = min(unmet(tbl.Borrow(i, t), b[i]), c-b[i])
		over[i] = min(unmet(tbl.Return(i, t), c-b[i]), b[i])
	}
	shortages, surpluses := byAmount(need), byAmount(over)

	budget, stops := g.params.DispatchBudget(), g.params.StopBudget()
	var out []model.Transfer
	for _, s := range surpluses {
		for _, k := range shortages {
			if budget <= 0 || stops <= 0 || over[s] <= 0 {
				break
			}
			if s == k || need[k] <= 0 {
				continue
			}
			q := min(over[s], need[k], budget)
			over[s] -= q
			need[k] -= q
			budget -= q
			stops--
			b[s] -= q
			b[k] += q
			from, to := tbl.Stations[s], tbl.Stations[k]
			out = append(out, model.Transfer{
				Period: t, Label: tbl.Label(t), From: s, To: k,
				FromID: from.ID, FromName: from.Name, ToID: to.ID, ToName: to.Name,
				Quantity: q,
			})
		}
	}
	sortTransfers(out)
	return out
}

// hideRelease hides vehicles at stations still overflowing and releases at
// stations still short. A station that hid this period does not release.
func (g *Greedy) hideRelease(tbl *demand.Table, t int, b, stock []int) []model.HideEvent {
	var out []model.HideEvent
	for i, st := range tbl.Stations {
		c := tbl.Capacity(i)
		h := g.params.MaxHide(c)
		if h == 0 {
			continue
		}
		ev := model.HideEvent{Period: t, Label: tbl.Label(t), Station: i, StationID: st.ID, StationName: st.Name}
		if overflow := unmet(tbl.Return(i, t), c-b[i]); overflow > 0 {
			ev.Hidden = min(overflow, h, b[i])
		} else if lack := unmet(tbl.Borrow(i, t), b[i]); lack > 0 {
			ev.Released = min(lack, h, c-b[i])
			if g.strict {
				ev.Released = min(ev.Released, max(stock[i], 0))
			}
		}
		if ev.Hidden == 0 && ev.Released == 0 {
			continue
		}
		b[i] += ev.Released - ev.Hidden
		stock[i] += ev.Hidden - ev.Released
		out = append(out, ev)
	}
	return out
}
