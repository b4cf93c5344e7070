package rebalance

import (
	"fmt"
	"math"
	"sort"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/engine"
	"github.com/eric2969/OR2025-Final/core/model"
)

// Window is the contiguous block of periods [Start, End) solved as one unit.
type Window struct {
	Index int
	Start int
	End   int
}

// Len returns the number of periods in the window.
func (w Window) Len() int { return w.End - w.Start }

// Partition splits periods into consecutive windows of size periods. The last
// window may be shorter. A size <= 0 yields a single window over the horizon.
func Partition(periods, size int) []Window {
	if periods <= 0 {
		return nil
	}
	if size <= 0 || size >= periods {
		return []Window{{Index: 0, Start: 0, End: periods}}
	}
	var out []Window
	for start := 0; start < periods; start += size {
		end := start + size
		if end > periods {
			end = periods
		}
		out = append(out, Window{Index: len(out), Start: start, End: end})
	}
	return out
}

type arc struct {
	from, to int
	t        int
	x, v     int
}

// Model is the mixed-integer program of one window. Variable indices are kept
// per station and window-local period so a solver result can be mapped back to
// transfers, hide events and inventory.
type Model struct {
	tbl     *demand.Table
	win     Window
	params  model.Params
	initial []int
	prob    *engine.Problem

	arcs    []arc
	stock   [][]int
	waitB   [][]int
	waitR   [][]int
	hideIn  [][]int
	hideOut [][]int
	mode    [][]int
}

// BuildModel encodes the inventory balance, wait linearization, hide/release
// logic and fleet limits of win. initial is the inventory entering the window
// and must lie within [0, C] for every station; otherwise an error wrapping
// engine.ErrInfeasible is returned.
//
// Transfers are only created when they arrive inside the window, so no
// vehicle is ever in transit across a window boundary. An arc is also left
// out when its source enters the window empty, or when it can neither feed a
// later borrow at the sink nor relieve a later return at the source.
//
// The program carries a start assignment built from the greedy hide/release
// rule without transfers, so a solver stopped early still has a plan.
func BuildModel(tbl *demand.Table, win Window, initial []int, params model.Params) (*Model, error) {
	S, n := tbl.NumStations(), win.Len()
	if n <= 0 || win.Start < 0 || win.End > tbl.NumPeriods() {
		return nil, fmt.Errorf("window %d [%d,%d) outside horizon of %d periods", win.Index, win.Start, win.End, tbl.NumPeriods())
	}
	if len(initial) != S {
		return nil, fmt.Errorf("initial inventory has %d entries for %d stations", len(initial), S)
	}
	for i, b := range initial {
		if c := tbl.Capacity(i); b < 0 || b > c {
			return nil, fmt.Errorf("%w: station %s starts with %d vehicles outside [0,%d]",
				engine.ErrInfeasible, tbl.Stations[i].ID, b, c)
		}
	}

	m := &Model{
		tbl:     tbl,
		win:     win,
		params:  params,
		initial: append([]int(nil), initial...),
		prob:    engine.NewProblem(fmt.Sprintf("window-%d", win.Index)),
		stock:   grid(S, n),
		waitB:   grid(S, n),
		waitR:   grid(S, n),
		hideIn:  grid(S, n),
		hideOut: grid(S, n),
		mode:    grid(S, n),
	}
	m.addStationVars()
	m.addArcs()
	m.addBalance()
	m.addWait()
	m.addHideLogic()
	m.addFleetLimits()
	m.prob.Start = m.seed()
	return m, nil
}

func grid(rows, cols int) [][]int {
	g := make([][]int, rows)
	for i := range g {
		g[i] = make([]int, cols)
		for t := range g[i] {
			g[i][t] = -1
		}
	}
	return g
}

func (m *Model) addStationVars() {
	p := m.prob
	for i := range m.tbl.Stations {
		c := m.tbl.Capacity(i)
		h := m.params.MaxHide(c)
		for t := 0; t < m.win.Len(); t++ {
			m.stock[i][t] = p.AddVar(m.varName("B", i, t), engine.Continuous, 0, float64(c), 0)
			m.waitB[i][t] = p.AddVar(m.varName("Wb", i, t), engine.Continuous, 0, math.Inf(1), 1)
			m.waitR[i][t] = p.AddVar(m.varName("Wr", i, t), engine.Continuous, 0, math.Inf(1), 1)
			if h == 0 {
				continue
			}
			m.hideIn[i][t] = p.AddVar(m.varName("hin", i, t), engine.Integer, 0, float64(h), m.params.HideCost)
			// Release can never exceed what was hidden up to t.
			m.hideOut[i][t] = p.AddVar(m.varName("hout", i, t), engine.Integer, 0, float64((t+1)*h), m.params.HideCost)
			m.mode[i][t] = p.AddVar(m.varName("z", i, t), engine.Binary, 0, 1, 0)
		}
	}
}

func (m *Model) addArcs() {
	if m.params.DispatchBudget() <= 0 || m.params.StopBudget() <= 0 {
		return
	}
	p := m.prob
	delay := m.params.TransportDelay
	for t := 0; t+delay < m.win.Len(); t++ {
		for i := range m.tbl.Stations {
			ci := m.tbl.Capacity(i)
			if ci <= 0 || m.initial[i] == 0 {
				continue
			}
			relieves := m.anyDemand(m.tbl.Return, i, t, m.win.Len())
			for j := range m.tbl.Stations {
				cj := m.tbl.Capacity(j)
				if i == j || cj <= 0 {
					continue
				}
				if !relieves && !m.anyDemand(m.tbl.Borrow, j, t+delay, m.win.Len()) {
					continue
				}
				ub := min(m.params.TruckCapacity, ci, cj)
				name := fmt.Sprintf("%s>%s@%s", m.tbl.Stations[i].ID, m.tbl.Stations[j].ID, m.label(t))
				x := p.AddVar("x:"+name, engine.Integer, 0, float64(ub), m.params.DispatchCost)
				v := p.AddVar("v:"+name, engine.Binary, 0, 1, 0)
				p.AddConstraint("visit:"+name, engine.LessEq, 0,
					engine.Term{Var: x, Coef: 1}, engine.Term{Var: v, Coef: -float64(ub)})
				m.arcs = append(m.arcs, arc{from: i, to: j, t: t, x: x, v: v})
			}
		}
	}
}

// anyDemand reports whether rate is positive for station i in any window
// period of [from, to).
func (m *Model) anyDemand(rate func(i, p int) float64, i, from, to int) bool {
	for t := from; t < to; t++ {
		if rate(i, m.win.Start+t) > 0 {
			return true
		}
	}
	return false
}

// addBalance posts B[t] = B[t-1] + inflow(t-delay) - outflow(t) + release - hide.
func (m *Model) addBalance() {
	S, n := m.tbl.NumStations(), m.win.Len()
	out := make([][][]engine.Term, S)
	in := make([][][]engine.Term, S)
	for i := range out {
		out[i] = make([][]engine.Term, n)
		in[i] = make([][]engine.Term, n)
	}
	for _, a := range m.arcs {
		out[a.from][a.t] = append(out[a.from][a.t], engine.Term{Var: a.x, Coef: 1})
		arrive := a.t + m.params.TransportDelay
		in[a.to][arrive] = append(in[a.to][arrive], engine.Term{Var: a.x, Coef: -1})
	}
	for i := 0; i < S; i++ {
		for t := 0; t < n; t++ {
			terms := []engine.Term{{Var: m.stock[i][t], Coef: 1}}
			rhs := 0.0
			if t == 0 {
				rhs = float64(m.initial[i])
			} else {
				terms = append(terms, engine.Term{Var: m.stock[i][t-1], Coef: -1})
			}
			terms = append(terms, out[i][t]...)
			terms = append(terms, in[i][t]...)
			if m.hideIn[i][t] >= 0 {
				terms = append(terms,
					engine.Term{Var: m.hideIn[i][t], Coef: 1},
					engine.Term{Var: m.hideOut[i][t], Coef: -1})
			}
			m.prob.AddConstraint(m.varName("balance", i, t), engine.Equal, rhs, terms...)
		}
	}
}

func (m *Model) addWait() {
	mu := m.params.ServiceRate
	for i := range m.tbl.Stations {
		c := float64(m.tbl.Capacity(i))
		for t := 0; t < m.win.Len(); t++ {
			p := m.win.Start + t
			// Rows with no demand hold for any stock and are left out.
			if borrow := m.tbl.Borrow(i, p); borrow > 0 {
				m.prob.AddConstraint(m.varName("wait_borrow", i, t), engine.GreaterEq, borrow,
					engine.Term{Var: m.waitB[i][t], Coef: mu}, engine.Term{Var: m.stock[i][t], Coef: 1})
			}
			if ret := m.tbl.Return(i, p); ret > 0 {
				m.prob.AddConstraint(m.varName("wait_return", i, t), engine.GreaterEq, ret-c,
					engine.Term{Var: m.waitR[i][t], Coef: mu}, engine.Term{Var: m.stock[i][t], Coef: -1})
			}
		}
	}
}

// addHideLogic links hide and release through the mode selector z (hide when
// z=1, release when z=0) and keeps the running hidden stock non-negative.
func (m *Model) addHideLogic() {
	for i := range m.tbl.Stations {
		h := float64(m.params.MaxHide(m.tbl.Capacity(i)))
		var ledger []engine.Term
		for t := 0; t < m.win.Len(); t++ {
			hin, hout, z := m.hideIn[i][t], m.hideOut[i][t], m.mode[i][t]
			if hin < 0 {
				continue
			}
			bigM := float64(t+1) * h
			m.prob.AddConstraint(m.varName("hide_mode", i, t), engine.LessEq, 0,
				engine.Term{Var: hin, Coef: 1}, engine.Term{Var: z, Coef: -h})
			m.prob.AddConstraint(m.varName("release_mode", i, t), engine.LessEq, bigM,
				engine.Term{Var: hout, Coef: 1}, engine.Term{Var: z, Coef: bigM})
			ledger = append(ledger, engine.Term{Var: hin, Coef: 1}, engine.Term{Var: hout, Coef: -1})
			m.prob.AddConstraint(m.varName("ledger", i, t), engine.GreaterEq, 0, ledger...)
		}
	}
}

func (m *Model) addFleetLimits() {
	if len(m.arcs) == 0 {
		return
	}
	perPeriod := make([][]engine.Term, m.win.Len())
	visits := make([]engine.Term, 0, len(m.arcs))
	for _, a := range m.arcs {
		perPeriod[a.t] = append(perPeriod[a.t], engine.Term{Var: a.x, Coef: 1})
		visits = append(visits, engine.Term{Var: a.v, Coef: 1})
	}
	for t, terms := range perPeriod {
		if len(terms) == 0 {
			continue
		}
		m.prob.AddConstraint("dispatch@"+m.label(t), engine.LessEq, float64(m.params.DispatchBudget()), terms...)
	}
	m.prob.AddConstraint("visits", engine.LessEq, float64(m.params.StopBudget()), visits...)
}

// seed plays the strict greedy hide/release rule over the window with no
// transfers and returns it as an assignment of the program's variables.
func (m *Model) seed() []float64 {
	x := make([]float64, m.prob.NumVars())
	g := &Greedy{params: m.params, strict: true}
	b := append([]int(nil), m.initial...)
	stock := make([]int, m.tbl.NumStations())
	mu := m.params.ServiceRate
	for t := 0; t < m.win.Len(); t++ {
		p := m.win.Start + t
		for _, ev := range g.hideRelease(m.tbl, p, b, stock) {
			i := ev.Station
			x[m.hideIn[i][t]] = float64(ev.Hidden)
			x[m.hideOut[i][t]] = float64(ev.Released)
			if ev.Hidden > 0 {
				x[m.mode[i][t]] = 1
			}
		}
		for i := range m.tbl.Stations {
			c := float64(m.tbl.Capacity(i))
			bi := float64(b[i])
			x[m.stock[i][t]] = bi
			x[m.waitB[i][t]] = math.Max(0, (m.tbl.Borrow(i, p)-bi)/mu)
			x[m.waitR[i][t]] = math.Max(0, (m.tbl.Return(i, p)-(c-bi))/mu)
		}
	}
	return x
}

func (m *Model) label(t int) string { return m.tbl.Label(m.win.Start + t) }

func (m *Model) varName(kind string, i, t int) string {
	return kind + ":" + m.tbl.Stations[i].ID + "@" + m.label(t)
}

// Problem returns the program to hand to an engine.Solver.
func (m *Model) Problem() *engine.Problem { return m.prob }

// Window returns the block of periods the model covers.
func (m *Model) Window() Window { return m.win }

// WindowSolution is a solver assignment mapped back to the plan vocabulary.
type WindowSolution struct {
	Transfers []model.Transfer
	Hides     []model.HideEvent
	// Inventory is indexed by station then window-local period.
	Inventory [][]int
	Ending    []int
}

// Extract rounds the integer decisions of res and returns them as transfers,
// hide events and per-period inventory. Periods are reported in horizon
// coordinates.
func (m *Model) Extract(res engine.Result) WindowSolution {
	S, n := m.tbl.NumStations(), m.win.Len()
	var sol WindowSolution
	for _, a := range m.arcs {
		q := int(math.Round(res.Value(a.x)))
		if q <= 0 {
			continue
		}
		from, to := m.tbl.Stations[a.from], m.tbl.Stations[a.to]
		sol.Transfers = append(sol.Transfers, model.Transfer{
			Period:   m.win.Start + a.t,
			Label:    m.label(a.t),
			From:     a.from,
			To:       a.to,
			FromID:   from.ID,
			FromName: from.Name,
			ToID:     to.ID,
			ToName:   to.Name,
			Quantity: q,
		})
	}
	sortTransfers(sol.Transfers)

	sol.Inventory = make([][]int, S)
	sol.Ending = make([]int, S)
	for i := 0; i < S; i++ {
		st := m.tbl.Stations[i]
		sol.Inventory[i] = make([]int, n)
		for t := 0; t < n; t++ {
			b := int(math.Round(res.Value(m.stock[i][t])))
			sol.Inventory[i][t] = max(0, min(b, st.Capacity))
			if m.hideIn[i][t] < 0 {
				continue
			}
			hid := int(math.Round(res.Value(m.hideIn[i][t])))
			rel := int(math.Round(res.Value(m.hideOut[i][t])))
			if hid == 0 && rel == 0 {
				continue
			}
			sol.Hides = append(sol.Hides, model.HideEvent{
				Period:      m.win.Start + t,
				Label:       m.label(t),
				Station:     i,
				StationID:   st.ID,
				StationName: st.Name,
				Hidden:      hid,
				Released:    rel,
			})
		}
		sol.Ending[i] = sol.Inventory[i][n-1]
	}
	sortHides(sol.Hides)
	return sol
}

func sortTransfers(ts []model.Transfer) {
	sort.SliceStable(ts, func(a, b int) bool {
		if ts[a].Period != ts[b].Period {
			return ts[a].Period < ts[b].Period
		}
		if ts[a].From != ts[b].From {
			return ts[a].From < ts[b].From
		}
		return ts[a].To < ts[b].To
	})
}

func sortHides(hs []model.HideEvent) {
	sort.SliceStable(hs, func(a, b int) bool {
		if hs[a].Period != hs[b].Period {
			return hs[a].Period < hs[b].Period
		}
		return hs[a].Station < hs[b].Station
	})
}
