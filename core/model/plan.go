package model

import "time"

// Quality flags how much trust the caller can put in a plan's objective.
type Quality string

const (
	QualityOptimal     Quality = "optimal"
	QualityGapLimited  Quality = "gap_limited"
	QualityTimeLimited Quality = "time_limited"
	QualityHeuristic   Quality = "heuristic"
	QualityPartial     Quality = "partial"
)

// rank orders qualities from best to worst so a run reports its weakest window.
func (q Quality) rank() int {
	switch q {
	case QualityOptimal:
		return 0
	case QualityGapLimited:
		return 1
	case QualityTimeLimited:
		return 2
	case QualityHeuristic:
		return 3
	default:
		return 4
	}
}

// Worse returns the weaker of the two qualities.
func (q Quality) Worse(other Quality) Quality {
	if q == "" {
		return other
	}
	if other.rank() > q.rank() {
		return other
	}
	return q
}

// Transfer moves Quantity vehicles from one station to another, departing in Period.
type Transfer struct {
	Period   int    `json:"period_index"`
	Label    string `json:"period"`
	From     int    `json:"-"`
	To       int    `json:"-"`
	FromID   string `json:"from_station_id"`
	FromName string `json:"from_station_name"`
	ToID     string `json:"to_station_id"`
	ToName   string `json:"to_station_name"`
	Quantity int    `json:"quantity"`
}

// HideEvent records vehicles withheld from or released into a station in one period.
type HideEvent struct {
	Period      int    `json:"period_index"`
	Label       string `json:"period"`
	Station     int    `json:"-"`
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	Hidden      int    `json:"hidden_count"`
	Released    int    `json:"released_count"`
}

// WindowReport describes the solve of one contiguous block of periods.
type WindowReport struct {
	Index     int           `json:"index"`
	Start     int           `json:"start"`
	End       int           `json:"end"`
	FirstTime string        `json:"first_period"`
	LastTime  string        `json:"last_period"`
	Quality   Quality       `json:"quality"`
	Objective float64       `json:"objective"`
	Bound     float64       `json:"bound"`
	Gap       float64       `json:"gap"`
	Nodes     int           `json:"nodes"`
	Elapsed   time.Duration `json:"elapsed"`
	Initial   []int         `json:"initial"`
	Ending    []int         `json:"ending"`
}

// Summary aggregates the costs and volumes of a plan.
type Summary struct {
	Objective      float64       `json:"objective"`
	WaitCost       float64       `json:"wait_cost"`
	DispatchCost   float64       `json:"dispatch_cost"`
	HideCost       float64       `json:"hide_cost"`
	Dispatched     int           `json:"dispatched"`
	Hidden         int           `json:"hidden"`
	Released       int           `json:"released"`
	LedgerDeficits int           `json:"ledger_deficits"`
	Runtime        time.Duration `json:"runtime"`
	Quality        Quality       `json:"quality"`
}

// Plan is the output of any solving strategy.
type Plan struct {
	Strategy  string         `json:"strategy"`
	Delay     int            `json:"transport_delay"`
	Initial   []int          `json:"initial"`
	Final     []int          `json:"final"`
	Transfers []Transfer     `json:"transfers"`
	Hides     []HideEvent    `json:"hides"`
	Windows   []WindowReport `json:"windows,omitempty"`
	Summary   Summary        `json:"summary"`
}

// Totals recomputes the dispatched, hidden and released volumes.
func (p *Plan) Totals() (dispatched, hidden, released int) {
	for _, t := range p.Transfers {
		dispatched += t.Quantity
	}
	for _, h := range p.Hides {
		hidden += h.Hidden
		released += h.Released
	}
	return dispatched, hidden, released
}
