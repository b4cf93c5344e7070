package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eric2969/OR2025-Final/core/demand"
	"github.com/eric2969/OR2025-Final/core/model"
)

type StationDef struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name,omitempty"`
	Area     string    `yaml:"area,omitempty"`
	Capacity int       `yaml:"capacity"`
	Initial  int       `yaml:"initial"`
	Borrow   []float64 `yaml:"borrow,omitempty"`
	Return   []float64 `yaml:"return,omitempty"`
}

// ParamsDef overrides the default model parameters; nil fields keep the default.
type ParamsDef struct {
	ServiceRate       *float64 `yaml:"service_rate,omitempty"`
	DispatchCost      *float64 `yaml:"dispatch_cost,omitempty"`
	HideCost          *float64 `yaml:"hide_cost,omitempty"`
	TruckCapacity     *int     `yaml:"truck_capacity,omitempty"`
	TruckCount        *int     `yaml:"truck_count,omitempty"`
	MaxVisitsPerTruck *int     `yaml:"max_visits_per_truck,omitempty"`
	MaxHideFraction   *float64 `yaml:"max_hide_fraction,omitempty"`
	TransportDelay    *int     `yaml:"transport_delay,omitempty"`
}

func (d ParamsDef) ToModel() model.Params {
	p := model.DefaultParams()
	setFloat(&p.ServiceRate, d.ServiceRate)
	setFloat(&p.DispatchCost, d.DispatchCost)
	setFloat(&p.HideCost, d.HideCost)
	setInt(&p.TruckCapacity, d.TruckCapacity)
	setInt(&p.TruckCount, d.TruckCount)
	setInt(&p.MaxVisitsPerTruck, d.MaxVisitsPerTruck)
	setFloat(&p.MaxHideFraction, d.MaxHideFraction)
	setInt(&p.TransportDelay, d.TransportDelay)
	return p
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Expected lists the checks for one run; nil fields are not checked.
type Expected struct {
	Transfers      *int     `yaml:"transfers,omitempty"`
	Dispatched     *int     `yaml:"dispatched,omitempty"`
	Hides          *int     `yaml:"hides,omitempty"`
	Hidden         *int     `yaml:"hidden,omitempty"`
	WaitCost       *float64 `yaml:"wait_cost,omitempty"`
	DispatchCost   *float64 `yaml:"dispatch_cost,omitempty"`
	LedgerDeficits *int     `yaml:"ledger_deficits,omitempty"`
	Violations     *int     `yaml:"violations,omitempty"`
	Final          []int    `yaml:"final,omitempty"`
	Quality        string   `yaml:"quality,omitempty"`
}

// RunDef solves the scenario with one strategy.
type RunDef struct {
	Strategy     string   `yaml:"strategy"`
	BatchSize    int      `yaml:"batch_size,omitempty"`
	StrictLedger bool     `yaml:"strict_ledger,omitempty"`
	Expected     Expected `yaml:"expected"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Periods     []string     `yaml:"periods"`
	Params      ParamsDef    `yaml:"params"`
	Stations    []StationDef `yaml:"stations"`
	Runs        []RunDef     `yaml:"runs"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Periods) == 0 || len(sc.Stations) == 0 {
		return nil, fmt.Errorf("scenario %s: periods and stations are required", path)
	}
	return &sc, nil
}

// Table builds the demand table described by the scenario.
func (sc *Scenario) Table() (*demand.Table, error) {
	var rows []demand.Row
	for _, s := range sc.Stations {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		for p, label := range sc.Periods {
			rows = append(rows, demand.Row{
				StationID:   s.ID,
				StationName: name,
				Area:        s.Area,
				Period:      label,
				Capacity:    s.Capacity,
				Borrow:      at(s.Borrow, p),
				Return:      at(s.Return, p),
			})
		}
	}
	return demand.NewTable(rows, demand.Options{AllowZeroCapacity: true})
}

// Initial returns the starting inventory in the station order of tbl.
func (sc *Scenario) Initial(tbl *demand.Table) []int {
	out := make([]int, tbl.NumStations())
	for _, s := range sc.Stations {
		if i, ok := tbl.StationIndex(s.ID); ok {
			out[i] = s.Initial
		}
	}
	return out
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
