// Package demand holds the per-station, per-period borrow/return estimates the
// planners consume. A Table is read-only once built.
package demand

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/eric2969/OR2025-Final/core/model"
)

// Row is one station-period sample as it appears in the input.
type Row struct {
	StationID   string
	StationName string
	Area        string
	Period      string
	Capacity    int
	Borrow      float64
	Return      float64
	// Line is the 1-based source line, used in error messages.
	Line int
}

// Options controls how rows are filtered and validated.
type Options struct {
	// Area keeps only rows of this area when non-empty.
	Area string
	// AllowZeroCapacity accepts stations with capacity 0. Negative capacity is always rejected.
	AllowZeroCapacity bool
}

// Table is a dense station x period demand matrix.
type Table struct {
	Stations []model.Station
	Periods  []string
	borrow   [][]float64
	ret      [][]float64
	index    map[string]int
}

// NewTable validates rows and builds a table with stations sorted by ID and
// periods sorted lexicographically. Integer IDs compare by value and come
// before any other ID. Missing station-period samples are zero.
//
//gocyclo:ignore
func NewTable(rows []Row, opts Options) (*Table, error) {
	type station struct {
		model.Station
		line int
	}
	stations := make(map[string]*station)
	periods := make(map[string]struct{})
	seen := make(map[[2]string]int)
	labelWidth := -1
	var kept []Row

	for _, r := range rows {
		if opts.Area != "" && r.Area != opts.Area {
			continue
		}
		if r.StationID == "" {
			return nil, &InputError{Line: r.Line, Field: "station_id", Msg: "missing station id"}
		}
		if r.Period == "" {
			return nil, &InputError{Line: r.Line, Station: r.StationID, Field: "period_label", Msg: "missing period label"}
		}
		if labelWidth < 0 {
			labelWidth = len(r.Period)
		} else if len(r.Period) != labelWidth {
			return nil, &InputError{Line: r.Line, Station: r.StationID, Period: r.Period, Field: "period_label",
				Msg: fmt.Sprintf("label width %d differs from %d; labels must sort lexicographically", len(r.Period), labelWidth)}
		}
		if r.Capacity < 0 || (r.Capacity == 0 && !opts.AllowZeroCapacity) {
			return nil, &InputError{Line: r.Line, Station: r.StationID, Period: r.Period, Field: "capacity",
				Msg: fmt.Sprintf("capacity must be positive, got %d", r.Capacity)}
		}
		if r.Borrow < 0 {
			return nil, &InputError{Line: r.Line, Station: r.StationID, Period: r.Period, Field: "borrow_demand", Msg: "negative demand"}
		}
		if r.Return < 0 {
			return nil, &InputError{Line: r.Line, Station: r.StationID, Period: r.Period, Field: "return_demand", Msg: "negative demand"}
		}
		key := [2]string{r.StationID, r.Period}
		if prev, dup := seen[key]; dup {
			return nil, &InputError{Line: r.Line, Station: r.StationID, Period: r.Period,
				Msg: fmt.Sprintf("duplicate sample, first seen on line %d", prev)}
		}
		seen[key] = r.Line

		if s, ok := stations[r.StationID]; ok {
			if s.Capacity != r.Capacity {
				return nil, &InputError{Line: r.Line, Station: r.StationID, Period: r.Period, Field: "capacity",
					Msg: fmt.Sprintf("capacity %d conflicts with %d on line %d", r.Capacity, s.Capacity, s.line)}
			}
		} else {
			stations[r.StationID] = &station{
				Station: model.Station{ID: r.StationID, Name: r.StationName, Area: r.Area, Capacity: r.Capacity},
				line:    r.Line,
			}
		}
		periods[r.Period] = struct{}{}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		if opts.Area != "" {
			return nil, &InputError{Msg: fmt.Sprintf("no rows for area %q", opts.Area)}
		}
		return nil, &InputError{Msg: "no demand rows"}
	}

	t := &Table{index: make(map[string]int, len(stations))}
	for _, s := range stations {
		t.Stations = append(t.Stations, s.Station)
	}
	sort.Slice(t.Stations, func(a, b int) bool { return lessID(t.Stations[a].ID, t.Stations[b].ID) })
	for i, s := range t.Stations {
		t.index[s.ID] = i
	}
	for p := range periods {
		t.Periods = append(t.Periods, p)
	}
	sort.Strings(t.Periods)
	pidx := make(map[string]int, len(t.Periods))
	for i, p := range t.Periods {
		pidx[p] = i
	}

	t.borrow = make([][]float64, len(t.Stations))
	t.ret = make([][]float64, len(t.Stations))
	for i := range t.Stations {
		t.borrow[i] = make([]float64, len(t.Periods))
		t.ret[i] = make([]float64, len(t.Periods))
	}
	for _, r := range kept {
		i, p := t.index[r.StationID], pidx[r.Period]
		t.borrow[i][p] = r.Borrow
		t.ret[i][p] = r.Return
	}
	return t, nil
}

// NumStations returns the number of stations.
func (t *Table) NumStations() int { return len(t.Stations) }

// NumPeriods returns the number of periods in the horizon.
func (t *Table) NumPeriods() int { return len(t.Periods) }

// Capacity returns the dock capacity of station i.
func (t *Table) Capacity(i int) int { return t.Stations[i].Capacity }

// Borrow returns the borrow demand of station i in period p.
func (t *Table) Borrow(i, p int) float64 { return t.borrow[i][p] }

// Return returns the return demand of station i in period p.
func (t *Table) Return(i, p int) float64 { return t.ret[i][p] }

// Label returns the label of period p.
func (t *Table) Label(p int) string { return t.Periods[p] }

// StationIndex looks up a station by ID.
func (t *Table) StationIndex(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// CheckInitial verifies that an initial inventory vector fits the stations.
func (t *Table) CheckInitial(b0 []int) error {
	if len(b0) != len(t.Stations) {
		return fmt.Errorf("initial inventory has %d entries for %d stations", len(b0), len(t.Stations))
	}
	for i, v := range b0 {
		if v < 0 || v > t.Stations[i].Capacity {
			return fmt.Errorf("station %s: initial inventory %d outside [0,%d]", t.Stations[i].ID, v, t.Stations[i].Capacity)
		}
	}
	return nil
}

func lessID(a, b string) bool {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if x != y {
			return x < y
		}
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
