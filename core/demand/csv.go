package demand

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column names of the demand table. The legacy export names are accepted as aliases.
var columnAliases = map[string]string{
	"station_id":    "station_id",
	"sno":           "station_id",
	"station_name":  "station_name",
	"sna":           "station_name",
	"area":          "area",
	"sarea":         "area",
	"period_label":  "period_label",
	"interval_time": "period_label",
	"capacity":      "capacity",
	"total":         "capacity",
	"borrow_demand": "borrow_demand",
	"demand_borrow": "borrow_demand",
	"return_demand": "return_demand",
	"demand_return": "return_demand",
}

var requiredColumns = []string{"station_id", "period_label", "capacity", "borrow_demand", "return_demand"}

// LoadFile reads a demand CSV from disk.
func LoadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f, opts)
}

// ReadCSV parses a demand CSV with a header row and builds a Table.
func ReadCSV(r io.Reader, opts Options) (*Table, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	return NewTable(rows, opts)
}

// ParseCSV decodes rows without validating table-level invariants.
//
//gocyclo:ignore
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &InputError{Line: 1, Msg: "empty input"}
		}
		return nil, &InputError{Line: 1, Msg: err.Error()}
	}
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := columnAliases[h]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, &InputError{Line: 1, Field: c, Msg: "missing column"}
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &InputError{Line: line, Msg: err.Error()}
		}
		row := Row{
			Line:        line,
			StationID:   field(rec, "station_id"),
			StationName: field(rec, "station_name"),
			Area:        field(rec, "area"),
			Period:      field(rec, "period_label"),
		}
		capRaw := field(rec, "capacity")
		c, err := strconv.ParseFloat(capRaw, 64)
		if err != nil || c != math.Trunc(c) {
			return nil, &InputError{Line: line, Station: row.StationID, Period: row.Period, Field: "capacity",
				Msg: fmt.Sprintf("not an integer: %q", capRaw)}
		}
		if math.Abs(c) > math.MaxInt32 {
			return nil, &InputError{Line: line, Station: row.StationID, Period: row.Period, Field: "capacity",
				Msg: fmt.Sprintf("out of range: %q", capRaw)}
		}
		row.Capacity = int(c)
		if row.Borrow, err = parseDemand(field(rec, "borrow_demand")); err != nil {
			return nil, &InputError{Line: line, Station: row.StationID, Period: row.Period, Field: "borrow_demand", Msg: err.Error()}
		}
		if row.Return, err = parseDemand(field(rec, "return_demand")); err != nil {
			return nil, &InputError{Line: line, Station: row.StationID, Period: row.Period, Field: "return_demand", Msg: err.Error()}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseDemand treats an empty cell as zero demand.
func parseDemand(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}
