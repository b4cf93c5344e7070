package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/core/sensitivity"
)

// File names written by WriteAll, before the configured prefix.
const (
	TransfersFile   = "transfers.csv"
	HidesFile       = "hides.csv"
	SummaryTextFile = "summary.txt"
	SummaryJSONFile = "summary.json"
	PlanFile        = "plan.json"
)

// WriteTransfersCSV writes one row per transfer.
func WriteTransfersCSV(w io.Writer, transfers []model.Transfer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"period", "from_station_id", "from_station_name", "to_station_id", "to_station_name", "quantity"}); err != nil {
		return err
	}
	for _, t := range transfers {
		rec := []string{t.Label, t.FromID, t.FromName, t.ToID, t.ToName, strconv.Itoa(t.Quantity)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHidesCSV writes one row per hide/release event.
func WriteHidesCSV(w io.Writer, hides []model.HideEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"period", "station_id", "station_name", "hidden_count", "released_count"}); err != nil {
		return err
	}
	for _, h := range hides {
		rec := []string{h.Label, h.StationID, h.StationName, strconv.Itoa(h.Hidden), strconv.Itoa(h.Released)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type summaryDoc struct {
	Strategy string               `json:"strategy"`
	Summary  model.Summary        `json:"summary"`
	Windows  []model.WindowReport `json:"windows,omitempty"`
}

// WriteSummaryJSON writes the summary and per-window reports.
func WriteSummaryJSON(w io.Writer, plan *model.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaryDoc{Strategy: plan.Strategy, Summary: plan.Summary, Windows: plan.Windows})
}

// WritePlanJSON writes the full plan.
func WritePlanJSON(w io.Writer, plan *model.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// WriteSummaryText writes a human readable summary.
func WriteSummaryText(w io.Writer, plan *model.Plan) error {
	s := plan.Summary
	ew := &errWriter{w: w}
	ew.printf("strategy:        %s\n", plan.Strategy)
	ew.printf("quality:         %s\n", s.Quality)
	ew.printf("objective:       %.4f\n", s.Objective)
	ew.printf("  wait cost:     %.4f\n", s.WaitCost)
	ew.printf("  dispatch cost: %.4f\n", s.DispatchCost)
	ew.printf("  hide cost:     %.4f\n", s.HideCost)
	ew.printf("dispatched:      %d\n", s.Dispatched)
	ew.printf("hidden:          %d\n", s.Hidden)
	ew.printf("released:        %d\n", s.Released)
	ew.printf("ledger deficits: %d\n", s.LedgerDeficits)
	ew.printf("runtime:         %s\n", s.Runtime)
	if len(plan.Windows) > 0 {
		ew.printf("windows:\n")
		for _, win := range plan.Windows {
			ew.printf("  %2d %s-%s %-12s objective=%.4f gap=%.4f nodes=%d elapsed=%s\n",
				win.Index, win.FirstTime, win.LastTime, win.Quality, win.Objective, win.Gap, win.Nodes, win.Elapsed)
		}
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// WriteSweepCSV writes one row per grid point. Failed points carry "nan".
func WriteSweepCSV(w io.Writer, res *sensitivity.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{res.ParamX, res.ParamY, "objective", "mean_wait", "quality", "error"}); err != nil {
		return err
	}
	for _, p := range res.Points {
		rec := []string{formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Objective), formatFloat(p.MeanWait), string(p.Quality), p.Err}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteAll writes the plan files into dir, creating it if needed, and returns
// the paths written.
func WriteAll(dir, prefix string, plan *model.Plan, withJSON bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TransfersFile, func(w io.Writer) error { return WriteTransfersCSV(w, plan.Transfers) }},
		{HidesFile, func(w io.Writer) error { return WriteHidesCSV(w, plan.Hides) }},
		{SummaryTextFile, func(w io.Writer) error { return WriteSummaryText(w, plan) }},
		{SummaryJSONFile, func(w io.Writer) error { return WriteSummaryJSON(w, plan) }},
	}
	if withJSON {
		writers = append(writers, struct {
			name  string
			write func(io.Writer) error
		}{PlanFile, func(w io.Writer) error { return WritePlanJSON(w, plan) }})
	}
	var paths []string
	for _, wr := range writers {
		path := filepath.Join(dir, prefix+wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return paths, fmt.Errorf("export %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteSweepFile writes the sweep grid to dir/<prefix>sweep_<x>_<y>.csv.
func WriteSweepFile(dir, prefix string, res *sensitivity.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%ssweep_%s_%s.csv", prefix, res.ParamX, res.ParamY))
	if err := writeFile(path, func(w io.Writer) error { return WriteSweepCSV(w, res) }); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
