package metrics

import "time"

// WindowEvent describes the outcome of one solved or failed window.
type WindowEvent struct {
	RunID       string
	Strategy    string
	Window      int
	FirstPeriod string
	LastPeriod  string
	Quality     string
	Objective   float64
	Bound       float64
	Gap         float64
	Nodes       int
	Elapsed     time.Duration
	Dispatched  int
	Hidden      int
	Released    int
	// Err is set when the window failed.
	Err  string
	Time time.Time
}

// MetricsSink records per-window solver outcomes for observability purposes.
type MetricsSink interface {
	RecordWindow(ev WindowEvent) error
}

// RunEvent summarizes a complete planning run.
type RunEvent struct {
	RunID          string
	Strategy       string
	Quality        string
	Stations       int
	Periods        int
	Windows        int
	Objective      float64
	WaitCost       float64
	DispatchCost   float64
	HideCost       float64
	Dispatched     int
	Hidden         int
	Released       int
	LedgerDeficits int
	Runtime        time.Duration
	Failed         bool
	Time           time.Time
}

// RunRecorder records run summaries.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// SweepPoint is one evaluated point of a sensitivity grid.
type SweepPoint struct {
	RunID     string
	ParamX    string
	ValueX    float64
	ParamY    string
	ValueY    float64
	Objective float64
	MeanWait  float64
	Failed    bool
	Time      time.Time
}

// SweepRecorder records sensitivity grid points.
type SweepRecorder interface {
	RecordSweepPoint(p SweepPoint) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordWindow(WindowEvent) error    { return nil }
func (NopSink) RecordRun(RunEvent) error          { return nil }
func (NopSink) RecordSweepPoint(SweepPoint) error { return nil }

// RecordRun forwards ev to s when it supports run summaries.
func RecordRun(s MetricsSink, ev RunEvent) error {
	if r, ok := s.(RunRecorder); ok {
		return r.RecordRun(ev)
	}
	return nil
}

// RecordSweepPoint forwards p to s when it supports sweep points.
func RecordSweepPoint(s MetricsSink, p SweepPoint) error {
	if r, ok := s.(SweepRecorder); ok {
		return r.RecordSweepPoint(p)
	}
	return nil
}
