package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/eric2969/OR2025-Final/core/metrics"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	windows   *prometheus.CounterVec
	solveTime *prometheus.HistogramVec
	gap       *prometheus.GaugeVec
	nodes     *prometheus.CounterVec
	objective *prometheus.GaugeVec
	volume    *prometheus.GaugeVec
	runtime   *prometheus.GaugeVec
	deficits  *prometheus.GaugeVec
	sweep     *prometheus.GaugeVec
}

// NewPromSink registers planner metrics on the default Prometheus registerer.
// The HTTP listener is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rebalance_windows_total",
			Help: "Solved or failed windows by strategy and quality",
		}, []string{"strategy", "quality"}),
		solveTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rebalance_window_solve_seconds",
			Help:    "Wall-clock time spent solving one window",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"strategy"}),
		gap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rebalance_window_gap_ratio",
			Help: "Relative optimality gap of the last solved window",
		}, []string{"strategy"}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rebalance_search_nodes_total",
			Help: "Branch-and-bound nodes explored",
		}, []string{"strategy"}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rebalance_run_objective",
			Help: "Objective components of the last run",
		}, []string{"strategy", "component"}),
		volume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rebalance_run_vehicles",
			Help: "Vehicles dispatched, hidden and released in the last run",
		}, []string{"strategy", "kind"}),
		runtime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rebalance_run_seconds",
			Help: "Wall-clock time of the last run",
		}, []string{"strategy", "quality"}),
		deficits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rebalance_run_ledger_deficits",
			Help: "Station-periods whose hidden stock went negative in the last run",
		}, []string{"strategy"}),
		sweep: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rebalance_sweep_objective",
			Help: "Objective of a sensitivity grid point",
		}, []string{"param_x", "value_x", "param_y", "value_y"}),
	}
	var err error
	if s.windows, err = register(reg, s.windows); err != nil {
		return nil, err
	}
	if s.solveTime, err = register(reg, s.solveTime); err != nil {
		return nil, err
	}
	if s.gap, err = register(reg, s.gap); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, s.nodes); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, s.objective); err != nil {
		return nil, err
	}
	if s.volume, err = register(reg, s.volume); err != nil {
		return nil, err
	}
	if s.runtime, err = register(reg, s.runtime); err != nil {
		return nil, err
	}
	if s.deficits, err = register(reg, s.deficits); err != nil {
		return nil, err
	}
	if s.sweep, err = register(reg, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c was registered
// before, so sinks can be created more than once per process.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordWindow counts the window and records its solve statistics.
func (s *PromSink) RecordWindow(ev coremetrics.WindowEvent) error {
	quality := ev.Quality
	if ev.Err != "" {
		quality = "failed"
	}
	s.windows.WithLabelValues(ev.Strategy, quality).Inc()
	s.solveTime.WithLabelValues(ev.Strategy).Observe(ev.Elapsed.Seconds())
	s.nodes.WithLabelValues(ev.Strategy).Add(float64(ev.Nodes))
	if ev.Err == "" {
		s.gap.WithLabelValues(ev.Strategy).Set(ev.Gap)
	}
	return nil
}

// RecordRun sets the run gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.objective.WithLabelValues(ev.Strategy, "total").Set(ev.Objective)
	s.objective.WithLabelValues(ev.Strategy, "wait").Set(ev.WaitCost)
	s.objective.WithLabelValues(ev.Strategy, "dispatch").Set(ev.DispatchCost)
	s.objective.WithLabelValues(ev.Strategy, "hide").Set(ev.HideCost)
	s.volume.WithLabelValues(ev.Strategy, "dispatched").Set(float64(ev.Dispatched))
	s.volume.WithLabelValues(ev.Strategy, "hidden").Set(float64(ev.Hidden))
	s.volume.WithLabelValues(ev.Strategy, "released").Set(float64(ev.Released))
	s.runtime.WithLabelValues(ev.Strategy, ev.Quality).Set(ev.Runtime.Seconds())
	s.deficits.WithLabelValues(ev.Strategy).Set(float64(ev.LedgerDeficits))
	return nil
}

// RecordSweepPoint sets the objective gauge of one grid point.
func (s *PromSink) RecordSweepPoint(p coremetrics.SweepPoint) error {
	s.sweep.WithLabelValues(p.ParamX, formatValue(p.ValueX), p.ParamY, formatValue(p.ValueY)).Set(p.Objective)
	return nil
}
