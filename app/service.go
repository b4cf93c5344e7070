package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eric2969/OR2025-Final/config"
	"github.com/eric2969/OR2025-Final/core/demand"
	coremetrics "github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/core/model"
	coremon "github.com/eric2969/OR2025-Final/core/monitoring"
	coremqtt "github.com/eric2969/OR2025-Final/core/mqtt"
	"github.com/eric2969/OR2025-Final/core/rebalance"
	"github.com/eric2969/OR2025-Final/core/runlog"
	"github.com/eric2969/OR2025-Final/core/sensitivity"
	"github.com/eric2969/OR2025-Final/infra/logger"
	"github.com/eric2969/OR2025-Final/infra/metrics"
	inframon "github.com/eric2969/OR2025-Final/infra/monitoring"
	"github.com/eric2969/OR2025-Final/infra/mqtt"
	"github.com/eric2969/OR2025-Final/infra/simplex"
	"github.com/eric2969/OR2025-Final/pkg/export"
)

// Publisher is the subset of the MQTT client the service drives.
type Publisher interface {
	coremqtt.Client
	Disconnect()
}

// Overridable in tests.
var (
	newPublisher = func(cfg mqtt.Config) (Publisher, error) { return mqtt.NewPahoClient(cfg) }
	newRunID     = func() string { return uuid.NewString() }
)

// Option adjusts a Service built by New.
type Option func(*Service)

// WithPublisher publishes orders through p instead of dialling the configured
// broker. It has no effect unless mqtt.enabled is set.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// Service wires the planners to the configured run log, metrics, publisher
// and error monitor.
type Service struct {
	cfg     *config.Config
	Metrics coremetrics.MetricsSink
	Store   runlog.Store
	pub     Publisher
	prevMon coremon.Monitor
	log     logger.Logger
}

// Outcome is the result of one solve.
type Outcome struct {
	RunID   string
	Plan    *model.Plan
	Files   []string
	Publish *coremqtt.Report
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("app: nil parameter provided to New")
	}
	logg := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	svc := &Service{cfg: cfg, log: logg, prevMon: coremon.Init(mon)}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc.Metrics = sink

	store, err := runlog.New(cfg.RunLog)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("run log: %w", err)
	}
	svc.Store = store

	var given Service
	for _, opt := range opts {
		opt(&given)
	}
	switch {
	case !cfg.MQTT.Enabled:
	case given.pub != nil:
		svc.pub = given.pub
	default:
		pub, err := newPublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.pub = pub
	}
	return svc, nil
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config { return s.cfg }

// Start exposes the Prometheus registry when metrics.listen is set. The
// listener stops with ctx.
func (s *Service) Start(ctx context.Context) {
	if s.cfg.Metrics.Listen == "" {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Listen, nil); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// LoadTable reads the configured demand CSV.
func (s *Service) LoadTable() (*demand.Table, error) {
	if s.cfg.Input.Path == "" {
		return nil, errors.New("input path is required")
	}
	tbl, err := demand.LoadFile(s.cfg.Input.Path, demand.Options{
		Area:              s.cfg.Input.Area,
		AllowZeroCapacity: s.cfg.Input.AllowZeroCapacity,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.cfg.Input.Path, err)
	}
	s.log.Infof("loaded %d stations x %d periods from %s", tbl.NumStations(), tbl.NumPeriods(), s.cfg.Input.Path)
	return tbl, nil
}

// Planner builds the planner for the configured strategy with params.
func (s *Service) Planner(params model.Params) (rebalance.Planner, error) {
	return rebalance.NewPlanner(rebalance.Options{
		Strategy:     s.cfg.Solver.Strategy,
		Params:       params,
		Limits:       s.cfg.Solver.Limits(),
		BatchSize:    s.cfg.Solver.BatchSize,
		StrictLedger: s.cfg.Solver.StrictLedger,
		Solver:       simplex.New(logger.New("simplex")),
		Metrics:      s.Metrics,
		Log:          logger.New("planner"),
	})
}

// Solve plans the configured input, writes the result files, records the run
// and publishes the orders when MQTT is enabled. A partial plan is still
// exported and recorded before the planning error is returned.
func (s *Service) Solve(ctx context.Context, command string) (*Outcome, error) {
	tbl, err := s.LoadTable()
	if err != nil {
		return nil, err
	}
	planner, err := s.Planner(s.cfg.Model)
	if err != nil {
		return nil, err
	}
	out := &Outcome{RunID: newRunID()}
	planner.SetRunID(out.RunID)
	s.log.Infof("run %s: %s over %d periods", out.RunID, planner.Name(), tbl.NumPeriods())

	started := time.Now()
	plan, planErr := planner.Plan(ctx, tbl, nil)
	if plan == nil {
		s.record(ctx, command, out.RunID, tbl, nil, started, planErr)
		return out, planErr
	}
	out.Plan = plan

	files, err := export.WriteAll(s.cfg.Output.Dir, s.cfg.Output.Prefix, plan, s.cfg.Output.JSON)
	out.Files = files
	if err != nil {
		planErr = errors.Join(planErr, err)
	}
	s.record(ctx, command, out.RunID, tbl, plan, started, planErr)
	if planErr != nil {
		return out, planErr
	}

	if s.pub != nil {
		rep, err := coremqtt.PublishPlan(ctx, s.pub, out.RunID, plan, s.cfg.MQTT.AckTimeout(), logger.New("publisher"))
		out.Publish = &rep
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, command, runID string, tbl *demand.Table, plan *model.Plan, started time.Time, planErr error) {
	rec := runlog.RunRecord{
		RunID:     runID,
		Timestamp: started,
		Command:   command,
		Strategy:  s.cfg.Solver.Strategy,
		Input:     s.cfg.Input.Path,
		Area:      s.cfg.Input.Area,
		Stations:  tbl.NumStations(),
		Periods:   tbl.NumPeriods(),
		Params:    s.cfg.Model,
		OutputDir: s.cfg.Output.Dir,
	}
	if plan != nil {
		rec.Strategy = plan.Strategy
		rec.Windows = len(plan.Windows)
		rec.Summary = plan.Summary
	}
	if planErr != nil {
		rec.Error = planErr.Error()
	}
	if err := s.Store.Append(ctx, rec); err != nil {
		s.log.Warnf("run log append: %v", err)
	}
}

// Sweep evaluates the configured planner over the grid and writes the CSV.
func (s *Service) Sweep(ctx context.Context, x, y sensitivity.Axis) (*sensitivity.Result, string, error) {
	tbl, err := s.LoadTable()
	if err != nil {
		return nil, "", err
	}
	sw, err := sensitivity.NewSweeper(tbl, s.cfg.Model, nil, s.Planner, s.Metrics, logger.New("sweep"))
	if err != nil {
		return nil, "", err
	}
	runID := newRunID()
	sw.SetRunID(runID)

	started := time.Now()
	res, runErr := sw.Run(ctx, x, y)
	if res == nil {
		return nil, "", runErr
	}
	path, err := export.WriteSweepFile(s.cfg.Output.Dir, s.cfg.Output.Prefix, res)
	if err != nil {
		runErr = errors.Join(runErr, err)
	}

	rec := runlog.RunRecord{
		RunID:     runID,
		Timestamp: started,
		Command:   "sweep",
		Strategy:  s.cfg.Solver.Strategy,
		Input:     s.cfg.Input.Path,
		Area:      s.cfg.Input.Area,
		Stations:  tbl.NumStations(),
		Periods:   tbl.NumPeriods(),
		Params:    s.cfg.Model,
		OutputDir: s.cfg.Output.Dir,
	}
	if best, ok := res.Best(); ok {
		rec.Summary = model.Summary{Objective: best.Objective, Quality: best.Quality}
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := s.Store.Append(ctx, rec); err != nil {
		s.log.Warnf("run log append: %v", err)
	}
	return res, path, runErr
}

// History returns recorded runs matching q.
func (s *Service) History(ctx context.Context, q runlog.Query) ([]runlog.RunRecord, error) {
	return s.Store.Query(ctx, q)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.pub != nil {
		s.pub.Disconnect()
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if c, ok := s.Metrics.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	coremon.Init(s.prevMon)
	return errors.Join(errs...)
}
