package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/infra/logger"
)

// InfluxSink writes planning events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordWindow writes one window point.
func (s *InfluxSink) RecordWindow(ev coremetrics.WindowEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rebalance_window").
		AddTag("run_id", ev.RunID).
		AddTag("strategy", ev.Strategy).
		AddTag("window", strconv.Itoa(ev.Window)).
		AddTag("quality", ev.Quality).
		AddField("first_period", ev.FirstPeriod).
		AddField("last_period", ev.LastPeriod).
		AddField("objective", round3(ev.Objective)).
		AddField("gap", round3(ev.Gap)).
		AddField("nodes", ev.Nodes).
		AddField("elapsed_ms", ev.Elapsed.Milliseconds()).
		AddField("dispatched", ev.Dispatched).
		AddField("hidden", ev.Hidden).
		AddField("released", ev.Released)
	if ev.Err != "" {
		p = p.AddField("error", ev.Err)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the run summary point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rebalance_run").
		AddTag("run_id", ev.RunID).
		AddTag("strategy", ev.Strategy).
		AddTag("quality", ev.Quality).
		AddField("objective", round3(ev.Objective)).
		AddField("wait_cost", round3(ev.WaitCost)).
		AddField("dispatch_cost", round3(ev.DispatchCost)).
		AddField("hide_cost", round3(ev.HideCost)).
		AddField("dispatched", ev.Dispatched).
		AddField("hidden", ev.Hidden).
		AddField("released", ev.Released).
		AddField("ledger_deficits", ev.LedgerDeficits).
		AddField("runtime_ms", ev.Runtime.Milliseconds()).
		AddField("failed", ev.Failed).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSweepPoint writes one sensitivity grid point.
func (s *InfluxSink) RecordSweepPoint(pt coremetrics.SweepPoint) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rebalance_sweep").
		AddTag("run_id", pt.RunID).
		AddTag(pt.ParamX, formatValue(pt.ValueX)).
		AddTag(pt.ParamY, formatValue(pt.ValueY)).
		AddField("failed", pt.Failed)
	if !pt.Failed {
		p = p.AddField("objective", round3(pt.Objective)).
			AddField("mean_wait", round3(pt.MeanWait))
	}
	p = p.SetTime(pt.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
