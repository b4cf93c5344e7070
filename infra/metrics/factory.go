package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eric2969/OR2025-Final/core/factory"
	coremetrics "github.com/eric2969/OR2025-Final/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			Textfile string `json:"textfile"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		sink, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		if c.Textfile != "" {
			return &TextfileSink{PromSink: sink, Path: c.Textfile, Gatherer: prometheus.DefaultGatherer}, nil
		}
		return sink, nil
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}

// TextfileSink is a PromSink that rewrites a textfile after every run summary.
type TextfileSink struct {
	*PromSink
	Path     string
	Gatherer prometheus.Gatherer
}

// RecordRun updates the gauges and dumps the registry to Path.
func (t *TextfileSink) RecordRun(ev coremetrics.RunEvent) error {
	if err := t.PromSink.RecordRun(ev); err != nil {
		return err
	}
	return WriteTextfile(t.Path, t.Gatherer)
}
