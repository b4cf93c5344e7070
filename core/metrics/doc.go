// Package metrics defines the events a planning run emits and the sinks that
// record them. Sinks like PromSink and InfluxSink live in infra/metrics and
// register themselves with the factory; NewMetricsSink returns a MultiSink
// automatically when multiple sinks are configured.
package metrics
