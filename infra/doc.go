// Package infra holds the adapters behind the core interfaces: the
// branch-and-bound engine, MQTT order publishing, metrics sinks, Sentry
// monitoring and zerolog logging.
package infra
