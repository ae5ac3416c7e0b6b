// Package telemetry provides the observability surface for bringup:
// zerolog-based structured logging with a durable file sink, Prometheus
// metrics for runs, phases, retries and contention waits, and optional
// OpenTelemetry tracing with one span per provisioning phase.
package telemetry
