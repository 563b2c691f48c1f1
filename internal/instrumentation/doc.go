// Package instrumentation wires OpenTelemetry metrics and tracing for the
// scheduling service.
//
// It exposes a Provider that owns the meter/tracer providers and exporters
// (Prometheus by default, OTLP or stdout for development), and a Metrics
// recorder with counters and histograms for HTTP traffic, scheduling
// attempts, provider API calls, token refreshes and bot invites.
//
// When instrumentation is disabled the Provider hands out no-op recorders so
// callers never need nil checks.
package instrumentation
