// Package server is the HTTP surface: a gin router for the meeting and OAuth
// endpoints, the bearer-JWT principal middleware, Kubernetes health probes,
// and a dedicated Prometheus metrics server.
//
// Handlers never branch on errors themselves: failures bubble up from the
// orchestrator as typed domain errors and are rendered as structured JSON
// with the status domain.HTTPStatus derives. Stack traces are never
// surfaced.
package server
