// Package api hosts the read-only HTTP surface for a running sweep. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/sweep for the current window and counters.
//   - GET /v1/codes/{code} to decode a code and show its neighbors.
//   - GET /v1/sweep/stream, a websocket of live progress events, when an
//     EventSource is configured.
package api
