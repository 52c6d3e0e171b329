// Package sinks implements concrete progress consumers: structured logging,
// Prometheus metrics, a terminal status table, an in-memory snapshot for the
// HTTP API and a broadcaster for live subscribers. Each sink satisfies
// progress.Sink.
package sinks
