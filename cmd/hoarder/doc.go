// Package main hosts the hoarder command line.
//
// Architecture overview:
//   - Codes: internal/code converts between the 35-symbol experience code text and int64 values and provides
//     the descending Range the sweep is built on.
//   - Sweep: internal/worker walks the range from sweep.start down to sweep.end in windows of sweep.chunk_size
//     codes. Probes inside a window run concurrently; windows are separated by a barrier.
//   - Lookup: internal/prober/colly issues one GET per code against probe.base_url, throttled per host by
//     internal/policy/ratelimit and bounded by probe.timeout.
//   - Progress: every resolution is reported at once to the progress sinks (zap log, Prometheus, the in-memory
//     snapshot behind the HTTP API, and the optional lipgloss table on stdout).
//   - Configuration: Viper merges defaults, an optional YAML file, HOARDER_* environment variables and flags.
//     --env-file (default .env) is loaded into the environment first.
//
// Quick checklist:
//   - Run a sweep: hoarder sweep --base-url https://lookup.example.com/api --start AA9L9 --render
//   - Serve status while sweeping: add --serve --port 8080, then GET /v1/sweep or open the /v1/sweep/stream websocket.
//   - Convert codes: hoarder code encode 42069, hoarder code decode AA9L9, hoarder code range AAJ AAA.
package main
