package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/experience-hoarder/internal/progress"
)

// PrometheusSink exports sweep progress via Prometheus. It owns the collectors
// for sweeps started/completed/running, codes resolved by status, window sizes
// and the lowest code reached so far.
type PrometheusSink struct {
	sweepsStarted   prometheus.Counter
	sweepsCompleted *prometheus.CounterVec
	sweepsRunning   prometheus.Gauge
	sweepRuntime    *prometheus.HistogramVec

	codesResolved *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	windowSize    prometheus.Histogram
	cursor        prometheus.Gauge

	tracker *sweepTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		sweepsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hoarder_sweeps_started_total",
			Help: "Total sweeps that have started.",
		}),
		sweepsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hoarder_sweeps_completed_total",
			Help: "Total sweeps completed partitioned by result.",
		}, []string{"result"}),
		sweepsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hoarder_sweeps_running",
			Help: "Current number of running sweeps.",
		}),
		sweepRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hoarder_sweep_runtime_seconds",
			Help:    "Wall time per completed sweep.",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600, 14400},
		}, []string{"result"}),
		codesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hoarder_codes_resolved_total",
			Help: "Codes probed partitioned by status.",
		}, []string{"status"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hoarder_code_probe_duration_seconds",
			Help:    "Probe latency partitioned by status.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"status"}),
		windowSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hoarder_window_size_codes",
			Help:    "Number of codes probed per window.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hoarder_sweep_cursor_value",
			Help: "Integer value of the code at the top of the active window.",
		}),
		tracker: newSweepTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.sweepsStarted,
		s.sweepsCompleted,
		s.sweepsRunning,
		s.sweepRuntime,
		s.codesResolved,
		s.probeDuration,
		s.windowSize,
		s.cursor,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors. Collectors are safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageSweepStart:
		s.sweepsStarted.Inc()
		if s.tracker.start(evt.SweepID) {
			s.sweepsRunning.Inc()
		}
	case progress.StageWindowStart:
		s.windowSize.Observe(float64(len(evt.Window)))
		s.cursor.Set(float64(evt.Code.Int()))
	case progress.StageCodeResolved:
		status := string(evt.Status)
		s.codesResolved.WithLabelValues(status).Inc()
		if evt.Dur > 0 {
			s.probeDuration.WithLabelValues(status).Observe(evt.Dur.Seconds())
		}
	case progress.StageSweepDone:
		s.finish(evt, "success")
	case progress.StageSweepError:
		s.finish(evt, "error")
	}
	return nil
}

func (s *PrometheusSink) finish(evt progress.Event, result string) {
	s.sweepsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.sweepRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.tracker.complete(evt.SweepID) {
		s.sweepsRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type sweepTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newSweepTracker() *sweepTracker {
	return &sweepTracker{running: make(map[string]struct{})}
}

func (t *sweepTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *sweepTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
