package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if probesTotal == nil || probeDurationSeconds == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil || rateLimitDelaysSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveProbe(t *testing.T) {
	before := testutil.ToFloat64(probesTotal.WithLabelValues("found"))
	ObserveProbe("found", 20*time.Millisecond)
	ObserveProbe(ProbeOutcomeUnexpected, time.Millisecond)

	if got := testutil.ToFloat64(probesTotal.WithLabelValues("found")); got != before+1 {
		t.Errorf("expected found probes to be %f, got %f", before+1, got)
	}
	if got := testutil.ToFloat64(probesTotal.WithLabelValues(ProbeOutcomeUnexpected)); got < 1 {
		t.Errorf("expected unexpected probes to be counted, got %f", got)
	}
	if n := testutil.CollectAndCount(probeDurationSeconds); n < 2 {
		t.Errorf("expected probe durations for two outcomes, got %d", n)
	}
}

func TestObserveRateLimitDelay(t *testing.T) {
	ObserveRateLimitDelay("lookup.example.com", 30*time.Millisecond)
	if n := testutil.CollectAndCount(rateLimitDelaysSeconds); n < 1 {
		t.Errorf("expected a rate limit histogram, got %d", n)
	}
}
