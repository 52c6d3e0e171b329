package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/crawler"
	"github.com/JakeFAU/experience-hoarder/internal/progress"
)

// Snapshot is the most recent view of a sweep.
type Snapshot struct {
	SweepID     string          `json:"sweep_id"`
	Stage       progress.Stage  `json:"stage"`
	Cursor      code.Code       `json:"cursor"`
	WindowIndex int             `json:"window_index"`
	Window      []crawler.Entry `json:"window"`
	Found       []code.Code     `json:"found"`
	Probed      int             `json:"probed"`
	NotFound    int             `json:"not_found"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Error       string          `json:"error,omitempty"`
}

// SnapshotSink keeps the latest sweep state in memory for readers such as the
// HTTP API. It remembers every found code since it carries no other output.
type SnapshotSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewSnapshotSink returns an empty SnapshotSink.
func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{}
}

// Consume folds evt into the snapshot.
func (s *SnapshotSink) Consume(_ context.Context, evt progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if evt.SweepID != s.snap.SweepID {
		s.snap = Snapshot{SweepID: evt.SweepID}
	}
	s.snap.Stage = evt.Stage
	s.snap.UpdatedAt = evt.TS
	s.snap.WindowIndex = evt.WindowIndex
	if evt.Window != nil {
		s.snap.Window = append([]crawler.Entry(nil), evt.Window...)
	}
	switch evt.Stage {
	case progress.StageSweepStart, progress.StageWindowStart:
		s.snap.Cursor = evt.Code
	case progress.StageCodeResolved:
		s.snap.Probed++
		if evt.Status == crawler.StatusFound {
			s.snap.Found = append(s.snap.Found, evt.Code)
		} else {
			s.snap.NotFound++
		}
	case progress.StageSweepDone:
		s.snap.Cursor = evt.Code
	case progress.StageSweepError:
		s.snap.Error = evt.Note
	}
	return nil
}

// Latest returns a copy of the current snapshot.
func (s *SnapshotSink) Latest() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Window = append([]crawler.Entry(nil), s.snap.Window...)
	out.Found = append([]code.Code(nil), s.snap.Found...)
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *SnapshotSink) Close(context.Context) error {
	return nil
}
