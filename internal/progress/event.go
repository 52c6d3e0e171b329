package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/crawler"
)

// Stage denotes the sweep milestone an Event represents.
type Stage string

// Supported sweep stages.
const (
	StageSweepStart   Stage = "SWEEP_START"
	StageWindowStart  Stage = "WINDOW_START"
	StageCodeResolved Stage = "CODE_RESOLVED"
	StageSweepDone    Stage = "SWEEP_DONE"
	StageSweepError   Stage = "SWEEP_ERROR"
)

// Event captures one step of sweep progress.
type Event struct {
	// SweepID identifies the sweep run.
	SweepID string
	// TS is the UTC time the event was emitted.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Code is the resolved code for CODE_RESOLVED, otherwise the sweep cursor.
	Code code.Code
	// Status is the outcome for CODE_RESOLVED events.
	Status crawler.Status
	// Window is a snapshot of the active window in iteration order.
	Window []crawler.Entry
	// WindowIndex counts windows from zero.
	WindowIndex int
	// Dur is the probe latency for CODE_RESOLVED and the sweep runtime for
	// SWEEP_DONE and SWEEP_ERROR.
	Dur time.Duration
	// Note carries error text for SWEEP_ERROR.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SweepID == "" {
		return errors.New("sweep id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSweepStart, StageWindowStart, StageSweepDone:
	case StageCodeResolved:
		if !e.Status.Resolved() {
			return fmt.Errorf("code resolved requires a final status, got %q", e.Status)
		}
	case StageSweepError:
		if e.Note == "" {
			return errors.New("sweep error requires a note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// Counts tallies the statuses in the event's window snapshot.
func (e Event) Counts() (pending, found, notFound int) {
	for _, entry := range e.Window {
		switch entry.Status {
		case crawler.StatusFound:
			found++
		case crawler.StatusNotFound:
			notFound++
		default:
			pending++
		}
	}
	return pending, found, notFound
}
