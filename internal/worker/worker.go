// Package worker implements the descending, window-by-window code sweep.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/experience-hoarder/internal/clock/system"
	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/crawler"
	"github.com/JakeFAU/experience-hoarder/internal/id/uuid"
	"github.com/JakeFAU/experience-hoarder/internal/progress"
)

// Config controls Worker behavior.
type Config struct {
	// Start is the first (highest) code probed.
	Start code.Code
	// End is the exclusive lower bound of the sweep. It must not exceed Start.
	End code.Code
	// ChunkSize bounds how many codes make up one window.
	ChunkSize int
	// MaxInFlight bounds concurrent probes within a window. Zero means ChunkSize.
	MaxInFlight int
}

// Result summarizes a sweep.
type Result struct {
	SweepID  string        `json:"sweep_id"`
	Stop     code.Code     `json:"stop"`
	Windows  int           `json:"windows"`
	Probed   int           `json:"probed"`
	Found    int           `json:"found"`
	NotFound int           `json:"not_found"`
	Duration time.Duration `json:"duration"`
}

// Worker sweeps codes from Config.Start down to Config.End against a Prober.
type Worker struct {
	cfg    Config
	prober crawler.Prober
	sink   progress.Sink
	logger *zap.Logger
	clock  crawler.Clock
	ids    crawler.IDGenerator

	// emitMu serialises status updates with their sink notification so sinks
	// observe windows in the order updates were applied.
	emitMu sync.Mutex

	mu     sync.Mutex
	window []crawler.Entry
	index  map[int64]int
}

// Option customizes a Worker.
type Option func(*Worker)

// WithClock replaces the wall clock.
func WithClock(c crawler.Clock) Option {
	return func(w *Worker) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithIDGenerator replaces the UUIDv7 sweep ID generator.
func WithIDGenerator(g crawler.IDGenerator) Option {
	return func(w *Worker) {
		if g != nil {
			w.ids = g
		}
	}
}

// New validates cfg and constructs a Worker. A nil sink discards events.
func New(
	cfg Config,
	prober crawler.Prober,
	sink progress.Sink,
	logger *zap.Logger,
	opts ...Option,
) (*Worker, error) {
	if prober == nil {
		return nil, errors.New("worker: prober is required")
	}
	if cfg.End.Compare(cfg.Start) > 0 {
		return nil, fmt.Errorf("%w: end %s is above start %s", code.ErrDirection, cfg.End, cfg.Start)
	}
	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("worker: chunk size must be >= 1, got %d", cfg.ChunkSize)
	}
	if cfg.MaxInFlight < 0 {
		return nil, fmt.Errorf("worker: max in flight must be >= 0, got %d", cfg.MaxInFlight)
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = cfg.ChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = progress.NewMulti(logger)
	}
	w := &Worker{
		cfg:    cfg,
		prober: prober,
		sink:   sink,
		logger: logger.Named("worker"),
		clock:  system.New(),
		ids:    uuid.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// sweep carries per-run bookkeeping.
type sweep struct {
	id      string
	started time.Time
	logger  *zap.Logger
	result  Result
}

// Run performs one sweep. Windows are strictly sequential; the probes inside a
// window run concurrently and each resolution is reported to the sink as soon
// as it lands. A probe error aborts the sweep and cancels the window's
// remaining probes. The returned Result is populated even on error.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	s, err := w.begin(ctx)
	if err != nil {
		return Result{}, err
	}

	end := w.cfg.End.Int()
	current := w.cfg.Start.Int()
	chunk := int64(w.cfg.ChunkSize)

	for {
		effective := min(current-end, chunk)
		if effective <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return w.fail(ctx, s, current, fmt.Errorf("sweep interrupted: %w", err))
		}

		if err := w.runWindow(ctx, s, current, effective); err != nil {
			return w.fail(ctx, s, current, err)
		}

		delta := current - effective
		current = delta
		if delta <= end {
			break
		}
	}

	return w.finish(ctx, s, current), nil
}

// Snapshot returns the active window in iteration order.
func (w *Worker) Snapshot() []crawler.Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]crawler.Entry(nil), w.window...)
}

func (w *Worker) begin(ctx context.Context) (*sweep, error) {
	id, err := w.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("sweep id: %w", err)
	}
	s := &sweep{
		id:      id,
		started: w.clock.Now(),
		logger:  w.logger.With(zap.String("sweep_id", id)),
	}
	s.result.SweepID = id
	s.result.Stop = w.cfg.Start

	s.logger.Info("sweep started",
		zap.Stringer("start", w.cfg.Start),
		zap.Stringer("end", w.cfg.End),
		zap.Int("chunk_size", w.cfg.ChunkSize),
		zap.Int("max_in_flight", w.cfg.MaxInFlight),
	)
	w.emit(ctx, s, progress.Event{Stage: progress.StageSweepStart, Code: w.cfg.Start})
	return s, nil
}

func (w *Worker) runWindow(ctx context.Context, s *sweep, current, size int64) error {
	top, err := code.FromInt(current)
	if err != nil {
		return err
	}
	r, err := code.NewRangeN(top, size, -1)
	if err != nil {
		return fmt.Errorf("build window at %s: %w", top, err)
	}

	windowIndex := s.result.Windows
	entries := w.resetWindow(r)
	s.result.Windows++
	s.logger.Debug("window started",
		zap.Int("window", windowIndex),
		zap.Stringer("top", top),
		zap.Int("size", len(entries)),
	)
	w.emit(ctx, s, progress.Event{
		Stage:       progress.StageWindowStart,
		Code:        top,
		Window:      entries,
		WindowIndex: windowIndex,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.MaxInFlight)
	for _, entry := range entries {
		c := entry.Code
		g.Go(func() error {
			started := w.clock.Now()
			status, err := w.prober.Probe(gctx, c)
			if err != nil {
				return fmt.Errorf("probe %s: %w", c, err)
			}
			if !status.Resolved() {
				return fmt.Errorf("probe %s: %w: status %q", c, crawler.ErrUnexpectedResponse, status)
			}
			w.resolve(ctx, s, windowIndex, c, status, w.clock.Now().Sub(started))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("window %d: %w", windowIndex, err)
	}
	return nil
}

// resetWindow replaces the status map with fresh pending entries for r.
func (w *Worker) resetWindow(r *code.Range) []crawler.Entry {
	entries := make([]crawler.Entry, 0, r.Len())
	index := make(map[int64]int, r.Len())
	for c := range r.All() {
		index[c.Int()] = len(entries)
		entries = append(entries, crawler.Entry{Code: c, Status: crawler.StatusPending})
	}

	w.mu.Lock()
	w.window = entries
	w.index = index
	w.mu.Unlock()
	return append([]crawler.Entry(nil), entries...)
}

func (w *Worker) resolve(
	ctx context.Context,
	s *sweep,
	windowIndex int,
	c code.Code,
	status crawler.Status,
	dur time.Duration,
) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	if i, ok := w.index[c.Int()]; ok {
		w.window[i].Status = status
	}
	snapshot := append([]crawler.Entry(nil), w.window...)
	s.result.Probed++
	if status == crawler.StatusFound {
		s.result.Found++
	} else {
		s.result.NotFound++
	}
	w.mu.Unlock()

	if status == crawler.StatusFound {
		s.logger.Info("code found", zap.Stringer("code", c), zap.Duration("latency", dur))
	}
	w.emitLocked(ctx, s, progress.Event{
		Stage:       progress.StageCodeResolved,
		Code:        c,
		Status:      status,
		Window:      snapshot,
		WindowIndex: windowIndex,
		Dur:         dur,
	})
}

func (w *Worker) finish(ctx context.Context, s *sweep, stop int64) Result {
	if c, err := code.FromInt(stop); err == nil {
		s.result.Stop = c
	}
	s.result.Duration = w.clock.Now().Sub(s.started)

	s.logger.Info("sweep complete",
		zap.Stringer("stop", s.result.Stop),
		zap.Int("windows", s.result.Windows),
		zap.Int("probed", s.result.Probed),
		zap.Int("found", s.result.Found),
		zap.Duration("duration", s.result.Duration),
	)
	w.emit(ctx, s, progress.Event{
		Stage:       progress.StageSweepDone,
		Code:        s.result.Stop,
		Window:      w.Snapshot(),
		WindowIndex: max(s.result.Windows-1, 0),
		Dur:         s.result.Duration,
	})
	return s.result
}

func (w *Worker) fail(ctx context.Context, s *sweep, cursor int64, err error) (Result, error) {
	if c, cerr := code.FromInt(cursor); cerr == nil {
		s.result.Stop = c
	}
	s.result.Duration = w.clock.Now().Sub(s.started)

	s.logger.Error("sweep aborted",
		zap.Stringer("cursor", s.result.Stop),
		zap.Int("probed", s.result.Probed),
		zap.Error(err),
	)
	// The caller's context may already be done; sinks still get the failure.
	w.emit(context.WithoutCancel(ctx), s, progress.Event{
		Stage:       progress.StageSweepError,
		Code:        s.result.Stop,
		Window:      w.Snapshot(),
		WindowIndex: max(s.result.Windows-1, 0),
		Dur:         s.result.Duration,
		Note:        err.Error(),
	})
	return s.result, err
}

func (w *Worker) emit(ctx context.Context, s *sweep, evt progress.Event) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	w.emitLocked(ctx, s, evt)
}

func (w *Worker) emitLocked(ctx context.Context, s *sweep, evt progress.Event) {
	evt.SweepID = s.id
	evt.TS = w.clock.Now().UTC()
	if err := w.sink.Consume(ctx, evt); err != nil {
		s.logger.Warn("progress sink rejected event",
			zap.String("stage", string(evt.Stage)),
			zap.Error(err),
		)
	}
}
