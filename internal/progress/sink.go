package progress

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Sink consumes sweep events. Consume is called from probe goroutines but
// never concurrently for the same sweep; implementations shared across sweeps
// must synchronise themselves.
type Sink interface {
	Consume(ctx context.Context, evt Event) error
	Close(ctx context.Context) error
}

// Multi fans each event out to every sink. A failing sink is logged and does
// not prevent delivery to the others.
type Multi struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewMulti builds a Multi over the non-nil sinks.
func NewMulti(logger *zap.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Multi{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Consume validates evt and forwards it to every sink.
func (m *Multi) Consume(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		m.logger.Debug("discarding invalid progress event", zap.Error(err))
		return fmt.Errorf("invalid progress event: %w", err)
	}
	for _, s := range m.sinks {
		if err := s.Consume(ctx, evt); err != nil {
			m.logger.Warn("progress sink consume failed",
				zap.String("stage", string(evt.Stage)),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m *Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close progress sinks: %w", err)
	}
	return nil
}
