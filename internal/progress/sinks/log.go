package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/experience-hoarder/internal/progress"
)

// LogSink emits structured logs for every sweep event. Resolved codes are
// logged at debug level except for found codes, which are the interesting ones.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	fields := []zap.Field{
		zap.String("sweep_id", evt.SweepID),
		zap.String("stage", string(evt.Stage)),
		zap.Stringer("code", evt.Code),
		zap.Int("window", evt.WindowIndex),
	}
	switch evt.Stage {
	case progress.StageCodeResolved:
		fields = append(fields, zap.String("status", string(evt.Status)), zap.Duration("dur", evt.Dur))
		if evt.Status.NotFound() {
			s.logger.Debug("code resolved", fields...)
			return nil
		}
		s.logger.Info("code resolved", fields...)
	case progress.StageWindowStart:
		s.logger.Debug("window started", append(fields, zap.Int("size", len(evt.Window)))...)
	case progress.StageSweepError:
		s.logger.Error("sweep failed", append(fields, zap.String("note", evt.Note), zap.Duration("dur", evt.Dur))...)
	case progress.StageSweepDone:
		s.logger.Info("sweep finished", append(fields, zap.Duration("dur", evt.Dur))...)
	default:
		s.logger.Info("sweep started", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
