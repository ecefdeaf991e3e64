package parsing

import (
	"context"
	"log/slog"
)

// Recorder receives a trace of parsing decisions.
type Recorder interface {
	Record(event string, fields ...any)
}

// NopRecorder drops every event.
type NopRecorder struct{}

func (NopRecorder) Record(string, ...any) {}

// SlogRecorder writes events to a slog.Logger.
type SlogRecorder struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogRecorder logs events at debug level. A nil logger means
// slog.Default().
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger, level: slog.LevelDebug}
}

func (r *SlogRecorder) Record(event string, fields ...any) {
	r.logger.Log(context.Background(), r.level, event, fields...)
}
