package event

import (
	"context"
	"log/slog"
)

// LogSink writes events to the logger. Used when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, ev Event) error {
	s.logger.InfoContext(ctx, "event",
		slog.String("name", ev.Name),
		slog.Any("payload", ev.Payload),
		slog.String("request_id", ev.RequestID),
	)
	return nil
}
