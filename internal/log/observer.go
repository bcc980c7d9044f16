package log

import (
	"context"
	"log/slog"

	"github.com/nao1215/filterpipe/internal/model"
)

// MessageLogger writes pipeline messages to a logger at a level chosen
// by message type. It satisfies pipeline.Observer.
type MessageLogger struct {
	logger *slog.Logger
}

// NewMessageLogger creates a MessageLogger. A nil logger selects slog.Default().
func NewMessageLogger(logger *slog.Logger) *MessageLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageLogger{logger: logger}
}

// Level returns the level used for messages of type t.
func Level(t model.MessageType) slog.Level {
	switch t {
	case model.MessageError:
		return slog.LevelError
	case model.MessageWarning:
		return slog.LevelWarn
	case model.MessageStatus, model.MessageStandardOutput:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Observe logs m.
func (l *MessageLogger) Observe(m model.PipelineMessage) {
	attrs := []slog.Attr{
		slog.Int("index", m.PipelineIndex),
		slog.String("type", m.Type.String()),
	}
	if m.FilterName != "" {
		attrs = append(attrs, slog.String("filter", m.FilterName))
	}
	if m.Code != 0 {
		attrs = append(attrs, slog.Int("code", m.Code))
	}
	if m.Type == model.MessageProgressValue || m.Type == model.MessageStatusAndProgress {
		attrs = append(attrs, slog.Int("progress", m.Progress))
	}
	l.logger.LogAttrs(context.Background(), Level(m.Type), m.Text, attrs...)
}
