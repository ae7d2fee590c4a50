// Package observability provides structured logging for the client.
package observability

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// NewLogger builds a logger at the given level, JSON-formatted on stdout.
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithComponent tags every record with the originating component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// LogMutation records the outcome of a feed mutation.
func (l *Logger) LogMutation(action string, target string, err error) {
	if err != nil {
		l.Error("mutation failed", "action", action, "target", target, "error", err.Error())
		return
	}
	l.Info("mutation confirmed", "action", action, "target", target)
}

// LogPushEvent records delivery of a push-channel event.
func (l *Logger) LogPushEvent(event string, postID uint) {
	l.Debug("push event", "event", event, "post_id", postID)
}
