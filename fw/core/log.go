package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	golog "github.com/named-data/ndnd/std/log"
)

// Logger wraps a slog.Logger with the receiver-first call convention used
// throughout the forwarder: Log.Info(s, "message", "key", val, ...), where s
// is whatever component is logging (a Strategy, a Face, a management
// module) and satisfies fmt.Stringer so its identity shows up as a field.
type Logger struct {
	level   golog.Level
	handler *slog.Logger
}

// Log is the process-wide logger, configured from Config.Core.Log at
// startup via SetLevel.
var Log = NewLogger(golog.LevelInfo)

// NewLogger constructs a Logger writing to stderr at the given level.
func NewLogger(level golog.Level) *Logger {
	return &Logger{
		level:   level,
		handler: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(level)})),
	}
}

// SetLevel changes the minimum level the process logger will emit.
func (l *Logger) SetLevel(level golog.Level) {
	l.level = level
	l.handler = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(level)}))
}

func (l *Logger) log(level golog.Level, receiver any, msg string, kvs ...any) {
	if level < l.level {
		return
	}
	args := make([]any, 0, len(kvs)+2)
	args = append(args, "module", stringer(receiver))
	args = append(args, kvs...)
	l.handler.Log(context.Background(), slog.Level(level), msg, args...)
}

// Trace logs at the most verbose level, used for per-packet tracing.
func (l *Logger) Trace(receiver any, msg string, kvs ...any) { l.log(golog.LevelTrace, receiver, msg, kvs...) }

// Debug logs diagnostic detail not needed in normal operation.
func (l *Logger) Debug(receiver any, msg string, kvs ...any) { l.log(golog.LevelDebug, receiver, msg, kvs...) }

// Info logs a normal operational event.
func (l *Logger) Info(receiver any, msg string, kvs ...any) { l.log(golog.LevelInfo, receiver, msg, kvs...) }

// Warn logs a recoverable anomaly.
func (l *Logger) Warn(receiver any, msg string, kvs ...any) { l.log(golog.LevelWarn, receiver, msg, kvs...) }

// Error logs a failure that was handled but should be investigated.
func (l *Logger) Error(receiver any, msg string, kvs ...any) { l.log(golog.LevelError, receiver, msg, kvs...) }

// Fatal logs an unrecoverable failure and exits the process.
func (l *Logger) Fatal(receiver any, msg string, kvs ...any) {
	l.log(golog.LevelFatal, receiver, msg, kvs...)
	os.Exit(1)
}

func stringer(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
