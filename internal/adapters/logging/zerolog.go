package logging

import (
	"context"
	"io"

	"github.com/felixgeelhaar/hostharden/internal/ports"
	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to ports.Logger. It backs the
// --log-file JSON log.
type ZerologLogger struct {
	zl    zerolog.Logger
	level *levelVar
}

// NewZerologLogger creates a logger writing JSON lines to w.
func NewZerologLogger(w io.Writer, level ports.Level) *ZerologLogger {
	return &ZerologLogger{
		zl:    zerolog.New(w).With().Timestamp().Logger(),
		level: &levelVar{l: level},
	}
}

// Debug logs a debug message.
func (l *ZerologLogger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	l.emit(ports.LevelDebug, l.zl.Debug, msg, fields)
}

// Info logs an informational message.
func (l *ZerologLogger) Info(_ context.Context, msg string, fields ...ports.Field) {
	l.emit(ports.LevelInfo, l.zl.Info, msg, fields)
}

// Warn logs a warning message.
func (l *ZerologLogger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	l.emit(ports.LevelWarn, l.zl.Warn, msg, fields)
}

// Error logs an error message.
func (l *ZerologLogger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.emit(ports.LevelError, l.zl.Error, msg, fields)
}

// With returns a logger carrying fields as zerolog context.
func (l *ZerologLogger) With(fields ...ports.Field) ports.Logger {
	c := l.zl.With()
	for _, f := range fields {
		c = c.Interface(f.Key, fieldValue(f.Value))
	}
	return &ZerologLogger{zl: c.Logger(), level: l.level}
}

// Level returns the minimum log level.
func (l *ZerologLogger) Level() ports.Level {
	return l.level.get()
}

// SetLevel sets the minimum log level.
func (l *ZerologLogger) SetLevel(level ports.Level) {
	l.level.set(level)
}

func (l *ZerologLogger) emit(level ports.Level, event func() *zerolog.Event, msg string, fields []ports.Field) {
	if level < l.level.get() {
		return
	}
	e := event()
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			e = e.AnErr(f.Key, err)
			continue
		}
		e = e.Interface(f.Key, fieldValue(f.Value))
	}
	e.Msg(msg)
}

// Tee fans every entry out to several loggers. Level reports the most
// verbose level among them.
type Tee []ports.Logger

// Debug logs to every logger.
func (t Tee) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t {
		l.Debug(ctx, msg, fields...)
	}
}

// Info logs to every logger.
func (t Tee) Info(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t {
		l.Info(ctx, msg, fields...)
	}
}

// Warn logs to every logger.
func (t Tee) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t {
		l.Warn(ctx, msg, fields...)
	}
}

// Error logs to every logger.
func (t Tee) Error(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t {
		l.Error(ctx, msg, fields...)
	}
}

// With derives every logger.
func (t Tee) With(fields ...ports.Field) ports.Logger {
	out := make(Tee, len(t))
	for i, l := range t {
		out[i] = l.With(fields...)
	}
	return out
}

// Level returns the lowest level of the members.
func (t Tee) Level() ports.Level {
	level := ports.LevelError
	for _, l := range t {
		if l.Level() < level {
			level = l.Level()
		}
	}
	return level
}

// SetLevel sets the level of every member.
func (t Tee) SetLevel(level ports.Level) {
	for _, l := range t {
		l.SetLevel(level)
	}
}

var (
	_ ports.Logger = (*ZerologLogger)(nil)
	_ ports.Logger = Tee(nil)
)
