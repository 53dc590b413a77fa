package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// ConsoleLogger writes structured entries to a terminal stream, one line
// per entry, as "key=value" text or as JSON objects.
type ConsoleLogger struct {
	mu     *sync.Mutex // shared with derived loggers; guards out
	out    io.Writer
	level  *levelVar
	fields []ports.Field
	json   bool
	clock  func() time.Time
	stamp  bool
}

type levelVar struct {
	mu sync.RWMutex
	l  ports.Level
}

func (v *levelVar) get() ports.Level {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.l
}

func (v *levelVar) set(l ports.Level) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.l = l
}

// ConsoleOption configures a ConsoleLogger.
type ConsoleOption func(*ConsoleLogger)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleOption {
	return func(l *ConsoleLogger) { l.out = w }
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleOption {
	return func(l *ConsoleLogger) { l.level.set(level) }
}

// WithJSONFormat switches output to one JSON object per line.
func WithJSONFormat(enabled bool) ConsoleOption {
	return func(l *ConsoleLogger) { l.json = enabled }
}

// WithTimestamp controls whether entries carry a timestamp.
func WithTimestamp(enabled bool) ConsoleOption {
	return func(l *ConsoleLogger) { l.stamp = enabled }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) ConsoleOption {
	return func(l *ConsoleLogger) { l.clock = now }
}

// NewConsoleLogger creates a ConsoleLogger.
func NewConsoleLogger(opts ...ConsoleOption) *ConsoleLogger {
	l := &ConsoleLogger{
		mu:    &sync.Mutex{},
		out:   os.Stderr,
		level: &levelVar{l: ports.LevelInfo},
		clock: time.Now,
		stamp: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelDebug, msg, fields)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelError, msg, fields)
}

// With returns a logger that adds fields to every entry. The derived
// logger shares the output, the lock and the level with its parent.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	child := *l
	child.fields = append(append([]ports.Field(nil), l.fields...), fields...)
	return &child
}

// Level returns the minimum log level.
func (l *ConsoleLogger) Level() ports.Level {
	return l.level.get()
}

// SetLevel sets the minimum log level for this logger and every logger derived from it.
func (l *ConsoleLogger) SetLevel(level ports.Level) {
	l.level.set(level)
}

func (l *ConsoleLogger) log(_ context.Context, level ports.Level, msg string, fields []ports.Field) {
	if level < l.level.get() {
		return
	}

	all := make([]ports.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	var line string
	if l.json {
		line = l.formatJSON(level, msg, all)
	} else {
		line = l.formatText(level, msg, all)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.out, line)
}

func (l *ConsoleLogger) formatJSON(level ports.Level, msg string, fields []ports.Field) string {
	entry := make(map[string]interface{}, len(fields)+3)
	for _, f := range fields {
		entry[f.Key] = fieldValue(f.Value)
	}
	if l.stamp {
		entry["time"] = l.clock().UTC().Format(time.RFC3339)
	}
	entry["level"] = strings.ToLower(level.String())
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":"error","msg":"unencodable log entry","error":%q}`, err.Error())
	}
	return string(data)
}

func (l *ConsoleLogger) formatText(level ports.Level, msg string, fields []ports.Field) string {
	var b strings.Builder
	if l.stamp {
		b.WriteString(l.clock().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", level.String(), msg)
	for _, f := range fields {
		v := fmt.Sprint(fieldValue(f.Value))
		if strings.ContainsAny(v, " \t\"=") || v == "" {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %s=%s", f.Key, v)
	}
	return b.String()
}

// fieldValue renders errors and Stringers as text so they survive JSON encoding.
func fieldValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

var _ ports.Logger = (*ConsoleLogger)(nil)
