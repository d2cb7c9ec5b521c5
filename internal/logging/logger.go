// Package logging provides the leveled structured logger used across the
// receive source. Entries render as text for interactive use or JSON for
// log shippers.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Level represents a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, fmt.Errorf("unsupported log level %q", s)
	}
}

// Field is a structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger defines the leveled structured logging operations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Discard returns a logger that drops everything, for tests.
func Discard() Logger { return New(Error+1, false, io.Discard) }

type baseLogger struct {
	level      Level
	json       bool
	fields     []Field
	underlying *log.Logger
}

// New constructs a Logger writing to out at the given level. When asJSON is
// set, entries render as one JSON object per line.
func New(level Level, asJSON bool, out io.Writer) Logger {
	return &baseLogger{
		level:      level,
		json:       asJSON,
		underlying: log.New(out, "", log.LstdFlags),
	}
}

func (l *baseLogger) With(fields ...Field) Logger {
	combined := make([]Field, 0, len(l.fields)+len(fields))
	combined = append(combined, l.fields...)
	combined = append(combined, fields...)
	return &baseLogger{
		level:      l.level,
		json:       l.json,
		fields:     combined,
		underlying: l.underlying,
	}
}

func (l *baseLogger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields) }
func (l *baseLogger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields) }
func (l *baseLogger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields) }
func (l *baseLogger) Error(msg string, fields ...Field) { l.log(Error, msg, fields) }

func (l *baseLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	if l.json {
		payload := map[string]any{
			"time":  time.Now().Format(time.RFC3339Nano),
			"level": level.String(),
			"msg":   msg,
		}
		for _, f := range all {
			if f.Key != "" {
				payload[f.Key] = f.Value
			}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			l.underlying.Printf("[ERROR] marshal log payload failed: %v", err)
			return
		}
		l.underlying.Print(string(data))
		return
	}

	if len(all) == 0 {
		l.underlying.Printf("[%s] %s", level.String(), msg)
		return
	}
	var b strings.Builder
	for _, f := range all {
		if f.Key == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", f.Key, f.Value)
	}
	l.underlying.Printf("[%s] %s %s", level.String(), msg, b.String())
}
