// Package logging provides the structured leveled logger used across
// tiermem.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging severity level.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name; unknown names default to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Format defines the output format for log entries.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat parses a format name; unknown names default to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// Config holds logger configuration.
type Config struct {
	Level  Level
	Output io.Writer
	Format Format
}

// DefaultConfig returns default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  INFO,
		Output: os.Stdout,
		Format: FormatText,
	}
}

// Logger provides leveled logging with structured context fields.
type Logger struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	format Format
	fields map[string]any
}

// New creates a logger. A nil config uses defaults.
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stdout
	}
	return &Logger{
		level:  config.Level,
		output: output,
		format: config.Format,
		fields: make(map[string]any),
	}
}

// WithField returns a new logger carrying an additional context field on
// every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	return &Logger{
		level:  l.level,
		output: l.output,
		format: l.format,
		fields: fields,
	}
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(msg string, fields map[string]any) { l.log(DEBUG, msg, fields) }

// Info logs a message at INFO level.
func (l *Logger) Info(msg string, fields map[string]any) { l.log(INFO, msg, fields) }

// Warn logs a message at WARN level.
func (l *Logger) Warn(msg string, fields map[string]any) { l.log(WARN, msg, fields) }

// Error logs a message at ERROR level.
func (l *Logger) Error(msg string, fields map[string]any) { l.log(ERROR, msg, fields) }

type entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func (l *Logger) log(level Level, msg string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		Fields:    merged,
	}

	if l.format == FormatJSON {
		if data, err := json.Marshal(e); err == nil {
			fmt.Fprintln(l.output, string(data))
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", e.Timestamp.Format(time.RFC3339), e.Level, e.Message)
	for k, v := range merged {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	fmt.Fprintln(l.output, b.String())
}
