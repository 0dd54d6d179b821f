// Package logging provides the leveled, sanitized logger used across issuelens.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/andywolf/issuelens/internal/security"
)

// Severity levels for structured logs
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Entry represents a structured log entry
type Entry struct {
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Sink receives every entry after local output, e.g. a Cloud Logging client.
type Sink interface {
	Write(severity Severity, message string, labels map[string]string)
	Close() error
}

// Logger writes leveled messages to a local writer, either as plain
// log lines or as JSON entries, and mirrors them to an optional Sink.
// All messages and labels are sanitized before they leave the process.
type Logger struct {
	shared *shared
	labels map[string]string
}

// shared is the state common to a logger and its children.
type shared struct {
	mu        sync.Mutex
	std       *log.Logger
	writer    io.Writer
	json      bool
	verbose   bool
	sink      Sink
	sanitizer *security.LogSanitizer
	nowFunc   func() time.Time
	closed    bool
}

// Option configures a Logger
type Option func(*shared)

// WithWriter sets the local output writer (default os.Stderr).
func WithWriter(w io.Writer) Option {
	return func(s *shared) {
		s.writer = w
	}
}

// WithJSON switches local output to one JSON entry per line.
func WithJSON(enabled bool) Option {
	return func(s *shared) {
		s.json = enabled
	}
}

// WithVerbose enables DEBUG output.
func WithVerbose(enabled bool) Option {
	return func(s *shared) {
		s.verbose = enabled
	}
}

// WithSink mirrors entries to the given sink.
func WithSink(sink Sink) Option {
	return func(s *shared) {
		s.sink = sink
	}
}

// WithNowFunc sets a custom time function for testing.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *shared) {
		s.nowFunc = fn
	}
}

// New creates a Logger.
func New(opts ...Option) *Logger {
	s := &shared{
		writer:    os.Stderr,
		sanitizer: security.NewLogSanitizer(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.std = log.New(s.writer, "", log.LstdFlags)

	return &Logger{shared: s, labels: map[string]string{"component": "issuelens"}}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(WithWriter(io.Discard))
}

// With returns a child logger whose entries carry the extra labels.
func (l *Logger) With(labels map[string]string) *Logger {
	merged := make(map[string]string, len(l.labels)+len(labels))
	for k, v := range l.labels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}
	return &Logger{shared: l.shared, labels: merged}
}

// Debug logs at DEBUG level; dropped unless verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.shared.verbose {
		return
	}
	l.log(SeverityDebug, fmt.Sprintf(format, args...))
}

// Info logs at INFO level
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(SeverityInfo, fmt.Sprintf(format, args...))
}

// Warning logs at WARNING level
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log(SeverityWarning, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(SeverityError, fmt.Sprintf(format, args...))
}

func (l *Logger) log(severity Severity, msg string) {
	s := l.shared
	msg = s.sanitizer.Sanitize(msg)
	labels := s.sanitizer.SanitizeMap(l.labels)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.json {
		entry := Entry{
			Severity:  severity,
			Message:   msg,
			Timestamp: s.nowFunc().UTC().Format(time.RFC3339Nano),
			Labels:    labels,
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(s.writer, `{"severity":"ERROR","message":"failed to marshal log entry: %v"}`+"\n", err)
		} else {
			fmt.Fprintf(s.writer, "%s\n", data)
		}
	} else {
		switch severity {
		case SeverityInfo:
			s.std.Printf("%s", msg)
		default:
			s.std.Printf("%s: %s", severity, msg)
		}
	}

	if s.sink != nil {
		s.sink.Write(severity, msg, labels)
	}
}

// Close closes the sink and stops further output.
func (l *Logger) Close() error {
	s := l.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.sink != nil {
		return s.sink.Close()
	}
	return nil
}
