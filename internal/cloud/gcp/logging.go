package gcp

import (
	"context"
	"fmt"
	"sync"

	cloudlogging "cloud.google.com/go/logging"
	"google.golang.org/api/option"

	"github.com/andywolf/issuelens/internal/logging"
)

// DefaultLogID is the Cloud Logging log name entries are written to.
const DefaultLogID = "issuelens"

// entryLogger is the subset of *cloudlogging.Logger used by CloudSink.
type entryLogger interface {
	Log(e cloudlogging.Entry)
	Flush() error
}

// CloudSink forwards logger entries to GCP Cloud Logging.
// It implements logging.Sink.
type CloudSink struct {
	mu      sync.Mutex
	logger  entryLogger
	closeFn func() error
	closed  bool
}

// NewCloudSink creates a Cloud Logging client for projectID and returns a
// sink writing to logID (DefaultLogID when empty).
func NewCloudSink(ctx context.Context, projectID, logID string, opts ...option.ClientOption) (*CloudSink, error) {
	if projectID == "" {
		return nil, fmt.Errorf("cloud logging project ID cannot be empty")
	}
	if logID == "" {
		logID = DefaultLogID
	}

	client, err := cloudlogging.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud logging client: %w", err)
	}

	return &CloudSink{
		logger:  client.Logger(logID),
		closeFn: client.Close,
	}, nil
}

// newCloudSinkWithLogger builds a sink around an existing logger (for testing).
func newCloudSinkWithLogger(l entryLogger) *CloudSink {
	return &CloudSink{logger: l}
}

// Write implements logging.Sink.
func (s *CloudSink) Write(severity logging.Severity, message string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.logger.Log(cloudlogging.Entry{
		Severity: toCloudSeverity(severity),
		Payload:  message,
		Labels:   labels,
	})
}

// Close flushes buffered entries and closes the underlying client.
func (s *CloudSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.logger.Flush(); err != nil {
		return fmt.Errorf("failed to flush cloud logs: %w", err)
	}
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

func toCloudSeverity(severity logging.Severity) cloudlogging.Severity {
	switch severity {
	case logging.SeverityDebug:
		return cloudlogging.Debug
	case logging.SeverityInfo:
		return cloudlogging.Info
	case logging.SeverityWarning:
		return cloudlogging.Warning
	case logging.SeverityError:
		return cloudlogging.Error
	default:
		return cloudlogging.Default
	}
}
