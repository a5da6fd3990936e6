package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned when a requested source has no stored records.
	ErrNotFound = errors.New("not found")
	// ErrNoRecords signals that an extraction run produced no records.
	ErrNoRecords = errors.New("no records extracted")
	// ErrExtractionFailed signals that the extraction engine exited unsuccessfully.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrExtractionTimeout signals that the extraction engine exceeded its time bound.
	ErrExtractionTimeout = errors.New("extraction timed out")
	// ErrMalformedOutput signals extraction output that could not be read as a table.
	ErrMalformedOutput = errors.New("malformed extraction output")
	// ErrWorkspace signals that temporary working storage could not be prepared.
	ErrWorkspace = errors.New("extraction workspace unavailable")
	// ErrNoMonitor is returned when no streaming session is configured.
	ErrNoMonitor = errors.New("no monitored file")
)

// IngestError names the source whose ingestion failed.
type IngestError struct {
	Source string
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// FailureReason maps an extraction error to a short label used in logs and metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoRecords):
		return "no_records"
	case errors.Is(err, ErrExtractionTimeout):
		return "timeout"
	case errors.Is(err, ErrExtractionFailed):
		return "exit_status"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	case errors.Is(err, ErrWorkspace):
		return "workspace"
	default:
		return "other"
	}
}
