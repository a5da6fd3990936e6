// Package telemetry exposes stored datasets, batch ingestion and the
// monitored file to the transports.
package telemetry

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/application/batch"
	"github.com/PauloFidalgo/cmov-5g/internal/application/stream"
	"github.com/PauloFidalgo/cmov-5g/internal/application/worker"
	"github.com/PauloFidalgo/cmov-5g/internal/domain"
)

// DefaultTailSize is the number of records returned by Tail when none is requested.
const DefaultTailSize = 50

// ErrInvalidSource is returned for an empty or unusable source name.
var ErrInvalidSource = errors.New("invalid source name")

// Service is the application contract used by the HTTP and gRPC transports.
type Service interface {
	Sources(ctx context.Context) ([]domain.SourceInfo, error)
	Records(ctx context.Context, source string, last int) ([]domain.Record, error)
	Tail(ctx context.Context, source string, last int) ([]domain.Record, error)
	Summary(ctx context.Context, source string) (domain.Summary, error)
	Ingest(ctx context.Context, name, text string) (domain.Dataset, error)
	IngestFiles(ctx context.Context, paths []string) []worker.Result
	MonitorStatus(ctx context.Context) (domain.MonitorStatus, error)
	StartMonitor(ctx context.Context) (domain.MonitorStatus, error)
	StopMonitor(ctx context.Context) (domain.MonitorStatus, error)
	ResetMonitor(ctx context.Context) (domain.MonitorStatus, error)
	PollMonitor(ctx context.Context) (domain.PollResult, error)
}

// Telemetry orchestrates the store, the batch ingestion path and the
// optional streaming session.
type Telemetry struct {
	store    domain.DatasetStore
	ingestor *batch.Ingestor
	pool     *worker.Pool
	session  *stream.Session
	tailSize int
	logger   domain.Logger
}

// Options groups the collaborators of Telemetry. Session may be nil when no
// file is monitored.
type Options struct {
	Store    domain.DatasetStore
	Ingestor *batch.Ingestor
	Pool     *worker.Pool
	Session  *stream.Session
	TailSize int
	Logger   domain.Logger
}

// New creates a Telemetry service.
func New(opts Options) *Telemetry {
	if opts.TailSize <= 0 {
		opts.TailSize = DefaultTailSize
	}
	return &Telemetry{
		store:    opts.Store,
		ingestor: opts.Ingestor,
		pool:     opts.Pool,
		session:  opts.Session,
		tailSize: opts.TailSize,
		logger:   opts.Logger,
	}
}

// Sources lists every stored dataset.
func (t *Telemetry) Sources(ctx context.Context) ([]domain.SourceInfo, error) {
	return t.store.Sources(ctx)
}

// Records returns the last records of source, or all of them when last is
// not positive.
func (t *Telemetry) Records(ctx context.Context, source string, last int) ([]domain.Record, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrInvalidSource
	}
	return t.store.Records(ctx, source, last)
}

// Tail is Records with the configured tail size as default.
func (t *Telemetry) Tail(ctx context.Context, source string, last int) ([]domain.Record, error) {
	if last <= 0 {
		last = t.tailSize
	}
	return t.Records(ctx, source, last)
}

// Summary aggregates every record of source.
func (t *Telemetry) Summary(ctx context.Context, source string) (domain.Summary, error) {
	records, err := t.Records(ctx, source, 0)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(source, records), nil
}

// Ingest extracts a complete log uploaded under name and stores it.
func (t *Telemetry) Ingest(ctx context.Context, name, text string) (domain.Dataset, error) {
	source := filepath.Base(strings.TrimSpace(name))
	if source == "." || source == "/" || source == "" {
		return domain.Dataset{}, ErrInvalidSource
	}

	ds, err := t.ingestor.Ingest(ctx, text, source)
	if err != nil {
		return domain.Dataset{}, err
	}
	if err := t.store.Append(ctx, source, ds.Records); err != nil {
		return domain.Dataset{}, errors.Wrapf(err, "store %s", source)
	}

	t.log(ctx, "telemetry: ingested %s (%d records)", source, ds.Len())
	return ds, nil
}

// IngestFiles ingests every path concurrently. Results follow the order of
// paths and failures are reported per file.
func (t *Telemetry) IngestFiles(ctx context.Context, paths []string) []worker.Result {
	jobs := make([]worker.Job, 0, len(paths))
	for _, path := range paths {
		jobs = append(jobs, worker.Job{Path: path})
	}
	return t.pool.IngestAll(ctx, jobs)
}

// MonitorStatus reports the streaming session.
func (t *Telemetry) MonitorStatus(_ context.Context) (domain.MonitorStatus, error) {
	if t.session == nil {
		return domain.MonitorStatus{}, domain.ErrNoMonitor
	}
	return t.session.Status(), nil
}

// StartMonitor enables polling.
func (t *Telemetry) StartMonitor(ctx context.Context) (domain.MonitorStatus, error) {
	if t.session == nil {
		return domain.MonitorStatus{}, domain.ErrNoMonitor
	}
	t.session.Enable()
	t.log(ctx, "telemetry: monitoring %s", t.session.Source())
	return t.session.Status(), nil
}

// StopMonitor disables polling and keeps the collected records.
func (t *Telemetry) StopMonitor(ctx context.Context) (domain.MonitorStatus, error) {
	if t.session == nil {
		return domain.MonitorStatus{}, domain.ErrNoMonitor
	}
	t.session.Disable()
	t.log(ctx, "telemetry: stopped monitoring %s", t.session.Source())
	return t.session.Status(), nil
}

// ResetMonitor discards the session's records, including the stored copy,
// and rewinds it to the start of the file.
func (t *Telemetry) ResetMonitor(ctx context.Context) (domain.MonitorStatus, error) {
	if t.session == nil {
		return domain.MonitorStatus{}, domain.ErrNoMonitor
	}
	t.session.Reset()
	if err := t.store.Delete(ctx, t.session.Source()); err != nil {
		return domain.MonitorStatus{}, errors.Wrapf(err, "delete %s", t.session.Source())
	}
	t.log(ctx, "telemetry: reset %s", t.session.Source())
	return t.session.Status(), nil
}

// PollMonitor runs one poll immediately.
func (t *Telemetry) PollMonitor(ctx context.Context) (domain.PollResult, error) {
	if t.session == nil {
		return domain.PollResult{}, domain.ErrNoMonitor
	}
	return t.session.Poll(ctx)
}

func (t *Telemetry) log(ctx context.Context, format string, v ...any) {
	if t.logger == nil {
		return
	}
	t.logger.Printf(ctx, format, v...)
}

var _ Service = (*Telemetry)(nil)
