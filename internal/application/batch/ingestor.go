// Package batch extracts complete log files in a single pass.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

// Ingestor runs the extractor once per source and tags every record with the
// source name.
type Ingestor struct {
	extractor domain.Extractor
	logger    domain.Logger
}

// New creates an Ingestor.
func New(extractor domain.Extractor, logger domain.Logger) *Ingestor {
	return &Ingestor{extractor: extractor, logger: logger}
}

// Ingest extracts text read from source. Every failure, including an
// extraction that yields no records, is returned as a *domain.IngestError
// naming source.
func (i *Ingestor) Ingest(ctx context.Context, text, source string) (domain.Dataset, error) {
	start := time.Now()
	table, err := i.extractor.Extract(ctx, text)
	infra.ObserveExtraction(time.Since(start), domain.FailureReason(err))
	if err != nil {
		i.log(ctx, "batch: %s: extraction failed: %v", source, err)
		return domain.Dataset{}, &domain.IngestError{Source: source, Err: err}
	}

	ds, err := table.Dataset()
	if err != nil {
		return domain.Dataset{}, &domain.IngestError{Source: source, Err: err}
	}
	if ds.Empty() {
		return domain.Dataset{}, &domain.IngestError{Source: source, Err: domain.ErrNoRecords}
	}

	i.log(ctx, "batch: %s: extracted %d records", source, ds.Len())
	return ds.WithSource(source), nil
}

// IngestFile reads path and ingests it under its base name.
func (i *Ingestor) IngestFile(ctx context.Context, path string) (domain.Dataset, error) {
	source := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Dataset{}, &domain.IngestError{Source: source, Err: errors.Wrap(err, "read file")}
	}
	return i.Ingest(ctx, string(data), source)
}

func (i *Ingestor) log(ctx context.Context, format string, v ...any) {
	if i.logger == nil {
		return
	}
	i.logger.Printf(ctx, format, v...)
}
