package domain

import "context"

// Logger is the logging behaviour required by application components.
type Logger interface {
	Printf(ctx context.Context, format string, v ...any)
	Println(ctx context.Context, v ...any)
}

// Extractor turns a block of log text into a table of raw records.
type Extractor interface {
	Extract(ctx context.Context, text string) (Table, error)
}

// RecordWriter persists records appended to a source's dataset.
type RecordWriter interface {
	Append(ctx context.Context, source string, records []Record) error
}

// RecordReader exposes queries used by the transports.
type RecordReader interface {
	Records(ctx context.Context, source string, last int) ([]Record, error)
	Sources(ctx context.Context) ([]SourceInfo, error)
}

// DatasetStore aggregates the write and read capabilities of a storage backend.
type DatasetStore interface {
	RecordWriter
	RecordReader
	Delete(ctx context.Context, source string) error
}

// SourceInfo describes a stored dataset.
type SourceInfo struct {
	Source  string `json:"source"`
	Label   string `json:"label"`
	Records int    `json:"records"`
	MaxID   int64  `json:"max_id"`
}
