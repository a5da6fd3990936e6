package worker

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

// Ingestor extracts a complete source in one pass.
type Ingestor interface {
	Ingest(ctx context.Context, text, source string) (domain.Dataset, error)
}

// Job is one file to ingest. When Path is set the file is read by the worker
// and Source defaults to its base name; otherwise Text is ingested as is.
type Job struct {
	Source string
	Path   string
	Text   string
}

func (j Job) source() string {
	if j.Source != "" {
		return j.Source
	}
	return filepath.Base(j.Path)
}

// Result reports the outcome of one job. Err is a *domain.IngestError.
type Result struct {
	Source  string
	Dataset domain.Dataset
	Err     error
}

// Pool ingests batch jobs concurrently and stores the resulting datasets.
// A failing job never affects the others.
type Pool struct {
	ingestor    Ingestor
	store       domain.RecordWriter
	workerCount int
	logger      domain.Logger
}

// New creates a pool with the provided ingestor, store and worker count. The
// store may be nil.
func New(workerCount int, ingestor Ingestor, store domain.RecordWriter, logger domain.Logger) *Pool {
	if workerCount < 0 {
		workerCount = 0
	}
	return &Pool{ingestor: ingestor, store: store, workerCount: workerCount, logger: logger}
}

// Run processes jobs until the channel is closed or ctx is cancelled, sending
// one Result per processed job. results is closed when Run returns. The
// returned error is the context error when processing was cut short.
func (p *Pool) Run(ctx context.Context, jobs <-chan Job, results chan<- Result) error {
	defer close(results)

	if p.workerCount == 0 {
		return p.drainUntilClosed(ctx, jobs)
	}

	var g errgroup.Group
	for i := 0; i < p.workerCount; i++ {
		g.Go(func() error {
			infra.WorkerStarted()
			defer infra.WorkerFinished()
			return p.workerLoop(ctx, jobs, results)
		})
	}
	return g.Wait()
}

// IngestAll runs every job and returns the results in job order.
func (p *Pool) IngestAll(ctx context.Context, jobs []Job) []Result {
	queue := make(chan Job)
	results := make(chan Result, len(jobs))

	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case queue <- job:
			}
		}
	}()

	_ = p.Run(ctx, queue, results)

	bySource := make(map[string][]Result, len(jobs))
	for result := range results {
		bySource[result.Source] = append(bySource[result.Source], result)
	}

	ordered := make([]Result, 0, len(jobs))
	for _, job := range jobs {
		source := job.source()
		pending := bySource[source]
		if len(pending) == 0 {
			err := ctx.Err()
			if err == nil {
				err = errors.New("job not processed")
			}
			ordered = append(ordered, Result{Source: source, Err: &domain.IngestError{Source: source, Err: err}})
			continue
		}
		ordered = append(ordered, pending[0])
		bySource[source] = pending[1:]
	}
	return ordered
}

func (p *Pool) workerLoop(ctx context.Context, jobs <-chan Job, results chan<- Result) error {
	for {
		select {
		case <-ctx.Done():
			p.log(ctx, "worker: context cancelled: %v", ctx.Err())
			return ctx.Err()
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			result := p.processJob(ctx, job)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case results <- result:
			}
		}
	}
}

func (p *Pool) processJob(ctx context.Context, job Job) Result {
	source := job.source()
	ctx = infra.WithCorrelationID(ctx, uuid.NewString())

	text := job.Text
	if job.Path != "" {
		data, err := os.ReadFile(job.Path)
		if err != nil {
			return p.failed(ctx, source, errors.Wrap(err, "read file"))
		}
		text = string(data)
	}

	ds, err := p.ingestor.Ingest(ctx, text, source)
	if err != nil {
		return p.failed(ctx, source, err)
	}

	if p.store != nil {
		if err := p.store.Append(ctx, source, ds.Records); err != nil {
			return p.failed(ctx, source, errors.Wrap(err, "store records"))
		}
	}

	infra.IncBatchFiles("ok")
	p.log(ctx, "worker: ingested %s (%d records)", source, ds.Len())
	return Result{Source: source, Dataset: ds}
}

func (p *Pool) failed(ctx context.Context, source string, err error) Result {
	infra.IncBatchFiles("failed")
	p.log(ctx, "worker: failed to ingest %s: %v", source, err)

	var ingestErr *domain.IngestError
	if !errors.As(err, &ingestErr) {
		err = &domain.IngestError{Source: source, Err: err}
	}
	return Result{Source: source, Err: err}
}

func (p *Pool) drainUntilClosed(ctx context.Context, jobs <-chan Job) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-jobs:
			if !ok {
				return nil
			}
		}
	}
}

func (p *Pool) log(ctx context.Context, format string, v ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(ctx, format, v...)
}
