package main

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/application/batch"
	"github.com/PauloFidalgo/cmov-5g/internal/application/stream"
	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/application/worker"
	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/command"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/kpm"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/memory"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/postgres"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/sqlite"
)

func provideConfig(path configPath) (infra.Config, error) {
	return infra.LoadConfig(string(path))
}

func provideServiceName() string {
	return "kpm-analyzer"
}

func provideLogger(out io.Writer, serviceName string, cfg infra.Config) *infra.Logger {
	return infra.NewLoggerWithLevel(out, serviceName, cfg.LogLevel)
}

func provideExtractor(cfg infra.Config, logger *infra.Logger) (domain.Extractor, error) {
	if len(cfg.ExtractorCommand) == 0 {
		return kpm.New(), nil
	}
	return command.New(command.Config{
		Path:    cfg.ExtractorCommand[0],
		Args:    cfg.ExtractorCommand[1:],
		Timeout: cfg.ExtractorTimeout,
	}, logger)
}

func provideStore(ctx context.Context, cfg infra.Config, logger *infra.Logger) (domain.DatasetStore, func(), error) {
	switch cfg.StorageDriver {
	case infra.StoragePostgres:
		store, err := postgres.Setup(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, closeStore(ctx, logger, store), nil
	case infra.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf(ctx, "using sqlite store at %s", cfg.SQLitePath)
		return store, closeStore(ctx, logger, store), nil
	case infra.StorageMemory:
		return memory.New(), func() {}, nil
	default:
		return nil, nil, errors.Newf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func closeStore(ctx context.Context, logger *infra.Logger, store io.Closer) func() {
	return func() {
		if err := store.Close(); err != nil {
			logger.Printf(ctx, "failed to close store: %v", err)
		}
	}
}

func provideIngestor(extractor domain.Extractor, logger *infra.Logger) *batch.Ingestor {
	return batch.New(extractor, logger)
}

func provideWorkerPool(cfg infra.Config, ingestor *batch.Ingestor, store domain.DatasetStore, logger *infra.Logger) *worker.Pool {
	return worker.New(cfg.WorkerCount, ingestor, store, logger)
}

// provideSession returns nil when no file is monitored.
func provideSession(cfg infra.Config, extractor domain.Extractor, store domain.DatasetStore, logger *infra.Logger) (*stream.Session, error) {
	if cfg.MonitorPath == "" {
		return nil, nil
	}
	return stream.New(stream.Config{
		Path:      cfg.MonitorPath,
		Extractor: extractor,
		Sink:      store,
		Splitter:  kpm.SplitComplete,
	}, logger)
}

func provideTelemetry(cfg infra.Config, store domain.DatasetStore, ingestor *batch.Ingestor, pool *worker.Pool, session *stream.Session, logger *infra.Logger) *telemetry.Telemetry {
	return telemetry.New(telemetry.Options{
		Store:    store,
		Ingestor: ingestor,
		Pool:     pool,
		Session:  session,
		TailSize: cfg.TailSize,
		Logger:   logger,
	})
}
