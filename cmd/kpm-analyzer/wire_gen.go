//go:build !wireinject

package main

import (
	"context"
	"io"

	"github.com/PauloFidalgo/cmov-5g/internal/application/stream"
	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

func initApplication(ctx context.Context, out io.Writer, path configPath) (*application, func(), error) {
	cfg, logger, err := setupBase(out, path)
	if err != nil {
		return nil, nil, err
	}

	extractor, err := provideExtractor(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store, cleanup, err := provideStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	session, err := setupSession(cfg, extractor, store, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ingestor := provideIngestor(extractor, logger)
	pool := provideWorkerPool(cfg, ingestor, store, logger)
	svc := provideTelemetry(cfg, store, ingestor, pool, session, logger)

	app := newApplication(cfg, logger, svc, session)
	return assembleApplication(app, cleanup)
}

func setupBase(out io.Writer, path configPath) (infra.Config, *infra.Logger, error) {
	cfg, err := provideConfig(path)
	if err != nil {
		return infra.Config{}, nil, err
	}
	svcName := provideServiceName()
	log := provideLogger(out, svcName, cfg)
	return cfg, log, nil
}

func setupSession(cfg infra.Config, extractor domain.Extractor, store domain.DatasetStore, logger *infra.Logger) (*stream.Session, error) {
	return provideSession(cfg, extractor, store, logger)
}
