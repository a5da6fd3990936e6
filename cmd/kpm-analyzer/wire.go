//go:build wireinject

package main

import (
	"context"
	"io"

	"github.com/google/wire"
)

func initApplication(ctx context.Context, out io.Writer, path configPath) (*application, func(), error) {
	wire.Build(
		provideConfig,
		provideServiceName,
		provideLogger,
		provideExtractor,
		provideStore,
		provideIngestor,
		provideWorkerPool,
		provideSession,
		provideTelemetry,
		newApplication,
		assembleApplication,
	)
	return nil, nil, nil
}
