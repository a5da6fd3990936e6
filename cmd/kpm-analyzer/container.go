package main

import (
	"github.com/PauloFidalgo/cmov-5g/internal/application/stream"
	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

// configPath is the optional YAML file named by --config.
type configPath string

type application struct {
	Config  infra.Config
	Logger  *infra.Logger
	Service *telemetry.Telemetry
	Session *stream.Session
}

func newApplication(cfg infra.Config, logger *infra.Logger, service *telemetry.Telemetry, session *stream.Session) *application {
	return &application{
		Config:  cfg,
		Logger:  logger,
		Service: service,
		Session: session,
	}
}

func assembleApplication(app *application, cleanup func()) (*application, func(), error) {
	if cleanup == nil {
		cleanup = func() {}
	}
	return app, cleanup, nil
}
