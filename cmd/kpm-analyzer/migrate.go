package main

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/PauloFidalgo/cmov-5g/internal/infra"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/postgres"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), root.configPath)
		},
	}
}

func runMigrate(ctx context.Context, path string) error {
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err
	}
	logger := infra.NewLoggerWithLevel(os.Stdout, "migrate", cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if postgres.ShouldCheckDatabase(cfg) {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := postgres.WaitForDatabase(waitCtx, cfg, logger); err != nil {
			return errors.Wrap(err, "database connectivity check failed")
		}
	}

	dsn, err := postgres.BuildDatabaseDSN(cfg)
	if err != nil {
		return errors.Wrap(err, "build database DSN")
	}

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.ApplyMigrations(ctx, db, logger)
}
