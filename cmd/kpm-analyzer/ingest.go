package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/table"
)

func newIngestCommand(root *rootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "ingest <log-file>...",
		Short: "Extract complete log files in one pass",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), root.configPath, args, outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write <file>_processed.csv files to")
	return cmd
}

func runIngest(ctx context.Context, path string, files []string, outDir string) error {
	app, cleanup, err := initApplication(ctx, os.Stdout, configPath(path))
	if err != nil {
		return errors.Wrap(err, "initialise application")
	}
	defer cleanup()
	defer func() { _ = app.Logger.Sync() }()

	failed := 0
	for _, result := range app.Service.IngestFiles(ctx, files) {
		if result.Err != nil {
			failed++
			app.Logger.Errorf(ctx, "%v", result.Err)
			continue
		}

		app.Logger.Printf(ctx, "%s: %d records", result.Source, result.Dataset.Len())
		if outDir == "" {
			continue
		}
		records := result.Dataset.Records
		if err := writeProcessed(outDir, result.Source, func(f *os.File) error {
			return table.WriteRecords(f, records)
		}); err != nil {
			return err
		}
	}

	if failed > 0 {
		return errors.Newf("%d of %d files failed", failed, len(files))
	}
	return nil
}
