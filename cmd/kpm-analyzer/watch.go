package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/table"
)

func newWatchCommand(root *rootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "watch <log-file>",
		Short: "Follow a growing log file and extract new records as they appear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), root.configPath, args[0], outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write <file>_processed.csv to on exit")
	return cmd
}

func runWatch(ctx context.Context, path, logFile, outDir string) error {
	if err := os.Setenv("MONITOR_PATH", logFile); err != nil {
		return errors.Wrap(err, "set monitor path")
	}

	app, cleanup, err := initApplication(ctx, os.Stdout, configPath(path))
	if err != nil {
		return errors.Wrap(err, "initialise application")
	}
	defer cleanup()
	defer func() { _ = app.Logger.Sync() }()

	session := app.Session
	if session == nil {
		return errors.Newf("no session for %s", logFile)
	}
	session.Enable()
	app.Logger.Printf(ctx, "watching %s every %s", logFile, app.Config.PollInterval)
	session.Run(ctx, app.Config.PollInterval)

	snapshot := session.Snapshot()
	app.Logger.Printf(ctx, "stopped watching %s: %d records, max id %d", logFile, snapshot.Len(), snapshot.MaxID())
	if outDir == "" || snapshot.Empty() {
		return nil
	}
	return writeProcessed(outDir, session.Source(), func(f *os.File) error {
		return table.WriteRecords(f, snapshot.Records)
	})
}

func writeProcessed(dir, source string, write func(*os.File) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	stem := source[:len(source)-len(filepath.Ext(source))]
	target := filepath.Join(dir, stem+"_processed.csv")
	f, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "create %s", target)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", target)
	}
	return errors.Wrapf(f.Close(), "close %s", target)
}
