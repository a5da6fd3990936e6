package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/PauloFidalgo/cmov-5g/internal/application/generator"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

type simulateOptions struct {
	output   string
	interval time.Duration
	entries  int
}

func newSimulateCommand() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Append synthetic KPM indications to a log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "simulated_kpm.txt", "log file to write (- for stdout)")
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", 2*time.Second, "delay between entries")
	cmd.Flags().IntVarP(&opts.entries, "entries", "n", 100, "number of entries to write, negative for no limit")
	return cmd
}

func runSimulate(ctx context.Context, opts *simulateOptions) error {
	logger := infra.NewLogger(os.Stderr, "kpm-simulator")
	defer func() { _ = logger.Sync() }()

	var out io.Writer = os.Stdout
	if opts.output != "-" {
		f, err := os.Create(opts.output)
		if err != nil {
			return errors.Wrapf(err, "create %s", opts.output)
		}
		defer f.Close()
		out = f
	}

	gen := generator.New(generator.Config{
		Interval: opts.interval,
		Entries:  opts.entries,
	}, logger)
	if _, err := io.WriteString(out, gen.Header()); err != nil {
		return errors.Wrapf(err, "write header to %s", opts.output)
	}

	written, err := gen.Run(ctx, out)
	logger.Printf(ctx, "wrote %d entries to %s", written, opts.output)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
