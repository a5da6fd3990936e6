package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	grpcapi "github.com/PauloFidalgo/cmov-5g/internal/api/grpc"
	httpapi "github.com/PauloFidalgo/cmov-5g/internal/api/http"
	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var startMonitor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, gRPC and metrics servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root.configPath, startMonitor)
		},
	}
	cmd.Flags().BoolVar(&startMonitor, "start-monitor", false, "start polling MONITOR_PATH immediately")
	return cmd
}

func runServe(ctx context.Context, path string, startMonitor bool) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	app, cleanup, err := initApplication(ctx, os.Stdout, configPath(path))
	if err != nil {
		return errors.Wrap(err, "initialise application")
	}
	defer cleanup()

	cfg := app.Config
	logger := app.Logger
	defer func() { _ = logger.Sync() }()

	infra.LogConfig(ctx, logger, cfg)
	infra.StartMetricsServer(cfg.MetricsPort, logger)

	var workers sync.WaitGroup
	if app.Session != nil {
		if startMonitor {
			app.Session.Enable()
		}
		workers.Add(1)
		go func() {
			defer workers.Done()
			app.Session.Run(ctx, cfg.PollInterval)
		}()
	}

	httpServer := newHTTPServer(cfg.HTTPPort, app.Service, logger)
	httpListener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		stop()
		workers.Wait()
		return errors.Wrapf(err, "listen on HTTP port %s", cfg.HTTPPort)
	}

	grpcServer := grpcapi.NewServer(app.Service, logger)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		_ = httpListener.Close()
		stop()
		workers.Wait()
		return errors.Wrapf(err, "listen on gRPC port %s", cfg.GRPCPort)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf(ctx, "HTTP server shutdown error: %v", err)
		}

		grpcServer.GracefulStop()
	}()

	serverErrs := make(chan error, 2)
	var serverGroup sync.WaitGroup

	serverGroup.Add(1)
	go func() {
		defer serverGroup.Done()
		logger.Printf(ctx, "HTTP server listening on %s", httpListener.Addr())
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- errors.Wrap(err, "http server")
		}
	}()

	serverGroup.Add(1)
	go func() {
		defer serverGroup.Done()
		logger.Printf(ctx, "gRPC server listening on %s", grpcListener.Addr())
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serverErrs <- errors.Wrap(err, "grpc server")
		}
	}()

	logger.Printf(ctx, "metrics server listening on :%s", cfg.MetricsPort)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serverErrs:
	}

	stop()
	workers.Wait()
	serverGroup.Wait()

	logger.Println(ctx, "server stopped")
	return serveErr
}

func newHTTPServer(port string, service telemetry.Service, logger *infra.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           httpapi.NewServer(service, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
