package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/base-14/examples/go/parking-lot/internal/config"
	"github.com/base-14/examples/go/parking-lot/internal/logging"
	"github.com/base-14/examples/go/parking-lot/internal/parking"
	"github.com/base-14/examples/go/parking-lot/internal/server"
)

var (
	configPath string
	mode       string
	port       string
	inputFile  string
)

var rootCmd = &cobra.Command{
	Use:   "parking-lot",
	Short: "Fixed-capacity parking lot with shell and HTTP interfaces",
	Long: `parking-lot allocates the lowest free slot to arriving vehicles and
answers occupancy queries by registration number or colour.

Modes:
  cli     read commands from stdin (or --file)
  server  serve the HTTP API
  both    run the shell and the HTTP API against the same lot`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	rootCmd.Flags().StringVar(&mode, "mode", "", "Mode to run: cli, server, or both")
	rootCmd.Flags().StringVar(&port, "port", "", "Port for HTTP server")
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read shell commands from a file instead of stdin")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Logger().Error().Err(err).Msg("parking-lot exited")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(cfg.IsDevelopment(), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryProvider, err := parking.NewTelemetryProvider(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(telemetryProvider)

	parkingLot, err := parking.NewInstrumentedParkingLot(telemetryProvider)
	if err != nil {
		return fmt.Errorf("create parking lot: %w", err)
	}
	if cfg.InitialCapacity > 0 {
		if err := parkingLot.Initialize(ctx, cfg.InitialCapacity); err != nil {
			return err
		}
	}

	switch cfg.Mode {
	case config.ModeCLI:
		return runCLI(ctx, parkingLot, telemetryProvider)
	case config.ModeServer:
		return runServer(ctx, cfg, parkingLot)
	default:
		return runBoth(ctx, cfg, parkingLot, telemetryProvider)
	}
}

func shellInput() (io.ReadCloser, error) {
	if inputFile == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(inputFile)
}

func runCLI(ctx context.Context, parkingLot *parking.InstrumentedParkingLot, telemetryProvider *parking.TelemetryProvider) error {
	in, err := shellInput()
	if err != nil {
		return err
	}
	defer in.Close()

	shell := parking.NewShell(parkingLot, telemetryProvider, in, os.Stdout)

	// Run blocks on reads, so a signal must not wait for the next line.
	done := make(chan error, 1)
	go func() {
		done <- shell.Run(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logging.Info(ctx).Msg("shutting down shell")
		return nil
	}
}

func runServer(ctx context.Context, cfg *config.Config, parkingLot *parking.InstrumentedParkingLot) error {
	srv := server.NewServer(cfg.Port, parkingLot, cfg.OTelServiceName)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case err := <-serverDone:
		return err
	case <-ctx.Done():
		logging.Info(ctx).Msg("received shutdown signal")
	}

	return shutdownServer(srv, cfg.ShutdownTimeout)
}

func runBoth(ctx context.Context, cfg *config.Config, parkingLot *parking.InstrumentedParkingLot, telemetryProvider *parking.TelemetryProvider) error {
	srv := server.NewServer(cfg.Port, parkingLot, cfg.OTelServiceName)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan error, 1)
	go func() {
		cliDone <- runCLI(ctx, parkingLot, telemetryProvider)
	}()

	var runErr error
	select {
	case runErr = <-serverDone:
	case runErr = <-cliDone:
		logging.Info(ctx).Msg("CLI exited")
	case <-ctx.Done():
		logging.Info(ctx).Msg("received shutdown signal")
	}

	return errors.Join(runErr, shutdownServer(srv, cfg.ShutdownTimeout))
}

func shutdownServer(srv *server.Server, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logging.Info(ctx).Msg("shutting down telemetry")
	if err := telemetryProvider.Shutdown(ctx); err != nil {
		logging.Error(ctx).Err(err).Msg("error shutting down telemetry")
	}
}
