package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/scality/lb-log-analyzer/pkg/analyzer"
	"github.com/scality/lb-log-analyzer/pkg/ingest"
	"github.com/scality/lb-log-analyzer/pkg/util"
)

func main() {
	os.Exit(run())
}

// waitForShutdown waits for shutdown signal or server error, returns exit code
func waitForShutdown(cancel context.CancelFunc, logger *slog.Logger,
	errChan <-chan error, signalsChan <-chan os.Signal, shutdownTimeout time.Duration) int {
	select {
	case sig := <-signalsChan:
		logger.Info("signal received", "signal", sig)
		cancel()

		// Wait for the server to drain (with timeout)
		shutdownTimer := time.NewTimer(shutdownTimeout)
		defer shutdownTimer.Stop()

		select {
		case <-shutdownTimer.C:
			logger.Warn("shutdown timeout exceeded, forcing exit")
			return 1
		case err := <-errChan:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("server stopped with error", "error", err)
				return 1
			}
		}

	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server error", "error", err)
			return 1
		}
	}

	return 0
}

// ingestStartupFile replaces the stored records with the content of the
// configured startup file. A failure is logged and the server still starts.
func ingestStartupFile(ctx context.Context, app *analyzer.App, logger *slog.Logger) {
	path := analyzer.ConfigSpec.GetString("ingest.startup-file")
	if path == "" {
		return
	}

	result, err := app.IngestFile(ctx, path, app.RunOptions(ingest.ModeReplace))
	if err != nil {
		logger.Error("startup ingestion failed", "path", path, "error", err)
		return
	}
	logger.Info("startup ingestion completed",
		"path", path,
		"validEntries", result.ValidEntries,
		"invalidEntries", result.InvalidEntries)
}

func run() int {
	// Add command-line flags
	analyzer.ConfigSpec.AddFlag(pflag.CommandLine, "log-level", "log-level")

	configFileFlag := pflag.String("config-file", "", "Path to configuration file")
	pflag.Parse()

	// Load configuration
	configFile := *configFileFlag
	if configFile == "" {
		configFile = os.Getenv("LB_LOG_ANALYZER_CONFIG_FILE")
	}

	err := analyzer.ConfigSpec.LoadConfiguration(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		pflag.Usage()
		return 2
	}

	// Validate configuration
	err = analyzer.ValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation error: %v\n", err)
		return 2
	}

	// Set up logger
	logLevel := util.ParseLogLevel(analyzer.ConfigSpec.GetString("log-level"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	shutdownTimeout := analyzer.ConfigSpec.GetSeconds("shutdown-timeout-seconds")

	ctx := context.Background()
	app, err := analyzer.NewApp(ctx, analyzer.BuildConfig(logger))
	if err != nil {
		logger.Error("failed to create analyzer", "error", err)
		return 1
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("failed to close store", "error", closeErr)
		}
	}()

	// Start metrics server
	metricsServer, err := util.StartMetricsServerIfEnabled(
		analyzer.ConfigSpec, "metrics-server", prometheus.DefaultGatherer, logger)
	if err != nil {
		logger.Error("failed to start metrics server", "error", err)
		return 1
	}
	if metricsServer != nil {
		defer func() {
			if closeErr := metricsServer.Close(); closeErr != nil {
				logger.Error("failed to close metrics server", "error", closeErr)
			}
		}()
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalsChan := make(chan os.Signal, 1)
	signal.Notify(signalsChan, unix.SIGINT, unix.SIGTERM)

	// Start API server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Server.Run(ctx)
	}()

	// Runs hold the pipeline lock: uploads wait until the startup file is loaded
	startupDone := make(chan struct{})
	go func() {
		defer close(startupDone)
		ingestStartupFile(ctx, app, logger)
	}()

	// Wait for signal or error
	exitCode := waitForShutdown(cancel, logger, errChan, signalsChan, shutdownTimeout)

	// The store is closed on return, the startup run stops at its next batch
	cancel()
	<-startupDone

	if exitCode == 0 {
		logger.Info("lb-log-analyzer stopped")
	}
	return exitCode
}
