package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/scality/lb-log-analyzer/pkg/analyzer"
	"github.com/scality/lb-log-analyzer/pkg/ingest"
	"github.com/scality/lb-log-analyzer/pkg/util"
)

func main() {
	os.Exit(run())
}

type options struct {
	file     string
	bucket   string
	prefix   string
	mode     ingest.Mode
	fromFile bool
}

func parseOptions(file, bucket, prefix, mode string) (options, error) {
	opts := options{file: file, bucket: bucket, prefix: prefix}
	switch {
	case file != "" && bucket != "":
		return opts, fmt.Errorf("--file and --s3-bucket are mutually exclusive")
	case prefix != "" && bucket == "":
		return opts, fmt.Errorf("--s3-prefix requires --s3-bucket")
	case file == "" && bucket == "":
		return opts, fmt.Errorf("one of --file or --s3-bucket is required")
	}
	opts.fromFile = file != ""

	m, err := ingest.ParseMode(mode)
	if err != nil {
		return opts, err
	}
	opts.mode = m
	return opts, nil
}

func printResult(result *ingest.Result) {
	if result == nil {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

func run() int {
	analyzer.ConfigSpec.AddFlag(pflag.CommandLine, "log-level", "log-level")
	analyzer.ConfigSpec.AddFlag(pflag.CommandLine, "line-format", "ingest.line-format")

	configFileFlag := pflag.String("config-file", "", "Path to configuration file")
	fileFlag := pflag.String("file", "", "Log file to ingest, - for stdin")
	bucketFlag := pflag.String("s3-bucket", "", "S3 bucket holding the log objects")
	prefixFlag := pflag.String("s3-prefix", "", "Key prefix of the log objects")
	modeFlag := pflag.String("mode", string(ingest.ModeAppend), "Ingestion mode (append|replace)")
	pflag.Parse()

	opts, err := parseOptions(*fileFlag, *bucketFlag, *prefixFlag, *modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage error: %v\n", err)
		pflag.Usage()
		return 2
	}

	configFile := *configFileFlag
	if configFile == "" {
		configFile = os.Getenv("LB_LOG_ANALYZER_CONFIG_FILE")
	}

	err = analyzer.ConfigSpec.LoadConfiguration(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		pflag.Usage()
		return 2
	}

	err = analyzer.ValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation error: %v\n", err)
		return 2
	}

	// stdout carries the result
	logLevel := util.ParseLogLevel(analyzer.ConfigSpec.GetString("log-level"))
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer cancel()

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

	var result *ingest.Result
	if opts.fromFile {
		result, err = app.IngestFile(ctx, opts.file, app.RunOptions(opts.mode))
	} else {
		result, err = app.IngestS3(ctx, opts.bucket, opts.prefix, app.RunOptions(opts.mode))
	}
	printResult(result)
	if err != nil {
		logger.Error("ingestion failed", "error", err)
		return 1
	}

	logger.Info("ingestion completed",
		"runId", result.RunID,
		"validEntries", result.ValidEntries,
		"invalidEntries", result.InvalidEntries)
	return 0
}
