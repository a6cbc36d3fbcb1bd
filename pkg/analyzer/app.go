// Package analyzer wires the configured storage backend, ingestion pipeline,
// query engine, statistics aggregator and HTTP API into one App.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/api"
	"github.com/scality/lb-log-analyzer/pkg/clickhouse"
	"github.com/scality/lb-log-analyzer/pkg/duckdb"
	"github.com/scality/lb-log-analyzer/pkg/ingest"
	"github.com/scality/lb-log-analyzer/pkg/logquery"
	"github.com/scality/lb-log-analyzer/pkg/s3"
	"github.com/scality/lb-log-analyzer/pkg/source"
	"github.com/scality/lb-log-analyzer/pkg/stats"
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

// Config holds the settings of every App component
//
//nolint:govet // fieldalignment: logical field grouping preferred over minor memory optimization
type Config struct {
	Backend    string
	DuckDB     duckdb.Config
	ClickHouse clickhouse.Config

	BatchSize          int
	InvalidSampleLimit int
	LineFormat         accesslog.Format

	DefaultLimit int
	MaxLimit     int

	ListenAddr      string
	BasePath        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	S3 s3.Config

	// Registerer receives every component metric, prometheus.DefaultRegisterer when nil
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// BuildConfig creates an App config from ConfigSpec
func BuildConfig(logger *slog.Logger) Config {
	format, err := accesslog.ParseFormat(ConfigSpec.GetString("ingest.line-format"))
	if err != nil {
		format = accesslog.FormatFull
	}
	retries := ConfigSpec.GetInt("retry.max-retries")
	initialBackoff := ConfigSpec.GetSeconds("retry.initial-backoff-seconds")
	maxBackoff := ConfigSpec.GetSeconds("retry.max-backoff-seconds")

	return Config{
		Backend: ConfigSpec.GetString("storage.backend"),
		DuckDB: duckdb.Config{
			Path:        ConfigSpec.GetString("duckdb.path"),
			MemoryLimit: ConfigSpec.GetString("duckdb.memory-limit"),
			Logger:      logger,
		},
		ClickHouse: clickhouse.Config{
			Hosts:          ConfigSpec.GetStringSlice("clickhouse.url"),
			Username:       ConfigSpec.GetString("clickhouse.username"),
			Password:       ConfigSpec.GetString("clickhouse.password"),
			Database:       ConfigSpec.GetString("clickhouse.database"),
			Timeout:        ConfigSpec.GetSeconds("clickhouse.timeout-seconds"),
			MaxRetries:     retries,
			InitialBackoff: initialBackoff,
			MaxBackoff:     maxBackoff,
			Logger:         logger,
		},
		BatchSize:          ConfigSpec.GetInt("ingest.batch-size"),
		InvalidSampleLimit: ConfigSpec.GetInt("ingest.invalid-sample-limit"),
		LineFormat:         format,
		DefaultLimit:       ConfigSpec.GetInt("query.default-limit"),
		MaxLimit:           ConfigSpec.GetInt("query.max-limit"),
		ListenAddr: net.JoinHostPort(
			ConfigSpec.GetString("server.listen-address"),
			strconv.Itoa(ConfigSpec.GetInt("server.listen-port"))),
		BasePath:        ConfigSpec.GetString("server.base-path"),
		MaxUploadBytes:  int64(ConfigSpec.GetInt("server.max-upload-bytes")),
		ShutdownTimeout: ConfigSpec.GetSeconds("shutdown-timeout-seconds"),
		S3: s3.Config{
			Endpoint:         ConfigSpec.GetString("s3.endpoint"),
			Region:           ConfigSpec.GetString("s3.region"),
			AccessKeyID:      ConfigSpec.GetString("s3.access-key-id"),
			SecretAccessKey:  ConfigSpec.GetString("s3.secret-access-key"),
			MaxRetryAttempts: ConfigSpec.GetInt("s3.max-retry-attempts"),
			MaxBackoffDelay:  ConfigSpec.GetSeconds("s3.max-backoff-delay-seconds"),
		},
		Logger: logger,
	}
}

// App owns the store and the components built on it
type App struct {
	Store      storage.Store
	Pipeline   *ingest.Pipeline
	Engine     *logquery.Engine
	Aggregator *stats.Aggregator
	Server     *api.Server

	cfg    Config
	logger *slog.Logger
}

// OpenStore opens the configured backend and ensures its schema
func OpenStore(ctx context.Context, cfg Config) (*storage.SQLStore, error) {
	switch cfg.Backend {
	case "", BackendDuckDB:
		return duckdb.Open(ctx, cfg.DuckDB)
	case BackendClickHouse:
		return clickhouse.Open(ctx, cfg.ClickHouse)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewApp opens the store and builds every component. Close releases the store.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.LineFormat == "" {
		cfg.LineFormat = accesslog.FormatFull
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}

	app, err := newApp(store, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func newApp(store storage.Store, cfg Config) (*App, error) {
	pipeline, err := ingest.NewPipeline(ingest.Config{
		Store:              store,
		BatchSize:          cfg.BatchSize,
		InvalidSampleLimit: cfg.InvalidSampleLimit,
		Metrics:            ingest.NewMetricsWithRegistry(cfg.Registerer),
		Logger:             cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	engine, err := logquery.NewEngine(logquery.Config{
		Store:        store,
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create query engine: %w", err)
	}

	aggregator, err := stats.NewAggregator(stats.Config{Store: store, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create statistics aggregator: %w", err)
	}

	server, err := api.NewServer(api.Config{
		Addr:            cfg.ListenAddr,
		BasePath:        cfg.BasePath,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ShutdownTimeout: cfg.ShutdownTimeout,
		DefaultFormat:   cfg.LineFormat,
		Store:           store,
		Pipeline:        pipeline,
		Engine:          engine,
		Aggregator:      aggregator,
		Metrics:         api.NewMetricsWithRegistry(cfg.Registerer),
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create api server: %w", err)
	}

	return &App{
		Store:      store,
		Pipeline:   pipeline,
		Engine:     engine,
		Aggregator: aggregator,
		Server:     server,
		cfg:        cfg,
		logger:     cfg.Logger,
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}

// RunOptions returns ingestion options for mode using the configured line format
func (a *App) RunOptions(mode ingest.Mode) ingest.RunOptions {
	return ingest.RunOptions{Mode: mode, Format: a.cfg.LineFormat}
}

// IngestFile runs the pipeline over a local file, "-" for stdin. Gzip files
// are decompressed.
func (a *App) IngestFile(ctx context.Context, path string, opts ingest.RunOptions) (*ingest.Result, error) {
	rc, err := source.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	a.logger.Info("ingesting file", "path", path, "mode", opts.Mode)
	return a.Pipeline.Run(ctx, rc, opts)
}

// IngestS3 runs the pipeline over every object under prefix, in key order
func (a *App) IngestS3(ctx context.Context, bucket, prefix string, opts ingest.RunOptions) (*ingest.Result, error) {
	client, err := s3.NewClient(ctx, a.cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	rc, err := source.OpenS3(ctx, s3.NewDownloader(client), bucket, prefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	a.logger.Info("ingesting s3 objects", "bucket", bucket, "prefix", prefix, "mode", opts.Mode)
	return a.Pipeline.Run(ctx, rc, opts)
}
