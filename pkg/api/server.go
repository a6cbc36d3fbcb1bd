// Package api serves the analyzer over HTTP: log upload, filtered queries,
// window statistics, CSV download and health.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/ingest"
	"github.com/scality/lb-log-analyzer/pkg/logquery"
	"github.com/scality/lb-log-analyzer/pkg/stats"
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

const (
	// DefaultBasePath prefixes every route
	DefaultBasePath = "/api"

	// DefaultMaxUploadBytes caps the size of an upload request body
	DefaultMaxUploadBytes = 512 << 20

	defaultShutdownTimeout   = 10 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	healthCheckTimeout       = 5 * time.Second
)

// Config holds HTTP server configuration
type Config struct {
	// Addr is the address to listen on (e.g. ":3001")
	Addr string

	// BasePath defaults to DefaultBasePath
	BasePath string

	// MaxUploadBytes defaults to DefaultMaxUploadBytes
	MaxUploadBytes int64

	// ShutdownTimeout bounds the graceful shutdown of Run
	ShutdownTimeout time.Duration

	// DefaultFormat is the line format of uploads without a format parameter
	DefaultFormat accesslog.Format

	Store      storage.Store
	Pipeline   *ingest.Pipeline
	Engine     *logquery.Engine
	Aggregator *stats.Aggregator

	Metrics *Metrics
	Logger  *slog.Logger
}

// Server is the HTTP API server
type Server struct {
	cfg     Config
	handler http.Handler
	metrics *Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server and its routes
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Pipeline == nil || cfg.Engine == nil || cfg.Aggregator == nil {
		return nil, fmt.Errorf("store, pipeline, engine and aggregator must be provided")
	}
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	if cfg.BasePath == "/" {
		cfg.BasePath = ""
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxUploadBytes < 0 {
		return nil, fmt.Errorf("max upload bytes must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = accesslog.FormatFull
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	s.route(mux, http.MethodPost, "/upload", "upload", s.handleUpload)
	s.route(mux, http.MethodGet, "/logs", "logs", s.handleLogs)
	s.route(mux, http.MethodGet, "/statistics", "statistics", s.handleStatistics)
	s.route(mux, http.MethodGet, "/download-logs", "download", s.handleDownload)
	s.route(mux, http.MethodGet, "/health", "health", s.handleHealth)

	s.handler = gzhttp.GzipHandler(mux)
	return s, nil
}

func (s *Server) route(mux *http.ServeMux, method, path, name string, h http.HandlerFunc) {
	mux.Handle(method+" "+s.cfg.BasePath+path, s.instrument(name, h))
}

// Handler returns the root handler, for embedding in another server
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listening address, nil before Run has started listening
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listenConfig := &net.ListenConfig{}
	listener, err := listenConfig.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.logger.Info("api server started", "address", listener.Addr().String(), "basePath", s.cfg.BasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("api server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down api server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	}
}
