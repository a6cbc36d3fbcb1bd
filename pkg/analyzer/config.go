package analyzer

import (
	"fmt"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
)

// Storage backends
const (
	BackendDuckDB     = "duckdb"
	BackendClickHouse = "clickhouse"
)

const (
	// MaxBatchSize is the hard limit to prevent OOM
	MaxBatchSize = 100_000
)

// ValidateConfig performs additional validation beyond required field checks
func ValidateConfig() error {
	logLevel := ConfigSpec.GetString("log-level")
	validLevels := map[string]bool{"error": true, "warn": true, "info": true, "debug": true}
	if !validLevels[logLevel] {
		return fmt.Errorf("invalid log-level: %s (must be error|warn|info|debug)", logLevel)
	}

	backend := ConfigSpec.GetString("storage.backend")
	switch backend {
	case BackendDuckDB:
	case BackendClickHouse:
		if len(ConfigSpec.GetStringSlice("clickhouse.url")) == 0 {
			return fmt.Errorf("clickhouse.url must list at least one host")
		}
	default:
		return fmt.Errorf("invalid storage.backend: %s (must be duckdb|clickhouse)", backend)
	}

	if _, err := accesslog.ParseFormat(ConfigSpec.GetString("ingest.line-format")); err != nil {
		return fmt.Errorf("invalid ingest.line-format: %w", err)
	}

	port := ConfigSpec.GetInt("server.listen-port")
	if port < 0 || port > 65535 {
		return fmt.Errorf("server.listen-port must be in [0, 65535], got %d", port)
	}

	batchSize := ConfigSpec.GetInt("ingest.batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("ingest.batch-size must be positive, got %d", batchSize)
	}
	if batchSize > MaxBatchSize {
		return fmt.Errorf("ingest.batch-size (%d) exceeds maximum allowed (%d)", batchSize, MaxBatchSize)
	}

	if limit := ConfigSpec.GetInt("ingest.invalid-sample-limit"); limit < 0 {
		return fmt.Errorf("ingest.invalid-sample-limit must not be negative, got %d", limit)
	}

	maxUpload := ConfigSpec.GetInt("server.max-upload-bytes")
	if maxUpload <= 0 {
		return fmt.Errorf("server.max-upload-bytes must be positive, got %d", maxUpload)
	}

	defaultLimit := ConfigSpec.GetInt("query.default-limit")
	maxLimit := ConfigSpec.GetInt("query.max-limit")
	if defaultLimit <= 0 {
		return fmt.Errorf("query.default-limit must be positive, got %d", defaultLimit)
	}
	if maxLimit < defaultLimit {
		return fmt.Errorf("query.max-limit (%d) must not be below query.default-limit (%d)", maxLimit, defaultLimit)
	}

	timeout := ConfigSpec.GetInt("shutdown-timeout-seconds")
	if timeout <= 0 {
		return fmt.Errorf("shutdown-timeout-seconds must be positive, got %d", timeout)
	}

	maxRetryAttempts := ConfigSpec.GetInt("s3.max-retry-attempts")
	if maxRetryAttempts <= 0 {
		return fmt.Errorf("s3.max-retry-attempts must be positive, got %d", maxRetryAttempts)
	}

	maxBackoffDelay := ConfigSpec.GetInt("s3.max-backoff-delay-seconds")
	if maxBackoffDelay <= 0 {
		return fmt.Errorf("s3.max-backoff-delay-seconds must be positive, got %d", maxBackoffDelay)
	}

	return nil
}
