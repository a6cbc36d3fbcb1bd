package analyzer

import "github.com/scality/lb-log-analyzer/pkg/util"

// ConfigSpec defines all configuration items for lb-log-analyzer
//
//nolint:gochecknoglobals // global config spec is intentional
var ConfigSpec = util.ConfigSpec{
	// General
	"log-level": util.ConfigVarSpec{
		Help:         "Log level (error|warn|info|debug)",
		DefaultValue: "info",
		EnvVar:       "LB_LOG_ANALYZER_LOG_LEVEL",
	},
	"shutdown-timeout-seconds": util.ConfigVarSpec{
		Help:         "Maximum time to wait for a graceful shutdown",
		DefaultValue: 30,
		EnvVar:       "LB_LOG_ANALYZER_SHUTDOWN_TIMEOUT_SECONDS",
	},

	// HTTP API
	"server.listen-address": util.ConfigVarSpec{
		Help:         "API server listen address",
		DefaultValue: "0.0.0.0",
		EnvVar:       "LB_LOG_ANALYZER_SERVER_LISTEN_ADDRESS",
	},
	"server.listen-port": util.ConfigVarSpec{
		Help:         "API server listen port",
		DefaultValue: 3001,
		EnvVar:       "LB_LOG_ANALYZER_SERVER_LISTEN_PORT",
	},
	"server.base-path": util.ConfigVarSpec{
		Help:         "Path prefix of every API route",
		DefaultValue: "/api",
		EnvVar:       "LB_LOG_ANALYZER_SERVER_BASE_PATH",
	},
	"server.max-upload-bytes": util.ConfigVarSpec{
		Help:         "Maximum size of an upload request body",
		DefaultValue: 512 << 20,
		EnvVar:       "LB_LOG_ANALYZER_SERVER_MAX_UPLOAD_BYTES",
	},

	// Storage
	"storage.backend": util.ConfigVarSpec{
		Help:         "Storage backend (duckdb|clickhouse)",
		DefaultValue: BackendDuckDB,
		EnvVar:       "LB_LOG_ANALYZER_STORAGE_BACKEND",
	},
	"duckdb.path": util.ConfigVarSpec{
		Help:         "DuckDB database file, empty for an in-memory database",
		DefaultValue: "",
		EnvVar:       "LB_LOG_ANALYZER_DUCKDB_PATH",
	},
	"duckdb.memory-limit": util.ConfigVarSpec{
		Help:         "DuckDB memory limit (e.g. 1GB), empty for the DuckDB default",
		DefaultValue: "",
		EnvVar:       "LB_LOG_ANALYZER_DUCKDB_MEMORY_LIMIT",
	},

	// ClickHouse connection
	"clickhouse.url": util.ConfigVarSpec{
		Help:         "ClickHouse hosts, comma-separated",
		DefaultValue: "localhost:9000",
		EnvVar:       "LB_LOG_ANALYZER_CLICKHOUSE_URL",
		ParseFunc:    util.ParseHostList,
	},
	"clickhouse.username": util.ConfigVarSpec{
		Help:         "ClickHouse username",
		DefaultValue: "default",
		EnvVar:       "LB_LOG_ANALYZER_CLICKHOUSE_USERNAME",
	},
	"clickhouse.password": util.ConfigVarSpec{
		Help:         "ClickHouse password",
		DefaultValue: "",
		EnvVar:       "LB_LOG_ANALYZER_CLICKHOUSE_PASSWORD",
	},
	"clickhouse.database": util.ConfigVarSpec{
		Help:         "ClickHouse database holding the access log table",
		DefaultValue: "logs",
		EnvVar:       "LB_LOG_ANALYZER_CLICKHOUSE_DATABASE",
	},
	"clickhouse.timeout-seconds": util.ConfigVarSpec{
		Help:         "ClickHouse query timeout in seconds",
		DefaultValue: 30,
		EnvVar:       "LB_LOG_ANALYZER_CLICKHOUSE_TIMEOUT_SECONDS",
	},

	// Connection retry
	"retry.max-retries": util.ConfigVarSpec{
		Help:         "Connection retries after the initial attempt",
		DefaultValue: 3,
		EnvVar:       "LB_LOG_ANALYZER_RETRY_MAX_RETRIES",
	},
	"retry.initial-backoff-seconds": util.ConfigVarSpec{
		Help:         "Initial connection retry backoff in seconds",
		DefaultValue: 1,
		EnvVar:       "LB_LOG_ANALYZER_RETRY_INITIAL_BACKOFF_SECONDS",
	},
	"retry.max-backoff-seconds": util.ConfigVarSpec{
		Help:         "Maximum connection retry backoff in seconds",
		DefaultValue: 30,
		EnvVar:       "LB_LOG_ANALYZER_RETRY_MAX_BACKOFF_SECONDS",
	},

	// Ingestion
	"ingest.batch-size": util.ConfigVarSpec{
		Help:         "Records written per storage transaction",
		DefaultValue: 100,
		EnvVar:       "LB_LOG_ANALYZER_INGEST_BATCH_SIZE",
	},
	"ingest.invalid-sample-limit": util.ConfigVarSpec{
		Help:         "Maximum invalid lines reported per run, 0 for no limit",
		DefaultValue: 1000,
		EnvVar:       "LB_LOG_ANALYZER_INGEST_INVALID_SAMPLE_LIMIT",
	},
	"ingest.startup-file": util.ConfigVarSpec{
		Help:         "Log file loaded in replace mode when the server starts, empty to skip",
		DefaultValue: "",
		EnvVar:       "LB_LOG_ANALYZER_INGEST_STARTUP_FILE",
	},
	"ingest.line-format": util.ConfigVarSpec{
		Help:         "Default line format (full|quoted)",
		DefaultValue: "full",
		EnvVar:       "LB_LOG_ANALYZER_INGEST_LINE_FORMAT",
	},

	// Queries
	"query.default-limit": util.ConfigVarSpec{
		Help:         "Page size when a query gives no limit",
		DefaultValue: 100,
		EnvVar:       "LB_LOG_ANALYZER_QUERY_DEFAULT_LIMIT",
	},
	"query.max-limit": util.ConfigVarSpec{
		Help:         "Largest page size a query may request",
		DefaultValue: 1000,
		EnvVar:       "LB_LOG_ANALYZER_QUERY_MAX_LIMIT",
	},

	// S3 source
	"s3.endpoint": util.ConfigVarSpec{
		Help:         "S3 endpoint URL, empty for AWS",
		DefaultValue: "",
		EnvVar:       "LB_LOG_ANALYZER_S3_ENDPOINT",
	},
	"s3.region": util.ConfigVarSpec{
		Help:         "S3 region",
		DefaultValue: "us-east-1",
		EnvVar:       "LB_LOG_ANALYZER_S3_REGION",
	},
	"s3.access-key-id": util.ConfigVarSpec{
		Help:         "S3 access key ID, empty to use the default credential chain",
		DefaultValue: "",
		EnvVar:       "LB_LOG_ANALYZER_S3_ACCESS_KEY_ID",
	},
	"s3.secret-access-key": util.ConfigVarSpec{
		Help:         "S3 secret access key",
		DefaultValue: "",
		EnvVar:       "LB_LOG_ANALYZER_S3_SECRET_ACCESS_KEY",
	},
	"s3.max-retry-attempts": util.ConfigVarSpec{
		Help:         "Maximum S3 request attempts",
		DefaultValue: 3,
		EnvVar:       "LB_LOG_ANALYZER_S3_MAX_RETRY_ATTEMPTS",
	},
	"s3.max-backoff-delay-seconds": util.ConfigVarSpec{
		Help:         "Maximum S3 retry backoff in seconds",
		DefaultValue: 20,
		EnvVar:       "LB_LOG_ANALYZER_S3_MAX_BACKOFF_DELAY_SECONDS",
	},

	// Metrics server
	"metrics-server.enabled": util.ConfigVarSpec{
		Help:         "Serve Prometheus metrics on a separate listener",
		DefaultValue: false,
		EnvVar:       "LB_LOG_ANALYZER_METRICS_SERVER_ENABLED",
	},
	"metrics-server.listen-address": util.ConfigVarSpec{
		Help:         "Metrics server listen address",
		DefaultValue: "0.0.0.0",
		EnvVar:       "LB_LOG_ANALYZER_METRICS_SERVER_LISTEN_ADDRESS",
	},
	"metrics-server.listen-port": util.ConfigVarSpec{
		Help:         "Metrics server listen port",
		DefaultValue: 9100,
		EnvVar:       "LB_LOG_ANALYZER_METRICS_SERVER_LISTEN_PORT",
	},
}
